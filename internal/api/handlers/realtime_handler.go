package handlers

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"poholowani/internal/api/middleware"
	"poholowani/internal/config"
	"poholowani/internal/mapview"
	"poholowani/internal/realtime"
	"poholowani/internal/services"
)

// RealtimeHandler serves the two websocket sessions: the unread badge and
// the interactive map.
type RealtimeHandler struct {
	bus                 realtime.Bus
	conversationService *services.ConversationService
	searchService       *services.SearchService
	mapConfig           config.MapConfig
	upgrader            websocket.Upgrader
}

func NewRealtimeHandler(
	bus realtime.Bus,
	conversationService *services.ConversationService,
	searchService *services.SearchService,
	cfg *config.Config,
) *RealtimeHandler {
	return &RealtimeHandler{
		bus:                 bus,
		conversationService: conversationService,
		searchService:       searchService,
		mapConfig:           cfg.Map,
		upgrader:            newUpgrader(cfg.Server.AllowedOrigins),
	}
}

type unreadMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Unread handles GET /ws/unread. The socket pushes the user's total unread
// count on connect and after every change to one of their conversations.
// Sending {"type":"logout"} stops the feed; {"type":"refresh"} re-fetches.
func (h *RealtimeHandler) Unread(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}
	client := newWSClient(conn)
	go client.writePump()

	// Each socket is one client with its own subscriptions, so two tabs of
	// the same user do not replace each other's feed.
	subs := realtime.NewSubscriptionManager(h.bus)
	defer subs.Close()
	agg := realtime.NewUnreadAggregator(h.conversationService, subs)
	agg.OnChange(func(n int) { client.sendJSON(unreadMessage{Type: "unread", Count: n}) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := agg.Login(ctx, userID); err != nil {
		log.Printf("[WS] unread login for %s failed: %v", userID, err)
		client.sendError("unread_unavailable")
	}
	client.sendJSON(unreadMessage{Type: "unread", Count: agg.Count()})

	client.readPump(func(env envelope) {
		switch env.Type {
		case "refresh":
			if err := agg.Refresh(ctx); err != nil {
				client.sendError("unread_unavailable")
			}
		case "logout":
			agg.Logout()
			client.close()
		default:
			client.sendError("unsupported_type")
		}
	})
	agg.Logout()
}

type mapResultMessage struct {
	Type   string                 `json:"type"`
	Result *services.SearchResult `json:"result"`
}

type mapActionMessage struct {
	Type   string         `json:"type"`
	Action mapview.Action `json:"action"`
}

// mapSession is one open map: its interaction layer and the filter it is
// showing. Route changes from any writer re-run the current filter.
type mapSession struct {
	client *wsClient
	search *services.SearchService
	layer  *mapview.Layer

	defaultZoom int

	mu    sync.Mutex
	query services.SearchQuery
	zoom  int
}

// Map handles GET /ws/map. Messages:
//
//	{"type":"search","query":{...}}   filter (empty query = overview)
//	{"type":"zoom","zoom":7}          re-cluster the overview
//	{"type":"reset"}                  back to the initial map
//	{"type":"pointer_enter"|"pointer_leave"|"popup_enter"|"popup_leave"|"click"|"dismiss","route_id":"..."}
//
// The server answers with "result" messages (matches, clusters, viewport)
// and "action" messages (style, popup and mode changes).
func (h *RealtimeHandler) Map(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}
	client := newWSClient(conn)
	go client.writePump()

	s := &mapSession{
		client:      client,
		search:      h.searchService,
		defaultZoom: h.mapConfig.DefaultZoom,
		zoom:        h.mapConfig.DefaultZoom,
	}
	s.layer = mapview.NewLayer(mapview.Options{
		OpenDelay:  h.mapConfig.OpenDelay,
		CloseDelay: h.mapConfig.CloseDelay,
		Emit: func(a mapview.Action) {
			client.sendJSON(mapActionMessage{Type: "action", Action: a})
		},
	})
	defer s.layer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subs := realtime.NewSubscriptionManager(h.bus)
	defer subs.Close()
	subs.Subscribe(middleware.GetUserID(c), realtime.RoutesTopic, func(realtime.Event) {
		s.refresh(ctx)
	})

	s.reset(ctx)
	client.readPump(func(env envelope) { s.handle(ctx, env) })
}

func (s *mapSession) handle(ctx context.Context, env envelope) {
	switch env.Type {
	case "search":
		var q services.SearchQuery
		if len(env.Query) > 0 {
			if err := json.Unmarshal(env.Query, &q); err != nil {
				s.client.sendError("invalid_query")
				return
			}
		}
		s.apply(ctx, q)
	case "zoom":
		if env.Zoom == nil {
			s.client.sendError("missing_zoom")
			return
		}
		s.mu.Lock()
		s.zoom = *env.Zoom
		s.mu.Unlock()
		s.refresh(ctx)
	case "reset":
		s.reset(ctx)
	case "pointer_enter":
		s.layer.PointerEnter(env.RouteID)
	case "pointer_leave":
		s.layer.PointerLeave(env.RouteID)
	case "popup_enter":
		s.layer.PopupEnter(env.RouteID)
	case "popup_leave":
		s.layer.PopupLeave(env.RouteID)
	case "click":
		s.layer.Click(env.RouteID)
	case "dismiss":
		s.layer.DismissPopup(env.RouteID)
	default:
		s.client.sendError("unsupported_type")
	}
}

// apply runs a new filter. A new result always resets the layer, even when
// the mode stays the same. Leaving lines mode for clusters starts again from
// the default zoom.
func (s *mapSession) apply(ctx context.Context, q services.SearchQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zoom := s.zoom
	if !q.Active() && s.layer.State().Mode == mapview.ModeLines {
		zoom = s.defaultZoom
	}
	result, err := s.run(ctx, q, zoom)
	if err != nil {
		s.fail(err)
		return
	}
	s.query = q
	s.zoom = zoom
	s.layer.SetMode(result.Mode)
	s.layer.SetRoutes(result.RouteIDs())
	s.client.sendJSON(mapResultMessage{Type: "result", Result: result})
}

// refresh re-runs the current filter after routes changed, keeping hover
// and popup state for routes that are still shown.
func (s *mapSession) refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := s.run(ctx, s.query, s.zoom)
	if err != nil {
		s.fail(err)
		return
	}
	s.layer.SetRoutes(result.RouteIDs())
	s.client.sendJSON(mapResultMessage{Type: "result", Result: result})
}

func (s *mapSession) reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := s.search.Reset(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	s.query = services.SearchQuery{}
	s.zoom = s.defaultZoom
	s.layer.SetMode(result.Mode)
	s.client.sendJSON(mapResultMessage{Type: "result", Result: result})
}

func (s *mapSession) run(ctx context.Context, q services.SearchQuery, zoom int) (*services.SearchResult, error) {
	if !q.Active() {
		return s.search.Overview(ctx, zoom)
	}
	return s.search.Search(ctx, q)
}

func (s *mapSession) fail(err error) {
	_, message, _ := classify(err)
	s.client.sendError(message)
}
