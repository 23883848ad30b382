package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// newUpgrader accepts upgrades from the configured origins. An empty list
// or "*" accepts any origin.
func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 || allowed["*"] {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
}

// envelope is every message a client sends.
type envelope struct {
	Type    string          `json:"type"`
	RouteID string          `json:"route_id,omitempty"`
	Zoom    *int            `json:"zoom,omitempty"`
	Query   json.RawMessage `json:"query,omitempty"`
}

// wsClient owns one socket. Writes go through send and are performed by
// writePump only; the channel is never closed, done is.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// sendJSON queues v. A client that cannot keep up is disconnected rather
// than allowed to block the publisher.
func (c *wsClient) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS] marshal %T: %v", v, err)
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		log.Printf("[WS] send buffer full, dropping client %s", c.conn.RemoteAddr())
		c.close()
	}
}

func (c *wsClient) sendError(message string) {
	c.sendJSON(map[string]string{"type": "error", "error": message})
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump delivers each decoded envelope to handle until the socket fails
// or the client is closed.
func (c *wsClient) readPump(handle func(env envelope)) {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("invalid_json")
			continue
		}
		handle(env)
		select {
		case <-c.done:
			return
		default:
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
