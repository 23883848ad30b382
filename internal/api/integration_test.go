package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"poholowani/internal/config"
	"poholowani/internal/db"
	"poholowani/internal/domain/entities"
	"poholowani/internal/repository/gormrepo"
	"poholowani/internal/routing"
)

// fakeDirections draws a straight line through the waypoints.
type fakeDirections struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeDirections) Directions(_ context.Context, waypoints []entities.Location) (*entities.RouteGeometry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	g := &entities.RouteGeometry{DistanceMeters: 570000, DurationSeconds: 20000}
	for _, wp := range waypoints {
		g.Coordinates = append(g.Coordinates, wp.LngLat())
	}
	return g, nil
}

func (f *fakeDirections) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeDirections) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	engine     *gin.Engine
	server     *Server
	directions *fakeDirections
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	geocodeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[21.0122,52.2297]},
"properties":{"label":"Warszawa, Polska","country_a":"POL"}}]}`))
	}))
	t.Cleanup(geocodeSrv.Close)

	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("userId") == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"error":"missing user"}`))
			return
		}
		w.Write([]byte(`{"success":true,"url":"https://cdn.example/img.png"}`))
	}))
	t.Cleanup(uploadSrv.Close)

	cfg := config.NewDefaultConfig()
	cfg.Auth.JWTSecret = "integration-secret"
	cfg.Auth.BcryptCost = 4
	cfg.Upload.Endpoint = uploadSrv.URL
	cfg.Map.OpenDelay = 0
	cfg.Map.CloseDelay = 10 * time.Millisecond

	conn, err := db.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })

	directions := &fakeDirections{}
	engine := gin.New()
	server := NewServer(engine, Deps{
		Config:     cfg,
		Repos:      gormrepo.New(conn),
		Directions: directions,
		Geocoder:   routing.NewGeocoder(routing.GeocoderOptions{BaseURL: geocodeSrv.URL, Retry: cfg.Geocoding.Retry}),
	})
	t.Cleanup(server.Close)

	return &testEnv{engine: engine, server: server, directions: directions}
}

type request struct {
	method       string
	path         string
	body         string
	token        string
	browserToken string
}

func (e *testEnv) do(r request) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if r.body != "" {
		body = bytes.NewBufferString(r.body)
	} else {
		body = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(r.method, r.path, body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.browserToken != "" {
		req.Header.Set("X-Browser-Token", r.browserToken)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) signup(t *testing.T, email string) (token, userID string) {
	t.Helper()
	w := e.do(request{method: "POST", path: "/auth/signup", body: `{"email":"` + email + `","password":"correct-horse"}`})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	var pair struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	json.Unmarshal(w.Body.Bytes(), &pair)
	return pair.AccessToken, pair.User.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return response
}

func routeBody(formID string, extra string) string {
	return routeBodyFrom(formID, "52.2297", "21.0122", extra)
}

func routeBodyFrom(formID, lat, lng, extra string) string {
	date := time.Now().AddDate(0, 0, 1).Format(entities.DateLayout)
	body := `{"form_id":"` + formID + `",
"origin":{"label":"Warszawa","lat":` + lat + `,"lng":` + lng + `},
"destination":{"label":"Berlin","lat":52.52,"lng":13.405},
"date":"` + date + `","vehicle_type":"bus"`
	if extra != "" {
		body += "," + extra
	}
	return body + "}"
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(request{method: "GET", path: "/health"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestAnonymousRouteCreate(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-a", ""), browserToken: "browser-1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["id"] == nil || response["id"] == "" {
		t.Error("Expected id in response")
	}
	if response["route_geometry"] == nil {
		t.Error("Expected route_geometry in response")
	}
	if response["user_id"] != nil {
		t.Errorf("Expected anonymous offer, got user_id %v", response["user_id"])
	}
	if env.directions.callCount() != 1 {
		t.Errorf("Expected 1 routing call, got %d", env.directions.callCount())
	}

	list := env.do(request{method: "GET", path: "/api/routes"})
	routes, _ := decode(t, list)["routes"].([]interface{})
	if len(routes) != 1 {
		t.Errorf("Expected 1 listed route, got %d", len(routes))
	}
}

func TestRouteCreateRequiresPhoneConsent(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-b", `"phone":"+48 600 100 200"`)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d. Body: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["retryable"] != false {
		t.Error("Expected validation error to be non-retryable")
	}
	if env.directions.callCount() != 0 {
		t.Errorf("Expected no routing call for an invalid form, got %d", env.directions.callCount())
	}
}

func TestRouteOwnership(t *testing.T) {
	env := setupTestServer(t)
	owner, ownerID := env.signup(t, "owner@example.com")
	other, _ := env.signup(t, "other@example.com")

	w := env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-c", ""), token: owner})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	id, _ := created["id"].(string)
	if created["user_id"] != ownerID {
		t.Errorf("Expected user_id %s, got %v", ownerID, created["user_id"])
	}

	w = env.do(request{method: "PUT", path: "/api/routes/" + id, body: routeBody("form-d", ""), token: other})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for a foreign edit, got %d", w.Code)
	}
	w = env.do(request{method: "DELETE", path: "/api/routes/" + id})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for an anonymous delete, got %d", w.Code)
	}

	w = env.do(request{method: "GET", path: "/api/routes/mine", token: owner})
	mine, _ := decode(t, w)["routes"].([]interface{})
	if len(mine) != 1 {
		t.Errorf("Expected 1 owned route, got %d", len(mine))
	}

	w = env.do(request{method: "DELETE", path: "/api/routes/" + id, token: owner})
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d. Body: %s", w.Code, w.Body.String())
	}
	w = env.do(request{method: "GET", path: "/api/routes/" + id})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestInvalidTokenIsRejected(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(request{method: "GET", path: "/api/routes", token: "garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	req, _ := http.NewRequest("GET", "/api/routes", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for a malformed header, got %d", rec.Code)
	}
}

func TestRoutingFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"engine unavailable", &routing.StatusError{Service: "routing", Code: 503}, http.StatusBadGateway, true},
		{"engine rejects request", &routing.StatusError{Service: "routing", Code: 400}, http.StatusBadGateway, false},
		{"no route", routing.ErrNoRoute, http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t)
			env.directions.setErr(tt.err)

			w := env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-e", "")})
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d. Body: %s", tt.status, w.Code, w.Body.String())
			}
			response := decode(t, w)
			if response["retryable"] != tt.retryable {
				t.Errorf("Expected retryable %v, got %v", tt.retryable, response["retryable"])
			}
			if response["error"] == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestDraftPreviewIsReusedOnSubmit(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(request{method: "POST", path: "/api/routes/drafts/form-f/preview", body: routeBody("", "")})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["geometry"] == nil {
		t.Error("Expected geometry in preview")
	}

	w = env.do(request{method: "GET", path: "/api/routes/drafts/form-f"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected draft snapshot, got %d", w.Code)
	}

	w = env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-f", "")})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	if env.directions.callCount() != 1 {
		t.Errorf("Expected the preview geometry to be reused, got %d routing calls", env.directions.callCount())
	}

	w = env.do(request{method: "POST", path: "/api/routes/drafts/form-g/preview", body: `{"origin":{"label":"Warszawa","lat":52.2,"lng":21.0}}`})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without a destination, got %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := setupTestServer(t)
	if w := env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-h", "")}); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	w := env.do(request{method: "POST", path: "/api/routes/search", body: `{"origin":{"lat":52.23,"lng":21.01}}`})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["mode"] != "lines" {
		t.Errorf("Expected lines mode, got %v", response["mode"])
	}
	matches, _ := response["matches"].([]interface{})
	if len(matches) != 1 {
		t.Errorf("Expected 1 match, got %d", len(matches))
	}
	if response["fallback"] != "results" {
		t.Errorf("Expected fallback results, got %v", response["fallback"])
	}

	w = env.do(request{method: "GET", path: "/api/routes/overview"})
	if response := decode(t, w); response["mode"] != "clusters" {
		t.Errorf("Expected clusters mode for the overview, got %v", response["mode"])
	}
	w = env.do(request{method: "GET", path: "/api/routes/overview?zoom=x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad zoom, got %d", w.Code)
	}
}

func TestUrgentRequestEndpoint(t *testing.T) {
	env := setupTestServer(t)

	body := `{"vehicle_type":"laweta","origin":{"label":"Warszawa","lat":52.2297,"lng":21.0122},"problem":"Flat tyre on the A2"}`
	w := env.do(request{method: "POST", path: "/api/urgent", body: body})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["request"] == nil {
		t.Error("Expected request in response")
	}

	w = env.do(request{method: "GET", path: "/api/urgent"})
	requests, _ := decode(t, w)["requests"].([]interface{})
	if len(requests) != 1 {
		t.Errorf("Expected 1 visible request, got %d", len(requests))
	}

	w = env.do(request{method: "POST", path: "/api/urgent", body: `{"vehicle_type":"rower","origin":{"label":"X","lat":52,"lng":21},"problem":"x"}`})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an unknown vehicle, got %d", w.Code)
	}
}

func TestConversationUnreadCount(t *testing.T) {
	env := setupTestServer(t)
	owner, _ := env.signup(t, "owner@example.com")
	buyer, _ := env.signup(t, "buyer@example.com")

	w := env.do(request{method: "POST", path: "/api/announcements", body: `{"title":"Transport of a sofa"}`, token: owner})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	announcementID, _ := decode(t, w)["id"].(string)

	w = env.do(request{method: "POST", path: "/api/announcements/" + announcementID + "/conversations", token: buyer})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	conversationID, _ := decode(t, w)["id"].(string)

	w = env.do(request{method: "POST", path: "/api/conversations/" + conversationID + "/messages", body: `{"content":"Is it still available?"}`, token: buyer})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}

	w = env.do(request{method: "GET", path: "/api/unread", token: owner})
	if got := decode(t, w)["unread"]; got != float64(1) {
		t.Errorf("Expected 1 unread for the owner, got %v", got)
	}
	w = env.do(request{method: "GET", path: "/api/unread", token: buyer})
	if got := decode(t, w)["unread"]; got != float64(0) {
		t.Errorf("Expected 0 unread for the sender, got %v", got)
	}

	w = env.do(request{method: "POST", path: "/api/conversations/" + conversationID + "/read", token: owner})
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = env.do(request{method: "GET", path: "/api/unread", token: owner})
	if got := decode(t, w)["unread"]; got != float64(0) {
		t.Errorf("Expected 0 unread after reading, got %v", got)
	}

	w = env.do(request{method: "GET", path: "/api/unread"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for anonymous unread, got %d", w.Code)
	}
}

func TestGeocodeEndpoint(t *testing.T) {
	env := setupTestServer(t)

	w := env.do(request{method: "GET", path: "/api/geocode?text=warsz"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	var response struct {
		Places []routing.Place `json:"places"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if len(response.Places) != 1 || response.Places[0].Location.Latitude != 52.2297 {
		t.Errorf("Expected Warszawa at lat 52.2297, got %+v", response.Places)
	}
}

func TestUploadEndpoint(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.signup(t, "uploader@example.com")

	upload := func(token string, data []byte) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, _ := mw.CreateFormFile("file", "photo.png")
		part.Write(data)
		mw.Close()

		req, _ := http.NewRequest("POST", "/api/uploads", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)
		return w
	}

	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	w := upload(token, png)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	if response := decode(t, w); response["url"] != "https://cdn.example/img.png" {
		t.Errorf("Expected stored url, got %v", response["url"])
	}

	w = upload(token, []byte("just some text"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a non-image, got %d", w.Code)
	}
	w = upload("", png)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for an anonymous upload, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestServer(t)

	req, _ := http.NewRequest("OPTIONS", "/api/routes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, X-Browser-Token")
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin, got %q", got)
	}
}

// wsMessage is the union of every server message the tests read.
type wsMessage struct {
	Type   string `json:"type"`
	Count  int    `json:"count"`
	Error  string `json:"error"`
	Result *struct {
		Mode     string `json:"mode"`
		Clusters []struct {
			Count int `json:"count"`
		} `json:"clusters"`
		Viewport struct {
			Zoom int `json:"zoom"`
		} `json:"viewport"`
		Matches []struct {
			Route struct {
				ID string `json:"id"`
			} `json:"route"`
		} `json:"matches"`
	} `json:"result"`
	Action *struct {
		Kind    string `json:"kind"`
		RouteID string `json:"route_id"`
	} `json:"action"`
}

func dial(t *testing.T, env *testEnv, path string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.engine)
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestUnreadWebSocket(t *testing.T) {
	env := setupTestServer(t)
	owner, _ := env.signup(t, "owner@example.com")
	buyer, _ := env.signup(t, "buyer@example.com")

	w := env.do(request{method: "POST", path: "/api/announcements", body: `{"title":"Car on a trailer"}`, token: owner})
	announcementID, _ := decode(t, w)["id"].(string)
	w = env.do(request{method: "POST", path: "/api/announcements/" + announcementID + "/conversations", token: buyer})
	conversationID, _ := decode(t, w)["id"].(string)

	conn := dial(t, env, "/ws/unread?access_token="+owner)
	if msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "unread" }); msg.Count != 0 {
		t.Fatalf("Expected initial count 0, got %d", msg.Count)
	}

	env.do(request{method: "POST", path: "/api/conversations/" + conversationID + "/messages", body: `{"content":"Hello"}`, token: buyer})
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "unread" && m.Count == 1 })

	conn.WriteJSON(map[string]string{"type": "bogus"})
	if msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" }); msg.Error != "unsupported_type" {
		t.Errorf("Expected unsupported_type, got %q", msg.Error)
	}

	srv := httptest.NewServer(env.engine)
	defer srv.Close()
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/unread", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected anonymous unread socket to be refused with 401, got %v", err)
	}
}

func TestMapWebSocket(t *testing.T) {
	env := setupTestServer(t)
	w := env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-m", "")})
	routeID, _ := decode(t, w)["id"].(string)

	conn := dial(t, env, "/ws/map")
	initial := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "result" })
	if initial.Result.Mode != "clusters" {
		t.Errorf("Expected clusters on connect, got %s", initial.Result.Mode)
	}

	conn.WriteJSON(map[string]interface{}{
		"type":  "search",
		"query": map[string]interface{}{"origin": map[string]float64{"lat": 52.23, "lng": 21.01}},
	})
	result := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "result" })
	if result.Result.Mode != "lines" || len(result.Result.Matches) != 1 || result.Result.Matches[0].Route.ID != routeID {
		t.Fatalf("Expected one line for %s, got %+v", routeID, result.Result)
	}

	conn.WriteJSON(map[string]string{"type": "click", "route_id": routeID})
	action := readUntil(t, conn, func(m wsMessage) bool {
		return m.Type == "action" && m.Action != nil && m.Action.Kind == "open_popup"
	})
	if action.Action.RouteID != routeID {
		t.Errorf("Expected popup for %s, got %s", routeID, action.Action.RouteID)
	}

	conn.WriteJSON(map[string]string{"type": "reset"})
	reset := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "result" })
	if reset.Result.Mode != "clusters" {
		t.Errorf("Expected clusters after reset, got %s", reset.Result.Mode)
	}
}

// Zooming in splits nearby markers into separate clusters. After a reset,
// or after clearing a filter, the session clusters for the default zoom
// again, including on refreshes triggered by route changes.
func TestMapWebSocketResetRestoresZoom(t *testing.T) {
	env := setupTestServer(t)
	for i, lng := range []string{"21.0122", "21.0562"} {
		w := env.do(request{method: "POST", path: "/api/routes", body: routeBodyFrom("form-z"+string(rune('a'+i)), "52.2297", lng, "")})
		if w.Code != http.StatusCreated {
			t.Fatalf("create: %d %s", w.Code, w.Body.String())
		}
	}
	isResult := func(m wsMessage) bool { return m.Type == "result" && m.Result != nil }

	conn := dial(t, env, "/ws/map")
	if initial := readUntil(t, conn, isResult); len(initial.Result.Clusters) != 1 {
		t.Fatalf("Expected 1 cluster at the default zoom, got %d", len(initial.Result.Clusters))
	}

	conn.WriteJSON(map[string]interface{}{"type": "zoom", "zoom": 18})
	if zoomed := readUntil(t, conn, isResult); len(zoomed.Result.Clusters) != 2 {
		t.Fatalf("Expected 2 clusters at zoom 18, got %d", len(zoomed.Result.Clusters))
	}

	conn.WriteJSON(map[string]string{"type": "reset"})
	reset := readUntil(t, conn, isResult)
	if len(reset.Result.Clusters) != 1 || reset.Result.Viewport.Zoom != 5 {
		t.Fatalf("Expected 1 cluster at zoom 5 after reset, got %d at zoom %d", len(reset.Result.Clusters), reset.Result.Viewport.Zoom)
	}

	if w := env.do(request{method: "POST", path: "/api/routes", body: routeBody("form-zc", "")}); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	refreshed := readUntil(t, conn, isResult)
	if len(refreshed.Result.Clusters) != 1 || refreshed.Result.Clusters[0].Count != 3 {
		t.Errorf("Expected one cluster of 3 after a route change, got %+v", refreshed.Result.Clusters)
	}

	// Lines back to clusters also drops the zoom.
	conn.WriteJSON(map[string]interface{}{"type": "zoom", "zoom": 18})
	readUntil(t, conn, isResult)
	conn.WriteJSON(map[string]interface{}{
		"type":  "search",
		"query": map[string]interface{}{"origin": map[string]float64{"lat": 52.23, "lng": 21.01}},
	})
	if lines := readUntil(t, conn, isResult); lines.Result.Mode != "lines" {
		t.Fatalf("Expected lines, got %s", lines.Result.Mode)
	}
	conn.WriteJSON(map[string]interface{}{"type": "search", "query": map[string]interface{}{}})
	cleared := readUntil(t, conn, isResult)
	if cleared.Result.Mode != "clusters" || len(cleared.Result.Clusters) != 1 {
		t.Errorf("Expected one cluster after clearing the filter, got %s with %d", cleared.Result.Mode, len(cleared.Result.Clusters))
	}
}
