package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"poholowani/internal/config"
	"poholowani/internal/db"
	"poholowani/internal/domain/entities"
	"poholowani/internal/repository/gormrepo"
)

var (
	warsaw  = Place{Label: "Warszawa", Lat: 52.2297, Lng: 21.0122}
	berlin  = Place{Label: "Berlin", Lat: 52.5200, Lng: 13.4050}
	poznan  = Place{Label: "Poznań", Lat: 52.4064, Lng: 16.9252}
	krakow  = Place{Label: "Kraków", Lat: 50.0647, Lng: 19.9450}
	testNow = time.Date(2030, 6, 10, 12, 0, 0, 0, time.Local)
)

func testRepos(t *testing.T) *gormrepo.Repositories {
	t.Helper()
	conn, err := db.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	return gormrepo.New(conn)
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BcryptCost = 4
	return cfg
}

// stubRouter returns a straight line through the waypoints and records
// every call.
type stubRouter struct {
	mu    sync.Mutex
	calls [][]entities.Location
	err   error
}

func (r *stubRouter) Directions(_ context.Context, waypoints []entities.Location) (*entities.RouteGeometry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]entities.Location(nil), waypoints...))
	if r.err != nil {
		return nil, r.err
	}
	g := &entities.RouteGeometry{DistanceMeters: 1000, DurationSeconds: 60}
	for _, wp := range waypoints {
		g.Coordinates = append(g.Coordinates, wp.LngLat())
	}
	return g, nil
}

func (r *stubRouter) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format(entities.DateLayout)
}

func strPtr(s string) *string { return &s }

func asValidation(t *testing.T, err error, want error) {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if want != nil && !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
