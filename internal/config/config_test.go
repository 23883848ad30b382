package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
server:
  port: "9090"
  allowed_origins: ["https://poholowani.example"]
database:
  driver: mysql
  dsn: "user:pass@tcp(db:3306)/poholowani?parseTime=true"
routing:
  api_key: secret
  retry:
    attempts: 5
    delay: 2s
geocoding:
  countries: [pl, de]
map:
  close_delay: 450ms
realtime:
  bus: redis
cleanup:
  schedule: "30 2 * * *"
`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_DRIVER", "DATABASE_DSN", "REALTIME_BUS", "REDIS_ADDR",
		"ALLOWED_ORIGINS", "MAP_CLOSE_DELAY", "ROADSIDE_RADIUS_KM", "CLEANUP_SCHEDULE",
	} {
		t.Setenv(key, "")
	}
}

func TestNewDefaultConfig_ProductConstants(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Geo.RoadsideRadiusKm != 50 {
		t.Errorf("RoadsideRadiusKm = %v, want 50", cfg.Geo.RoadsideRadiusKm)
	}
	if cfg.Geo.UrgentRadiusKm != 30 {
		t.Errorf("UrgentRadiusKm = %v, want 30", cfg.Geo.UrgentRadiusKm)
	}
	if cfg.Geo.RouteToleranceMeters != 5000 {
		t.Errorf("RouteToleranceMeters = %v, want 5000", cfg.Geo.RouteToleranceMeters)
	}
	if cfg.Routing.SnapRadiusMeters != 1500 {
		t.Errorf("SnapRadiusMeters = %d, want 1500", cfg.Routing.SnapRadiusMeters)
	}
	if cfg.Routing.Retry.Attempts != 3 || cfg.Routing.Retry.Delay != time.Second {
		t.Errorf("Routing.Retry = %+v, want 3 attempts / 1s", cfg.Routing.Retry)
	}
	if cfg.Map.OpenDelay != 100*time.Millisecond {
		t.Errorf("OpenDelay = %v, want 100ms", cfg.Map.OpenDelay)
	}
	if cfg.Map.CloseDelay != 300*time.Millisecond {
		t.Errorf("CloseDelay = %v, want 300ms", cfg.Map.CloseDelay)
	}
	if cfg.Map.PaddingPx != 80 || cfg.Map.MaxZoom != 12 {
		t.Errorf("Map padding/zoom = %d/%d, want 80/12", cfg.Map.PaddingPx, cfg.Map.MaxZoom)
	}
	if cfg.Upload.MaxBytes != 5*1024*1024 {
		t.Errorf("Upload.MaxBytes = %d, want 5 MiB", cfg.Upload.MaxBytes)
	}
	if cfg.Captcha.MinScore != 0.5 {
		t.Errorf("Captcha.MinScore = %v, want 0.5", cfg.Captcha.MinScore)
	}
	if cfg.Listings.UrgentWindow != 48*time.Hour {
		t.Errorf("UrgentWindow = %v, want 48h", cfg.Listings.UrgentWindow)
	}
}

func TestParse_FullConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != ":9090" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, ":9090")
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Routing.Retry.Attempts != 5 || cfg.Routing.Retry.Delay != 2*time.Second {
		t.Errorf("Routing.Retry = %+v, want 5 / 2s", cfg.Routing.Retry)
	}
	if cfg.Map.CloseDelay != 450*time.Millisecond {
		t.Errorf("CloseDelay = %v, want 450ms", cfg.Map.CloseDelay)
	}
	if got := strings.Join(cfg.Geocoding.Countries, ","); got != "PL,DE" {
		t.Errorf("Countries = %q, want PL,DE", got)
	}
	if cfg.Realtime.RedisAddr != "127.0.0.1:6379" {
		t.Errorf("RedisAddr = %q, want default redis address", cfg.Realtime.RedisAddr)
	}
	// Untouched sections keep their defaults.
	if cfg.Geo.RoadsideRadiusKm != 50 {
		t.Errorf("RoadsideRadiusKm = %v, want default 50", cfg.Geo.RoadsideRadiusKm)
	}
	if cfg.Cleanup.Schedule != "30 2 * * *" {
		t.Errorf("Cleanup.Schedule = %q", cfg.Cleanup.Schedule)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DSN", "/tmp/override.db")
	t.Setenv("MAP_CLOSE_DELAY", "1s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.DSN != "/tmp/override.db" {
		t.Errorf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.Map.CloseDelay != time.Second {
		t.Errorf("CloseDelay = %v, want 1s", cfg.Map.CloseDelay)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: oracle\n", "database.driver"},
		{"empty dsn", "database:\n  dsn: \"\"\n", "database.dsn is required"},
		{"zero attempts", "routing:\n  retry:\n    attempts: 0\n", "routing.retry.attempts"},
		{"bad bus", "realtime:\n  bus: kafka\n", "realtime.bus"},
		{"score range", "captcha:\n  min_score: 1.5\n", "captcha.min_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	if err == nil || !strings.HasPrefix(err.Error(), "config: parse") {
		t.Fatalf("err = %v, want config: parse error", err)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Driver = %q, want mysql", cfg.Database.Driver)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config: read") {
		t.Fatalf("err = %v, want config: read error", err)
	}
}
