// Package config centralizes all application configuration into typed structs.
//
// Defaults come from NewDefaultConfig. A YAML file (Load/Parse) is layered on
// top of the defaults, and selected environment variables (usually populated
// from a .env file, see LoadDotEnv) override both.
//
// Go Learning Note — Layered Configuration:
// Decoding YAML into a struct that already holds defaults only overwrites the
// keys present in the file. Every unspecified field keeps its default, so the
// file stays short and the defaults live in one place.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"poholowani/internal/retry"
)

// Config is the top-level configuration container.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Routing   RoutingConfig   `yaml:"routing"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Upload    UploadConfig    `yaml:"upload"`
	Captcha   CaptchaConfig   `yaml:"captcha"`
	Geo       GeoConfig       `yaml:"geo"`
	Map       MapConfig       `yaml:"map"`
	Listings  ListingsConfig  `yaml:"listings"`
	Planner   PlannerConfig   `yaml:"planner"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// DatabaseConfig selects the gorm dialect. Driver is "sqlite" or "mysql".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// RoutingConfig points at the external directions engine.
type RoutingConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Profile          string        `yaml:"profile"`
	SnapRadiusMeters int           `yaml:"snap_radius_meters"`
	Timeout          time.Duration `yaml:"timeout"`
	Retry            retry.Policy  `yaml:"retry"`
}

// GeocodingConfig points at the autocomplete endpoint.
type GeocodingConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Countries []string      `yaml:"countries"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     retry.Policy  `yaml:"retry"`
}

// UploadConfig points at the image storage function.
type UploadConfig struct {
	Endpoint string        `yaml:"endpoint"`
	MaxBytes int64         `yaml:"max_bytes"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    retry.Policy  `yaml:"retry"`
}

// CaptchaConfig configures bot verification on login.
type CaptchaConfig struct {
	VerifyURL string        `yaml:"verify_url"`
	Secret    string        `yaml:"secret"`
	MinScore  float64       `yaml:"min_score"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GeoConfig holds the product radii.
type GeoConfig struct {
	RoadsideRadiusKm     float64 `yaml:"roadside_radius_km"`
	UrgentRadiusKm       float64 `yaml:"urgent_radius_km"`
	RouteToleranceMeters float64 `yaml:"route_tolerance_meters"`
}

// MapConfig drives the map interaction layer and viewport fitting.
type MapConfig struct {
	OpenDelay      time.Duration `yaml:"open_delay"`
	CloseDelay     time.Duration `yaml:"close_delay"`
	PaddingPx      int           `yaml:"padding_px"`
	MaxZoom        int           `yaml:"max_zoom"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	DefaultLat     float64       `yaml:"default_lat"`
	DefaultLng     float64       `yaml:"default_lng"`
	DefaultZoom    int           `yaml:"default_zoom"`
	PointZoom      int           `yaml:"point_zoom"`
}

// ListingsConfig holds listing lifetimes.
type ListingsConfig struct {
	UrgentWindow     time.Duration `yaml:"urgent_window"`
	RouteGracePeriod time.Duration `yaml:"route_grace_period"`
}

// PlannerConfig bounds per-form route-fetch workflows.
type PlannerConfig struct {
	DraftTTL time.Duration `yaml:"draft_ttl"`
}

// RealtimeConfig selects the change-feed bus. Bus is "memory" or "redis".
type RealtimeConfig struct {
	Bus       string `yaml:"bus"`
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

// CleanupConfig schedules stale-route deletion. An empty schedule disables
// the in-process job.
type CleanupConfig struct {
	Schedule string `yaml:"schedule"`
}

// NotifyConfig holds optional chat-ops webhooks for urgent requests.
type NotifyConfig struct {
	SlackWebhookURL   string `yaml:"slack_webhook_url"`
	DiscordWebhookID  string `yaml:"discord_webhook_id"`
	DiscordWebhookTok string `yaml:"discord_webhook_token"`
}

// NewDefaultConfig returns a Config populated with the product defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           ":8080",
			ReadTimeout:    10 * time.Second,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "poholowani.db",
		},
		Auth: AuthConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
			BcryptCost: 10,
		},
		Routing: RoutingConfig{
			BaseURL:          "https://api.openrouteservice.org",
			Profile:          "driving-car",
			SnapRadiusMeters: 1500,
			Timeout:          15 * time.Second,
			Retry:            retry.Policy{Attempts: 3, Delay: time.Second},
		},
		Geocoding: GeocodingConfig{
			BaseURL:   "https://api.openrouteservice.org",
			Countries: []string{"PL", "DE", "CZ", "SK", "LT", "NL", "BE", "FR", "AT", "DK"},
			Timeout:   5 * time.Second,
			Retry:     retry.Policy{Attempts: 2, Delay: 500 * time.Millisecond},
		},
		Upload: UploadConfig{
			MaxBytes: 5 << 20,
			Timeout:  30 * time.Second,
			Retry:    retry.Policy{Attempts: 1},
		},
		Captcha: CaptchaConfig{
			VerifyURL: "https://www.google.com/recaptcha/api/siteverify",
			MinScore:  0.5,
			Timeout:   5 * time.Second,
		},
		Geo: GeoConfig{
			RoadsideRadiusKm:     50,
			UrgentRadiusKm:       30,
			RouteToleranceMeters: 5000,
		},
		Map: MapConfig{
			OpenDelay:      100 * time.Millisecond,
			CloseDelay:     300 * time.Millisecond,
			PaddingPx:      80,
			MaxZoom:        12,
			ViewportWidth:  1024,
			ViewportHeight: 768,
			DefaultLat:     51.5,
			DefaultLng:     10.0,
			DefaultZoom:    5,
			PointZoom:      10,
		},
		Listings: ListingsConfig{
			UrgentWindow:     48 * time.Hour,
			RouteGracePeriod: 24 * time.Hour,
		},
		Planner: PlannerConfig{
			DraftTTL: 30 * time.Minute,
		},
		Realtime: RealtimeConfig{
			Bus:     "memory",
			Channel: "poholowani:changes",
		},
		Cleanup: CleanupConfig{
			Schedule: "0 3 * * *",
		},
	}
}

// LoadDotEnv loads a .env file from the working directory when present.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads a YAML config file from path and returns a validated Config.
// An empty path yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes over the defaults, applies environment
// overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv copies the recognised environment variables over the config.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("PORT", &c.Server.Port)
	setString("DATABASE_DRIVER", &c.Database.Driver)
	setString("DATABASE_DSN", &c.Database.DSN)
	setString("JWT_SECRET", &c.Auth.JWTSecret)
	setString("ROUTING_BASE_URL", &c.Routing.BaseURL)
	setString("ROUTING_API_KEY", &c.Routing.APIKey)
	setString("GEOCODING_BASE_URL", &c.Geocoding.BaseURL)
	setString("GEOCODING_API_KEY", &c.Geocoding.APIKey)
	setString("UPLOAD_ENDPOINT", &c.Upload.Endpoint)
	setString("RECAPTCHA_SECRET", &c.Captcha.Secret)
	setString("REALTIME_BUS", &c.Realtime.Bus)
	setString("REDIS_ADDR", &c.Realtime.RedisAddr)
	setString("CLEANUP_SCHEDULE", &c.Cleanup.Schedule)
	setString("SLACK_WEBHOOK_URL", &c.Notify.SlackWebhookURL)
	setString("DISCORD_WEBHOOK_ID", &c.Notify.DiscordWebhookID)
	setString("DISCORD_WEBHOOK_TOKEN", &c.Notify.DiscordWebhookTok)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("MAP_CLOSE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Map.CloseDelay = d
		}
	}
	if v := os.Getenv("ROADSIDE_RADIUS_KM"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Geo.RoadsideRadiusKm = f
		}
	}
}

// applyDefaults fills in derived values.
func (c *Config) applyDefaults() {
	if c.Server.Port != "" && !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	c.Realtime.Bus = strings.ToLower(c.Realtime.Bus)
	for i, code := range c.Geocoding.Countries {
		c.Geocoding.Countries[i] = strings.ToUpper(code)
	}
	if c.Realtime.Bus == "redis" && c.Realtime.RedisAddr == "" {
		c.Realtime.RedisAddr = "127.0.0.1:6379"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.Routing.SnapRadiusMeters <= 0 {
		errs = append(errs, "routing.snap_radius_meters must be positive")
	}
	if c.Routing.Retry.Attempts < 1 {
		errs = append(errs, "routing.retry.attempts must be at least 1")
	}
	if c.Geo.RoadsideRadiusKm <= 0 || c.Geo.UrgentRadiusKm <= 0 {
		errs = append(errs, "geo radii must be positive")
	}
	if c.Map.OpenDelay < 0 || c.Map.CloseDelay < 0 {
		errs = append(errs, "map delays must not be negative")
	}
	if c.Map.MaxZoom <= 0 {
		errs = append(errs, "map.max_zoom must be positive")
	}
	if c.Captcha.MinScore < 0 || c.Captcha.MinScore > 1 {
		errs = append(errs, "captcha.min_score must be within [0, 1]")
	}
	switch c.Realtime.Bus {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("realtime.bus %q is not supported", c.Realtime.Bus))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
