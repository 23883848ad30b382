// Package routing talks to the external directions and geocoding engines.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/retry"
)

var (
	// ErrNoRoute means the engine answered successfully but returned no
	// route for the waypoints. It is never retried.
	ErrNoRoute = errors.New("routing: no route data")
	// ErrTooFewWaypoints is returned before any network call.
	ErrTooFewWaypoints = errors.New("routing: at least two waypoints are required")
)

// StatusError is a non-2xx answer from an upstream engine.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d", e.Service, e.Code)
}

// Options configures a Client.
type Options struct {
	BaseURL          string
	APIKey           string
	Profile          string
	SnapRadiusMeters int
	Timeout          time.Duration
	Retry            retry.Policy
	HTTPClient       *http.Client
}

// Client calls POST {base}/v2/directions/{profile}/geojson.
type Client struct {
	baseURL    string
	apiKey     string
	profile    string
	snapRadius int
	policy     retry.Policy
	httpClient *http.Client
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	profile := opts.Profile
	if profile == "" {
		profile = "driving-car"
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		profile:    profile,
		snapRadius: opts.SnapRadiusMeters,
		policy:     opts.Retry,
		httpClient: hc,
	}
}

type directionsRequest struct {
	Coordinates      [][2]float64 `json:"coordinates"`
	Instructions     bool         `json:"instructions"`
	GeometrySimplify bool         `json:"geometry_simplify"`
	Radiuses         []int        `json:"radiuses"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// Directions returns the road geometry through waypoints, in order. Network
// failures and non-2xx answers are retried under the client's policy; an
// empty answer fails with ErrNoRoute at once.
func (c *Client) Directions(ctx context.Context, waypoints []entities.Location) (*entities.RouteGeometry, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}

	body := directionsRequest{
		Coordinates:      make([][2]float64, len(waypoints)),
		Instructions:     false,
		GeometrySimplify: true,
		Radiuses:         make([]int, len(waypoints)),
	}
	for i, wp := range waypoints {
		body.Coordinates[i] = wp.LngLat()
		body.Radiuses[i] = c.snapRadius
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("routing: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, c.profile)
	var geometry *entities.RouteGeometry
	err = retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		g, err := c.fetch(ctx, url, payload)
		if err != nil {
			if !errors.Is(err, ErrNoRoute) && attempt < c.policy.Attempts {
				log.Printf("[ROUTING] attempt %d failed, retrying: %v", attempt, err)
			}
			return err
		}
		geometry = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return geometry, nil
}

func (c *Client) fetch(ctx context.Context, url string, payload []byte) (*entities.RouteGeometry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("routing: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/geo+json, application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing: call directions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Service: "routing", Code: resp.StatusCode, Body: string(snippet)}
	}

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("routing: decode response: %w", err)
	}
	if len(decoded.Features) == 0 || len(decoded.Features[0].Geometry.Coordinates) == 0 {
		return nil, retry.Permanent(ErrNoRoute)
	}

	f := decoded.Features[0]
	return &entities.RouteGeometry{
		Coordinates:     f.Geometry.Coordinates,
		DistanceMeters:  f.Properties.Summary.Distance,
		DurationSeconds: f.Properties.Summary.Duration,
	}, nil
}

// IsTransient reports whether err is the kind of failure worth offering the
// user a retry for: upstream outages and network errors, not ErrNoRoute.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNoRoute) || errors.Is(err, ErrTooFewWaypoints) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests || se.Code == http.StatusRequestTimeout
	}
	return true
}
