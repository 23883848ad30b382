package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/retry"
)

// Place is one autocomplete suggestion.
type Place struct {
	Label    string            `json:"label"`
	Country  string            `json:"country,omitempty"`
	Location entities.Location `json:"location"`
}

// GeocoderOptions configures a Geocoder.
type GeocoderOptions struct {
	BaseURL    string
	APIKey     string
	Countries  []string
	Timeout    time.Duration
	Retry      retry.Policy
	HTTPClient *http.Client
}

// Geocoder calls GET {base}/geocode/autocomplete.
type Geocoder struct {
	baseURL    string
	apiKey     string
	countries  string
	policy     retry.Policy
	httpClient *http.Client
}

func NewGeocoder(opts GeocoderOptions) *Geocoder {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Geocoder{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		countries:  strings.Join(opts.Countries, ","),
		policy:     opts.Retry,
		httpClient: hc,
	}
}

type autocompleteResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label       string `json:"label"`
			CountryCode string `json:"country_a"`
		} `json:"properties"`
	} `json:"features"`
}

// Autocomplete returns suggestions for text restricted to the configured
// countries. Blank text returns no suggestions without a network call.
func (g *Geocoder) Autocomplete(ctx context.Context, text string) ([]Place, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Place{}, nil
	}

	q := url.Values{}
	q.Set("text", text)
	if g.countries != "" {
		q.Set("boundary.country", g.countries)
	}
	if g.apiKey != "" {
		q.Set("api_key", g.apiKey)
	}
	endpoint := g.baseURL + "/geocode/autocomplete?" + q.Encode()

	var places []Place
	err := retry.Do(ctx, g.policy, func(ctx context.Context, attempt int) error {
		var err error
		places, err = g.fetch(ctx, endpoint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return places, nil
}

func (g *Geocoder) fetch(ctx context.Context, endpoint string) ([]Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("geocoding: build request: %w", err))
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding: call autocomplete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Service: "geocoding", Code: resp.StatusCode}
	}

	var decoded autocompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("geocoding: decode response: %w", err)
	}

	places := make([]Place, 0, len(decoded.Features))
	for _, f := range decoded.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		loc := entities.NewLocation(f.Geometry.Coordinates[1], f.Geometry.Coordinates[0])
		if !loc.Valid() {
			continue
		}
		places = append(places, Place{Label: f.Properties.Label, Country: f.Properties.CountryCode, Location: loc})
	}
	return places, nil
}
