package services

import (
	"context"
	"time"

	"poholowani/internal/cleanup"
	"poholowani/internal/config"
	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
	"poholowani/internal/mapview"
	"poholowani/internal/repository"
)

// SearchQuery is the map filter bar. Zero fields do not filter.
type SearchQuery struct {
	Origin      *entities.Location   `json:"origin,omitempty"`
	Destination *entities.Location   `json:"destination,omitempty"`
	Via         *entities.Location   `json:"via,omitempty"`
	Date        string               `json:"date,omitempty"`
	VehicleType entities.VehicleType `json:"vehicle_type,omitempty"`
}

// Active reports whether any filter is set. An inactive query renders
// clustered markers instead of route lines.
func (q SearchQuery) Active() bool {
	return q.Origin != nil || q.Destination != nil || q.Via != nil || q.Date != "" || q.VehicleType != ""
}

func (q SearchQuery) validate() error {
	for _, p := range []*entities.Location{q.Origin, q.Destination, q.Via} {
		if p != nil && !p.Valid() {
			return invalid(entities.ErrInvalidCoordinates)
		}
	}
	if q.Date != "" {
		if _, err := time.Parse(entities.DateLayout, q.Date); err != nil {
			return invalid(entities.ErrInvalidDate)
		}
	}
	if q.VehicleType != "" && !q.VehicleType.Valid() {
		return invalid(entities.ErrInvalidVehicleType)
	}
	return nil
}

// SearchResult is everything the map needs to render a search.
type SearchResult struct {
	Query    SearchQuery             `json:"query"`
	Mode     mapview.Mode            `json:"mode"`
	Matches  []repository.RouteMatch `json:"matches"`
	Clusters []geo.Cluster           `json:"clusters,omitempty"`
	Viewport mapview.Viewport        `json:"viewport"`
	Fallback mapview.Fallback        `json:"fallback"`
}

// RouteIDs returns the ids of the matched routes in rank order.
func (r *SearchResult) RouteIDs() []string {
	ids := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		ids = append(ids, m.Route.ID)
	}
	return ids
}

// SearchService runs filtered route searches and fits the viewport to them.
type SearchService struct {
	routes repository.RouteRepository
	config *config.Config
	now    func() time.Time
}

func NewSearchService(routes repository.RouteRepository, cfg *config.Config) *SearchService {
	return &SearchService{routes: routes, config: cfg, now: time.Now}
}

// Search returns the ranked matches for q fitted into a viewport. An
// inactive query returns the unfiltered overview.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if !q.Active() {
		return s.Overview(ctx, s.config.Map.DefaultZoom)
	}

	now := s.now()
	matches, err := s.routes.Search(ctx, repository.RouteQuery{
		Origin:          q.Origin,
		Destination:     q.Destination,
		Via:             q.Via,
		Date:            q.Date,
		FromDate:        cleanup.Cutoff(now),
		VehicleType:     q.VehicleType,
		ToleranceMeters: s.config.Geo.RouteToleranceMeters,
	})
	if err != nil {
		return nil, err
	}

	live := matches[:0]
	lines := make([][]entities.Location, 0, len(matches))
	for _, m := range matches {
		if m.Route.IsExpired(now, s.config.Listings.RouteGracePeriod) {
			continue
		}
		live = append(live, m)
		line := m.Route.Geometry.Points()
		if len(line) == 0 {
			line = m.Route.Waypoints()
		}
		lines = append(lines, line)
	}

	vp, fallback := mapview.ComputeSearchViewport(lines, q.Origin, q.Destination, s.ViewOptions())
	return &SearchResult{
		Query:    q,
		Mode:     mapview.ModeLines,
		Matches:  live,
		Viewport: vp,
		Fallback: fallback,
	}, nil
}

// Overview is the unfiltered map: every upcoming offer as a marker at its
// origin, clustered for zoom, in the default viewport.
func (s *SearchService) Overview(ctx context.Context, zoom int) (*SearchResult, error) {
	now := s.now()
	routes, err := s.routes.ListUpcoming(ctx, cleanup.Cutoff(now), 0)
	if err != nil {
		return nil, err
	}
	markers := make([]geo.Marker, 0, len(routes))
	for _, r := range routes {
		if r.IsExpired(now, s.config.Listings.RouteGracePeriod) {
			continue
		}
		markers = append(markers, geo.Marker{ID: r.ID, Location: r.Origin()})
	}
	return &SearchResult{
		Mode:     mapview.ModeClusters,
		Matches:  []repository.RouteMatch{},
		Clusters: geo.ClusterMarkers(markers, zoom),
		Viewport: mapview.DefaultViewport(s.ViewOptions()),
		Fallback: mapview.FitDefault,
	}, nil
}

// Reset is the one hard reset: cleared filters, default viewport, clusters.
func (s *SearchService) Reset(ctx context.Context) (*SearchResult, error) {
	return s.Overview(ctx, s.config.Map.DefaultZoom)
}

// ViewOptions builds the viewport settings from config.
func (s *SearchService) ViewOptions() mapview.ViewOptions {
	m := s.config.Map
	return mapview.ViewOptions{
		Fit: mapview.FitOptions{
			WidthPx:   m.ViewportWidth,
			HeightPx:  m.ViewportHeight,
			PaddingPx: m.PaddingPx,
			MaxZoom:   m.MaxZoom,
		},
		Default:     entities.NewLocation(m.DefaultLat, m.DefaultLng),
		DefaultZoom: m.DefaultZoom,
		PointZoom:   m.PointZoom,
	}
}
