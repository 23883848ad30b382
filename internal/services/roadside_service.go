package services

import (
	"context"
	"errors"

	"poholowani/internal/config"
	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
	"poholowani/internal/repository"
)

// RoadsideService finds public roadside-assistance providers.
//
// Lookups are coarse → fine: the repository returns providers whose base
// lies in a lat/lng box around the point, then geo.NearbySorted applies the
// exact great-circle radius and orders by distance.
type RoadsideService struct {
	profiles repository.ProfileRepository
	config   *config.Config
}

func NewRoadsideService(profiles repository.ProfileRepository, cfg *config.Config) *RoadsideService {
	return &RoadsideService{profiles: profiles, config: cfg}
}

// Near returns public providers within radiusKm of center, nearest first.
// A non-positive radius uses the configured search radius (50 km).
func (s *RoadsideService) Near(ctx context.Context, center entities.Location, radiusKm float64) ([]geo.Hit[entities.Profile], error) {
	if !center.Valid() {
		return nil, invalid(entities.ErrInvalidCoordinates)
	}
	if radiusKm <= 0 {
		radiusKm = s.config.Geo.RoadsideRadiusKm
	}

	candidates, err := s.profiles.ListRoadsideIn(ctx, geo.BoundingBoxAround(center, radiusKm))
	if err != nil {
		return nil, err
	}
	hits := geo.NearbySorted(center, radiusKm, candidates)

	out := make([]geo.Hit[entities.Profile], 0, len(hits))
	for _, h := range hits {
		if !h.Item.IsPublicRoadside() {
			continue
		}
		out = append(out, geo.Hit[entities.Profile]{Item: h.Item.PublicView(), DistanceKm: h.DistanceKm})
	}
	return out, nil
}

// BySlug returns the public page of one provider.
func (s *RoadsideService) BySlug(ctx context.Context, slug string) (*entities.Profile, error) {
	p, err := s.profiles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsPublicRoadside() {
		return nil, repository.ErrNotFound
	}
	view := p.PublicView()
	return &view, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
