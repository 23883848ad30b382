package gormrepo

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
	"poholowani/internal/repository"
)

// searchCandidateLimit bounds how many date/vehicle-filtered rows the
// geometric pass of Search inspects.
const searchCandidateLimit = 2000

// RouteRepository stores route offers.
type RouteRepository struct {
	db *gorm.DB
}

func NewRouteRepository(db *gorm.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

func (r *RouteRepository) Create(ctx context.Context, route *entities.RouteOffer) error {
	if err := r.db.WithContext(ctx).Create(route).Error; err != nil {
		return fmt.Errorf("gormrepo: create route: %w", translate(err))
	}
	return nil
}

func (r *RouteRepository) GetByID(ctx context.Context, id string) (*entities.RouteOffer, error) {
	var route entities.RouteOffer
	if err := r.db.WithContext(ctx).First(&route, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get route %s: %w", id, translate(err))
	}
	return &route, nil
}

func (r *RouteRepository) Update(ctx context.Context, route *entities.RouteOffer) error {
	result := r.db.WithContext(ctx).Model(route).Select("*").Omit("created_at").Updates(route)
	if result.Error != nil {
		return fmt.Errorf("gormrepo: update route %s: %w", route.ID, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gormrepo: update route %s: %w", route.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *RouteRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&entities.RouteOffer{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("gormrepo: delete route %s: %w", id, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gormrepo: delete route %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// ListUpcoming returns offers dated fromDate or later, soonest first.
func (r *RouteRepository) ListUpcoming(ctx context.Context, fromDate string, limit int) ([]*entities.RouteOffer, error) {
	q := r.db.WithContext(ctx).Where("date >= ?", fromDate).Order("date ASC").Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var routes []*entities.RouteOffer
	if err := q.Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: list upcoming routes: %w", err)
	}
	return routes, nil
}

func (r *RouteRepository) ListByUser(ctx context.Context, userID string) ([]*entities.RouteOffer, error) {
	var routes []*entities.RouteOffer
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("date DESC").Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: list routes for %s: %w", userID, err)
	}
	return routes, nil
}

// Search filters by date and vehicle in SQL, then matches the requested
// points against each candidate's polyline. A candidate matches when every
// given point lies within q.ToleranceMeters of the line and the points occur
// in travel order (origin, via, destination). Hits are ranked by the summed
// distance of the points to the line, closest first.
//
// Offers without stored geometry are matched against the straight legs
// between their waypoints.
func (r *RouteRepository) Search(ctx context.Context, q repository.RouteQuery) ([]repository.RouteMatch, error) {
	tx := r.db.WithContext(ctx)
	switch {
	case q.Date != "":
		tx = tx.Where("date = ?", q.Date)
	case q.FromDate != "":
		tx = tx.Where("date >= ?", q.FromDate)
	}
	if q.VehicleType != "" {
		tx = tx.Where("vehicle_type = ?", q.VehicleType)
	}

	var candidates []*entities.RouteOffer
	if err := tx.Order("date ASC").Order("created_at DESC").
		Limit(searchCandidateLimit).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: search routes: %w", err)
	}

	type namedPoint struct {
		name string
		loc  *entities.Location
	}
	points := make([]namedPoint, 0, 3)
	for _, p := range []namedPoint{{"origin", q.Origin}, {"via", q.Via}, {"destination", q.Destination}} {
		if p.loc != nil {
			points = append(points, p)
		}
	}

	matches := make([]repository.RouteMatch, 0, len(candidates))
	for _, route := range candidates {
		if len(points) == 0 {
			matches = append(matches, repository.RouteMatch{Route: route})
			continue
		}

		line := route.Geometry.Points()
		if len(line) == 0 {
			line = route.Waypoints()
		}

		legs := make(map[string]geo.LineMatch, len(points))
		score, prevAlong, ok := 0.0, -1.0, true
		for _, p := range points {
			m, matched := geo.MatchPolyline(line, *p.loc)
			if !matched || m.DistanceMeters > q.ToleranceMeters || m.Along() < prevAlong {
				ok = false
				break
			}
			prevAlong = m.Along()
			score += m.DistanceMeters
			legs[p.name] = m
		}
		if ok {
			matches = append(matches, repository.RouteMatch{Route: route, Score: score, Legs: legs})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score < matches[j].Score
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Route.UserID != nil {
			ids = append(ids, *m.Route.UserID)
		}
	}
	owners, err := ownerSummaries(r.db.WithContext(ctx), ids)
	if err != nil {
		return nil, fmt.Errorf("gormrepo: search routes: %w", err)
	}
	for i := range matches {
		if uid := matches[i].Route.UserID; uid != nil {
			matches[i].Owner = owners[*uid]
		}
	}
	return matches, nil
}

// DeleteBefore removes every offer dated strictly before date.
func (r *RouteRepository) DeleteBefore(ctx context.Context, date string) (int64, error) {
	result := r.db.WithContext(ctx).Where("date < ?", date).Delete(&entities.RouteOffer{})
	if result.Error != nil {
		return 0, fmt.Errorf("gormrepo: delete routes before %s: %w", date, result.Error)
	}
	return result.RowsAffected, nil
}
