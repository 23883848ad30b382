package geo

import (
	"sort"

	"poholowani/internal/domain/entities"
	"poholowani/pkg/utils"
)

// Positioned is anything that may carry a coordinate. Items reporting
// ok == false (no coordinates) are skipped by the filters below.
type Positioned interface {
	Position() (loc entities.Location, ok bool)
}

// Hit pairs an item with its distance to the search center.
type Hit[T any] struct {
	Item       T       `json:"item"`
	DistanceKm float64 `json:"distance_km"`
}

// Nearby returns the items whose great-circle distance to center is at most
// radiusKm, preserving input order. The boundary is inclusive: an item at
// exactly radiusKm is kept. Items without valid coordinates are skipped.
//
// This is a linear scan. The candidate lists it sees are already narrowed
// by a BoundingBoxAround prefilter in the repository layer.
func Nearby[T Positioned](center entities.Location, radiusKm float64, items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if d, ok := distanceTo(center, item); ok && d <= radiusKm {
			out = append(out, item)
		}
	}
	return out
}

// NearbySorted is Nearby plus distances, nearest first. Ties keep input
// order.
func NearbySorted[T Positioned](center entities.Location, radiusKm float64, items []T) []Hit[T] {
	hits := make([]Hit[T], 0, len(items))
	for _, item := range items {
		d, ok := distanceTo(center, item)
		if !ok || d > radiusKm {
			continue
		}
		hits = append(hits, Hit[T]{Item: item, DistanceKm: d})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].DistanceKm < hits[j].DistanceKm
	})
	return hits
}

func distanceTo(center entities.Location, item Positioned) (float64, bool) {
	loc, ok := item.Position()
	if !ok || !loc.Valid() {
		return 0, false
	}
	return utils.DistanceKm(center.Latitude, center.Longitude, loc.Latitude, loc.Longitude), true
}
