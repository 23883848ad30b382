package geo

import (
	"math"

	"poholowani/internal/domain/entities"
	"poholowani/pkg/utils"
)

// BBox is an axis-aligned latitude/longitude box. The zero value is not a
// valid box; use EmptyBBox and Extend to accumulate points.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// EmptyBBox returns a box that contains nothing; extending it with a point
// yields the degenerate box of that point.
func EmptyBBox() BBox {
	return BBox{
		MinLat: math.Inf(1), MinLng: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLng: math.Inf(-1),
	}
}

// IsEmpty reports whether no point has been added.
func (b BBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLng > b.MaxLng
}

// Extend grows the box to include loc. Invalid locations are ignored.
func (b BBox) Extend(loc entities.Location) BBox {
	if !loc.Valid() {
		return b
	}
	b.MinLat = math.Min(b.MinLat, loc.Latitude)
	b.MaxLat = math.Max(b.MaxLat, loc.Latitude)
	b.MinLng = math.Min(b.MinLng, loc.Longitude)
	b.MaxLng = math.Max(b.MaxLng, loc.Longitude)
	return b
}

// Contains reports whether loc is inside the box, edges included.
func (b BBox) Contains(loc entities.Location) bool {
	return loc.Latitude >= b.MinLat && loc.Latitude <= b.MaxLat &&
		loc.Longitude >= b.MinLng && loc.Longitude <= b.MaxLng
}

// Center returns the midpoint of the box.
func (b BBox) Center() entities.Location {
	return entities.NewLocation((b.MinLat+b.MaxLat)/2, (b.MinLng+b.MaxLng)/2)
}

// BoundingBoxAround returns a box guaranteed to contain every point within
// radiusKm of center. It is a coarse prefilter (a SQL range predicate); the
// exact haversine check still has to run on whatever it lets through.
func BoundingBoxAround(center entities.Location, radiusKm float64) BBox {
	dLat := radiusKm / utils.EarthRadiusKm * 180 / math.Pi
	minLat := math.Max(center.Latitude-dLat, -90)
	maxLat := math.Min(center.Latitude+dLat, 90)

	// Longitude degrees shrink towards the poles; use the latitude closest
	// to a pole so the box never undershoots.
	maxAbsLat := math.Max(math.Abs(minLat), math.Abs(maxLat))
	cos := math.Cos(maxAbsLat * math.Pi / 180)
	if cos < 1e-9 || maxAbsLat >= 90 {
		return BBox{MinLat: minLat, MinLng: -180, MaxLat: maxLat, MaxLng: 180}
	}
	dLng := dLat / cos
	// A box is a single longitude range, so one that would wrap past the
	// antimeridian spans every longitude instead.
	minLng, maxLng := center.Longitude-dLng, center.Longitude+dLng
	if dLng >= 180 || minLng < -180 || maxLng > 180 {
		return BBox{MinLat: minLat, MinLng: -180, MaxLat: maxLat, MaxLng: 180}
	}
	return BBox{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}
}
