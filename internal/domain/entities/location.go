package entities

import "math"

// Location represents a geographic coordinate pair (latitude/longitude).
//
// Go Learning Note — Value Types vs Reference Types:
// Location is a small, immutable data holder, so it is passed by value. Larger
// or mutable structs (RouteOffer, Profile) are passed as pointers.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// NewLocation creates a Location value from latitude and longitude.
func NewLocation(lat, lng float64) Location {
	return Location{
		Latitude:  lat,
		Longitude: lng,
	}
}

// Valid reports whether both coordinates are finite numbers inside the
// WGS84 range. Locations failing this check are skipped by geo filters.
func (l Location) Valid() bool {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) ||
		math.IsInf(l.Latitude, 0) || math.IsInf(l.Longitude, 0) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// LngLat returns the coordinate in the [lng, lat] order used by GeoJSON and
// the routing engine.
func (l Location) LngLat() [2]float64 {
	return [2]float64{l.Longitude, l.Latitude}
}

// optionalLocation builds a *Location from nullable columns.
func optionalLocation(lat, lng *float64) *Location {
	if lat == nil || lng == nil {
		return nil
	}
	loc := NewLocation(*lat, *lng)
	return &loc
}
