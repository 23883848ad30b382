package utils

import (
	"math"
)

const (
	EarthRadiusKm = 6371.0
)

// DistanceKm returns the great-circle distance between two points in
// kilometers using the haversine formula on a spherical Earth.
//
// Callers are expected to filter out non-numeric coordinates first; NaN
// inputs propagate to a NaN result.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}
