package geo

import (
	"math"

	"poholowani/internal/domain/entities"
	"poholowani/pkg/utils"
)

// LineMatch locates a point relative to a polyline.
type LineMatch struct {
	Segment        int     `json:"segment"`
	Fraction       float64 `json:"fraction"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Along is the position of the match along the line, usable for ordering
// two matches on the same polyline.
func (m LineMatch) Along() float64 {
	return float64(m.Segment) + m.Fraction
}

// MatchPolyline finds the point of line closest to p. ok is false for an
// empty line or an invalid p.
//
// Each segment is projected onto a local equirectangular plane centred on p.
// The error of that approximation is negligible at the few-kilometre
// tolerances route search works with.
func MatchPolyline(line []entities.Location, p entities.Location) (match LineMatch, ok bool) {
	if len(line) == 0 || !p.Valid() {
		return LineMatch{}, false
	}
	if len(line) == 1 {
		return LineMatch{DistanceMeters: distanceMeters(p, line[0])}, true
	}

	kx := math.Cos(p.Latitude*math.Pi/180) * utils.EarthRadiusKm * 1000 * math.Pi / 180
	ky := utils.EarthRadiusKm * 1000 * math.Pi / 180
	project := func(l entities.Location) (x, y float64) {
		return (l.Longitude - p.Longitude) * kx, (l.Latitude - p.Latitude) * ky
	}

	best := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		ax, ay := project(line[i])
		bx, by := project(line[i+1])
		dx, dy := bx-ax, by-ay

		t := 0.0
		if lenSq := dx*dx + dy*dy; lenSq > 0 {
			t = -(ax*dx + ay*dy) / lenSq
			t = math.Max(0, math.Min(1, t))
		}
		cx, cy := ax+t*dx, ay+t*dy
		if d := math.Hypot(cx, cy); d < best {
			best = d
			match = LineMatch{Segment: i, Fraction: t, DistanceMeters: d}
		}
	}
	return match, true
}

func distanceMeters(a, b entities.Location) float64 {
	return utils.DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude) * 1000
}
