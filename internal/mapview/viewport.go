package mapview

import (
	"math"

	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
)

// tileSize is the pixel width of one web-mercator tile at zoom 0.
const tileSize = 256

// Viewport is a map center and zoom, plus the box it was fitted to.
type Viewport struct {
	Center entities.Location `json:"center"`
	Zoom   int               `json:"zoom"`
	Bounds *geo.BBox         `json:"bounds,omitempty"`
}

// FitOptions describes the screen a viewport is fitted to.
type FitOptions struct {
	WidthPx   int
	HeightPx  int
	PaddingPx int
	MaxZoom   int
}

// ViewOptions adds the fallbacks used when there is nothing to fit.
type ViewOptions struct {
	Fit         FitOptions
	Default     entities.Location
	DefaultZoom int
	PointZoom   int
}

// Fallback names which rule produced a search viewport.
type Fallback string

const (
	FitResults   Fallback = "results"
	FitEndpoints Fallback = "endpoints"
	FitPoint     Fallback = "point"
	FitDefault   Fallback = "default"
)

// DefaultViewport returns the initial unfiltered view.
func DefaultViewport(opts ViewOptions) Viewport {
	return Viewport{Center: opts.Default, Zoom: opts.DefaultZoom}
}

// FitBounds returns the largest zoom (at most MaxZoom) at which box fits
// inside the padded screen, centred on the box.
func FitBounds(box geo.BBox, opts FitOptions) Viewport {
	b := box
	vp := Viewport{Center: mercatorCenter(box), Zoom: opts.MaxZoom, Bounds: &b}

	dx := math.Abs(mercatorX(box.MaxLng) - mercatorX(box.MinLng))
	dy := math.Abs(mercatorY(box.MinLat) - mercatorY(box.MaxLat))
	if dx == 0 && dy == 0 {
		return vp
	}

	w := math.Max(float64(opts.WidthPx-2*opts.PaddingPx), 1)
	h := math.Max(float64(opts.HeightPx-2*opts.PaddingPx), 1)
	zoom := math.Inf(1)
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(w/(tileSize*dx)))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(h/(tileSize*dy)))
	}

	z := int(math.Floor(zoom))
	if z > opts.MaxZoom {
		z = opts.MaxZoom
	}
	if z < 0 {
		z = 0
	}
	vp.Zoom = z
	return vp
}

// ComputeSearchViewport picks the viewport after a search. In order:
// the box around every coordinate of every result line; the box of origin
// and destination when both are given; the single given point; the default
// view.
func ComputeSearchViewport(lines [][]entities.Location, origin, destination *entities.Location, opts ViewOptions) (Viewport, Fallback) {
	box := geo.EmptyBBox()
	for _, line := range lines {
		for _, p := range line {
			box = box.Extend(p)
		}
	}
	if !box.IsEmpty() {
		return FitBounds(box, opts.Fit), FitResults
	}

	validOrigin := origin != nil && origin.Valid()
	validDest := destination != nil && destination.Valid()
	switch {
	case validOrigin && validDest:
		box = geo.EmptyBBox().Extend(*origin).Extend(*destination)
		return FitBounds(box, opts.Fit), FitEndpoints
	case validOrigin:
		return pointViewport(*origin, opts), FitPoint
	case validDest:
		return pointViewport(*destination, opts), FitPoint
	default:
		return DefaultViewport(opts), FitDefault
	}
}

func pointViewport(p entities.Location, opts ViewOptions) Viewport {
	zoom := opts.PointZoom
	if zoom > opts.Fit.MaxZoom {
		zoom = opts.Fit.MaxZoom
	}
	return Viewport{Center: p, Zoom: zoom}
}

// mercatorX and mercatorY map to [0, 1] world coordinates.
func mercatorX(lng float64) float64 {
	return (lng + 180) / 360
}

func mercatorY(lat float64) float64 {
	lat = math.Max(math.Min(lat, 85.05112878), -85.05112878)
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}

func mercatorCenter(box geo.BBox) entities.Location {
	y := (mercatorY(box.MinLat) + mercatorY(box.MaxLat)) / 2
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return entities.NewLocation(lat, (box.MinLng+box.MaxLng)/2)
}
