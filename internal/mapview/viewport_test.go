package mapview

import (
	"testing"

	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
)

var testView = ViewOptions{
	Fit:         FitOptions{WidthPx: 1024, HeightPx: 768, PaddingPx: 80, MaxZoom: 12},
	Default:     entities.NewLocation(51.5, 10.0),
	DefaultZoom: 5,
	PointZoom:   10,
}

func loc(lat, lng float64) *entities.Location {
	l := entities.NewLocation(lat, lng)
	return &l
}

func TestComputeSearchViewport_FallbackChain(t *testing.T) {
	line := []entities.Location{*loc(52.2297, 21.0122), *loc(52.4064, 16.9252), *loc(52.52, 13.405)}

	tests := []struct {
		name     string
		lines    [][]entities.Location
		origin   *entities.Location
		dest     *entities.Location
		want     Fallback
		wantZoom int
	}{
		{"results win", [][]entities.Location{line}, loc(50, 19), nil, FitResults, 7},
		{"both endpoints", nil, loc(52.2297, 21.0122), loc(52.52, 13.405), FitEndpoints, 7},
		{"origin only", nil, loc(50.06, 19.94), nil, FitPoint, 10},
		{"destination only", [][]entities.Location{{}}, nil, loc(50.06, 19.94), FitPoint, 10},
		{"nothing", nil, nil, nil, FitDefault, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp, fb := ComputeSearchViewport(tt.lines, tt.origin, tt.dest, testView)
			if fb != tt.want {
				t.Errorf("fallback = %s, want %s", fb, tt.want)
			}
			if vp.Zoom != tt.wantZoom {
				t.Errorf("zoom = %d, want %d", vp.Zoom, tt.wantZoom)
			}
		})
	}
}

func TestComputeSearchViewport_BoundsCoverEveryCoordinate(t *testing.T) {
	lines := [][]entities.Location{
		{*loc(52.2297, 21.0122), *loc(52.52, 13.405)},
		{*loc(50.06, 19.94), *loc(51.1, 17.03)},
	}
	vp, _ := ComputeSearchViewport(lines, nil, nil, testView)
	if vp.Bounds == nil {
		t.Fatal("Bounds not set")
	}
	for _, line := range lines {
		for _, p := range line {
			if !vp.Bounds.Contains(p) {
				t.Errorf("bounds %+v miss %+v", *vp.Bounds, p)
			}
		}
	}
}

func TestFitBounds_ClampsToMaxZoom(t *testing.T) {
	box := testViewBox(52.2297, 21.0122, 52.2298, 21.0123)
	if vp := FitBounds(box, testView.Fit); vp.Zoom != 12 {
		t.Errorf("zoom = %d, want clamp to 12", vp.Zoom)
	}
	point := testViewBox(52.2297, 21.0122, 52.2297, 21.0122)
	if vp := FitBounds(point, testView.Fit); vp.Zoom != 12 {
		t.Errorf("degenerate box zoom = %d, want 12", vp.Zoom)
	}
}

func TestFitBounds_Continent(t *testing.T) {
	vp := FitBounds(testViewBox(36, -10, 70, 40), testView.Fit)
	if vp.Zoom != 3 {
		t.Errorf("zoom = %d, want 3", vp.Zoom)
	}
	if vp.Center.Longitude != 15 {
		t.Errorf("center lng = %v, want 15", vp.Center.Longitude)
	}
}

func testViewBox(minLat, minLng, maxLat, maxLng float64) geo.BBox {
	return geo.BBox{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}
}
