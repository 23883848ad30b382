package geo

import (
	"testing"

	"poholowani/internal/domain/entities"
	"poholowani/pkg/utils"
)

func distance(a, b entities.Location) float64 {
	return utils.DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func TestBoundingBoxAround_ContainsRadius(t *testing.T) {
	box := BoundingBoxAround(warsaw, 50)
	if !box.Contains(warsaw) {
		t.Fatal("box does not contain its center")
	}
	if box.MinLng <= -180 || box.MaxLng >= 180 {
		t.Errorf("box around Warsaw spans all longitudes: %+v", box)
	}
	// Pruszków is about 17 km away, Kraków about 250 km.
	if !box.Contains(entities.NewLocation(52.1700, 20.8120)) {
		t.Error("box misses a point inside the radius")
	}
	if box.Contains(entities.NewLocation(50.0647, 19.9450)) {
		t.Error("box lets through a point far outside the radius")
	}
}

func TestBoundingBoxAround_Antimeridian(t *testing.T) {
	tests := []struct {
		name   string
		center entities.Location
		across entities.Location
	}{
		{"east edge", entities.NewLocation(0, 179.9), entities.NewLocation(0, -179.9)},
		{"west edge", entities.NewLocation(-16.5, -179.95), entities.NewLocation(-16.5, 179.95)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := distance(tt.center, tt.across); d > 50 {
				t.Fatalf("fixture points are %.1f km apart, want under 50", d)
			}
			box := BoundingBoxAround(tt.center, 50)
			if !box.Contains(tt.across) {
				t.Errorf("box %+v misses a point %.1f km away across the antimeridian",
					box, distance(tt.center, tt.across))
			}
		})
	}
}

func TestBoundingBoxAround_Pole(t *testing.T) {
	box := BoundingBoxAround(entities.NewLocation(89.9, 0), 50)
	if box.MaxLat != 90 || box.MinLng != -180 || box.MaxLng != 180 {
		t.Errorf("box near the pole = %+v, want full longitude span up to 90", box)
	}
}
