package services

import (
	"context"
	"testing"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/mapview"
	"poholowani/internal/repository"
)

func seedRoute(t *testing.T, routes repository.RouteRepository, id string, from, to Place, date string, vt entities.VehicleType) {
	t.Helper()
	r := &entities.RouteOffer{
		ID:               id,
		OriginLabel:      from.Label,
		OriginLat:        from.Lat,
		OriginLng:        from.Lng,
		DestinationLabel: to.Label,
		DestinationLat:   to.Lat,
		DestinationLng:   to.Lng,
		Date:             date,
		VehicleType:      vt,
		Geometry: &entities.RouteGeometry{Coordinates: [][2]float64{
			from.Location().LngLat(), to.Location().LngLat(),
		}},
	}
	if err := routes.Create(context.Background(), r); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func setupSearch(t *testing.T) (*SearchService, repository.RouteRepository) {
	t.Helper()
	repos := testRepos(t)
	svc := NewSearchService(repos.Routes, testConfig())
	svc.now = func() time.Time { return testNow }
	return svc, repos.Routes
}

func TestSearchService_MatchesAndFitsResults(t *testing.T) {
	svc, routes := setupSearch(t)
	seedRoute(t, routes, "waw-ber", warsaw, berlin, "2030-06-12", entities.VehicleBus)
	seedRoute(t, routes, "krk-waw", krakow, warsaw, "2030-06-12", entities.VehicleBus)

	origin, dest := warsaw.Location(), berlin.Location()
	res, err := svc.Search(context.Background(), SearchQuery{Origin: &origin, Destination: &dest})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Mode != mapview.ModeLines {
		t.Errorf("Mode = %s, want lines", res.Mode)
	}
	if len(res.Matches) != 1 || res.Matches[0].Route.ID != "waw-ber" {
		t.Fatalf("matches = %v, want [waw-ber]", res.RouteIDs())
	}
	if res.Fallback != mapview.FitResults || res.Viewport.Bounds == nil {
		t.Errorf("viewport should fit results, got %+v (%s)", res.Viewport, res.Fallback)
	}
	if res.Viewport.Zoom > testConfig().Map.MaxZoom {
		t.Errorf("zoom %d exceeds cap", res.Viewport.Zoom)
	}
}

// Poznań lies on the Warszawa→Berlin line, so it matches as a via point;
// travelling the other way round does not.
func TestSearchService_ViaAndDirection(t *testing.T) {
	svc, routes := setupSearch(t)
	seedRoute(t, routes, "waw-ber", warsaw, berlin, "2030-06-12", entities.VehicleBus)

	origin, via, dest := warsaw.Location(), poznan.Location(), berlin.Location()
	res, err := svc.Search(context.Background(), SearchQuery{Origin: &origin, Via: &via, Destination: &dest})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Errorf("via search matched %d routes, want 1", len(res.Matches))
	}

	res, err = svc.Search(context.Background(), SearchQuery{Origin: &dest, Destination: &origin})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Matches) != 0 {
		t.Errorf("reverse direction matched %v", res.RouteIDs())
	}
}

func TestSearchService_EmptyResultFallbacks(t *testing.T) {
	svc, routes := setupSearch(t)
	seedRoute(t, routes, "waw-ber", warsaw, berlin, "2030-06-12", entities.VehicleBus)

	origin, dest := krakow.Location(), poznan.Location()
	tests := []struct {
		name  string
		query SearchQuery
		want  mapview.Fallback
	}{
		{"both endpoints", SearchQuery{Origin: &origin, Destination: &dest}, mapview.FitEndpoints},
		{"origin only", SearchQuery{Origin: &origin, VehicleType: entities.VehicleFlatbed}, mapview.FitPoint},
		{"destination only", SearchQuery{Destination: &dest, VehicleType: entities.VehicleFlatbed}, mapview.FitPoint},
		{"filter without points", SearchQuery{VehicleType: entities.VehicleFlatbed}, mapview.FitDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(res.Matches) != 0 {
				t.Fatalf("expected no matches, got %v", res.RouteIDs())
			}
			if res.Fallback != tt.want {
				t.Errorf("Fallback = %s, want %s", res.Fallback, tt.want)
			}
		})
	}

	res, _ := svc.Search(context.Background(), SearchQuery{Origin: &origin, Destination: &dest})
	b := res.Viewport.Bounds
	if b == nil || b.MinLat != krakow.Lat || b.MaxLat != poznan.Lat || b.MinLng != poznan.Lng || b.MaxLng != krakow.Lng {
		t.Errorf("endpoint box = %+v, want exactly Kraków/Poznań", b)
	}
}

func TestSearchService_InactiveQueryAndReset(t *testing.T) {
	svc, routes := setupSearch(t)
	seedRoute(t, routes, "waw-ber", warsaw, berlin, "2030-06-12", entities.VehicleBus)
	seedRoute(t, routes, "waw-krk", warsaw, krakow, "2030-06-12", entities.VehicleFlatbed)
	seedRoute(t, routes, "expired", berlin, warsaw, "2030-06-01", entities.VehicleBus)

	res, err := svc.Search(context.Background(), SearchQuery{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Mode != mapview.ModeClusters {
		t.Errorf("Mode = %s, want clusters", res.Mode)
	}
	total := 0
	for _, c := range res.Clusters {
		total += c.Count
	}
	if total != 2 {
		t.Errorf("clustered %d markers, want 2", total)
	}

	reset, err := svc.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	want := mapview.DefaultViewport(svc.ViewOptions())
	if reset.Viewport.Center != want.Center || reset.Viewport.Zoom != want.Zoom || reset.Query.Active() {
		t.Errorf("Reset = %+v, want default view with cleared filters", reset)
	}
}

func TestSearchService_RejectsBadFilters(t *testing.T) {
	svc, _ := setupSearch(t)
	_, err := svc.Search(context.Background(), SearchQuery{Date: "tomorrow"})
	asValidation(t, err, entities.ErrInvalidDate)

	_, err = svc.Search(context.Background(), SearchQuery{VehicleType: "tir"})
	asValidation(t, err, entities.ErrInvalidVehicleType)
}
