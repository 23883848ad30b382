package geo

import (
	"sort"

	"poholowani/internal/domain/entities"
)

// Marker is a single point rendered on the map in clusters mode.
type Marker struct {
	ID       string            `json:"id"`
	Location entities.Location `json:"location"`
}

// Cluster is a group of markers sharing a geohash cell. Center is the mean
// position of its members, not the cell center, so a single-member cluster
// sits exactly on its marker.
type Cluster struct {
	Geohash   string            `json:"geohash"`
	Center    entities.Location `json:"center"`
	Count     int               `json:"count"`
	MarkerIDs []string          `json:"marker_ids"`
}

// PrecisionForZoom maps a web-map zoom level to a geohash precision whose
// cells are a few screen tiles wide.
func PrecisionForZoom(zoom int) int {
	switch {
	case zoom <= 3:
		return 2
	case zoom <= 5:
		return 3
	case zoom <= 8:
		return 4
	case zoom <= 11:
		return 5
	case zoom <= 14:
		return 6
	default:
		return 7
	}
}

// ClusterMarkers buckets markers into geohash cells at the precision for zoom.
//
// This is the coarse half of a spatial index: markers are grouped by cell so
// the map renders one bubble per cell instead of every point. Markers with
// invalid coordinates are dropped. The result is ordered by geohash so the
// same input always renders the same way.
//
// Go Learning Note — Map Iteration Order:
// Ranging over a map yields keys in an unspecified order that changes from
// run to run. Anything user-visible built from a map needs an explicit sort.
func ClusterMarkers(markers []Marker, zoom int) []Cluster {
	precision := PrecisionForZoom(zoom)

	type acc struct {
		sumLat, sumLng float64
		ids            []string
	}
	cells := make(map[string]*acc)
	for _, m := range markers {
		if !m.Location.Valid() {
			continue
		}
		gh := Encode(m.Location.Latitude, m.Location.Longitude, precision)
		a, ok := cells[gh]
		if !ok {
			a = &acc{}
			cells[gh] = a
		}
		a.sumLat += m.Location.Latitude
		a.sumLng += m.Location.Longitude
		a.ids = append(a.ids, m.ID)
	}

	clusters := make([]Cluster, 0, len(cells))
	for gh, a := range cells {
		n := float64(len(a.ids))
		clusters = append(clusters, Cluster{
			Geohash:   gh,
			Center:    entities.NewLocation(a.sumLat/n, a.sumLng/n),
			Count:     len(a.ids),
			MarkerIDs: a.ids,
		})
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Geohash < clusters[j].Geohash
	})
	return clusters
}
