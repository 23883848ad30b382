// Package geo implements the geometric primitives of the map: geohash cells,
// radius filters, bounding boxes, route polyline matching and marker
// clustering.
//
// Go Learning Note — What is a Geohash?
// A geohash is a way to encode a latitude/longitude pair into a short string.
// The key property is that nearby locations share a common prefix. For example,
// two points 100m apart might both start with "9q8yyk", while a point 10km away
// might start with "9q8yz". This lets you use string prefix matching for fast
// proximity searches instead of computing distances between all pairs.
//
// Precision determines the cell size:
//
//	1 → ~5000 km    4 → ~39 km     7 → ~153 m    10 → ~1.2 m
//	2 → ~1250 km    5 → ~5 km      8 → ~19 m     11 → ~15 cm
//	3 → ~156 km     6 → ~1.2 km    9 → ~2.4 m    12 → ~1.9 cm
//
// Marker clustering picks the precision from the map zoom level, so a cell
// roughly matches what a cluster bubble covers on screen.
package geo

import (
	"strings"
)

// base32 is the geohash character set (32 characters). Note that 'a', 'i',
// 'l', and 'o' are excluded to avoid confusion with digits 0/1.
const (
	base32 = "0123456789bcdefghjkmnpqrstuvwxyz"
)

// base32Map is the reverse lookup of base32.
var base32Map = map[byte]int{}

// init builds base32Map once at package load.
func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// Encode converts latitude and longitude to a geohash string with given precision.
//
// Binary interleaving:
//  1. Start with the full range: lat [-90, 90], lon [-180, 180]
//  2. Alternate between longitude (even bits) and latitude (odd bits)
//  3. For each step, bisect the range and set bit=1 if value >= midpoint
//  4. Every 5 bits are encoded as one base32 character
//
// Non-positive precision selects 6; anything above 12 is clamped to 12.
func Encode(lat, lon float64, precision int) string {
	if precision <= 0 {
		precision = 6
	}
	if precision > 12 {
		precision = 12
	}

	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var hash strings.Builder
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// Decode returns the center of the geohash cell. Characters outside the
// geohash alphabet are ignored.
func Decode(hash string) (lat, lon float64) {
	box := CellBounds(hash)
	lat = (box.MinLat + box.MaxLat) / 2
	lon = (box.MinLng + box.MaxLng) / 2
	return
}

// CellBounds returns the bounding box of a geohash cell.
func CellBounds(hash string) BBox {
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0
	isEven := true

	for i := 0; i < len(hash); i++ {
		c := hash[i]
		cd, ok := base32Map[c]
		if !ok {
			continue
		}
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (minLon + maxLon) / 2
				if bit == 1 {
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if bit == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isEven = !isEven
		}
	}

	return BBox{MinLat: minLat, MinLng: minLon, MaxLat: maxLat, MaxLng: maxLon}
}

