// Package entities defines the core domain models of the marketplace: route
// offers, urgent requests, announcements, profiles and the conversation
// model. They carry both json and gorm tags; persistence lives in the
// repository package and never leaks into these types beyond the tags.
package entities

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the day-granularity layout used for travel dates.
const DateLayout = "2006-01-02"

// RouteGeometry is the normalized routing-engine response: an ordered list
// of [lng, lat] pairs plus distance and duration metadata.
type RouteGeometry struct {
	Coordinates     [][2]float64 `json:"coordinates"`
	DistanceMeters  float64      `json:"distance"`
	DurationSeconds float64      `json:"duration"`
}

// Value implements driver.Valuer so the geometry is stored as one JSON column.
func (g RouteGeometry) Value() (driver.Value, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (g *RouteGeometry) Scan(value interface{}) error {
	return scanJSON(value, g)
}

// Empty reports whether the geometry holds no coordinates.
func (g *RouteGeometry) Empty() bool {
	return g == nil || len(g.Coordinates) == 0
}

// Points converts the [lng, lat] pairs into Locations.
func (g *RouteGeometry) Points() []Location {
	if g == nil {
		return nil
	}
	points := make([]Location, 0, len(g.Coordinates))
	for _, c := range g.Coordinates {
		points = append(points, NewLocation(c[1], c[0]))
	}
	return points
}

// RouteOffer is a carrier's offer of return-leg capacity between two places
// on a given day. Offers may be anonymous (tied only to a browser token) or
// owned by an authenticated user; only owned offers can be edited.
type RouteOffer struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	OriginLabel      string         `gorm:"size:255;not null" json:"origin"`
	OriginLat        float64        `json:"origin_lat"`
	OriginLng        float64        `json:"origin_lng"`
	DestinationLabel string         `gorm:"size:255;not null" json:"destination"`
	DestinationLat   float64        `json:"destination_lat"`
	DestinationLng   float64        `json:"destination_lng"`
	ViaLabel         *string        `gorm:"size:255" json:"via"`
	ViaLat           *float64       `json:"via_lat"`
	ViaLng           *float64       `json:"via_lng"`
	Date             string         `gorm:"size:10;not null;index" json:"date"`
	VehicleType      VehicleType    `gorm:"size:16;not null;index" json:"vehicle_type"`
	LoadCapacity     string         `gorm:"size:64" json:"load_capacity"`
	PassengerCount   *int           `json:"passenger_count"`
	Phone            *string        `gorm:"size:32" json:"phone"`
	PhoneConsent     bool           `gorm:"not null;default:false" json:"phone_consent"`
	MessengerLink    *string        `gorm:"size:512" json:"messenger_link"`
	UsesWhatsapp     bool           `gorm:"not null;default:false" json:"uses_whatsapp"`
	UserID           *string        `gorm:"size:36;index" json:"user_id"`
	BrowserToken     string         `gorm:"size:64;index" json:"-"`
	Geometry         *RouteGeometry `gorm:"type:text" json:"route_geometry"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Origin returns the origin coordinates.
func (r *RouteOffer) Origin() Location {
	return NewLocation(r.OriginLat, r.OriginLng)
}

// Destination returns the destination coordinates.
func (r *RouteOffer) Destination() Location {
	return NewLocation(r.DestinationLat, r.DestinationLng)
}

// Via returns the optional via-point, or nil.
func (r *RouteOffer) Via() *Location {
	return optionalLocation(r.ViaLat, r.ViaLng)
}

// Waypoints returns [origin, via?, destination] in routing order.
func (r *RouteOffer) Waypoints() []Location {
	points := []Location{r.Origin()}
	if via := r.Via(); via != nil {
		points = append(points, *via)
	}
	return append(points, r.Destination())
}

// Normalize trims free-text fields and collapses blank optionals to nil.
func (r *RouteOffer) Normalize() {
	r.OriginLabel = strings.TrimSpace(r.OriginLabel)
	r.DestinationLabel = strings.TrimSpace(r.DestinationLabel)
	r.LoadCapacity = strings.TrimSpace(r.LoadCapacity)
	r.Date = strings.TrimSpace(r.Date)
	r.ViaLabel = NormalizeOptional(r.ViaLabel)
	r.Phone = OmitBlank(r.Phone)
	r.MessengerLink = NormalizeOptional(r.MessengerLink)
	if r.ViaLabel == nil {
		r.ViaLat, r.ViaLng = nil, nil
	}
}

// Validate checks the offer before anything leaves the process. A phone
// number without the consent flag is always rejected.
func (r *RouteOffer) Validate() error {
	if r.OriginLabel == "" || !r.Origin().Valid() {
		return ErrOriginRequired
	}
	if r.DestinationLabel == "" || !r.Destination().Valid() {
		return ErrDestinationRequired
	}
	if via := r.Via(); via != nil && !via.Valid() {
		return ErrInvalidCoordinates
	}
	if r.Date == "" {
		return ErrDateRequired
	}
	if _, err := r.TravelDate(time.Local); err != nil {
		return ErrInvalidDate
	}
	if !r.VehicleType.Valid() {
		return ErrInvalidVehicleType
	}
	if r.PassengerCount != nil && *r.PassengerCount < 0 {
		return ErrNegativePassengers
	}
	return requirePhoneConsent(r.Phone, r.PhoneConsent)
}

// TravelDate parses Date as midnight in loc.
func (r *RouteOffer) TravelDate(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, r.Date, loc)
}

// IsExpired reports whether the offer is more than grace past its travel
// date. Offers with an unparseable date are treated as expired.
func (r *RouteOffer) IsExpired(now time.Time, grace time.Duration) bool {
	day, err := r.TravelDate(now.Location())
	if err != nil {
		return true
	}
	// The travel day itself lasts until the following midnight.
	return now.After(day.Add(24 * time.Hour).Add(grace))
}

// OwnedBy reports whether userID is the authenticated owner of the offer.
// Anonymous offers are owned by nobody.
func (r *RouteOffer) OwnedBy(userID string) bool {
	return userID != "" && r.UserID != nil && *r.UserID == userID
}
