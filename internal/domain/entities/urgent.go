package entities

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxProblemLength caps the urgent-request problem description (in runes).
const MaxProblemLength = 500

// UrgentRequest is a call for roadside help. It is listed for a fixed
// window after creation and then simply hidden.
type UrgentRequest struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	VehicleType      VehicleType `gorm:"size:16;not null" json:"vehicle_type"`
	OriginLabel      string      `gorm:"size:255;not null" json:"origin"`
	OriginLat        float64     `json:"origin_lat"`
	OriginLng        float64     `json:"origin_lng"`
	DestinationLabel *string     `gorm:"size:255" json:"destination"`
	DestinationLat   *float64    `json:"destination_lat"`
	DestinationLng   *float64    `json:"destination_lng"`
	Problem          string      `gorm:"type:text;not null" json:"problem"`
	Phone            *string     `gorm:"size:32" json:"phone"`
	PhoneConsent     bool        `gorm:"not null;default:false" json:"phone_consent"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
}

// Origin returns the breakdown location.
func (u *UrgentRequest) Origin() Location {
	return NewLocation(u.OriginLat, u.OriginLng)
}

// Normalize trims text fields.
func (u *UrgentRequest) Normalize() {
	u.OriginLabel = strings.TrimSpace(u.OriginLabel)
	u.Problem = strings.TrimSpace(u.Problem)
	u.DestinationLabel = NormalizeOptional(u.DestinationLabel)
	u.Phone = OmitBlank(u.Phone)
	if u.DestinationLabel == nil {
		u.DestinationLat, u.DestinationLng = nil, nil
	}
}

// Validate enforces required fields, the problem length cap and the phone
// consent gate.
func (u *UrgentRequest) Validate() error {
	if !u.VehicleType.Valid() {
		return ErrInvalidVehicleType
	}
	if u.OriginLabel == "" || !u.Origin().Valid() {
		return ErrOriginRequired
	}
	if dest := optionalLocation(u.DestinationLat, u.DestinationLng); dest != nil && !dest.Valid() {
		return ErrInvalidCoordinates
	}
	if u.Problem == "" {
		return ErrProblemRequired
	}
	if utf8.RuneCountInString(u.Problem) > MaxProblemLength {
		return ErrProblemTooLong
	}
	return requirePhoneConsent(u.Phone, u.PhoneConsent)
}

// VisibleAt reports whether the request is still inside its listing window.
func (u *UrgentRequest) VisibleAt(now time.Time, window time.Duration) bool {
	return now.Sub(u.CreatedAt) < window
}
