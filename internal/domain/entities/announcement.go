package entities

import (
	"strings"
	"time"
)

// Announcement is a board posting (something to move) created by a logged
// in user. Interested users open Conversations against it.
type Announcement struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	UserID           string    `gorm:"size:36;not null;index" json:"user_id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	OriginLabel      *string   `gorm:"size:255" json:"origin"`
	OriginLat        *float64  `json:"origin_lat"`
	OriginLng        *float64  `json:"origin_lng"`
	DestinationLabel *string   `gorm:"size:255" json:"destination"`
	DestinationLat   *float64  `json:"destination_lat"`
	DestinationLng   *float64  `json:"destination_lng"`
	ItemDescription  string    `gorm:"type:text" json:"item_description"`
	Weight           string    `gorm:"size:64" json:"weight"`
	Budget           string    `gorm:"size:64" json:"budget"`
	Phone            *string   `gorm:"size:32" json:"phone"`
	Whatsapp         *string   `gorm:"size:32" json:"whatsapp"`
	Messenger        *string   `gorm:"size:512" json:"messenger"`
	ContactConsent   bool      `gorm:"not null;default:false" json:"contact_consent"`
	ImageURL         *string   `gorm:"size:512" json:"image_url"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Normalize trims text and collapses blank optionals.
func (a *Announcement) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.OriginLabel = NormalizeOptional(a.OriginLabel)
	a.DestinationLabel = NormalizeOptional(a.DestinationLabel)
	a.Phone = OmitBlank(a.Phone)
	a.Whatsapp = NormalizeOptional(a.Whatsapp)
	a.Messenger = NormalizeOptional(a.Messenger)
	a.ImageURL = NormalizeOptional(a.ImageURL)
	if a.OriginLabel == nil {
		a.OriginLat, a.OriginLng = nil, nil
	}
	if a.DestinationLabel == nil {
		a.DestinationLat, a.DestinationLng = nil, nil
	}
}

// Validate requires an owner and a title; every contact channel is gated by
// ContactConsent, and a phone number in particular reports the phone error.
func (a *Announcement) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrTitleRequired
	}
	if err := requirePhoneConsent(a.Phone, a.ContactConsent); err != nil {
		return err
	}
	if (a.Whatsapp != nil || a.Messenger != nil) && !a.ContactConsent {
		return ErrContactConsentRequired
	}
	for _, loc := range []*Location{
		optionalLocation(a.OriginLat, a.OriginLng),
		optionalLocation(a.DestinationLat, a.DestinationLng),
	} {
		if loc != nil && !loc.Valid() {
			return ErrInvalidCoordinates
		}
	}
	return nil
}
