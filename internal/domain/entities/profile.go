package entities

import (
	"strings"
	"time"
)

// Role is the account type chosen on the extended profile.
type Role string

const (
	RoleUnassigned Role = ""
	RolePrivate    Role = "private"
	RoleCompany    Role = "company"
)

// MaxGalleryImages caps the number of gallery URLs on a profile.
const MaxGalleryImages = 5

// User is the authentication identity.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an issued refresh token.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:36;not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// Profile is the extended, user-editable profile linked to a User.
//
// Roadside-assistance fields are only public when both the self-declaration
// (IsRoadsideAssistance) and RoadsideConsent are true; see IsPublicRoadside.
type Profile struct {
	UserID               string     `gorm:"primaryKey;size:36" json:"user_id"`
	Role                 Role       `gorm:"size:16" json:"role"`
	CompanyName          *string    `gorm:"size:255" json:"company_name"`
	TaxID                *string    `gorm:"size:32" json:"tax_id"`
	PublicProfileConsent bool       `gorm:"not null;default:false" json:"public_profile_consent"`
	IsRoadsideAssistance bool       `gorm:"not null;default:false;index" json:"is_roadside_assistance"`
	RoadsideConsent      bool       `gorm:"not null;default:false" json:"roadside_consent"`
	RoadsideStreet       *string    `gorm:"size:255" json:"roadside_street"`
	RoadsideCity         *string    `gorm:"size:128" json:"roadside_city"`
	RoadsidePostalCode   *string    `gorm:"size:16" json:"roadside_postal_code"`
	RoadsidePhone        *string    `gorm:"size:32" json:"roadside_phone"`
	RoadsideDescription  *string    `gorm:"type:text" json:"roadside_description"`
	RoadsideSlug         *string    `gorm:"size:128;uniqueIndex" json:"roadside_slug"`
	RoadsideLat          *float64   `gorm:"index" json:"roadside_lat"`
	RoadsideLng          *float64   `gorm:"index" json:"roadside_lng"`
	FleetTags            StringList `gorm:"type:text" json:"fleet_tags"`
	Description          *string    `gorm:"type:text" json:"description"`
	Gallery              StringList `gorm:"type:text" json:"gallery"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsPublicRoadside reports whether the roadside-assistance fields may be
// shown publicly.
func (p *Profile) IsPublicRoadside() bool {
	return p.IsRoadsideAssistance && p.RoadsideConsent
}

// RoadsideLocation returns the geocoded roadside base, if any.
func (p *Profile) RoadsideLocation() *Location {
	return optionalLocation(p.RoadsideLat, p.RoadsideLng)
}

// Position implements geo.Positioned.
func (p *Profile) Position() (Location, bool) {
	loc := p.RoadsideLocation()
	if loc == nil || !loc.Valid() {
		return Location{}, false
	}
	return *loc, true
}

// Validate checks the role and gallery limits and normalizes optional text.
func (p *Profile) Validate() error {
	switch p.Role {
	case RoleUnassigned, RolePrivate, RoleCompany:
	default:
		return ErrInvalidRole
	}
	if len(p.Gallery) > MaxGalleryImages {
		return ErrTooManyImages
	}
	p.CompanyName = NormalizeOptional(p.CompanyName)
	p.TaxID = NormalizeOptional(p.TaxID)
	p.RoadsidePhone = OmitBlank(p.RoadsidePhone)
	p.RoadsideSlug = NormalizeOptional(p.RoadsideSlug)
	if p.RoadsideSlug != nil {
		slug := strings.ToLower(*p.RoadsideSlug)
		p.RoadsideSlug = &slug
	}
	if loc := p.RoadsideLocation(); loc != nil && !loc.Valid() {
		return ErrInvalidCoordinates
	}
	return nil
}

// PublicView returns a copy with roadside fields stripped unless both
// roadside flags are set, and company identification stripped unless the
// public-profile consent is given.
func (p *Profile) PublicView() Profile {
	out := *p
	if !p.PublicProfileConsent {
		out.CompanyName = nil
		out.TaxID = nil
		out.Description = nil
		out.Gallery = nil
	}
	if !p.IsPublicRoadside() {
		out.RoadsideStreet = nil
		out.RoadsideCity = nil
		out.RoadsidePostalCode = nil
		out.RoadsidePhone = nil
		out.RoadsideDescription = nil
		out.RoadsideSlug = nil
		out.RoadsideLat = nil
		out.RoadsideLng = nil
	}
	return out
}

// OwnerSummary is the minimal owner projection joined onto search results.
type OwnerSummary struct {
	UserID      string  `json:"user_id"`
	Role        Role    `json:"role"`
	CompanyName *string `json:"company_name,omitempty"`
}
