package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// VehicleType is the kind of vehicle offering capacity or needing help.
type VehicleType string

const (
	VehicleBus     VehicleType = "bus"
	VehicleFlatbed VehicleType = "laweta"
)

// Valid reports whether v is one of the known vehicle types.
func (v VehicleType) Valid() bool {
	return v == VehicleBus || v == VehicleFlatbed
}

// StringList is a slice of strings stored as a JSON array column.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(value interface{}) error {
	return scanJSON(value, (*[]string)(s))
}

// scanJSON decodes a JSON column that the driver may hand back as either
// []byte or string.
func scanJSON(value interface{}, dst interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("entities: cannot scan %T into JSON column", value)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// NormalizeOptional trims s and turns blank strings into nil so that
// "nothing entered" and "not provided" are stored the same way.
func NormalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// OmitBlank turns a blank string into nil and otherwise keeps s exactly as
// entered. Phone numbers are published verbatim.
func OmitBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// Validation errors shared by the offer, urgent-request and announcement
// forms. They are raised before any network call is made.
var (
	ErrPhoneConsentRequired   = errors.New("consent is required to publish a phone number")
	ErrContactConsentRequired = errors.New("consent is required to publish contact details")
	ErrOriginRequired         = errors.New("origin is required")
	ErrDestinationRequired    = errors.New("destination is required")
	ErrDateRequired           = errors.New("travel date is required")
	ErrInvalidDate            = errors.New("travel date must be formatted as YYYY-MM-DD")
	ErrInvalidVehicleType     = errors.New("vehicle type must be bus or laweta")
	ErrNegativePassengers     = errors.New("passenger count cannot be negative")
	ErrInvalidCoordinates     = errors.New("coordinates are out of range")
	ErrTitleRequired          = errors.New("title is required")
	ErrProblemTooLong         = errors.New("problem description is too long")
	ErrProblemRequired        = errors.New("problem description is required")
	ErrTooManyImages          = errors.New("gallery is limited to 5 images")
	ErrInvalidRole            = errors.New("role must be private or company")
)

// requirePhoneConsent enforces the consent gate: a non-empty phone number
// may only be persisted when the consent flag is set.
func requirePhoneConsent(phone *string, consent bool) error {
	if phone != nil && strings.TrimSpace(*phone) != "" && !consent {
		return ErrPhoneConsentRequired
	}
	return nil
}
