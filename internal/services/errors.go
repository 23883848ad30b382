package services

import (
	"errors"
	"fmt"

	"poholowani/internal/domain/entities"
)

var (
	ErrNotAuthorized      = errors.New("not authorized to perform this action")
	ErrLoginRequired      = errors.New("you need to sign in to do this")
	ErrRouteNotFound      = errors.New("route not found")
	ErrSuperseded         = errors.New("route request was replaced by a newer one")
	ErrSelfConversation   = errors.New("you cannot start a conversation about your own announcement")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidToken       = errors.New("session is invalid or expired")
)

// ValidationError marks input that was rejected before any network call or
// write. Handlers answer it with 400.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// SaveError is a persistence failure after the route geometry was computed.
// The geometry stays with the form's workflow, so resubmitting the same
// waypoints under FormID saves again without calling the routing engine.
type SaveError struct {
	FormID   string
	Geometry *entities.RouteGeometry
	Err      error
}

func (e *SaveError) Error() string { return "saving the route failed: " + e.Err.Error() }
func (e *SaveError) Unwrap() error { return e.Err }
