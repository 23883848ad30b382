// Package gormrepo implements the repository interfaces on gorm. It works
// against both sqlite and mysql; queries stay within the dialect subset the
// two share.
package gormrepo

import (
	"errors"

	"gorm.io/gorm"

	"poholowani/internal/repository"
)

// translate maps gorm sentinel errors onto repository sentinels so callers
// never import gorm.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrConflict
	default:
		return err
	}
}

// Repositories bundles every gorm-backed repository over one connection.
type Repositories struct {
	Routes        *RouteRepository
	Users         *UserRepository
	Sessions      *SessionRepository
	Profiles      *ProfileRepository
	Urgent        *UrgentRepository
	Announcements *AnnouncementRepository
	Conversations *ConversationRepository
}

// New builds all repositories on db.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Routes:        NewRouteRepository(db),
		Users:         NewUserRepository(db),
		Sessions:      NewSessionRepository(db),
		Profiles:      NewProfileRepository(db),
		Urgent:        NewUrgentRepository(db),
		Announcements: NewAnnouncementRepository(db),
		Conversations: NewConversationRepository(db),
	}
}
