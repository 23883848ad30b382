// Package repository declares the persistence contracts used by the
// services. The gormrepo subpackage implements them on top of gorm.
package repository

import (
	"context"
	"errors"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// RouteQuery filters route offers. Zero fields do not filter.
type RouteQuery struct {
	Origin      *entities.Location
	Destination *entities.Location
	Via         *entities.Location
	Date        string
	FromDate    string
	VehicleType entities.VehicleType
	// ToleranceMeters is how far a searched point may lie from a route's
	// polyline and still match it.
	ToleranceMeters float64
	Limit           int
}

// RouteMatch is one ranked search hit with its owner projection.
type RouteMatch struct {
	Route *entities.RouteOffer     `json:"route"`
	Owner *entities.OwnerSummary   `json:"owner,omitempty"`
	Score float64                  `json:"score_meters"`
	Legs  map[string]geo.LineMatch `json:"legs,omitempty"`
}

type RouteRepository interface {
	Create(ctx context.Context, route *entities.RouteOffer) error
	GetByID(ctx context.Context, id string) (*entities.RouteOffer, error)
	Update(ctx context.Context, route *entities.RouteOffer) error
	Delete(ctx context.Context, id string) error
	ListUpcoming(ctx context.Context, fromDate string, limit int) ([]*entities.RouteOffer, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.RouteOffer, error)
	Search(ctx context.Context, q RouteQuery) ([]RouteMatch, error)
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	Get(ctx context.Context, token string) (*entities.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*entities.Profile, error)
	Upsert(ctx context.Context, profile *entities.Profile) error
	GetBySlug(ctx context.Context, slug string) (*entities.Profile, error)
	// ListRoadsideIn returns public roadside profiles whose base lies inside
	// box. Callers still apply the exact radius filter.
	ListRoadsideIn(ctx context.Context, box geo.BBox) ([]*entities.Profile, error)
	OwnerSummaries(ctx context.Context, userIDs []string) (map[string]*entities.OwnerSummary, error)
}

type UrgentRepository interface {
	Create(ctx context.Context, req *entities.UrgentRequest) error
	GetByID(ctx context.Context, id string) (*entities.UrgentRequest, error)
	ListSince(ctx context.Context, since time.Time) ([]*entities.UrgentRequest, error)
}

type AnnouncementRepository interface {
	Create(ctx context.Context, a *entities.Announcement) error
	GetByID(ctx context.Context, id string) (*entities.Announcement, error)
	Update(ctx context.Context, a *entities.Announcement) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]*entities.Announcement, error)
}

type ConversationRepository interface {
	// Create inserts the conversation and one participant row per side.
	Create(ctx context.Context, conv *entities.Conversation) error
	GetByID(ctx context.Context, id string) (*entities.Conversation, error)
	Find(ctx context.Context, announcementID, counterpartID string) (*entities.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]entities.ConversationSummary, error)
	Messages(ctx context.Context, conversationID string) ([]*entities.Message, error)
	// AppendMessage stores msg, bumps the recipient's unread counter and
	// un-hides the conversation for both participants, atomically.
	AppendMessage(ctx context.Context, msg *entities.Message, recipientID string) error
	MarkRead(ctx context.Context, conversationID, userID string) error
	Hide(ctx context.Context, conversationID, userID string) error
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)
}

// LockManager serializes work that must not run twice at once, such as
// overlapping cleanup runs or two "start conversation" clicks.
type LockManager interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	IsLocked(ctx context.Context, key string) (bool, error)
}
