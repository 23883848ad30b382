package gormrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"poholowani/internal/domain/entities"
)

// UserRepository stores authentication identities.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("gormrepo: create user: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get user %s: %w", id, translate(err))
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get user by email: %w", translate(err))
	}
	return &user, nil
}

// SessionRepository stores refresh tokens.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("gormrepo: create session: %w", translate(err))
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, token string) (*entities.Session, error) {
	var session entities.Session
	if err := r.db.WithContext(ctx).First(&session, "token = ?", token).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get session: %w", translate(err))
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Delete(&entities.Session{}, "token = ?", token).Error; err != nil {
		return fmt.Errorf("gormrepo: delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&entities.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("gormrepo: delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
