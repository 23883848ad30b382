package gormrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"poholowani/internal/domain/entities"
	"poholowani/internal/repository"
)

// UrgentRepository stores urgent help requests.
type UrgentRepository struct {
	db *gorm.DB
}

func NewUrgentRepository(db *gorm.DB) *UrgentRepository {
	return &UrgentRepository{db: db}
}

func (r *UrgentRepository) Create(ctx context.Context, req *entities.UrgentRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("gormrepo: create urgent request: %w", translate(err))
	}
	return nil
}

func (r *UrgentRepository) GetByID(ctx context.Context, id string) (*entities.UrgentRequest, error) {
	var req entities.UrgentRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get urgent request %s: %w", id, translate(err))
	}
	return &req, nil
}

// ListSince returns requests created after since, newest first.
func (r *UrgentRepository) ListSince(ctx context.Context, since time.Time) ([]*entities.UrgentRequest, error) {
	var reqs []*entities.UrgentRequest
	if err := r.db.WithContext(ctx).Where("created_at > ?", since).
		Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: list urgent requests: %w", err)
	}
	return reqs, nil
}

// AnnouncementRepository stores board announcements.
type AnnouncementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

func (r *AnnouncementRepository) Create(ctx context.Context, a *entities.Announcement) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("gormrepo: create announcement: %w", translate(err))
	}
	return nil
}

func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*entities.Announcement, error) {
	var a entities.Announcement
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get announcement %s: %w", id, translate(err))
	}
	return &a, nil
}

func (r *AnnouncementRepository) Update(ctx context.Context, a *entities.Announcement) error {
	result := r.db.WithContext(ctx).Model(a).Select("*").Omit("created_at").Updates(a)
	if result.Error != nil {
		return fmt.Errorf("gormrepo: update announcement %s: %w", a.ID, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gormrepo: update announcement %s: %w", a.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&entities.Announcement{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("gormrepo: delete announcement %s: %w", id, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gormrepo: delete announcement %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// List returns announcements newest first.
func (r *AnnouncementRepository) List(ctx context.Context, limit int) ([]*entities.Announcement, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*entities.Announcement
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: list announcements: %w", err)
	}
	return out, nil
}
