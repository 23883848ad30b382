package gormrepo

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
)

// ProfileRepository stores extended profiles.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (*entities.Profile, error) {
	var p entities.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get profile %s: %w", userID, translate(err))
	}
	return &p, nil
}

// Upsert inserts the profile or overwrites every column of an existing one.
func (r *ProfileRepository) Upsert(ctx context.Context, p *entities.Profile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("gormrepo: upsert profile %s: %w", p.UserID, translate(err))
	}
	return nil
}

// GetBySlug finds a public roadside profile by its slug.
func (r *ProfileRepository) GetBySlug(ctx context.Context, slug string) (*entities.Profile, error) {
	var p entities.Profile
	err := r.db.WithContext(ctx).
		Where("roadside_slug = ? AND is_roadside_assistance = ? AND roadside_consent = ?",
			strings.ToLower(slug), true, true).
		First(&p).Error
	if err != nil {
		return nil, fmt.Errorf("gormrepo: get profile by slug %q: %w", slug, translate(err))
	}
	return &p, nil
}

func (r *ProfileRepository) ListRoadsideIn(ctx context.Context, box geo.BBox) ([]*entities.Profile, error) {
	var profiles []*entities.Profile
	err := r.db.WithContext(ctx).
		Where("is_roadside_assistance = ? AND roadside_consent = ?", true, true).
		Where("roadside_lat BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("roadside_lng BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("gormrepo: list roadside profiles: %w", err)
	}
	return profiles, nil
}

func (r *ProfileRepository) OwnerSummaries(ctx context.Context, userIDs []string) (map[string]*entities.OwnerSummary, error) {
	out, err := ownerSummaries(r.db.WithContext(ctx), userIDs)
	if err != nil {
		return nil, fmt.Errorf("gormrepo: owner summaries: %w", err)
	}
	return out, nil
}

// ownerSummaries projects the minimal owner fields for the given users.
// Users without a profile row get a bare summary.
func ownerSummaries(db *gorm.DB, userIDs []string) (map[string]*entities.OwnerSummary, error) {
	out := make(map[string]*entities.OwnerSummary, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []entities.Profile
	if err := db.Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		out[id] = &entities.OwnerSummary{UserID: id}
	}
	for i := range profiles {
		p := &profiles[i]
		summary := &entities.OwnerSummary{UserID: p.UserID, Role: p.Role}
		if p.PublicProfileConsent {
			summary.CompanyName = p.CompanyName
		}
		out[p.UserID] = summary
	}
	return out, nil
}
