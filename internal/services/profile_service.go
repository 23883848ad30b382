package services

import (
	"context"
	"errors"

	"poholowani/internal/domain/entities"
	"poholowani/internal/repository"
)

// ProfileService reads and writes the signed-in user's extended profile.
type ProfileService struct {
	profiles repository.ProfileRepository
}

func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Get returns userID's own profile. A user who never saved one gets an
// empty, unassigned profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*entities.Profile, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &entities.Profile{UserID: userID}, nil
	}
	return p, err
}

// Save replaces userID's profile. The user id always comes from the
// session, never from the body.
func (s *ProfileService) Save(ctx context.Context, userID string, p *entities.Profile) (*entities.Profile, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	p.UserID = userID
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, invalidf("roadside page address is already taken")
		}
		return nil, err
	}
	return p, nil
}

// Public returns the consent-filtered view of another user's profile.
func (s *ProfileService) Public(ctx context.Context, userID string) (*entities.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := p.PublicView()
	return &view, nil
}
