package services

import (
	"context"
	"log"

	"poholowani/internal/domain/entities"
	"poholowani/internal/repository"
	"poholowani/pkg/utils"
)

// AnnouncementInput is the board posting form.
type AnnouncementInput struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Origin          *Place  `json:"origin"`
	Destination     *Place  `json:"destination"`
	ItemDescription string  `json:"item_description"`
	Weight          string  `json:"weight"`
	Budget          string  `json:"budget"`
	Phone           *string `json:"phone"`
	Whatsapp        *string `json:"whatsapp"`
	Messenger       *string `json:"messenger"`
	ContactConsent  bool    `json:"contact_consent"`
	ImageURL        *string `json:"image_url"`
}

func (in AnnouncementInput) apply(a *entities.Announcement) {
	a.Title = in.Title
	a.Description = in.Description
	a.OriginLabel, a.OriginLat, a.OriginLng = placeFields(in.Origin)
	a.DestinationLabel, a.DestinationLat, a.DestinationLng = placeFields(in.Destination)
	a.ItemDescription = in.ItemDescription
	a.Weight = in.Weight
	a.Budget = in.Budget
	a.Phone = in.Phone
	a.Whatsapp = in.Whatsapp
	a.Messenger = in.Messenger
	a.ContactConsent = in.ContactConsent
	a.ImageURL = in.ImageURL
	a.Normalize()
}

func placeFields(p *Place) (*string, *float64, *float64) {
	if p == nil {
		return nil, nil, nil
	}
	label, lat, lng := p.Label, p.Lat, p.Lng
	return &label, &lat, &lng
}

// AnnouncementService manages board postings. Unlike route offers they
// always belong to a signed-in user.
type AnnouncementService struct {
	announcements repository.AnnouncementRepository
}

func NewAnnouncementService(announcements repository.AnnouncementRepository) *AnnouncementService {
	return &AnnouncementService{announcements: announcements}
}

func (s *AnnouncementService) Create(ctx context.Context, userID string, in AnnouncementInput) (*entities.Announcement, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	a := &entities.Announcement{UserID: userID}
	in.apply(a)
	if err := a.Validate(); err != nil {
		return nil, invalid(err)
	}
	a.ID = utils.GenerateID()
	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, err
	}
	log.Printf("[ANNOUNCEMENTS] %s posted %s", userID, a.ID)
	return a, nil
}

func (s *AnnouncementService) Update(ctx context.Context, userID, id string, in AnnouncementInput) (*entities.Announcement, error) {
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in.apply(a)
	if err := a.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.announcements.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.announcements.Delete(ctx, id)
}

func (s *AnnouncementService) Get(ctx context.Context, id string) (*entities.Announcement, error) {
	return s.announcements.GetByID(ctx, id)
}

func (s *AnnouncementService) List(ctx context.Context, limit int) ([]*entities.Announcement, error) {
	return s.announcements.List(ctx, limit)
}

func (s *AnnouncementService) owned(ctx context.Context, userID, id string) (*entities.Announcement, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	a, err := s.announcements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrNotAuthorized
	}
	return a, nil
}
