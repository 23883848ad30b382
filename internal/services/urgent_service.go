package services

import (
	"context"
	"log"
	"time"

	"poholowani/internal/config"
	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
	"poholowani/internal/repository"
	"poholowani/pkg/utils"
)

// UrgentInput is the urgent-help form.
type UrgentInput struct {
	VehicleType  entities.VehicleType `json:"vehicle_type"`
	Origin       Place                `json:"origin"`
	Destination  *Place               `json:"destination"`
	Problem      string               `json:"problem"`
	Phone        *string              `json:"phone"`
	PhoneConsent bool                 `json:"phone_consent"`
}

// UrgentResult is a stored request plus the providers near it.
type UrgentResult struct {
	Request *entities.UrgentRequest     `json:"request"`
	Nearby  []geo.Hit[entities.Profile] `json:"nearby"`
}

// UrgentService handles calls for roadside help. Requests are listed for a
// fixed window after creation and then hidden; they are never deleted here.
type UrgentService struct {
	urgent   repository.UrgentRepository
	roadside *RoadsideService
	notifier *NotificationService
	config   *config.Config
	now      func() time.Time
}

func NewUrgentService(urgent repository.UrgentRepository, roadside *RoadsideService, notifier *NotificationService, cfg *config.Config) *UrgentService {
	return &UrgentService{urgent: urgent, roadside: roadside, notifier: notifier, config: cfg, now: time.Now}
}

// Create validates and stores the request, then looks up providers within
// the urgent radius (30 km) and alerts operators.
func (s *UrgentService) Create(ctx context.Context, in UrgentInput) (*UrgentResult, error) {
	req := &entities.UrgentRequest{
		VehicleType:  in.VehicleType,
		OriginLabel:  in.Origin.Label,
		OriginLat:    in.Origin.Lat,
		OriginLng:    in.Origin.Lng,
		Problem:      in.Problem,
		Phone:        in.Phone,
		PhoneConsent: in.PhoneConsent,
	}
	if in.Destination != nil {
		label, lat, lng := in.Destination.Label, in.Destination.Lat, in.Destination.Lng
		req.DestinationLabel, req.DestinationLat, req.DestinationLng = &label, &lat, &lng
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	req.ID = utils.GenerateID()
	req.CreatedAt = s.now()
	if err := s.urgent.Create(ctx, req); err != nil {
		return nil, err
	}
	log.Printf("[URGENT] Created request %s (%s) at %s", req.ID, req.VehicleType, req.OriginLabel)

	nearby, err := s.NearbyProviders(ctx, req)
	if err != nil {
		log.Printf("[URGENT] Provider lookup for %s failed: %v", req.ID, err)
		nearby = nil
	}
	if s.notifier != nil {
		s.notifier.NotifyUrgentRequest(req, nearby)
	}
	return &UrgentResult{Request: req, Nearby: nearby}, nil
}

// ListVisible returns requests created inside the listing window, newest
// first.
func (s *UrgentService) ListVisible(ctx context.Context) ([]*entities.UrgentRequest, error) {
	now := s.now()
	reqs, err := s.urgent.ListSince(ctx, now.Add(-s.config.Listings.UrgentWindow))
	if err != nil {
		return nil, err
	}
	out := reqs[:0]
	for _, r := range reqs {
		if r.VisibleAt(now, s.config.Listings.UrgentWindow) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Get returns a visible request. Hidden requests are reported as not found.
func (s *UrgentService) Get(ctx context.Context, id string) (*entities.UrgentRequest, error) {
	req, err := s.urgent.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.VisibleAt(s.now(), s.config.Listings.UrgentWindow) {
		return nil, repository.ErrNotFound
	}
	return req, nil
}

// NearbyProviders returns public roadside providers within the urgent
// radius of the request's origin.
func (s *UrgentService) NearbyProviders(ctx context.Context, req *entities.UrgentRequest) ([]geo.Hit[entities.Profile], error) {
	return s.roadside.Near(ctx, req.Origin(), s.config.Geo.UrgentRadiusKm)
}
