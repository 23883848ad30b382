package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"poholowani/internal/cleanup"
	"poholowani/internal/config"
	"poholowani/internal/domain/entities"
	"poholowani/internal/realtime"
	"poholowani/internal/repository"
	"poholowani/internal/routefetch"
	"poholowani/pkg/utils"
)

// Place is a labelled coordinate as submitted by a form.
type Place struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

func (p Place) Location() entities.Location {
	return entities.NewLocation(p.Lat, p.Lng)
}

// RouteInput is the offer form.
type RouteInput struct {
	FormID         string               `json:"form_id"`
	Origin         Place                `json:"origin"`
	Destination    Place                `json:"destination"`
	Via            *Place               `json:"via"`
	Date           string               `json:"date"`
	VehicleType    entities.VehicleType `json:"vehicle_type"`
	LoadCapacity   string               `json:"load_capacity"`
	PassengerCount *int                 `json:"passenger_count"`
	Phone          *string              `json:"phone"`
	PhoneConsent   bool                 `json:"phone_consent"`
	MessengerLink  *string              `json:"messenger_link"`
	UsesWhatsapp   bool                 `json:"uses_whatsapp"`
}

// ensureFormID gives a submission without a form id its own draft, so a
// failed save can be retried under the id returned in the SaveError.
func (in *RouteInput) ensureFormID() {
	if in.FormID == "" {
		in.FormID = utils.GenerateID()
	}
}

// apply copies the form onto r, leaving identity and geometry alone.
func (in RouteInput) apply(r *entities.RouteOffer) {
	r.OriginLabel, r.OriginLat, r.OriginLng = in.Origin.Label, in.Origin.Lat, in.Origin.Lng
	r.DestinationLabel, r.DestinationLat, r.DestinationLng = in.Destination.Label, in.Destination.Lat, in.Destination.Lng
	r.ViaLabel, r.ViaLat, r.ViaLng = nil, nil, nil
	if in.Via != nil {
		label, lat, lng := in.Via.Label, in.Via.Lat, in.Via.Lng
		r.ViaLabel, r.ViaLat, r.ViaLng = &label, &lat, &lng
	}
	r.Date = in.Date
	r.VehicleType = in.VehicleType
	r.LoadCapacity = in.LoadCapacity
	r.PassengerCount = in.PassengerCount
	r.Phone = in.Phone
	r.PhoneConsent = in.PhoneConsent
	r.MessengerLink = in.MessengerLink
	r.UsesWhatsapp = in.UsesWhatsapp
	r.Normalize()
}

// RouteService owns the offer lifecycle: validate, compute the road
// geometry, persist, announce the change to open map sessions.
//
// The order matters: a form that fails validation (for example a phone
// number without the consent flag) never reaches the routing engine or the
// database.
type RouteService struct {
	routes  repository.RouteRepository
	planner *RoutePlanner
	bus     realtime.Bus
	config  *config.Config
	now     func() time.Time
}

func NewRouteService(routes repository.RouteRepository, planner *RoutePlanner, bus realtime.Bus, cfg *config.Config) *RouteService {
	return &RouteService{routes: routes, planner: planner, bus: bus, config: cfg, now: time.Now}
}

// Create validates the form, computes its geometry and inserts the offer.
// userID may be empty: anonymous offers are tied only to browserToken.
func (s *RouteService) Create(ctx context.Context, userID, browserToken string, in RouteInput) (*entities.RouteOffer, error) {
	route := &entities.RouteOffer{BrowserToken: browserToken}
	in.apply(route)
	if err := route.Validate(); err != nil {
		return nil, invalid(err)
	}
	in.ensureFormID()

	geometry, err := s.planner.Compute(ctx, in.FormID, route.Waypoints())
	if err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}
	route.Geometry = geometry
	route.ID = utils.GenerateID()
	if userID != "" {
		route.UserID = &userID
	}

	if err := s.routes.Create(ctx, route); err != nil {
		log.Printf("[ROUTES] Save failed for form %q, geometry kept for retry: %v", in.FormID, err)
		return nil, &SaveError{FormID: in.FormID, Geometry: geometry, Err: err}
	}
	s.planner.Discard(in.FormID)
	s.publish(ctx, realtime.OpInsert, route.ID)
	log.Printf("[ROUTES] Created route %s: %s → %s on %s (%s)",
		route.ID, route.OriginLabel, route.DestinationLabel, route.Date, route.VehicleType)
	return route, nil
}

// Update replaces the offer's fields. Only the authenticated owner may edit;
// the geometry is recomputed only when the waypoints changed.
func (s *RouteService) Update(ctx context.Context, userID, id string, in RouteInput) (*entities.RouteOffer, error) {
	route, err := s.ownedRoute(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := route.Waypoints()
	in.apply(route)
	if err := route.Validate(); err != nil {
		return nil, invalid(err)
	}
	in.ensureFormID()

	if route.Geometry.Empty() || !sameLocations(before, route.Waypoints()) {
		geometry, err := s.planner.Compute(ctx, in.FormID, route.Waypoints())
		if err != nil {
			return nil, fmt.Errorf("compute route: %w", err)
		}
		route.Geometry = geometry
	}

	if err := s.routes.Update(ctx, route); err != nil {
		return nil, &SaveError{FormID: in.FormID, Geometry: route.Geometry, Err: err}
	}
	s.planner.Discard(in.FormID)
	s.publish(ctx, realtime.OpUpdate, route.ID)
	return route, nil
}

// Delete removes an offer owned by userID.
func (s *RouteService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.ownedRoute(ctx, userID, id); err != nil {
		return err
	}
	if err := s.routes.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, realtime.OpDelete, id)
	log.Printf("[ROUTES] Deleted route %s", id)
	return nil
}

func (s *RouteService) Get(ctx context.Context, id string) (*entities.RouteOffer, error) {
	route, err := s.routes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRouteNotFound
	}
	return route, err
}

// ListUpcoming returns offers that have not expired yet.
func (s *RouteService) ListUpcoming(ctx context.Context, limit int) ([]*entities.RouteOffer, error) {
	now := s.now()
	routes, err := s.routes.ListUpcoming(ctx, cleanup.Cutoff(now), limit)
	if err != nil {
		return nil, err
	}
	return s.unexpired(routes, now), nil
}

// ListMine returns every offer owned by userID, expired ones included.
func (s *RouteService) ListMine(ctx context.Context, userID string) ([]*entities.RouteOffer, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	return s.routes.ListByUser(ctx, userID)
}

// Planner exposes the per-form workflows for previews.
func (s *RouteService) Planner() *RoutePlanner { return s.planner }

// Preview draws the geometry of an unsaved form. Only the waypoints are
// checked; the rest of the form is validated on submit.
func (s *RouteService) Preview(ctx context.Context, in RouteInput) (routefetch.Result, error) {
	draft := &entities.RouteOffer{}
	in.apply(draft)
	switch {
	case draft.OriginLabel == "":
		return routefetch.Result{}, invalid(entities.ErrOriginRequired)
	case draft.DestinationLabel == "":
		return routefetch.Result{}, invalid(entities.ErrDestinationRequired)
	}
	waypoints := draft.Waypoints()
	for _, wp := range waypoints {
		if !wp.Valid() {
			return routefetch.Result{}, invalid(entities.ErrInvalidCoordinates)
		}
	}
	return s.planner.Preview(ctx, in.FormID, waypoints), nil
}

func (s *RouteService) unexpired(routes []*entities.RouteOffer, now time.Time) []*entities.RouteOffer {
	out := routes[:0]
	for _, r := range routes {
		if !r.IsExpired(now, s.config.Listings.RouteGracePeriod) {
			out = append(out, r)
		}
	}
	return out
}

func (s *RouteService) ownedRoute(ctx context.Context, userID, id string) (*entities.RouteOffer, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	route, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !route.OwnedBy(userID) {
		return nil, ErrNotAuthorized
	}
	return route, nil
}

func (s *RouteService) publish(ctx context.Context, op realtime.Operation, id string) {
	if s.bus == nil {
		return
	}
	ev := realtime.Event{Topic: realtime.RoutesTopic, Table: "route_offers", Op: op, RecordID: id, At: s.now()}
	if err := s.bus.Publish(ctx, ev); err != nil {
		log.Printf("[ROUTES] Change event for %s not published: %v", id, err)
	}
}

func sameLocations(a, b []entities.Location) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
