package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"poholowani/internal/api/handlers"
	"poholowani/internal/cleanup"
	"poholowani/internal/config"
	"poholowani/internal/notify"
	"poholowani/internal/realtime"
	"poholowani/internal/repository"
	"poholowani/internal/repository/gormrepo"
	"poholowani/internal/repository/memory"
	"poholowani/internal/routefetch"
	"poholowani/internal/routing"
	"poholowani/internal/services"
)

// Deps are the infrastructure pieces a Server is assembled from. Directions
// and Geocoder default to the HTTP clients described by Config; a nil Bus
// or Locks gets an in-process one.
type Deps struct {
	Config     *config.Config
	Repos      *gormrepo.Repositories
	Bus        realtime.Bus
	Locks      repository.LockManager
	Notifier   notify.Notifier
	Directions routefetch.Router
	Geocoder   *routing.Geocoder
}

// Server is the assembled application: services wired to repositories and
// handlers mounted on the engine.
type Server struct {
	Engine        *gin.Engine
	Auth          *services.AuthService
	Routes        *services.RouteService
	Planner       *services.RoutePlanner
	Notifications *services.NotificationService
	Cleanup       *cleanup.Job

	ownLocks *memory.LockManager
}

// NewServer wires every service and mounts the routes on engine.
func NewServer(engine *gin.Engine, d Deps) *Server {
	cfg := d.Config

	directions := d.Directions
	if directions == nil {
		directions = routing.NewClient(routing.Options{
			BaseURL:          cfg.Routing.BaseURL,
			APIKey:           cfg.Routing.APIKey,
			Profile:          cfg.Routing.Profile,
			SnapRadiusMeters: cfg.Routing.SnapRadiusMeters,
			Timeout:          cfg.Routing.Timeout,
			Retry:            cfg.Routing.Retry,
		})
	}
	geocoder := d.Geocoder
	if geocoder == nil {
		geocoder = routing.NewGeocoder(routing.GeocoderOptions{
			BaseURL:   cfg.Geocoding.BaseURL,
			APIKey:    cfg.Geocoding.APIKey,
			Countries: cfg.Geocoding.Countries,
			Timeout:   cfg.Geocoding.Timeout,
			Retry:     cfg.Geocoding.Retry,
		})
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	var ownLocks *memory.LockManager
	if d.Locks == nil {
		ownLocks = memory.NewLockManager(time.Minute)
		d.Locks = ownLocks
	}
	if d.Bus == nil {
		d.Bus = realtime.NewMemoryBus()
	}

	// Initialize services
	notificationService := services.NewNotificationService(notifier)
	planner := services.NewRoutePlanner(directions, cfg.Planner.DraftTTL)
	routeService := services.NewRouteService(d.Repos.Routes, planner, d.Bus, cfg)
	searchService := services.NewSearchService(d.Repos.Routes, cfg)
	roadsideService := services.NewRoadsideService(d.Repos.Profiles, cfg)
	urgentService := services.NewUrgentService(d.Repos.Urgent, roadsideService, notificationService, cfg)
	announcementService := services.NewAnnouncementService(d.Repos.Announcements)
	conversationService := services.NewConversationService(d.Repos.Conversations, d.Repos.Announcements, d.Locks, d.Bus)
	captcha := services.NewCaptchaVerifier(cfg.Captcha.VerifyURL, cfg.Captcha.Secret, cfg.Captcha.MinScore, cfg.Captcha.Timeout)
	authService := services.NewAuthService(d.Repos.Users, d.Repos.Sessions, d.Repos.Profiles, captcha, cfg.Auth)
	profileService := services.NewProfileService(d.Repos.Profiles)
	uploadService := services.NewUploadService(cfg.Upload)

	// Initialize handlers
	router := NewRouter(
		handlers.NewRouteHandler(routeService, searchService),
		handlers.NewRoadsideHandler(roadsideService, geocoder),
		handlers.NewUrgentHandler(urgentService),
		handlers.NewBoardHandler(announcementService, conversationService),
		handlers.NewAccountHandler(authService, captcha, profileService, uploadService),
		handlers.NewRealtimeHandler(d.Bus, conversationService, searchService, cfg),
		authService,
		cfg.Server.AllowedOrigins,
	)
	router.Setup(engine)

	return &Server{
		Engine:        engine,
		Auth:          authService,
		Routes:        routeService,
		Planner:       planner,
		Notifications: notificationService,
		Cleanup: &cleanup.Job{
			Routes:   d.Repos.Routes,
			Sessions: d.Repos.Sessions,
			Locks:    d.Locks,
		},
		ownLocks: ownLocks,
	}
}

// Close stops the background sweepers owned by the server.
func (s *Server) Close() {
	s.Planner.Stop()
	if s.ownLocks != nil {
		s.ownLocks.Stop()
	}
}
