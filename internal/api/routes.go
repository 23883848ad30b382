package api

import (
	"github.com/gin-gonic/gin"

	"poholowani/internal/api/handlers"
	"poholowani/internal/api/middleware"
)

type Router struct {
	routeHandler    *handlers.RouteHandler
	roadsideHandler *handlers.RoadsideHandler
	urgentHandler   *handlers.UrgentHandler
	boardHandler    *handlers.BoardHandler
	accountHandler  *handlers.AccountHandler
	realtimeHandler *handlers.RealtimeHandler
	tokens          middleware.TokenParser
	allowedOrigins  []string
}

func NewRouter(
	routeHandler *handlers.RouteHandler,
	roadsideHandler *handlers.RoadsideHandler,
	urgentHandler *handlers.UrgentHandler,
	boardHandler *handlers.BoardHandler,
	accountHandler *handlers.AccountHandler,
	realtimeHandler *handlers.RealtimeHandler,
	tokens middleware.TokenParser,
	allowedOrigins []string,
) *Router {
	return &Router{
		routeHandler:    routeHandler,
		roadsideHandler: roadsideHandler,
		urgentHandler:   urgentHandler,
		boardHandler:    boardHandler,
		accountHandler:  accountHandler,
		realtimeHandler: realtimeHandler,
		tokens:          tokens,
		allowedOrigins:  allowedOrigins,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.CORS(r.allowedOrigins))

	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Serverless-style functions the client calls directly.
	functions := engine.Group("/functions")
	{
		functions.POST("/verify-recaptcha", r.accountHandler.VerifyRecaptcha)
		functions.POST("/login", r.accountHandler.Login)
	}

	auth := engine.Group("/auth")
	{
		auth.POST("/signup", r.accountHandler.Signup)
		auth.POST("/refresh", r.accountHandler.Refresh)
		auth.POST("/logout", r.accountHandler.Logout)
	}

	// Everything below identifies the caller when a token is present.
	api := engine.Group("/api")
	api.Use(middleware.Auth(r.tokens))
	{
		// Route offers: anonymous create is allowed, edits are owner-only.
		routes := api.Group("/routes")
		{
			routes.GET("", r.routeHandler.List)
			routes.POST("", r.routeHandler.Create)
			routes.GET("/overview", r.routeHandler.Overview)
			routes.POST("/search", r.routeHandler.Search)
			routes.GET("/mine", middleware.RequireUser(), r.routeHandler.Mine)
			routes.GET("/drafts/:form", r.routeHandler.Draft)
			routes.DELETE("/drafts/:form", r.routeHandler.DiscardDraft)
			routes.POST("/drafts/:form/preview", r.routeHandler.Preview)
			routes.GET("/:id", r.routeHandler.Get)
			routes.PUT("/:id", middleware.RequireUser(), r.routeHandler.Update)
			routes.DELETE("/:id", middleware.RequireUser(), r.routeHandler.Delete)
		}

		api.GET("/geocode", r.roadsideHandler.Geocode)
		api.GET("/roadside", r.roadsideHandler.Near)
		api.GET("/roadside/:slug", r.roadsideHandler.BySlug)

		urgent := api.Group("/urgent")
		{
			urgent.GET("", r.urgentHandler.List)
			urgent.POST("", r.urgentHandler.Create)
			urgent.GET("/:id", r.urgentHandler.Get)
			urgent.GET("/:id/nearby", r.urgentHandler.Nearby)
		}

		announcements := api.Group("/announcements")
		{
			announcements.GET("", r.boardHandler.ListAnnouncements)
			announcements.GET("/:id", r.boardHandler.GetAnnouncement)
			announcements.POST("", middleware.RequireUser(), r.boardHandler.CreateAnnouncement)
			announcements.PUT("/:id", middleware.RequireUser(), r.boardHandler.UpdateAnnouncement)
			announcements.DELETE("/:id", middleware.RequireUser(), r.boardHandler.DeleteAnnouncement)
			announcements.POST("/:id/conversations", middleware.RequireUser(), r.boardHandler.StartConversation)
		}

		api.GET("/profiles/:id", r.accountHandler.PublicProfile)

		// Signed-in only.
		user := api.Group("/")
		user.Use(middleware.RequireUser())
		{
			user.GET("/conversations", r.boardHandler.ListConversations)
			user.GET("/conversations/:id/messages", r.boardHandler.Messages)
			user.POST("/conversations/:id/messages", r.boardHandler.Send)
			user.POST("/conversations/:id/read", r.boardHandler.MarkRead)
			user.DELETE("/conversations/:id", r.boardHandler.Hide)
			user.GET("/unread", r.boardHandler.Unread)
			user.GET("/profile", r.accountHandler.GetProfile)
			user.PUT("/profile", r.accountHandler.SaveProfile)
			user.POST("/uploads", r.accountHandler.Upload)
		}
	}

	ws := engine.Group("/ws")
	ws.Use(middleware.Auth(r.tokens))
	{
		ws.GET("/unread", middleware.RequireUser(), r.realtimeHandler.Unread)
		ws.GET("/map", r.realtimeHandler.Map)
	}
}
