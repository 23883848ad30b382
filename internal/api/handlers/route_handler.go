package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"poholowani/internal/api/middleware"
	"poholowani/internal/services"
)

// RouteHandler serves route offers: listing, the create/edit form with its
// live geometry preview, and map search.
type RouteHandler struct {
	routeService  *services.RouteService
	searchService *services.SearchService
}

func NewRouteHandler(routeService *services.RouteService, searchService *services.SearchService) *RouteHandler {
	return &RouteHandler{
		routeService:  routeService,
		searchService: searchService,
	}
}

// List handles GET /api/routes
func (h *RouteHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	routes, err := h.routeService.ListUpcoming(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// Mine handles GET /api/routes/mine
func (h *RouteHandler) Mine(c *gin.Context) {
	routes, err := h.routeService.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// Create handles POST /api/routes. Signed-in users own the offer; anonymous
// offers are tied to the browser token.
func (h *RouteHandler) Create(c *gin.Context) {
	var req services.RouteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}

	route, err := h.routeService.Create(c.Request.Context(), middleware.GetUserID(c), middleware.GetBrowserToken(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

// Get handles GET /api/routes/:id
func (h *RouteHandler) Get(c *gin.Context) {
	route, err := h.routeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// Update handles PUT /api/routes/:id
func (h *RouteHandler) Update(c *gin.Context) {
	var req services.RouteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}

	route, err := h.routeService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// Delete handles DELETE /api/routes/:id
func (h *RouteHandler) Delete(c *gin.Context) {
	if err := h.routeService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Preview handles POST /api/routes/drafts/:form/preview. The form id keys
// the draft's route-fetch workflow, so a later submit with the same
// waypoints reuses this geometry.
func (h *RouteHandler) Preview(c *gin.Context) {
	var req services.RouteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	req.FormID = c.Param("form")

	res, err := h.routeService.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Stale {
		c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer preview", "retryable": false, "stale": true, "ticket": res.Ticket})
		return
	}
	if res.Err != nil {
		respondError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticket":   res.Ticket,
		"geometry": res.Geometry,
		"cached":   res.Cached,
	})
}

// Draft handles GET /api/routes/drafts/:form
func (h *RouteHandler) Draft(c *gin.Context) {
	snap, ok := h.routeService.Planner().Snapshot(c.Param("form"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "retryable": false})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// DiscardDraft handles DELETE /api/routes/drafts/:form
func (h *RouteHandler) DiscardDraft(c *gin.Context) {
	h.routeService.Planner().Discard(c.Param("form"))
	c.Status(http.StatusNoContent)
}

// Search handles POST /api/routes/search. An empty filter returns the
// clustered overview.
func (h *RouteHandler) Search(c *gin.Context) {
	var q services.SearchQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Overview handles GET /api/routes/overview?zoom=. Without a zoom it is
// the reset view.
func (h *RouteHandler) Overview(c *gin.Context) {
	var (
		result *services.SearchResult
		err    error
	)
	if raw, ok := c.GetQuery("zoom"); ok {
		zoom, convErr := strconv.Atoi(raw)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "zoom must be an integer", "retryable": false})
			return
		}
		result, err = h.searchService.Overview(c.Request.Context(), zoom)
	} else {
		result, err = h.searchService.Reset(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
