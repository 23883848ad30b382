package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"poholowani/internal/services"
)

// UrgentHandler serves calls for roadside help. Creating one needs no
// account.
type UrgentHandler struct {
	urgentService *services.UrgentService
}

func NewUrgentHandler(urgentService *services.UrgentService) *UrgentHandler {
	return &UrgentHandler{urgentService: urgentService}
}

// Create handles POST /api/urgent. The response carries the providers
// found within the urgent radius so the caller can phone one directly.
func (h *UrgentHandler) Create(c *gin.Context) {
	var req services.UrgentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}

	result, err := h.urgentService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List handles GET /api/urgent
func (h *UrgentHandler) List(c *gin.Context) {
	reqs, err := h.urgentService.ListVisible(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// Get handles GET /api/urgent/:id
func (h *UrgentHandler) Get(c *gin.Context) {
	req, err := h.urgentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Nearby handles GET /api/urgent/:id/nearby
func (h *UrgentHandler) Nearby(c *gin.Context) {
	req, err := h.urgentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	hits, err := h.urgentService.NearbyProviders(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": hits})
}
