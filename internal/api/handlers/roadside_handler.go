package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"poholowani/internal/domain/entities"
	"poholowani/internal/routing"
	"poholowani/internal/services"
)

// RoadsideHandler serves roadside-assistance discovery and the place
// autocomplete used by every location field.
type RoadsideHandler struct {
	roadsideService *services.RoadsideService
	geocoder        *routing.Geocoder
}

func NewRoadsideHandler(roadsideService *services.RoadsideService, geocoder *routing.Geocoder) *RoadsideHandler {
	return &RoadsideHandler{
		roadsideService: roadsideService,
		geocoder:        geocoder,
	}
}

// Near handles GET /api/roadside?lat=&lng=&radius_km=
func (h *RoadsideHandler) Near(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required", "retryable": false})
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "0"), 64)

	hits, err := h.roadsideService.Near(c.Request.Context(), entities.NewLocation(lat, lng), radius)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": hits})
}

// BySlug handles GET /api/roadside/:slug
func (h *RoadsideHandler) BySlug(c *gin.Context) {
	profile, err := h.roadsideService.BySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Geocode handles GET /api/geocode?text=
func (h *RoadsideHandler) Geocode(c *gin.Context) {
	places, err := h.geocoder.Autocomplete(c.Request.Context(), c.Query("text"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}
