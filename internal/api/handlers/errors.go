package handlers

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"poholowani/internal/repository"
	"poholowani/internal/routing"
	"poholowani/internal/services"
)

// respondError maps a service error onto a status code and a plain
// language message. Every error body has the same shape:
//
//	{"error": "...", "retryable": bool}
//
// plus "geometry" and "form_id" when a save failed after routing succeeded,
// and "requireV2" when the captcha must be escalated.
func respondError(c *gin.Context, err error) {
	status, message, retryable := classify(err)
	body := gin.H{"error": message, "retryable": retryable}

	var saveErr *services.SaveError
	if errors.As(err, &saveErr) {
		body["geometry"] = saveErr.Geometry
		body["form_id"] = saveErr.FormID
	}
	var captchaErr *services.CaptchaError
	if errors.As(err, &captchaErr) {
		body["requireV2"] = captchaErr.RequireV2
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}

func classify(err error) (int, string, bool) {
	var (
		validation *services.ValidationError
		saveErr    *services.SaveError
		captchaErr *services.CaptchaError
		uploadErr  *services.UploadError
		statusErr  *routing.StatusError
		netErr     net.Error
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error(), false
	case errors.As(err, &captchaErr):
		return http.StatusForbidden, captchaErr.Error(), false
	case errors.As(err, &saveErr):
		return http.StatusInternalServerError, "the route was computed but could not be saved, please try again", true
	case errors.Is(err, services.ErrLoginRequired):
		return http.StatusUnauthorized, err.Error(), false
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error(), false
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden, err.Error(), false
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, err.Error(), false
	case errors.Is(err, services.ErrSelfConversation):
		return http.StatusBadRequest, err.Error(), false
	case errors.Is(err, services.ErrRouteNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found", false
	case errors.Is(err, services.ErrSuperseded):
		return http.StatusConflict, "the route changed while it was being calculated", true
	case errors.Is(err, routing.ErrNoRoute):
		return http.StatusUnprocessableEntity, "no road route was found between these places", false
	case errors.Is(err, routing.ErrTooFewWaypoints):
		return http.StatusBadRequest, "origin and destination are required", false
	case errors.Is(err, services.ErrUploadUnavailable):
		return http.StatusServiceUnavailable, err.Error(), false
	case errors.As(err, &uploadErr):
		return http.StatusBadGateway, uploadErr.Error(), uploadErr.Status >= 500
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, "the " + statusErr.Service + " service is unavailable", routing.IsTransient(err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return http.StatusBadGateway, "an external service did not respond, please try again", true
	default:
		return http.StatusInternalServerError, "internal error", false
	}
}
