package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"poholowani/internal/api/middleware"
	"poholowani/internal/domain/entities"
	"poholowani/internal/services"
)

// AccountHandler covers sign-in, the captcha function, the user's own
// profile and image uploads.
type AccountHandler struct {
	authService    *services.AuthService
	captcha        *services.CaptchaVerifier
	profileService *services.ProfileService
	uploadService  *services.UploadService
}

func NewAccountHandler(
	authService *services.AuthService,
	captcha *services.CaptchaVerifier,
	profileService *services.ProfileService,
	uploadService *services.UploadService,
) *AccountHandler {
	return &AccountHandler{
		authService:    authService,
		captcha:        captcha,
		profileService: profileService,
		uploadService:  uploadService,
	}
}

// VerifyRecaptchaRequest is the body of the captcha function.
type VerifyRecaptchaRequest struct {
	RecaptchaToken string `json:"recaptchaToken"`
}

// VerifyRecaptcha handles POST /functions/verify-recaptcha
func (h *AccountHandler) VerifyRecaptcha(c *gin.Context) {
	var req VerifyRecaptchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	if req.RecaptchaToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recaptchaToken is required", "retryable": false})
		return
	}
	res, err := h.captcha.Verify(c.Request.Context(), req.RecaptchaToken)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "captcha verification is unavailable", "retryable": true})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Login handles POST /functions/login. A low v3 captcha score answers 403
// with requireV2 so the client shows the checkbox challenge.
func (h *AccountHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	pair, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /auth/signup
func (h *AccountHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	pair, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pair)
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /auth/refresh
func (h *AccountHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout handles POST /auth/logout
func (h *AccountHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetProfile handles GET /api/profile
func (h *AccountHandler) GetProfile(c *gin.Context) {
	p, err := h.profileService.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SaveProfile handles PUT /api/profile
func (h *AccountHandler) SaveProfile(c *gin.Context) {
	var p entities.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "retryable": false})
		return
	}
	saved, err := h.profileService.Save(c.Request.Context(), middleware.GetUserID(c), &p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// PublicProfile handles GET /api/profiles/:id
func (h *AccountHandler) PublicProfile(c *gin.Context) {
	p, err := h.profileService.Public(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Upload handles POST /api/uploads (multipart field "file"). The body is
// capped before parsing; the service sniffs the real content type.
func (h *AccountHandler) Upload(c *gin.Context) {
	// Room for the multipart framing around the image.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadService.MaxBytes()+64<<10)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": services.ErrUploadTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file could not be read"})
		return
	}
	defer f.Close()

	result, err := h.uploadService.Upload(c.Request.Context(), middleware.GetUserID(c), f)
	if err != nil {
		status, message, _ := classify(err)
		c.JSON(status, gin.H{"success": false, "error": message})
		return
	}
	c.JSON(http.StatusOK, result)
}
