// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note — Middleware Pattern (Gin):
// In Gin, middleware is any function with the signature `gin.HandlerFunc`, which
// is `func(*gin.Context)`. Middleware functions form a chain: each one runs,
// optionally calls c.Next() to pass control to the next handler, and can call
// c.Abort() to stop the chain.
//
// Most of this API is usable without an account (route offers, search, urgent
// requests), so Auth only identifies the caller. Endpoints that need a user
// add RequireUser after it.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"poholowani/internal/services"
)

// Context keys for request-scoped values set by the middleware.
const (
	UserIDKey       = "user_id"
	UserEmailKey    = "user_email"
	BrowserTokenKey = "browser_token"

	// BrowserTokenHeader carries the random id a browser keeps in local
	// storage. Anonymous route offers are tied to it.
	BrowserTokenHeader = "X-Browser-Token"
)

// TokenParser validates access tokens. services.AuthService implements it.
type TokenParser interface {
	ParseAccessToken(token string) (*services.Claims, error)
}

// Auth reads an optional bearer token. A request without one continues
// anonymously; a request with an invalid one is rejected, so a client with
// an expired token learns it must refresh.
//
// Browsers cannot set headers on websocket upgrades, so the token is also
// accepted from the access_token query parameter.
//
// Go Learning Note — Returning Functions (Closures):
// Auth(parser) returns a gin.HandlerFunc that captures parser. This is the
// usual shape for middleware that needs configuration.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bt := strings.TrimSpace(c.GetHeader(BrowserTokenHeader)); bt != "" {
			c.Set(BrowserTokenKey, bt)
		}

		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}
		if token == "" {
			c.Next()
			return
		}

		claims, err := parser.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired, please sign in again"})
			c.Abort()
			return
		}
		c.Set(UserIDKey, claims.Subject)
		c.Set(UserEmailKey, claims.Email)
		c.Next()
	}
}

// bearerToken returns the token, "" when none was sent, and false when the
// Authorization header is malformed.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return c.Query("access_token"), true
	}
	// strings.SplitN splits into at most 2 parts, handling tokens with spaces.
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireUser rejects anonymous requests. Must run after Auth.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in to continue"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's id, or "" for anonymous
// requests.
//
// Go Learning Note — Type Assertion:
// c.Get() returns (any, bool). The two-value form `v, _ := x.(string)`
// yields the zero value instead of panicking when the key is missing.
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(UserIDKey)
	id, _ := v.(string)
	return id
}

// GetBrowserToken returns the X-Browser-Token header value, if any.
func GetBrowserToken(c *gin.Context) string {
	v, _ := c.Get(BrowserTokenKey)
	token, _ := v.(string)
	return token
}
