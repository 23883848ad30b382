package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"poholowani/internal/config"
	"poholowani/internal/domain/entities"
	"poholowani/internal/repository"
	"poholowani/pkg/utils"
)

const minPasswordLength = 8

// Claims is the access token payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful sign-in returns.
type TokenPair struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *entities.User `json:"user"`
}

// LoginInput is the credential exchange request.
type LoginInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken"`
	CaptchaVersion string `json:"captchaVersion"`
}

// CaptchaError rejects a login on bot verification. RequireV2 tells the
// client to retry with the interactive challenge.
type CaptchaError struct {
	RequireV2 bool
}

func (e *CaptchaError) Error() string {
	if e.RequireV2 {
		return "additional verification is required"
	}
	return "captcha verification failed"
}

// AuthService issues and validates sessions: bcrypt password hashes, short
// lived HS256 access tokens and rotating refresh tokens stored server side.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	profiles repository.ProfileRepository
	captcha  *CaptchaVerifier
	config   config.AuthConfig
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	profiles repository.ProfileRepository,
	captcha *CaptchaVerifier,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{users: users, sessions: sessions, profiles: profiles, captcha: captcha, config: cfg, now: time.Now}
}

// Signup creates the account with an empty (unassigned) profile and signs
// it in.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidf("email address is not valid")
	}
	if len(password) < minPasswordLength {
		return nil, invalid(ErrWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user := &entities.User{ID: utils.GenerateID(), Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if err := s.profiles.Upsert(ctx, &entities.Profile{UserID: user.ID}); err != nil {
		log.Printf("[AUTH] Profile for %s not created: %v", user.ID, err)
	}
	log.Printf("[AUTH] Signed up %s", user.ID)
	return s.issue(ctx, user)
}

// Login verifies the captcha first and the password second. A v3 score
// below the minimum fails with RequireV2 so the client can escalate.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	if s.captcha != nil && s.captcha.Enabled() {
		version := in.CaptchaVersion
		if version == "" {
			version = CaptchaV3
		}
		res, err := s.captcha.Verify(ctx, in.RecaptchaToken)
		if err != nil {
			return nil, err
		}
		if !s.captcha.Passes(res, version) {
			return nil, &CaptchaError{RequireV2: version == CaptchaV3}
		}
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// Refresh rotates a refresh token: the old one is consumed and a new pair
// is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sess, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := s.sessions.Delete(ctx, refreshToken); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if !sess.ExpiresAt.After(s.now()) {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.issue(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.sessions.Delete(ctx, refreshToken)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// ParseAccessToken validates an access token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *entities.User) (*TokenPair, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}

	sess := &entities.Session{
		Token:     utils.GenerateToken(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: sess.Token,
		ExpiresIn:    int64(s.config.AccessTTL.Seconds()),
		User:         user,
	}, nil
}
