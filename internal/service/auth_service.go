package service

import (
	"context"
	"time"

	"github.com/spec-kit/funnel-bot/internal/auth"
	"github.com/spec-kit/funnel-bot/internal/config"
	apperrors "github.com/spec-kit/funnel-bot/pkg/util"
)

// AuthService authenticates the admin for the reporting API. There is a
// single admin identity whose bcrypt hash comes from configuration.
type AuthService struct {
	cfg    config.AuthConfig
	tokens *auth.TokenManager
}

// NewAuthService creates the service.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		cfg:    cfg,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// Login verifies the admin password and issues a JWT.
func (s *AuthService) Login(ctx context.Context, password string) (string, time.Time, error) {
	if s.cfg.AdminPasswordHash == "" {
		return "", time.Time{}, apperrors.NewUnauthorized("admin login not configured")
	}
	if err := auth.ComparePassword(s.cfg.AdminPasswordHash, password); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.tokens.GenerateToken("admin")
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
