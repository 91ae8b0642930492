package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/funnel-bot/internal/api/dto"
	"github.com/spec-kit/funnel-bot/internal/service"
	apperrors "github.com/spec-kit/funnel-bot/pkg/util"
)

// AuthHandler serves admin login.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler returns a new handler instance.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login exchanges the admin password for a JWT.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Password == "" {
		return apperrors.NewValidationError("password is required", nil)
	}

	token, expiresAt, err := h.authService.Login(c.UserContext(), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{Token: token, ExpiresAt: expiresAt})
}
