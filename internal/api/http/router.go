package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/funnel-bot/internal/api/http/handlers"
	"github.com/spec-kit/funnel-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Webhook        *handlers.WebhookHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/telegram/webhook", cfg.Webhook.Handle)

	app.Post("/auth/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Get("/subscribers/recent", cfg.Admin.RecentSubscribers)
	admin.Get("/links/stats", cfg.Admin.LinkStats)
	admin.Post("/broadcast", cfg.Admin.Broadcast)
	admin.Get("/settings/meeting-link", cfg.Admin.MeetingLink)
	admin.Put("/settings/meeting-link", cfg.Admin.SetMeetingLink)
}
