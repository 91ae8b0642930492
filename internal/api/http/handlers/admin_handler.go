package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/funnel-bot/internal/api/dto"
	"github.com/spec-kit/funnel-bot/internal/service"
	apperrors "github.com/spec-kit/funnel-bot/pkg/util"
)

// AdminHandler serves the authenticated reporting and broadcast endpoints.
type AdminHandler struct {
	reports   *service.ReportService
	broadcast *service.BroadcastService
}

// NewAdminHandler returns a new handler instance.
func NewAdminHandler(reports *service.ReportService, broadcast *service.BroadcastService) *AdminHandler {
	return &AdminHandler{reports: reports, broadcast: broadcast}
}

// Stats returns the subscriber overview with the funnel breakdown.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	overview, err := h.reports.OverviewStats(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}

	resp := dto.OverviewResponse{
		TotalActive: overview.TotalActive,
		NewToday:    overview.NewToday,
		NewThisWeek: overview.NewThisWeek,
		Deactivated: overview.Deactivated,
	}
	for _, stage := range overview.Funnel {
		resp.Funnel = append(resp.Funnel, dto.StageCount{
			Stage: stage.Stage,
			Name:  stage.Name,
			Count: stage.Count,
		})
	}
	return c.JSON(resp)
}

// RecentSubscribers lists the newest active subscribers.
func (h *AdminHandler) RecentSubscribers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	subs, err := h.reports.RecentSubscribers(c.UserContext(), limit)
	if err != nil {
		return apperrors.MapError(err)
	}

	resp := make([]dto.SubscriberResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, dto.SubscriberResponse{
			UserID:    sub.UserID,
			Username:  sub.Username,
			FirstName: sub.FirstName,
			Stage:     sub.Stage,
			JoinedAt:  sub.JoinedAt,
			Active:    sub.Active,
		})
	}
	return c.JSON(resp)
}

// LinkStats aggregates link clicks over a window of days.
func (h *AdminHandler) LinkStats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	stats, err := h.reports.LinkStats(c.UserContext(), days)
	if err != nil {
		return apperrors.MapError(err)
	}

	resp := make([]dto.LinkStatResponse, 0, len(stats))
	for _, stat := range stats {
		resp = append(resp, dto.LinkStatResponse{
			LinkType:    string(stat.LinkType),
			Clicks:      stat.Clicks,
			UniqueUsers: stat.UniqueUsers,
		})
	}
	return c.JSON(resp)
}

// Broadcast sends a message to all active subscribers.
func (h *AdminHandler) Broadcast(c *fiber.Ctx) error {
	var req dto.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("text is required", nil)
	}

	result, err := h.broadcast.Broadcast(c.UserContext(), req.Text)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.BroadcastResponse{
		BroadcastID: result.BroadcastID,
		Sent:        result.Sent,
		Failed:      result.Failed,
	})
}

// MeetingLink returns the configured weekly meeting link.
func (h *AdminHandler) MeetingLink(c *fiber.Ctx) error {
	link, err := h.reports.MeetingLink(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"link": link})
}

// SetMeetingLink updates the weekly meeting link.
func (h *AdminHandler) SetMeetingLink(c *fiber.Ctx) error {
	var req dto.MeetingLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if !strings.HasPrefix(req.Link, "https://") {
		return apperrors.NewValidationError("link must be an https URL", nil)
	}

	if err := h.reports.SetMeetingLink(c.UserContext(), req.Link); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"link": req.Link})
}
