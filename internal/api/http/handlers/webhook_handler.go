package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/config"
	"github.com/spec-kit/funnel-bot/internal/service"
	"github.com/spec-kit/funnel-bot/internal/telegram"
	apperrors "github.com/spec-kit/funnel-bot/pkg/util"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	updateDedupTTL    = 24 * time.Hour
)

// WebhookHandler ingests Bot API updates. Updates are acknowledged even when
// handling fails; Telegram retries unacknowledged updates aggressively and a
// poison update would wedge the webhook queue.
type WebhookHandler struct {
	cfg         config.TelegramConfig
	welcome     *service.WelcomeService
	moderation  *service.ModerationService
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewWebhookHandler returns a new handler instance.
func NewWebhookHandler(cfg config.TelegramConfig, welcome *service.WelcomeService, moderation *service.ModerationService, redisClient *redis.Client, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:         cfg,
		welcome:     welcome,
		moderation:  moderation,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Handle processes one webhook update.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	if h.cfg.WebhookSecret != "" && c.Get(secretTokenHeader) != h.cfg.WebhookSecret {
		return apperrors.NewUnauthorized("invalid webhook secret")
	}

	var update telegram.Update
	if err := c.BodyParser(&update); err != nil {
		return apperrors.NewValidationError("invalid update payload", nil)
	}

	if h.alreadySeen(c, update.UpdateID) {
		return c.SendStatus(fiber.StatusOK)
	}

	if update.Message != nil {
		h.handleMessage(c, update.Message)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) handleMessage(c *fiber.Ctx, msg *telegram.IncomingMessage) {
	ctx := c.UserContext()

	for _, member := range msg.NewChatMembers {
		joinedAt := time.Unix(msg.Date, 0).UTC()
		if err := h.welcome.OnNewMember(ctx, member, joinedAt); err != nil {
			h.logger.Error("failed to handle new member", zap.Int64("user_id", member.ID), zap.Error(err))
		}
	}
	if msg.LeftChatMember != nil && !msg.LeftChatMember.IsBot {
		if err := h.welcome.OnMemberLeft(ctx, msg.LeftChatMember.ID); err != nil {
			h.logger.Error("failed to handle left member", zap.Int64("user_id", msg.LeftChatMember.ID), zap.Error(err))
		}
	}

	if msg.Text == "" || len(msg.NewChatMembers) > 0 {
		return
	}

	if isStartCommand(msg.Text) && msg.Chat.Type == "private" && msg.From != nil {
		if err := h.welcome.OnStartCommand(ctx, *msg.From, msg.Chat.ID); err != nil {
			h.logger.Error("failed to handle start command", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		}
		return
	}

	h.moderation.RefreshProfile(ctx, msg.From, time.Unix(msg.Date, 0).UTC())
	if err := h.moderation.HandleMessage(ctx, msg); err != nil {
		h.logger.Error("moderation failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func isStartCommand(text string) bool {
	return text == "/start" ||
		strings.HasPrefix(text, "/start ") ||
		strings.HasPrefix(text, "/start@")
}

// alreadySeen deduplicates updates by id. Telegram redelivers updates when
// the webhook answers slowly; without this the same join event would double
// the welcome message.
func (h *WebhookHandler) alreadySeen(c *fiber.Ctx, updateID int64) bool {
	if h.redisClient == nil {
		return false
	}
	key := fmt.Sprintf("webhook:update:%d", updateID)
	ok, err := h.redisClient.SetNX(c.UserContext(), key, 1, updateDedupTTL).Result()
	if err != nil {
		h.logger.Warn("update dedup unavailable", zap.Error(err))
		return false
	}
	return !ok
}
