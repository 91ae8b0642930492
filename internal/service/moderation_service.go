package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/config"
	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/events"
	"github.com/spec-kit/funnel-bot/internal/repository"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

// Messenger is the transport surface moderation needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, msg telegram.Message) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// ModerationService filters group messages: keyword spam, flooding, and
// link posting. Flood counters live in redis so restarts do not reset them.
type ModerationService struct {
	transport   Messenger
	redisClient *redis.Client
	links       repository.LinkClickRepository
	subscribers repository.SubscriberRepository
	dispatcher  events.Dispatcher
	cfg         config.ModerationConfig
	logger      *zap.Logger
}

// ModerationDependencies bundles collaborators.
type ModerationDependencies struct {
	Transport   Messenger
	RedisClient *redis.Client
	Links       repository.LinkClickRepository
	Subscribers repository.SubscriberRepository
	Dispatcher  events.Dispatcher
}

// NewModerationService creates the service.
func NewModerationService(cfg config.ModerationConfig, deps ModerationDependencies, logger *zap.Logger) *ModerationService {
	return &ModerationService{
		transport:   deps.Transport,
		redisClient: deps.RedisClient,
		links:       deps.Links,
		subscribers: deps.Subscribers,
		dispatcher:  deps.Dispatcher,
		cfg:         cfg,
		logger:      logger,
	}
}

var linkPattern = regexp.MustCompile(`https?://[^\s)]+`)

// HandleMessage inspects one group message and moderates it when needed.
func (s *ModerationService) HandleMessage(ctx context.Context, msg *telegram.IncomingMessage) error {
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return nil
	}

	if s.isSpam(msg.Text) {
		return s.removeMessage(ctx, msg, "spam keyword")
	}

	flooding, err := s.isFlooding(ctx, msg.From.ID)
	if err != nil {
		// Flood detection is best effort; a redis outage must not block chat.
		s.logger.Warn("flood check unavailable", zap.Error(err))
	} else if flooding {
		return s.removeMessage(ctx, msg, "flooding")
	}

	return s.trackLinks(ctx, msg)
}

func (s *ModerationService) isSpam(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range s.cfg.SpamKeywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// isFlooding counts messages per user in a sliding window.
func (s *ModerationService) isFlooding(ctx context.Context, userID int64) (bool, error) {
	if s.redisClient == nil || s.cfg.FloodLimit <= 0 {
		return false, nil
	}
	key := fmt.Sprintf("moderation:flood:%d", userID)
	count, err := s.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := s.redisClient.Expire(ctx, key, s.cfg.FloodWindow()).Err(); err != nil {
			return false, err
		}
	}
	return count > int64(s.cfg.FloodLimit), nil
}

// trackLinks records every link in the message and removes the message when
// it carries an external link outside the allowlist.
func (s *ModerationService) trackLinks(ctx context.Context, msg *telegram.IncomingMessage) error {
	rawLinks := linkPattern.FindAllString(msg.Text, -1)
	if len(rawLinks) == 0 {
		return nil
	}

	blocked := false
	for _, raw := range rawLinks {
		linkDomain := extractDomain(raw)
		linkType := s.classify(linkDomain)
		click := &domain.LinkClick{
			UserID:   msg.From.ID,
			LinkType: linkType,
			Domain:   linkDomain,
			URL:      raw,
		}
		if err := s.links.Record(ctx, click); err != nil {
			s.logger.Warn("failed to record link", zap.String("domain", linkDomain), zap.Error(err))
		}
		if linkType == domain.LinkTypeExternal {
			blocked = true
		}
	}

	if blocked {
		return s.removeMessage(ctx, msg, "external link")
	}
	return nil
}

func (s *ModerationService) classify(linkDomain string) domain.LinkType {
	if linkDomain == "t.me" || linkDomain == "telegram.org" {
		return domain.LinkTypeInternal
	}
	for _, allowed := range s.cfg.AllowedDomains {
		if linkDomain == allowed || strings.HasSuffix(linkDomain, "."+allowed) {
			return domain.LinkTypeAllowed
		}
	}
	return domain.LinkTypeExternal
}

func (s *ModerationService) removeMessage(ctx context.Context, msg *telegram.IncomingMessage, reason string) error {
	if err := s.transport.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		s.logger.Warn("failed to delete flagged message",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int64("message_id", msg.MessageID),
			zap.Error(err),
		)
	}

	s.logger.Info("message flagged",
		zap.Int64("user_id", msg.From.ID),
		zap.String("reason", reason),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:   events.EventMessageFlagged,
			UserID: msg.From.ID,
			Payload: events.MessageFlaggedPayload{
				ChatID:    msg.Chat.ID,
				MessageID: msg.MessageID,
				Reason:    reason,
				Preview:   preview(msg.Text),
			},
		})
	}

	warning := telegram.Message{
		Text: fmt.Sprintf("%s, your message was removed (%s). Please check the group rules.", displayName(msg.From), reason),
	}
	if err := s.transport.SendMessage(ctx, msg.Chat.ID, warning); err != nil {
		s.logger.Warn("failed to send moderation warning", zap.Error(err))
	}
	return nil
}

// RefreshProfile keeps subscriber profile fields current from chat activity.
func (s *ModerationService) RefreshProfile(ctx context.Context, from *telegram.User, seenAt time.Time) {
	if from == nil || from.IsBot {
		return
	}
	sub := &domain.Subscriber{
		UserID:    from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		JoinedAt:  seenAt,
	}
	if err := s.subscribers.Upsert(ctx, sub); err != nil {
		s.logger.Warn("failed to refresh subscriber profile", zap.Int64("user_id", from.ID), zap.Error(err))
	}
}

func extractDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func displayName(u *telegram.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "member"
}

func preview(text string) string {
	const max = 80
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
