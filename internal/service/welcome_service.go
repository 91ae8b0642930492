package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/config"
	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/events"
	"github.com/spec-kit/funnel-bot/internal/funnel"
	"github.com/spec-kit/funnel-bot/internal/repository"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

// WelcomeService reacts to new and departing group members. Joining creates
// the subscriber record at stage 0 with the join time as the first
// transition timestamp, which is what the funnel dwell clock runs against.
type WelcomeService struct {
	subscribers repository.SubscriberRepository
	transport   funnel.Transport
	limiter     funnel.Limiter
	dispatcher  events.Dispatcher
	cfg         config.TelegramConfig
	logger      *zap.Logger
}

// WelcomeDependencies bundles collaborators.
type WelcomeDependencies struct {
	Subscribers repository.SubscriberRepository
	Transport   funnel.Transport
	Limiter     funnel.Limiter
	Dispatcher  events.Dispatcher
}

// NewWelcomeService creates the service.
func NewWelcomeService(cfg config.TelegramConfig, deps WelcomeDependencies, logger *zap.Logger) *WelcomeService {
	return &WelcomeService{
		subscribers: deps.Subscribers,
		transport:   deps.Transport,
		limiter:     deps.Limiter,
		dispatcher:  deps.Dispatcher,
		cfg:         cfg,
		logger:      logger,
	}
}

// OnNewMember registers the member and greets them in the group.
func (s *WelcomeService) OnNewMember(ctx context.Context, member telegram.User, joinedAt time.Time) error {
	if member.IsBot {
		return nil
	}

	sub := &domain.Subscriber{
		UserID:    member.ID,
		Username:  member.Username,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		JoinedAt:  joinedAt,
	}
	if err := s.subscribers.Upsert(ctx, sub); err != nil {
		return err
	}
	// Rejoining is the explicit signal that the member wants messages again.
	if !sub.Active {
		if err := s.subscribers.Reactivate(ctx, sub.UserID); err != nil {
			return err
		}
		sub.Active = true
	}

	s.logger.Info("new member registered",
		zap.Int64("user_id", sub.UserID),
		zap.String("name", sub.DisplayName()),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:   events.EventMemberJoined,
			UserID: sub.UserID,
			Payload: events.MemberJoinedPayload{
				Username:  sub.Username,
				FirstName: sub.FirstName,
				JoinedAt:  sub.JoinedAt,
			},
		})
	}

	if s.cfg.GroupChatID == 0 {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := telegram.Message{
		Text:              strings.ReplaceAll(welcomeText, "{name}", sub.DisplayName()),
		ParseMode:         "Markdown",
		DisableWebPreview: true,
	}
	if err := s.transport.SendMessage(ctx, s.cfg.GroupChatID, msg); err != nil {
		// The subscriber record is already in place, so the funnel still
		// picks them up; losing the greeting is not worth failing the event.
		s.logger.Warn("welcome message failed", zap.Int64("user_id", sub.UserID), zap.Error(err))
	}
	return nil
}

// OnStartCommand handles /start sent to the bot in a private chat. The
// sender is registered like a joining member and gets the intro directly in
// that chat. Starting a private conversation also proves the bot can DM the
// user again, so a deactivated subscriber is brought back.
func (s *WelcomeService) OnStartCommand(ctx context.Context, member telegram.User, chatID int64) error {
	if member.IsBot {
		return nil
	}

	sub := &domain.Subscriber{
		UserID:    member.ID,
		Username:  member.Username,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		JoinedAt:  time.Now().UTC(),
	}
	if err := s.subscribers.Upsert(ctx, sub); err != nil {
		return err
	}
	if !sub.Active {
		if err := s.subscribers.Reactivate(ctx, sub.UserID); err != nil {
			return err
		}
		sub.Active = true
	}

	s.logger.Info("start command received", zap.Int64("user_id", sub.UserID))

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := telegram.Message{
		Text:              strings.ReplaceAll(startText, "{name}", sub.DisplayName()),
		ParseMode:         "Markdown",
		DisableWebPreview: true,
	}
	return s.transport.SendMessage(ctx, chatID, msg)
}

// OnMemberLeft soft-removes the subscriber so the funnel stops targeting them.
func (s *WelcomeService) OnMemberLeft(ctx context.Context, userID int64) error {
	if err := s.subscribers.Deactivate(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("member left, subscriber deactivated", zap.Int64("user_id", userID))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:    events.EventSubscriberDeactivated,
			UserID:  userID,
			Payload: events.SubscriberDeactivatedPayload{Reason: "left group"},
		})
	}
	return nil
}

const startText = `Hi {name}!

This is the community bot. You will get a few short messages over your first
days to help you find your way around. You can also:

- Ask questions in the group any time
- Check the pinned messages for the rules and the weekly meeting link

See you in the group!`

const welcomeText = `Welcome, {name}!

Great to have you in the community. A couple of quick pointers:

- Check the pinned messages for the group rules
- Introduce yourself whenever you feel like it
- Questions are always welcome

Enjoy your stay!`
