package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/events"
	"github.com/spec-kit/funnel-bot/internal/funnel"
	"github.com/spec-kit/funnel-bot/internal/repository"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

// BroadcastResult summarizes a finished broadcast.
type BroadcastResult struct {
	BroadcastID string
	Sent        int
	Failed      int
}

// BroadcastService sends an admin message to every active subscriber through
// the same limiter the funnel uses, so a broadcast cannot race the platform.
type BroadcastService struct {
	subscribers repository.SubscriberRepository
	transport   funnel.Transport
	limiter     funnel.Limiter
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// NewBroadcastService creates the service.
func NewBroadcastService(subscribers repository.SubscriberRepository, transport funnel.Transport, limiter funnel.Limiter, dispatcher events.Dispatcher, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		subscribers: subscribers,
		transport:   transport,
		limiter:     limiter,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Broadcast delivers text to all active subscribers serially. Recipients who
// have blocked the bot are deactivated along the way.
func (s *BroadcastService) Broadcast(ctx context.Context, text string) (*BroadcastResult, error) {
	subs, err := s.subscribers.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &BroadcastResult{BroadcastID: uuid.NewString()}
	s.logger.Info("broadcast started",
		zap.String("broadcast_id", result.BroadcastID),
		zap.Int("recipients", len(subs)),
	)

	msg := telegram.Message{Text: text, ParseMode: "Markdown"}
	for _, sub := range subs {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, err
		}
		if err := s.transport.SendMessage(ctx, sub.UserID, msg); err != nil {
			result.Failed++
			if errors.Is(err, telegram.ErrRecipientGone) {
				if derr := s.subscribers.Deactivate(ctx, sub.UserID); derr != nil {
					s.logger.Warn("failed to deactivate gone recipient", zap.Int64("user_id", sub.UserID), zap.Error(derr))
				}
				continue
			}
			s.logger.Warn("broadcast send failed", zap.Int64("user_id", sub.UserID), zap.Error(err))
			continue
		}
		result.Sent++
	}

	s.logger.Info("broadcast finished",
		zap.String("broadcast_id", result.BroadcastID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type: events.EventBroadcastCompleted,
			Payload: events.BroadcastCompletedPayload{
				BroadcastID: result.BroadcastID,
				Sent:        result.Sent,
				Failed:      result.Failed,
			},
		})
	}
	return result, nil
}
