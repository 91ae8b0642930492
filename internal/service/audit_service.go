package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/events"
	"github.com/spec-kit/funnel-bot/internal/observability"
)

// AuditService subscribes to domain events and turns them into an audit log
// plus metrics. It is the single place where the event stream is observed.
type AuditService struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventMemberJoined, a.handleMemberJoined)
	a.dispatcher.Subscribe(events.EventStageAdvanced, a.handleStageAdvanced)
	a.dispatcher.Subscribe(events.EventSubscriberDeactivated, a.handleDeactivated)
	a.dispatcher.Subscribe(events.EventMessageFlagged, a.handleMessageFlagged)
	a.dispatcher.Subscribe(events.EventBroadcastCompleted, a.handleBroadcastCompleted)
}

func (a *AuditService) handleMemberJoined(ctx context.Context, event events.Event) error {
	a.logger.Info("audit: member joined", zap.Int64("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleStageAdvanced(ctx context.Context, event events.Event) error {
	a.logger.Info("audit: stage advanced", zap.Int64("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleDeactivated(ctx context.Context, event events.Event) error {
	a.logger.Info("audit: subscriber deactivated", zap.Int64("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleMessageFlagged(ctx context.Context, event events.Event) error {
	a.logger.Info("audit: message flagged", zap.Int64("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleBroadcastCompleted(ctx context.Context, event events.Event) error {
	a.logger.Info("audit: broadcast completed", zap.Any("payload", event.Payload))
	return nil
}
