package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/events"
	"github.com/spec-kit/funnel-bot/internal/observability"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

// Store is the subscriber persistence surface the engine depends on.
type Store interface {
	FindDue(ctx context.Context, stage int, minDwell time.Duration) ([]domain.Subscriber, error)
	AdvanceStage(ctx context.Context, userID int64, fromStage int) (bool, error)
	Deactivate(ctx context.Context, userID int64) error
}

// Engine advances subscribers through the stage catalog. Each run walks the
// stages in ascending order, pulls due subscribers, delivers the stage
// content and conditionally advances the store record. A subscriber can move
// at most one stage per run because lower stages are processed first and the
// advance is guarded by the expected pre-transition stage.
type Engine struct {
	store          Store
	deliverer      *Deliverer
	catalog        Catalog
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	logger         *zap.Logger
	advanceRetries int
}

// EngineDeps bundles engine dependencies.
type EngineDeps struct {
	Store          Store
	Deliverer      *Deliverer
	Catalog        Catalog
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	AdvanceRetries int
}

// NewEngine creates the engine.
func NewEngine(deps EngineDeps) *Engine {
	retries := deps.AdvanceRetries
	if retries <= 0 {
		retries = 3
	}
	return &Engine{
		store:          deps.Store,
		deliverer:      deps.Deliverer,
		catalog:        deps.Catalog,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		advanceRetries: retries,
	}
}

// Run executes one engine pass over all non-terminal stages. Per-subscriber
// failures are isolated; a store read failure skips only that stage's batch.
// Run returns an error when the context is cancelled or when every stage
// read failed, which indicates the store is unreachable.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("funnel run started", zap.Int("stages", e.catalog.Terminal()))

	readFailures := 0
	for s := 0; s < e.catalog.Terminal(); s++ {
		stage, ok := e.catalog.Stage(s)
		if !ok {
			continue
		}
		if err := e.runStage(ctx, stage); err != nil {
			if ctx.Err() != nil {
				e.logger.Warn("funnel run cancelled", zap.Int("stage", s))
				return ctx.Err()
			}
			readFailures++
			e.logger.Error("stage batch aborted", zap.Int("stage", s), zap.Error(err))
		}
	}

	if readFailures == e.catalog.Terminal() {
		return fmt.Errorf("all %d stage reads failed, store unreachable", readFailures)
	}

	e.metrics.RecordEngineRun(time.Now().UTC())
	e.logger.Info("funnel run finished")
	return nil
}

func (e *Engine) runStage(ctx context.Context, stage domain.Stage) error {
	due, err := e.store.FindDue(ctx, stage.Index, stage.MinDwell)
	if err != nil {
		return fmt.Errorf("find due subscribers for stage %d: %w", stage.Index, err)
	}
	if len(due) == 0 {
		return nil
	}

	e.logger.Info("processing due subscribers",
		zap.Int("stage", stage.Index),
		zap.Int("count", len(due)),
	)

	for _, sub := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.processSubscriber(ctx, stage, sub)
	}
	return nil
}

// processSubscriber runs the deliver-then-advance sequence for one
// subscriber. Nothing here returns an error: every failure mode either
// retries on a later run or permanently excludes the subscriber.
func (e *Engine) processSubscriber(ctx context.Context, stage domain.Stage, sub domain.Subscriber) {
	if sub.Stage != stage.Index || sub.Stage >= e.catalog.Terminal() {
		// Stale read or a stage value with no catalog entry. Skip, never crash.
		e.logger.Warn("skipping subscriber with unexpected stage",
			zap.Int64("user_id", sub.UserID),
			zap.Int("subscriber_stage", sub.Stage),
			zap.Int("batch_stage", stage.Index),
		)
		return
	}

	if err := e.deliverer.Deliver(ctx, sub, stage.Template); err != nil {
		if errors.Is(err, telegram.ErrRecipientGone) {
			e.deactivate(ctx, sub, "recipient gone")
			return
		}
		// Transient transport failure. The subscriber stays at this stage and
		// is picked up again on the next run; that loop is the retry queue.
		e.metrics.RecordDelivery(stage.Index, "failed")
		e.logger.Warn("delivery failed, will retry next run",
			zap.Int64("user_id", sub.UserID),
			zap.Int("stage", stage.Index),
			zap.Error(err),
		)
		return
	}

	advanced, err := e.advanceWithRetry(ctx, sub.UserID, stage.Index)
	if err != nil {
		// Message went out but the advance never stuck. Redelivery on a later
		// run is the accepted cost; silently dropping the transition is not.
		e.metrics.RecordDelivery(stage.Index, "unrecorded")
		e.logger.Error("stage advance failed after successful delivery",
			zap.Int64("user_id", sub.UserID),
			zap.Int("stage", stage.Index),
			zap.Error(err),
		)
		return
	}
	if !advanced {
		// Another run won the conditional write. Benign.
		e.logger.Debug("subscriber already advanced by concurrent run",
			zap.Int64("user_id", sub.UserID),
			zap.Int("stage", stage.Index),
		)
		return
	}

	e.metrics.RecordDelivery(stage.Index, "delivered")
	e.logger.Info("subscriber advanced",
		zap.Int64("user_id", sub.UserID),
		zap.Int("from_stage", stage.Index),
		zap.Int("to_stage", stage.Index+1),
	)
	e.publish(ctx, events.Event{
		Type:   events.EventStageAdvanced,
		UserID: sub.UserID,
		Payload: events.StageAdvancedPayload{
			FromStage: stage.Index,
			ToStage:   stage.Index + 1,
		},
	})
}

// advanceTimeout bounds the conditional advance after a delivered message.
const advanceTimeout = 5 * time.Second

// advanceWithRetry performs the conditional advance, retrying transient
// store errors a bounded number of times within the same run. The message
// is already out when this runs, so the advance is detached from run
// cancellation the same way the in-flight send is; a cancel arriving during
// the send must not leave the subscriber delivered but unrecorded.
func (e *Engine) advanceWithRetry(ctx context.Context, userID int64, fromStage int) (bool, error) {
	advCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), advanceTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < e.advanceRetries; attempt++ {
		advanced, err := e.store.AdvanceStage(advCtx, userID, fromStage)
		if err == nil {
			return advanced, nil
		}
		lastErr = err
		if advCtx.Err() != nil {
			break
		}
	}
	return false, lastErr
}

func (e *Engine) deactivate(ctx context.Context, sub domain.Subscriber, reason string) {
	e.metrics.RecordDelivery(sub.Stage, "recipient_gone")
	if err := e.store.Deactivate(ctx, sub.UserID); err != nil {
		e.logger.Error("failed to deactivate subscriber",
			zap.Int64("user_id", sub.UserID),
			zap.Error(err),
		)
		return
	}
	e.logger.Info("subscriber deactivated",
		zap.Int64("user_id", sub.UserID),
		zap.String("reason", reason),
	)
	e.publish(ctx, events.Event{
		Type:    events.EventSubscriberDeactivated,
		UserID:  sub.UserID,
		Payload: events.SubscriberDeactivatedPayload{Reason: reason},
	})
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	_ = e.dispatcher.Publish(ctx, event)
}
