package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/funnel"
)

const runLockKey = "funnel:run_lock"

// FunnelWorker is the periodic trigger that drives the engine. A redis lock
// keeps two bot instances from running the engine at the same time. The lock
// is advisory; the engine's conditional advance stays correct without it.
type FunnelWorker struct {
	engine      *funnel.Engine
	redisClient *redis.Client
	interval    time.Duration
	lockTTL     time.Duration
	logger      *zap.Logger
}

// NewFunnelWorker creates the worker.
func NewFunnelWorker(engine *funnel.Engine, redisClient *redis.Client, interval time.Duration, logger *zap.Logger) *FunnelWorker {
	return &FunnelWorker{
		engine:      engine,
		redisClient: redisClient,
		interval:    interval,
		lockTTL:     interval,
		logger:      logger,
	}
}

// Start runs the trigger loop until the context is cancelled. The first run
// fires immediately so a restart does not postpone due messages by a full
// interval.
func (w *FunnelWorker) Start(ctx context.Context) {
	w.logger.Info("funnel worker started", zap.Duration("interval", w.interval))

	w.trigger(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("funnel worker stopped")
			return
		case <-ticker.C:
			w.trigger(ctx)
		}
	}
}

func (w *FunnelWorker) trigger(ctx context.Context) {
	release, acquired := w.acquireLock(ctx)
	if !acquired {
		w.logger.Info("funnel run skipped, another instance holds the lock")
		return
	}
	defer release()

	if err := w.engine.Run(ctx); err != nil {
		w.logger.Error("funnel run failed", zap.Error(err))
	}
}

// acquireLock takes the advisory run lock. When redis is unavailable the run
// proceeds anyway since the conditional advance makes overlap safe.
func (w *FunnelWorker) acquireLock(ctx context.Context) (func(), bool) {
	if w.redisClient == nil {
		return func() {}, true
	}

	token := uuid.NewString()
	ok, err := w.redisClient.SetNX(ctx, runLockKey, token, w.lockTTL).Result()
	if err != nil {
		w.logger.Warn("run lock unavailable, proceeding without it", zap.Error(err))
		return func() {}, true
	}
	if !ok {
		return nil, false
	}

	release := func() {
		current, err := w.redisClient.Get(ctx, runLockKey).Result()
		if err != nil || current != token {
			return
		}
		_ = w.redisClient.Del(ctx, runLockKey).Err()
	}
	return release, true
}
