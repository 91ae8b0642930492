package funnel

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces consecutive outbound sends so the bot never races the
// platform's flood protection. Wait blocks until the next send is allowed
// or the context is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewSendLimiter allows one send per interval with no burst headroom.
// *rate.Limiter satisfies Limiter directly.
func NewSendLimiter(interval time.Duration) Limiter {
	return rate.NewLimiter(rate.Every(interval), 1)
}

// NopLimiter never waits. Used in tests and for one-off administrative sends.
type NopLimiter struct{}

func (NopLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}
