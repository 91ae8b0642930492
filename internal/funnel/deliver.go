package funnel

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

// Transport is the outbound messaging surface the deliverer depends on.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, msg telegram.Message) error
}

// Deliverer sends stage content to a single subscriber. It waits on the
// shared limiter before every send and bounds each send with its own
// timeout so one unresponsive call cannot stall the rest of a run.
type Deliverer struct {
	transport Transport
	limiter   Limiter
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDeliverer builds a Deliverer.
func NewDeliverer(transport Transport, limiter Limiter, timeout time.Duration, logger *zap.Logger) *Deliverer {
	return &Deliverer{transport: transport, limiter: limiter, timeout: timeout, logger: logger}
}

// Deliver renders the template for the subscriber and sends it. A nil return
// guarantees the transport accepted the message; any error leaves the
// subscriber untouched so the next engine run retries.
//
// The limiter wait honors run cancellation, but once the send starts it is
// detached from the run context: an in-flight delivery is allowed to finish
// rather than leaving a message half-sent with no stage advance.
func (d *Deliverer) Deliver(ctx context.Context, sub domain.Subscriber, tpl domain.Template) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	msg := telegram.Message{
		Text:              RenderTemplate(tpl, sub),
		ParseMode:         tpl.ParseMode,
		DisableWebPreview: tpl.DisableWebPreview,
	}
	if err := d.transport.SendMessage(sendCtx, sub.UserID, msg); err != nil {
		return err
	}

	d.logger.Debug("delivered stage message",
		zap.Int64("user_id", sub.UserID),
		zap.Int("stage", sub.Stage),
	)
	return nil
}

// RenderTemplate substitutes the {name} placeholder with the subscriber's
// display name.
func RenderTemplate(tpl domain.Template, sub domain.Subscriber) string {
	return strings.ReplaceAll(tpl.Text, "{name}", sub.DisplayName())
}
