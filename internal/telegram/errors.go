package telegram

import (
	"errors"
	"fmt"
	"time"
)

// ErrRecipientGone indicates the recipient blocked the bot or left the
// platform. Deliveries to this recipient will never succeed and should not
// be retried.
var ErrRecipientGone = errors.New("recipient blocked the bot or left")

// RateLimitedError indicates the Bot API rejected the call for flood control.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by telegram, retry after %s", e.RetryAfter)
}

// APIError is any other non-ok Bot API response.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// IsPermanent reports whether an error will not be cured by retrying on a
// later engine run with the same recipient.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrRecipientGone)
}
