// Package notify composes batched change messages and delivers them to an
// external channel under rate limiting and retry-with-backoff.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// Local rate limit: at most 20 send attempts per rolling second.
	defaultWindow       = time.Second
	defaultWindowLimit  = 20
	defaultMaxAttempts  = 3
	defaultBackoffStart = time.Second
)

// Sender delivers one message to the external channel.
//
// Implementations signal retryable conditions through the package error
// taxonomy: *Throttled when the endpoint requested a specific delay,
// *Transient for network-class failures. Any other error is treated as
// non-retryable.
type Sender interface {
	SendMessage(ctx context.Context, text string, markdown bool) error
}

// Notifier wraps a Sender with the outbound delivery policy: sliding-window
// rate limiting, endpoint-requested backoff, and bounded transient retries.
//
// Delivery is at-least-once-attempted: a nil return means the endpoint
// acknowledged one attempt; nothing deduplicates across attempts.
type Notifier struct {
	sender Sender
	window *sendWindow
	logger *slog.Logger

	maxAttempts  int
	backoffStart time.Duration
	sleep        func(context.Context, time.Duration) error
}

// NewNotifier creates a notifier with the default rate and retry policy.
func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:       sender,
		window:       newSendWindow(defaultWindow, defaultWindowLimit),
		logger:       logger,
		maxAttempts:  defaultMaxAttempts,
		backoffStart: defaultBackoffStart,
		sleep:        sleepContext,
	}
}

// Send delivers one logical message.
//
// Each physical attempt first passes the admission gate. An endpoint
// throttle is honored exactly and retried without consuming the transient
// budget. Transient failures retry with doubling backoff up to the attempt
// bound; anything else surfaces immediately.
func (n *Notifier) Send(ctx context.Context, text string, markdown bool) error {
	attempt := 0
	delay := n.backoffStart

	for {
		if err := n.window.admit(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		err := n.sender.SendMessage(ctx, text, markdown)
		if err == nil {
			return nil
		}

		var throttled *Throttled
		if errors.As(err, &throttled) {
			n.logger.Warn("endpoint throttled send", "retry_after", throttled.RetryAfter)
			if serr := n.sleep(ctx, throttled.RetryAfter); serr != nil {
				return serr
			}
			continue
		}

		var transient *Transient
		if errors.As(err, &transient) {
			attempt++
			if attempt >= n.maxAttempts {
				n.logger.Error("send failed after retries", "attempts", attempt, "error", err)
				return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
			}
			n.logger.Warn("transient send failure, backing off",
				"attempt", attempt,
				"max_attempts", n.maxAttempts,
				"backoff", delay,
				"error", err,
			)
			if serr := n.sleep(ctx, delay); serr != nil {
				return serr
			}
			delay *= 2
			continue
		}

		// Non-retryable or uncategorized: fail fast, never mask.
		n.logger.Error("send rejected", "error", err)
		return err
	}
}
