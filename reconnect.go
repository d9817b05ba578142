package mjpegcapture

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ReconnectConfig contains configuration for exponential backoff restarts
type ReconnectConfig struct {
	// MaxRetries is the number of consecutive failed sessions tolerated
	// before giving up (default: 5)
	MaxRetries int
	// RetryDelay is the initial backoff delay (default: 1 second)
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff delay (default: 30 seconds)
	MaxRetryDelay time.Duration
}

// DefaultReconnectConfig returns default restart configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// SessionFunc runs one session to termination. It returns the number of
// frames the session delivered and the terminal error, nil meaning clean
// completion (after which the supervisor stops).
type SessionFunc func(ctx context.Context) (frames uint64, err error)

// RunWithReconnect runs sessions back-to-back with exponential backoff
// between failures.
//
// A session is one Session lifetime; sessions themselves never reconnect.
// The retry budget counts consecutive fruitless sessions: any session that
// delivered at least one frame resets it, so a stream that drops every few
// minutes is restarted indefinitely while a dead endpoint exhausts the
// budget.
//
// Backoff schedule with defaults: 1s, 2s, 4s, 8s, 16s, then stop.
//
// Returns nil on clean completion, ctx.Err() on cancellation, or the last
// session error once the budget is exhausted.
func RunWithReconnect(ctx context.Context, run SessionFunc, cfg ReconnectConfig) error {
	retries := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("mjpeg-capture: context cancelled, stopping reconnect loop")
			return ctx.Err()
		default:
		}

		frames, err := run(ctx)
		if err == nil {
			slog.Info("mjpeg-capture: session completed, reconnect loop done",
				"frames", frames)
			return nil
		}

		if frames > 0 {
			// The connection worked; this failure starts a fresh budget.
			retries = 0
		}
		retries++
		if retries > cfg.MaxRetries {
			return fmt.Errorf("mjpeg-capture: max retries exceeded (%d attempts): %w",
				cfg.MaxRetries, err)
		}

		delay := calculateBackoff(retries, cfg)
		slog.Warn("mjpeg-capture: session failed, retrying",
			"error", err,
			"frames_before_failure", frames,
			"attempt", retries,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			slog.Info("mjpeg-capture: context cancelled during backoff")
			return ctx.Err()
		}
	}
}

// calculateBackoff returns RetryDelay * 2^(attempt-1), capped at
// MaxRetryDelay.
func calculateBackoff(attempt int, cfg ReconnectConfig) time.Duration {
	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
