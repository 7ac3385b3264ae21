// Package retry provides exponential backoff retry logic for external API calls.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	aerrors "github.com/getrucky/marketing-agent/internal/errors"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    60 * time.Second,
		Jitter:      true,
	}
}

// Backoff returns the wait before retrying the given zero-based attempt:
// base * 2^attempt, capped at MaxDelay. Pure so tests never have to sleep.
func (c Config) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(2, float64(attempt)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// TotalBudget is the worst-case wall-clock wait across all retries.
func (c Config) TotalBudget() time.Duration {
	var total time.Duration
	for i := 0; i < c.MaxAttempts-1; i++ {
		total += c.Backoff(i)
	}
	return total
}

// Sleeper abstracts time.Sleep so retry loops are testable without waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// DefaultSleeper blocks for d or until the context is cancelled.
func DefaultSleeper(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do executes fn with exponential backoff. Only retries if the error is retryable.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	return DoWithSleeper(ctx, cfg, DefaultSleeper, fn)
}

// DoWithSleeper is Do with an injected sleep function.
func DoWithSleeper(ctx context.Context, cfg Config, sleep Sleeper, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !aerrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.Backoff(attempt)
		// A remote-declared Retry-After overrides the computed backoff.
		if after := aerrors.RetryAfter(lastErr); after > 0 {
			delay = time.Duration(after) * time.Second
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		} else if cfg.Jitter {
			delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}
