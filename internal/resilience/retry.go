// Package resilience provides the retry and host-breaker primitives used by
// the fetch and vendor layers.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls linear backoff: the wait before retry n is
// Backoff * n, multiplied by BlockedMultiplier when the last failure was a 403.
type RetryConfig struct {
	MaxAttempts       int
	Backoff           time.Duration
	BlockedMultiplier float64

	// ShouldRetry overrides IsRetryable when set.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error)
}

// Delay returns the wait after the given 1-based attempt failed with err.
func (c RetryConfig) Delay(attempt int, err error) time.Duration {
	d := c.Backoff * time.Duration(attempt)
	if IsBlocked(err) && c.BlockedMultiplier > 1 {
		d = time.Duration(float64(d) * c.BlockedMultiplier)
	}
	return d
}

// DoVal runs fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. It returns the value of the successful
// call and the number of attempts made.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, int, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts {
			return zero, attempt, lastErr
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(cfg.Delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, attempt, lastErr
		case <-timer.C:
		}
	}
	return zero, cfg.MaxAttempts, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry at debug.
func RetryLogger(component, target string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Debug("retrying",
			zap.String("component", component),
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
