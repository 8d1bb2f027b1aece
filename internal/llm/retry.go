package llm

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig holds retry configuration for collaborator calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns retry defaults for per-item matching.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       2,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}
}

// Retry runs op until it succeeds, returns a non-transient error, or attempts run out.
// It returns the number of attempts made.
func Retry[T any](ctx context.Context, cfg RetryConfig, logger *slog.Logger, op func(context.Context) (T, error)) (T, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, attempt, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return zero, attempt, err
		}
		if attempt < cfg.MaxAttempts {
			backoff := cfg.backoff(attempt)
			logger.Debug("llm.retry",
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return zero, attempt, NewTransientError(ctx.Err())
			case <-time.After(backoff):
			}
		}
	}
	return zero, cfg.MaxAttempts, lastErr
}

// backoff computes exponential backoff with +/-25% jitter.
func (cfg RetryConfig) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= cfg.BackoffMultiplier
	}
	backoff := time.Duration(float64(cfg.BackoffBase) * multiplier)
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
