package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "socialscope/pkg/errors"
	"socialscope/pkg/logger"
)

// Operation is retried by Do until it succeeds or the policy gives up.
type Operation func() error

// OperationWithResult is the result-bearing variant used with DoWithResult.
type OperationWithResult[T any] func() (T, error)

// Config describes a retry policy.
type Config struct {
	// MaxAttempts bounds the total attempts; 0 means retry until the
	// context is cancelled.
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf decides whether a failure is worth another attempt.
	RetryIf func(error) bool
	// OnRetry runs before each wait, after a retryable failure.
	OnRetry func(attempt int, err error, delay time.Duration)
	Context context.Context
	Logger  logger.Logger
}

// DefaultConfig matches the upstream providers' throttling expectations:
// five linear attempts spaced by growing multiples of ten seconds.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 5,
		Backoff:     DefaultLinearBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries only errors our taxonomy marks retryable.
// Unclassified errors and context cancellations are final.
func DefaultRetryIf(err error) bool {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}
	return false
}

// RateLimitOnly retries only rate-limit errors; everything else is handed
// straight back so the caller can fall through to the next strategy.
func RateLimitOnly(err error) bool {
	var typed *errs.Error
	return errors.As(err, &typed) && typed.Type == errs.ErrorTypeRateLimit
}

// Do runs op under the policy in cfg. A nil cfg uses DefaultConfig.
// The error from the attempt that exhausted the budget is wrapped in
// the returned error.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		if !cfg.RetryIf(lastErr) {
			return lastErr
		}

		// Give up as soon as the budget is spent; waiting out one more
		// backoff delay with no attempt left would be pure dead time.
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   cfg.MaxAttempts,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, delay)
		}
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":  attempt,
				"error":    lastErr.Error(),
				"delay_ms": delay.Milliseconds(),
			})
		}

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}
