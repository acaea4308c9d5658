package errors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"sheetgenie/internal/logging"
)

// RetryConfig bounds how hard a provider call is retried.
type RetryConfig struct {
	MaxAttempts  int           // retries after the first call
	BaseDelay    time.Duration // first backoff, doubled each attempt
	MaxDelay     time.Duration
	JitterFactor float64 // 0.25 spreads each delay by ±25%
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// Backoff returns the wait before retry number attempt (zero based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := c.BaseDelay << attempt
	if delay <= 0 || (c.MaxDelay > 0 && delay > c.MaxDelay) {
		delay = c.MaxDelay
	}
	if c.JitterFactor > 0 && delay > 0 {
		spread := float64(delay) * c.JitterFactor
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	if delay < 0 {
		delay = c.BaseDelay
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// wait picks the backoff for err, preferring a provider's Retry-After hint.
func (c RetryConfig) wait(attempt int, err error) time.Duration {
	var transient *TransientError
	if errors.As(err, &transient) && transient.RetryAfter > 0 {
		hint := time.Duration(transient.RetryAfter) * time.Second
		if c.MaxDelay == 0 || hint <= c.MaxDelay {
			return hint
		}
	}
	return c.Backoff(attempt)
}

// Retry runs fn until it succeeds, fails permanently or the attempts run out.
func Retry(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, config, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do is Retry for calls that produce a value. Only transient errors are retried.
func Do[T any](ctx context.Context, config RetryConfig, logger logging.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	logger = logging.OrNop(logger)
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Call succeeded on attempt %d", attempt+1)
			}
			return result, nil
		}
		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err
		if attempt == config.MaxAttempts {
			break
		}

		delay := config.wait(attempt, err)
		logger.Debug("Attempt %d/%d failed (%v), retrying in %v", attempt+1, config.MaxAttempts+1, err, delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	logger.Warn("Giving up after %d attempts", config.MaxAttempts+1)
	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}
