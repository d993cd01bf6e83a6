package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines retry backoff behavior
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration // Initial delay (e.g., 100ms)
	MaxDelay   time.Duration // Maximum delay (e.g., 30s)
	Multiplier float64       // Exponential multiplier (typically 2.0)
	Jitter     float64       // Jitter factor (0.0-1.0, typically 0.1 for ±10%)
}

// DefaultExponentialBackoff returns general purpose defaults
//
// Retry sequence with defaults (±10% jitter):
//   - Attempt 0: ~100ms
//   - Attempt 1: ~200ms
//   - Attempt 2: ~400ms
//   - Attempt 3: ~800ms
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// LockBackoff is tuned for waiting on a per-record lock held by a concurrent
// request. Holders keep the lock for one load/apply/persist round trip.
//
// Retry sequence (±20% jitter): ~25ms, ~50ms, ~100ms, ~200ms, then 250ms
func LockBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  25 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// BrokerReconnectBackoff is used when dialing the message broker at startup
//
// Retry sequence (±10% jitter): ~500ms, ~1s, ~2s, ~4s, then 5s
func BrokerReconnectBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NextDelay calculates the delay for the given attempt number (0-indexed)
//
// The delay is BaseDelay * (Multiplier ^ attempt) ± jitter, capped at MaxDelay
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return eb.BaseDelay
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	jitterAmount := delay * eb.Jitter
	jitter := (rand.Float64()*2 - 1) * jitterAmount

	finalDelay := time.Duration(delay + jitter)
	if finalDelay < 0 {
		finalDelay = eb.BaseDelay
	}

	return finalDelay
}

// FixedBackoff implements a simple fixed delay backoff
type FixedBackoff struct {
	Delay time.Duration
}

// NextDelay returns the fixed delay regardless of attempt number
func (fb *FixedBackoff) NextDelay(attempt int) time.Duration {
	return fb.Delay
}

// Retry calls fn up to attempts times, sleeping between calls according to
// strategy. It stops early when fn succeeds, when retryable reports false for
// the returned error, or when ctx is done. The last error is returned.
func Retry(ctx context.Context, attempts int, strategy BackoffStrategy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(strategy.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
