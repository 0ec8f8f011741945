package api

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls retry behavior for failed HTTP requests.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts after the
	// initial request.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// Multiplier is the factor by which the delay grows per attempt.
	Multiplier float64
	// Jitter is the randomization factor (0.0 to 1.0) applied to delays
	// to prevent synchronized retries.
	Jitter float64
	// RetryableStatus reports whether a status code should trigger a retry.
	RetryableStatus func(statusCode int) bool
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   15 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
		RetryableStatus: func(statusCode int) bool {
			switch statusCode {
			case 408, 429, 500, 502, 503, 504:
				return true
			default:
				return false
			}
		},
	}
}

// ShouldRetry reports whether another attempt should be made after the
// given attempt number failed with the given status code.
func (p *RetryPolicy) ShouldRetry(attempt, statusCode int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	return p.RetryableStatus(statusCode)
}

// Delay returns the backoff delay before the given retry attempt.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		jitterAmount := delay * p.Jitter
		delay = delay - jitterAmount + (rand.Float64() * 2 * jitterAmount)
	}
	return time.Duration(delay)
}

// Wait sleeps for the backoff delay or until the context is cancelled.
func (p *RetryPolicy) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
