// Package retry provides the single backoff policy applied to external AI
// calls (vision description, embedding generation).
package retry

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrInvalidMaxAttempts is returned when a policy is built with no attempts.
var ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

// Policy retries an operation with exponential backoff. Retryable decides
// which errors are worth another attempt; a nil predicate retries all
// errors.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
}

// DefaultPolicy matches the pipeline defaults: 3 attempts, 500ms base.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Retryable:   retryable,
	}
}

// Do runs the operation until it succeeds, exhausts the attempt cap, hits a
// non-retryable error, or the context is cancelled. The delay doubles after
// each failed attempt.
func (p Policy) Do(ctx context.Context, operation func() error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		log.Printf("attempt %d/%d failed, retrying: %v", attempt, p.MaxAttempts, lastErr)

		delay := p.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
