// Package retry runs external calls under a bounded, fixed-delay attempt budget.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy is the per-call attempt budget. Delay is applied unchanged between
// attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Validate rejects a policy that could never make a call.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("retry policy needs at least one attempt")
	}
	if p.Delay < 0 {
		return errors.New("retry delay cannot be negative")
	}
	return nil
}

// Do invokes fn until it succeeds, returns a non-recoverable error, or the
// policy's attempts are used up. Do holds no state between calls and may be
// used from any number of goroutines.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = slog.Default()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		kind := KindOf(err)
		if kind != KindRecoverable || ctx.Err() != nil {
			logger.Warn("Call failed, not retrying.",
				"op", op,
				"attempt", attempt,
				"maxAttempts", attempts,
				"kind", kind.String(),
				"error", err,
			)
			if ctxErr := ctx.Err(); ctxErr != nil && kind == KindRecoverable {
				return zero, ctxErr
			}
			return zero, err
		}

		if attempt == attempts {
			logger.Warn("Call failed on final attempt.",
				"op", op,
				"attempt", attempt,
				"maxAttempts", attempts,
				"error", err,
			)
			break
		}

		logger.Warn("Call failed, will retry.",
			"op", op,
			"attempt", attempt,
			"maxAttempts", attempts,
			"delay", p.Delay.String(),
			"error", err,
		)

		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			logger.Error("Context cancelled during retry delay.", "op", op, "error", ctx.Err())
			return zero, ctx.Err()
		}
	}
	return zero, &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}
