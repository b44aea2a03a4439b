// Package retry runs fallible calls against the vendor device with a bounded
// number of attempts and a fixed pause between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 2 * time.Second
)

var ErrExhausted = errors.New("retry: attempts exhausted")

type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Exhausted tags the error returned after the last failed attempt.
	// ErrExhausted is used when nil.
	Exhausted error
	// Name labels retry log lines.
	Name string

	sleep func(ctx context.Context, d time.Duration) error
}

func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Do calls op until it succeeds or MaxAttempts calls have failed. The delay
// is fixed; a cancelled ctx ends the wait early and returns the last error.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		slog.Warn("retrying remote call",
			"op", p.Name,
			"attempt", attempt,
			"maxAttempts", attempts,
			"delay", p.Delay.String(),
			"err", err,
		)
		if err := sleep(ctx, p.Delay); err != nil {
			return zero, fmt.Errorf("%w after %d attempts: %w", p.exhausted(), attempt, lastErr)
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", p.exhausted(), attempts, lastErr)
}

func (p Policy) exhausted() error {
	if p.Exhausted != nil {
		return p.Exhausted
	}
	return ErrExhausted
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
