package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Fixed waits InitialDelay between every attempt instead of backing off.
	Fixed bool
}

// DefaultConfig returns default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Timer is the clock used between attempts. Tests swap it for a virtual one.
type Timer = retry.Timer

// Option customises a single Do call.
type Option = retry.Option

// If restricts retries to errors accepted by fn. Other errors are returned
// immediately.
func If(fn func(error) bool) Option {
	return retry.RetryIf(fn)
}

// OnRetry is called after every failed attempt that may be retried.
func OnRetry(fn func(attempt uint, err error)) Option {
	return retry.OnRetry(fn)
}

// WithTimer replaces the wall clock used for delays.
func WithTimer(t Timer) Option {
	return retry.WithTimer(t)
}

// Do executes a function with retry. The delay is exponential unless
// cfg.Fixed is set; extra options are applied last.
func Do(ctx context.Context, cfg Config, fn func() error, opts ...Option) error {
	delayType := retry.BackOffDelay
	if cfg.Fixed {
		delayType = retry.FixedDelay
	}
	base := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(cfg.MaxAttempts),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(delayType),
		retry.LastErrorOnly(true),
	}
	return retry.Do(fn, append(base, opts...)...)
}

// DoWithResult executes a function with retry and returns a result
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error), opts ...Option) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	}, opts...)
	return result, err
}
