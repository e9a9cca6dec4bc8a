// Package retry runs fallible remote calls with bounded, capped exponential
// backoff. Errors the classifier marks as non-retryable are returned at once.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jrsteele09/go-auth-session/classify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseDelay = 1 * time.Second
	DefaultMaxDelay  = 5 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type policy struct {
	nonRetryable func(error) bool
	sleep        SleepFunc
	baseDelay    time.Duration
	maxDelay     time.Duration
	logger       zerolog.Logger
}

// Option modifies the retry policy.
type Option func(*policy)

// WithClassifier replaces the non-retryable predicate.
func WithClassifier(nonRetryable func(error) bool) Option {
	return func(p *policy) {
		p.nonRetryable = nonRetryable
	}
}

// WithSleep replaces the backoff wait (primarily for testing)
func WithSleep(sleep SleepFunc) Option {
	return func(p *policy) {
		p.sleep = sleep
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(p *policy) {
		p.baseDelay = d
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(p *policy) {
		p.maxDelay = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *policy) {
		p.logger = logger
	}
}

func newPolicy(opts []Option) *policy {
	p := &policy{
		nonRetryable: classify.IsNonRetryable,
		sleep:        Sleep,
		baseDelay:    DefaultBaseDelay,
		maxDelay:     DefaultMaxDelay,
		logger:       log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay returns the wait after the given 1-based failed attempt:
// min(base * 2^(attempt-1), max).
func Delay(attempt int) time.Duration {
	bo := newBackOff(DefaultBaseDelay, DefaultMaxDelay)
	if attempt < 1 {
		attempt = 1
	}
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = bo.NextBackOff()
	}
	return d
}

// newBackOff returns a deterministic doubling schedule capped at maxDelay.
func newBackOff(base, maxDelay time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.MaxInterval = maxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()
	return bo
}

// Do calls op until it succeeds, returns a non-retryable error, or
// maxAttempts calls have been made. The last error is returned.
func Do[T any](ctx context.Context, maxAttempts int, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	p := newPolicy(opts)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		result T
		err    error
		bo     = newBackOff(p.baseDelay, p.maxDelay)
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if p.nonRetryable(err) || attempt == maxAttempts {
			return result, err
		}

		wait := bo.NextBackOff()
		p.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("delay", wait).
			Msg("retrying after failure")

		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			return result, errors.Join(err, sleepErr)
		}
	}
	return result, err
}

// Run is Do for operations without a result.
func Run(ctx context.Context, maxAttempts int, op func(ctx context.Context) error, opts ...Option) error {
	_, err := Do(ctx, maxAttempts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// Sleep waits for d, returning early with ctx.Err() if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
