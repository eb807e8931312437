// Package retry runs an operation repeatedly with exponential backoff
// until it succeeds, fails permanently, or runs out of attempts. The
// operation classifies its own errors: wrap with Retryable to ask for
// another attempt, with Permanent to stop immediately. Unclassified
// errors stop the loop.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type classified struct {
	err       error
	retryable bool
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }

// Retryable marks err as worth another attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &classified{err: err, retryable: true}
}

// Permanent marks err as final; the retry loop stops and returns the
// unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &classified{err: err, retryable: false}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var c *classified
	return errors.As(err, &c) && c.retryable
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var c *classified
	return errors.As(err, &c) && !c.retryable
}

// Policy describes the backoff schedule.
type Policy struct {
	// MaxAttempts counts the first try as attempt one.
	MaxAttempts int

	// BaseDelay is the wait after the first failure; each further wait
	// doubles it, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter scales a random +/- fraction applied to every delay, so
	// concurrent callers do not retry in lockstep. 0 disables it, 0.2
	// means up to 20% either way.
	Jitter float64

	// OnRetry, when set, observes each scheduled retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// SpeechPolicy is tuned for the pronunciation scoring API: few
// attempts, generous delays, enough jitter to spread a burst.
func SpeechPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      0.2,
	}
}

// Retrier executes operations under a fixed Policy.
type Retrier struct {
	policy Policy
}

// NewRetrier creates a Retrier, normalizing a zero-valued policy to
// single-attempt execution.
func NewRetrier(policy Policy) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 100 * time.Millisecond
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	return &Retrier{policy: policy}
}

// SpeechAPIRetrier is a Retrier with SpeechPolicy.
func SpeechAPIRetrier() *Retrier {
	return NewRetrier(SpeechPolicy())
}

// Do runs op until it returns nil, a Permanent error, an unclassified
// error, or the attempt budget is exhausted. The returned error is
// unwrapped from its classification marker.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = unwrapClassified(err)

		if !IsRetryable(err) || attempt >= r.policy.MaxAttempts {
			return lastErr
		}

		delay := r.delayFor(attempt)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
	}
}

func unwrapClassified(err error) error {
	var c *classified
	if errors.As(err, &c) {
		return c.err
	}
	return err
}

func (r *Retrier) delayFor(attempt int) time.Duration {
	delay := r.policy.BaseDelay
	for i := 1; i < attempt && delay < r.policy.MaxDelay; i++ {
		delay *= 2
	}
	if delay > r.policy.MaxDelay {
		delay = r.policy.MaxDelay
	}

	if r.policy.Jitter > 0 {
		spread := float64(delay) * r.policy.Jitter
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Do is a one-shot helper for callers without a long-lived Retrier.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	return NewRetrier(policy).Do(ctx, op)
}
