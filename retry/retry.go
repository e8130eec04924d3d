// Package retry provides a bounded exponential-backoff policy for re-running
// fetchers and mutators. The cache core never retries on its own; callers
// opt in by passing a Policy, so persistent failures surface as errors
// instead of masquerading as infinite loading states.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes a bounded retry schedule. The zero value is usable and
// means: 3 attempts, 100ms initial delay doubling up to 5s, retry on every
// error.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values < 1 mean the default of 3.
	MaxAttempts int

	// InitialDelay is the delay before the first retry. Default: 100ms.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries. Default: 5s.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor. Default: 2.0.
	Multiplier float64

	// RetryIf decides whether an error is worth retrying. Nil retries all
	// non-nil errors. Returning false stops immediately with that error.
	RetryIf func(err error) bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	return p
}

// Do runs fn under the policy until it succeeds, the attempt budget is
// exhausted, or ctx is cancelled. It returns the last value, the number of
// attempts actually made (>= 1 unless ctx was already done), and the final
// error.
func Do[V any](ctx context.Context, p Policy, fn func(context.Context) (V, error)) (V, int, error) {
	p = p.withDefaults()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialDelay
	eb.MaxInterval = p.MaxDelay
	eb.Multiplier = p.Multiplier
	eb.MaxElapsedTime = 0 // bounded by attempts, not wall clock

	var b backoff.BackOff = backoff.WithContext(eb, ctx)
	b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))

	var (
		out      V
		attempts int
	)
	op := func() error {
		attempts++
		v, err := fn(ctx)
		if err != nil {
			if p.RetryIf != nil && !p.RetryIf(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}

	err := backoff.Retry(op, b)
	if err != nil {
		var zero V
		return zero, attempts, err
	}
	return out, attempts, nil
}
