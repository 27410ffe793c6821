package mysqlkit

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often a failing operation is re-attempted.
// The delay between attempts is fixed; an attempt that succeeds returns
// immediately with no further attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, first try included.
	// Values <= 1 mean a single attempt: the first failure is terminal.
	MaxAttempts int
	// Delay is the pause between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy returns the policy used when a Config leaves Retry zero:
// three attempts, two seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// retryWithPolicy runs op up to pol.MaxAttempts times. A failure that
// classify does not mark ErrClassRetryable is terminal and returned as-is on
// the first attempt; a retryable failure that survives every attempt is
// returned unchanged after the last one.
func retryWithPolicy(ctx context.Context, pol RetryPolicy, op func() error, classify func(error) ErrorClass) error {
	pol = pol.normalized()
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(pol.Delay), uint64(pol.MaxAttempts-1)),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if classify(err) != ErrClassRetryable {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
