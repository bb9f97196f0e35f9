package flows

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds every store call made by a flow.
type RetryPolicy struct {
	// Timeout applies to each attempt separately. Zero leaves the caller's deadline alone.
	Timeout    time.Duration
	Delay      time.Duration
	MaxRetries uint64
	// Permanent reports errors that must not be retried, such as a definitive not-found.
	Permanent func(error) bool
	// OnRetry is called before each retried attempt.
	OnRetry func()
}

// Do runs fn until it succeeds, fails permanently, or the retry budget is spent.
// The last error is returned unwrapped.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(p.MaxRetries, retry.NewConstant(delay))

	attempts := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if attempts > 1 && p.OnRetry != nil {
			p.OnRetry()
		}

		err := p.Once(ctx, fn)
		if err == nil {
			return nil
		}
		if p.Permanent != nil && p.Permanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// Once runs fn a single time under the per-attempt timeout.
func (p RetryPolicy) Once(ctx context.Context, fn func(context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(callCtx)
}
