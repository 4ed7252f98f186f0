package fn

import (
	"context"
	"time"
)

// RetryOpts configures bounded retry with a fixed inter-attempt delay.
// A zero Delay makes retries immediate, which is what tests want.
type RetryOpts struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetry matches the vector upsert contract: three attempts total with
// a flat two-second pause between them, no backoff.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	Delay:       2 * time.Second,
}

// Retry runs f up to MaxAttempts times, pausing Delay between attempts.
// It returns the first successful result, or the last failure once the
// attempt budget is spent. Context cancellation cuts the wait short.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var result Result[T]
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result = f(ctx)
		if result.IsOk() || attempt == opts.MaxAttempts {
			return result
		}
		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return Err[T](ctx.Err())
			case <-time.After(opts.Delay):
			}
		} else if ctx.Err() != nil {
			return Err[T](ctx.Err())
		}
	}
	return result
}

// RetryStage wraps a Stage with the retry policy.
func RetryStage[In, Out any](opts RetryOpts, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return Retry(ctx, opts, func(ctx context.Context) Result[Out] {
			return stage(ctx, in)
		})
	}
}
