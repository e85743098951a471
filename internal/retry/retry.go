// Package retry runs a blocking, failure-prone operation with bounded
// retries, exponential backoff and a per-attempt timeout. The operation is
// executed on its own goroutine so a stuck call never freezes the caller.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Operation is a unit of work that may block or fail. It should honor ctx
// cancellation; a stuck operation is abandoned at the attempt deadline
// either way.
type Operation func(ctx context.Context) (any, error)

// Outcome reports the result of an Execute call. Attempts and Elapsed are
// populated regardless of success, for metrics. Err holds the error from
// the final failed attempt; it is nil on success.
type Outcome struct {
	Value     any
	Succeeded bool
	Attempts  int
	Elapsed   time.Duration
	Err       error
}

// Executor retries an Operation up to MaxRetries times, waiting
// BaseBackoff*2^i between attempt i and i+1. Each attempt is bounded by
// PerAttemptTimeout.
type Executor struct {
	MaxRetries        int
	BaseBackoff       time.Duration
	PerAttemptTimeout time.Duration

	sleep func(time.Duration) // for testing
}

// New creates an Executor with the given bounds.
func New(maxRetries int, baseBackoff, perAttemptTimeout time.Duration) *Executor {
	return &Executor{
		MaxRetries:        maxRetries,
		BaseBackoff:       baseBackoff,
		PerAttemptTimeout: perAttemptTimeout,
		sleep:             time.Sleep,
	}
}

type attemptResult struct {
	value any
	err   error
}

// Execute runs op until one attempt succeeds or MaxRetries attempts are
// exhausted. A timed-out or panicking attempt counts as a failed attempt; a
// timeout is logged distinctly from an error but retried the same way. No backoff
// follows the final attempt. Parent ctx cancellation stops retrying.
func (e *Executor) Execute(ctx context.Context, op Operation) Outcome {
	start := time.Now()
	out := Outcome{}

	for attempt := 0; attempt < e.MaxRetries; attempt++ {
		out.Attempts = attempt + 1

		attemptCtx, cancel := context.WithTimeout(ctx, e.PerAttemptTimeout)
		done := make(chan attemptResult, 1)
		go func() {
			// A panicking operation is just a failed attempt; it must
			// not unwind past the executor.
			defer func() {
				if r := recover(); r != nil {
					done <- attemptResult{err: fmt.Errorf("panic: %v", r)}
				}
			}()
			v, err := op(attemptCtx)
			done <- attemptResult{value: v, err: err}
		}()

		select {
		case res := <-done:
			cancel()
			if res.err == nil {
				out.Value = res.value
				out.Succeeded = true
				out.Err = nil
				out.Elapsed = time.Since(start)
				return out
			}
			out.Err = res.err
			slog.Warn("attempt failed", "attempt", attempt+1, "max", e.MaxRetries, "error", res.err)
		case <-attemptCtx.Done():
			cancel()
			if ctx.Err() != nil {
				// Parent cancelled: stop retrying entirely.
				slog.Warn("retry cancelled", "attempt", attempt+1, "error", ctx.Err())
				out.Err = ctx.Err()
				out.Elapsed = time.Since(start)
				return out
			}
			out.Err = context.DeadlineExceeded
			slog.Warn("attempt timed out", "attempt", attempt+1, "max", e.MaxRetries, "timeout", e.PerAttemptTimeout)
		}

		if attempt < e.MaxRetries-1 {
			e.sleep(e.BaseBackoff * (1 << attempt))
		}
	}

	out.Elapsed = time.Since(start)
	return out
}
