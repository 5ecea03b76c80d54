package llm

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline with real cancellation: the derived
// context is cancelled when the deadline fires, so the in-flight provider
// request is actually torn down rather than merely abandoned. On a
// deadline-induced failure the error is rewritten to "<label> timed out
// after <timeout>"; other errors pass through unchanged.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		value, err := fn(cctx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return zero, fmt.Errorf("%s timed out after %v", label, timeout)
		}
		return out.value, out.err
	case <-cctx.Done():
		// The deferred cancel has signalled fn's context; a well-behaved
		// fn will unwind shortly, but the caller is released now.
		if ctx.Err() != nil {
			// Parent cancelled (e.g. client disconnect), not our timeout.
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%s timed out after %v", label, timeout)
	}
}
