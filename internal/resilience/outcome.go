// Package resilience provides the timeout and circuit-breaker guards used at
// every external-fetch boundary (blacklist, model blob, page fetch).
package resilience

import (
	"context"
	"errors"
	"time"
)

// defaultTimeout bounds guarded calls whose caller passed no timeout
const defaultTimeout = 10 * time.Second

// Kind discriminates how a guarded call ended
type Kind int

// Guarded call outcomes
const (
	Success Kind = iota
	TimedOut
	Failed
)

// String returns the metric label for the outcome kind
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case TimedOut:
		return "timeout"
	default:
		return "failure"
	}
}

// Outcome is the tagged result of a guarded call. Value is meaningful only
// when Kind is Success; Err carries the failure or deadline error otherwise.
type Outcome[T any] struct {
	Kind    Kind
	Value   T
	Err     error
	Elapsed time.Duration
}

// OK reports whether the call produced a usable value
func (o Outcome[T]) OK() bool {
	return o.Kind == Success
}

// Do runs fn under a deadline and classifies the result. A stage exceeding
// its timeout is reported as TimedOut, never surfaced as a crash; fn must
// honor the context it receives.
func Do[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (T, error)) Outcome[T] {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	value, err := fn(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		recordCall(name, Success)
		return Outcome[T]{Kind: Success, Value: value, Elapsed: elapsed}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		recordCall(name, TimedOut)
		return Outcome[T]{Kind: TimedOut, Err: err, Elapsed: elapsed}
	default:
		recordCall(name, Failed)
		return Outcome[T]{Kind: Failed, Err: err, Elapsed: elapsed}
	}
}
