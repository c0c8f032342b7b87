package guardrail

import (
	"context"
	"fmt"
)

// Future is a guardrail verdict that becomes available later. Check functions
// that need to suspend (remote moderation calls, model-based classifiers)
// return one instead of blocking the caller's goroutine up front.
type Future struct {
	done chan struct{}
	out  FunctionOutput
	err  error
}

// Go runs fn in a new goroutine and returns a Future resolved with its
// result. A panic in fn resolves the future with an error.
func Go(ctx context.Context, fn func(context.Context) (FunctionOutput, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("guardrail panicked: %v", r)
			}
		}()
		f.out, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a Future already resolved with out.
func Resolved(out FunctionOutput) *Future {
	f := &Future{done: make(chan struct{}), out: out}
	close(f.done)
	return f
}

// Failed returns a Future already resolved with err.
func Failed(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Await blocks until the future resolves or ctx is done.
func (f *Future) Await(ctx context.Context) (FunctionOutput, error) {
	select {
	case <-f.done:
		return f.out, f.err
	case <-ctx.Done():
		return FunctionOutput{}, ctx.Err()
	}
}

// Done returns a channel closed once the future resolves.
func (f *Future) Done() <-chan struct{} { return f.done }
