package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor runs functions with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the panic handler for the executor.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn and returns the result.
// A context that is already done skips execution entirely.
func (e *Executor) Execute(ctx context.Context, fn func(context.Context) error) (result Result) {
	select {
	case <-ctx.Done():
		return Result{
			Success: false,
			Error:   ctx.Err(),
			Skipped: true,
		}
	default:
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Error = nil
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			if e.panicHandler != nil {
				func() {
					defer func() {
						// A panicking panic handler must not escape either.
						_ = recover()
					}()
					e.panicHandler(r, stack)
				}()
			}
		}
	}()

	if err := fn(ctx); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

// ExecuteWithTimeout runs fn with a deadline derived from ctx.
// fn must observe its context for the timeout to have any effect.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, fn func(context.Context) error, timeout time.Duration) Result {
	if timeout <= 0 {
		return e.Execute(ctx, fn)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return e.Execute(ctx, fn)
}
