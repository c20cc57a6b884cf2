package signal

import (
	"context"
	"sync"
	"sync/atomic"
)

// Actuation is a captured, one-shot slot invocation as seen by a Dispatcher.
// SlotActuation is the only implementation.
type Actuation interface {
	// ConnectionID identifies the connection the actuation was captured from.
	ConnectionID() string

	// Mode returns the resolved mode: Direct, Queued or BlockingQueued.
	Mode() ConnectionMode

	// Actuate invokes the slot. Only the first call runs it; later calls
	// return ErrAlreadyActuated.
	Actuate(ctx context.Context) error

	// Abort completes the actuation with err without running the slot, or
	// overrides the outcome of a slot that is still running. It returns
	// false if the actuation had already completed.
	Abort(err error) bool

	// Done is closed once the actuation has completed or been aborted.
	Done() <-chan struct{}

	// Err returns the completion error, or nil.
	Err() error
}

// SlotActuation captures a connection, an argument snapshot and a result cell.
type SlotActuation[A, R any] struct {
	conn *Connection[A, R]
	args A
	mode ConnectionMode

	started  atomic.Bool
	complete sync.Once
	done     chan struct{}

	// Written inside complete, read after done is closed.
	result R
	err    error
}

// newActuation captures an invocation of conn with args.
func newActuation[A, R any](conn *Connection[A, R], args A, mode ConnectionMode) *SlotActuation[A, R] {
	return &SlotActuation[A, R]{
		conn: conn,
		args: args,
		mode: mode,
		done: make(chan struct{}),
	}
}

// ConnectionID implements Actuation.
func (a *SlotActuation[A, R]) ConnectionID() string {
	return a.conn.id
}

// Mode implements Actuation.
func (a *SlotActuation[A, R]) Mode() ConnectionMode {
	return a.mode
}

// Actuate implements Actuation. A panic in the slot propagates to the caller
// and leaves the actuation incomplete; dispatchers recover it and Abort.
func (a *SlotActuation[A, R]) Actuate(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyActuated
	}
	r, err := a.conn.slot(ctx, a.args)
	a.finish(r, err)
	return err
}

// Abort implements Actuation.
func (a *SlotActuation[A, R]) Abort(err error) bool {
	a.started.Store(true)
	var zero R
	return a.finish(zero, err)
}

// finish stores the outcome once and releases Done.
func (a *SlotActuation[A, R]) finish(r R, err error) bool {
	completed := false
	a.complete.Do(func() {
		a.result = r
		a.err = err
		close(a.done)
		completed = true
	})
	return completed
}

// Done implements Actuation.
func (a *SlotActuation[A, R]) Done() <-chan struct{} {
	return a.done
}

// Err implements Actuation.
func (a *SlotActuation[A, R]) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Result returns the value produced by the slot and its error.
// It returns ErrNotActuated while the actuation is still pending.
func (a *SlotActuation[A, R]) Result() (R, error) {
	select {
	case <-a.done:
		return a.result, a.err
	default:
		var zero R
		return zero, ErrNotActuated
	}
}
