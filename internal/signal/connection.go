package signal

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Connection binds one slot to one signal. Apart from its connected flag it
// is immutable; disconnecting never affects actuations already captured
// from it.
type Connection[A, R any] struct {
	id         string
	signal     *Signal[A, R]
	slot       Slot[A, R]
	mode       ConnectionMode
	dispatcher *Dispatcher

	// void is fixed at connect time: a queued void slot is fire-and-forget.
	void bool

	live atomic.Bool
}

// newConnection creates a live connection.
func newConnection[A, R any](s *Signal[A, R], slot Slot[A, R], cfg connectConfig) *Connection[A, R] {
	_, void := any(*new(R)).(Void)
	c := &Connection[A, R]{
		id:         uuid.New().String(),
		signal:     s,
		slot:       slot,
		mode:       cfg.mode,
		dispatcher: cfg.dispatcher,
		void:       void,
	}
	c.live.Store(true)
	return c
}

// ID returns the unique connection identifier.
func (c *Connection[A, R]) ID() string {
	return c.id
}

// Mode returns the declared connection mode.
func (c *Connection[A, R]) Mode() ConnectionMode {
	return c.mode
}

// Dispatcher returns the dispatcher used for queued actuation.
func (c *Connection[A, R]) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Connected returns true until the connection is disconnected.
func (c *Connection[A, R]) Connected() bool {
	return c.live.Load()
}

// Disconnect removes the connection from its signal.
// It is a no-op if the connection is already disconnected.
func (c *Connection[A, R]) Disconnect() {
	c.signal.Disconnect(c)
}

// resolve determines the effective mode for an emit made with ctx.
func (c *Connection[A, R]) resolve(ctx context.Context) ConnectionMode {
	onDispatcher := c.dispatcher.owns(ctx)

	mode := c.mode
	if mode == Auto {
		if onDispatcher {
			return Direct
		}
		mode = Queued
	}
	if mode == Queued && !c.void {
		mode = BlockingQueued
	}
	// Waiting on our own worker would never return.
	if mode == BlockingQueued && onDispatcher {
		return Direct
	}
	return mode
}
