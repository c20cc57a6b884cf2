package signal

import (
	"context"
	"sync"
	"sync/atomic"
)

// Slot is a callback connected to a Signal. A returned error is the slot's
// failure; see Emit for how it reaches the emitter.
type Slot[A, R any] func(ctx context.Context, args A) (R, error)

// Signal is a typed event source holding an ordered set of connections.
//
// Connect, Disconnect and Emit are safe for concurrent use. Each Emit works
// on a point-in-time snapshot of the connections: slots connected during an
// emission are not actuated by it, and a slot disconnected during an
// emission is skipped if it has not been reached yet.
type Signal[A, R any] struct {
	// mu serializes writers; readers load conns without locking.
	mu    sync.Mutex
	conns atomic.Pointer[[]*Connection[A, R]]

	config signalConfig
}

// NewSignal creates a signal with no connections.
func NewSignal[A, R any](opts ...SignalOption) *Signal[A, R] {
	config := defaultSignalConfig()
	for _, opt := range opts {
		opt(&config)
	}

	s := &Signal[A, R]{config: config}
	empty := make([]*Connection[A, R], 0)
	s.conns.Store(&empty)
	return s
}

// Name returns the signal name set with WithSignalName.
func (s *Signal[A, R]) Name() string {
	return s.config.name
}

// Connect registers slot and returns the live connection handle.
// Connecting the same slot twice yields two independent connections.
func (s *Signal[A, R]) Connect(slot Slot[A, R], opts ...ConnectOption) (*Connection[A, R], error) {
	if slot == nil {
		return nil, ErrNilSlot
	}

	cfg := connectConfig{mode: Auto}
	for _, opt := range opts {
		opt(&cfg)
	}
	// Direct connections never touch a dispatcher, so they do not force the
	// default one into existence.
	if cfg.dispatcher == nil && cfg.mode != Direct {
		cfg.dispatcher = s.defaultDispatcher()
	}

	c := newConnection(s, slot, cfg)

	s.mu.Lock()
	old := *s.conns.Load()
	next := make([]*Connection[A, R], len(old), len(old)+1)
	copy(next, old)
	next = append(next, c)
	s.conns.Store(&next)
	s.mu.Unlock()

	s.config.logger.Debug().
		Str("signal", s.config.name).
		Str("connection", c.id).
		Stringer("mode", c.mode).
		Msg("slot connected")

	return c, nil
}

// Disconnect removes conn from the live set. It returns false if conn was
// already disconnected or belongs to another signal. Actuations already
// captured from conn are not affected.
func (s *Signal[A, R]) Disconnect(conn *Connection[A, R]) bool {
	if conn == nil || conn.signal != s {
		return false
	}
	if !conn.live.CompareAndSwap(true, false) {
		return false
	}

	s.mu.Lock()
	old := *s.conns.Load()
	next := make([]*Connection[A, R], 0, len(old))
	for _, c := range old {
		if c != conn {
			next = append(next, c)
		}
	}
	s.conns.Store(&next)
	s.mu.Unlock()

	s.config.logger.Debug().
		Str("signal", s.config.name).
		Str("connection", conn.id).
		Msg("slot disconnected")

	return true
}

// DisconnectAll removes every connection.
func (s *Signal[A, R]) DisconnectAll() {
	s.mu.Lock()
	for _, c := range *s.conns.Load() {
		c.live.Store(false)
	}
	empty := make([]*Connection[A, R], 0)
	s.conns.Store(&empty)
	s.mu.Unlock()
}

// Len returns the number of live connections.
func (s *Signal[A, R]) Len() int {
	return len(*s.conns.Load())
}

// Emit fans args out to every live connection in connection order.
//
// Direct slots run on the calling goroutine; queued ones are handed to their
// dispatcher in the same order. Emit returns the result of the last slot
// whose result reached the caller (Direct or BlockingQueued), or the zero R
// if there was none. The first error from a Direct or BlockingQueued slot
// stops the fan-out and is returned. Errors of Queued slots are reported
// through the dispatcher's OnError signal instead.
//
// Emit may be called re-entrantly from a Direct slot.
func (s *Signal[A, R]) Emit(ctx context.Context, args A) (R, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var result R
	for _, c := range *s.conns.Load() {
		if !c.Connected() {
			continue
		}

		mode := c.resolve(ctx)
		a := newActuation(c, args, mode)

		if mode == Direct {
			if err := a.Actuate(ctx); err != nil {
				var zero R
				return zero, err
			}
			result, _ = a.Result()
			continue
		}

		if err := c.dispatcher.Submit(ctx, a); err != nil {
			var zero R
			return zero, err
		}
		if mode == BlockingQueued {
			result, _ = a.Result()
		}
	}
	return result, nil
}

// defaultDispatcher returns the dispatcher for connections that name none.
func (s *Signal[A, R]) defaultDispatcher() *Dispatcher {
	if s.config.dispatcher != nil {
		return s.config.dispatcher
	}
	return DefaultDispatcher()
}
