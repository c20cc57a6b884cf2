package signal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/signalslot/internal/signal/dispatch"
)

// Hook runs on the dispatching goroutine around every actuation.
// A returned error or panic is reported through OnError.
type Hook func(ctx context.Context, a Actuation) error

// ContextSwitcher moves actuation into another execution context, such as a
// UI event loop. SwitchContext must eventually call dispatch exactly once,
// on whatever goroutine actuations should run.
type ContextSwitcher interface {
	SwitchContext(dispatch func())
}

// ContextSwitcherFunc is a function adapter for ContextSwitcher.
type ContextSwitcherFunc func(dispatch func())

// SwitchContext implements ContextSwitcher.
func (f ContextSwitcherFunc) SwitchContext(dispatch func()) {
	f(dispatch)
}

// sameContext dispatches in the worker goroutine itself.
var sameContext = ContextSwitcherFunc(func(dispatch func()) { dispatch() })

// dispatcherKey marks contexts of actuations run by a dispatcher.
type dispatcherKey struct{}

// CurrentDispatcher returns the dispatcher actuating the slot that received
// ctx, or nil when ctx does not come from a dispatcher.
func CurrentDispatcher(ctx context.Context) *Dispatcher {
	if ctx == nil {
		return nil
	}
	d, _ := ctx.Value(dispatcherKey{}).(*Dispatcher)
	return d
}

// dispatcherSerial numbers unnamed dispatchers.
var dispatcherSerial atomic.Uint64

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithName sets the dispatcher name used in logs.
func WithName(name string) DispatcherOption {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithBeforeActuation sets the hook run before each actuation. If it fails
// the slot is not actuated and the actuation completes with a *HookError.
func WithBeforeActuation(h Hook) DispatcherOption {
	return func(d *Dispatcher) {
		d.before = h
	}
}

// WithAfterActuation sets the hook run after each actuation.
func WithAfterActuation(h Hook) DispatcherOption {
	return func(d *Dispatcher) {
		d.after = h
	}
}

// WithContextSwitcher sets where the worker loop runs Dispatch.
func WithContextSwitcher(cs ContextSwitcher) DispatcherOption {
	return func(d *Dispatcher) {
		if cs != nil {
			d.switcher = cs
		}
	}
}

// WithSlotTimeout bounds the context each queued slot receives. Zero leaves
// slots unbounded.
func WithSlotTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout >= 0 {
			d.slotTimeout = timeout
		}
	}
}

// WithQueueWarnThreshold logs a warning when the queue grows past n entries.
// Zero disables the warning.
func WithQueueWarnThreshold(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.warnDepth = n
		}
	}
}

// Waiter states of a blocking entry.
const (
	waiting int32 = iota
	abandoned
	delivered
)

// entry is a queued actuation. release is the emitter's private rendezvous
// and is only set for blocking-queued actuations.
type entry struct {
	a       Actuation
	release chan struct{}
	once    sync.Once

	// waiter moves from waiting to abandoned when the emitter gives up, or
	// to delivered when a failure is handed to it. Exactly one side wins.
	waiter atomic.Int32
}

// deliver claims a failure for the waiting emitter. It returns false when
// nobody will receive it, so the failure has to be reported instead.
func (e *entry) deliver() bool {
	if e.release == nil {
		return false
	}
	return e.waiter.CompareAndSwap(waiting, delivered)
}

// unblock wakes the emitter waiting on this entry, if any.
func (e *entry) unblock() {
	if e.release != nil {
		e.once.Do(func() { close(e.release) })
	}
}

// Dispatcher serializes actuation of queued slots on a single worker.
//
// Submitted actuations run strictly in submission order. The worker started
// by Start loops over WaitFor and Dispatch; callers that own an event loop
// may drive WaitFor and Dispatch themselves instead. Errors and panics from
// queued slots and hooks never stop the worker; they are emitted on OnError.
//
// Dispatch must not be called from a slot it is actuating.
type Dispatcher struct {
	name      string
	logger    zerolog.Logger
	before    Hook
	after     Hook
	switcher  ContextSwitcher
	warnDepth int
	executor  *dispatch.Executor
	onError   *Signal[error, Void]

	slotTimeout time.Duration

	// mu guards the queue and the permit count.
	mu      sync.Mutex
	queue   []*entry
	permits int
	current *entry
	wake    chan struct{}
	warned  bool

	// dispatchMu keeps actuations mutually exclusive across workers.
	dispatchMu sync.Mutex

	// runMu guards the worker lifecycle.
	runMu  sync.Mutex
	cancel context.CancelFunc
	base   context.Context
	exited chan struct{}

	stats dispatcherCounters
}

// NewDispatcher creates a stopped dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		name:     fmt.Sprintf("dispatcher-%d", dispatcherSerial.Add(1)-1),
		logger:   zerolog.Nop(),
		switcher: sameContext,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str("dispatcher", d.name).Logger()
	d.executor = dispatch.NewExecutor(dispatch.WithPanicHandler(func(v any, stack []byte) {
		d.logger.Error().Interface("panic", v).Bytes("stack", stack).Msg("actuation panicked")
	}))
	d.onError = NewSignal[error, Void](
		WithSignalName(d.name+".onError"),
		WithDefaultDispatcher(d),
		WithSignalLogger(d.logger),
	)
	return d
}

// Name returns the dispatcher name.
func (d *Dispatcher) Name() string {
	return d.name
}

// OnError returns the signal carrying every error swallowed by Dispatch.
func (d *Dispatcher) OnError() *Signal[error, Void] {
	return d.onError
}

// Start launches the worker goroutine. It is a no-op if already running.
func (d *Dispatcher) Start() {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	d.cancel = cancel
	d.base = ctx
	d.exited = exited

	go func() {
		defer close(exited)
		d.Run(ctx)
	}()

	d.logger.Debug().Msg("dispatcher started")
}

// Stop terminates the worker and discards every queued actuation. Emitters
// blocked on a discarded or in-flight actuation wake with
// ErrDispatcherStopped. Stop does not wait for a running slot to return and
// may be called from a slot; use Wait to join the worker.
func (d *Dispatcher) Stop() {
	d.runMu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.base = nil
	d.runMu.Unlock()

	if cancel != nil {
		cancel()
	}

	d.mu.Lock()
	pending := d.queue
	d.queue = nil
	d.permits = 0
	d.warned = false
	current := d.current
	d.mu.Unlock()

	for _, e := range pending {
		e.a.Abort(ErrDispatcherStopped)
		e.unblock()
	}
	d.stats.discarded.Add(uint64(len(pending)))

	if current != nil && current.release != nil {
		current.a.Abort(ErrDispatcherStopped)
		current.unblock()
	}

	if cancel != nil || len(pending) > 0 {
		d.logger.Debug().Int("discarded", len(pending)).Msg("dispatcher stopped")
	}
}

// Wait blocks until the worker launched by the last Start has exited, or
// ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.runMu.Lock()
	exited := d.exited
	d.runMu.Unlock()

	if exited == nil {
		return nil
	}
	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true between Start and Stop.
func (d *Dispatcher) IsRunning() bool {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.cancel != nil
}

// Submit enqueues a and wakes the worker. For a BlockingQueued actuation it
// then waits until the actuation has been dispatched and returns its error;
// if ctx ends first it returns ctx.Err() and the actuation stays queued. A
// later failure of an abandoned actuation is emitted on OnError.
func (d *Dispatcher) Submit(ctx context.Context, a Actuation) error {
	if a == nil {
		return ErrNilActuation
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e := &entry{a: a}
	if a.Mode() == BlockingQueued {
		e.release = make(chan struct{})
	}
	d.enqueue(e)
	d.stats.submitted.Add(1)

	if e.release == nil {
		return nil
	}
	select {
	case <-e.release:
		return a.Err()
	case <-ctx.Done():
		if e.waiter.CompareAndSwap(waiting, abandoned) {
			return ctx.Err()
		}
		// A failure was already claimed for us; release follows shortly.
		<-e.release
		return a.Err()
	}
}

// enqueue appends e and grants one permit.
func (d *Dispatcher) enqueue(e *entry) {
	d.mu.Lock()
	d.queue = append(d.queue, e)
	d.permits++
	depth := len(d.queue)
	warn := d.warnDepth > 0 && depth > d.warnDepth && !d.warned
	if warn {
		d.warned = true
	}
	d.mu.Unlock()

	d.signalWake()

	if warn {
		d.logger.Warn().Int("depth", depth).Int("threshold", d.warnDepth).Msg("dispatch queue is growing")
	}
}

// signalWake wakes a waiter without blocking; the token is sticky.
func (d *Dispatcher) signalWake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// WaitFor blocks until an actuation has been submitted and consumes one
// permit for it. It returns false once ctx is done.
func (d *Dispatcher) WaitFor(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			d.passWake()
			return false
		}

		d.mu.Lock()
		if d.permits > 0 {
			d.permits--
			more := d.permits > 0
			d.mu.Unlock()
			if more {
				d.signalWake()
			}
			return true
		}
		d.mu.Unlock()

		select {
		case <-d.wake:
		case <-ctx.Done():
			d.passWake()
			return false
		}
	}
}

// passWake re-arms the wake token when permits remain, in case a waiter
// leaving through ctx consumed a token meant for another.
func (d *Dispatcher) passWake() {
	d.mu.Lock()
	more := d.permits > 0
	d.mu.Unlock()
	if more {
		d.signalWake()
	}
}

// Run is the worker loop: wait for work, then switch context and dispatch,
// until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for d.WaitFor(ctx) {
		d.switcher.SwitchContext(d.Dispatch)
	}
}

// Dispatch actuates the head of the queue, if any, between the before and
// after hooks. It never panics and never returns an error: failures are
// stored on blocking actuations or emitted on OnError.
func (d *Dispatcher) Dispatch() {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	e := d.pop()
	if e == nil {
		return
	}
	defer d.finish(e)

	a := e.a
	ctx := d.actuationContext()

	if d.before != nil {
		res := d.executor.Execute(ctx, func(ctx context.Context) error { return d.before(ctx, a) })
		if res.Skipped {
			a.Abort(ErrDispatcherStopped)
			return
		}
		if err := resultError(res); err != nil {
			herr := &HookError{Phase: PhaseBefore, Err: err}
			d.stats.hookErrors.Add(1)
			a.Abort(herr)
			d.report(ctx, herr)
			return
		}
	}

	res := d.executor.ExecuteWithTimeout(ctx, a.Actuate, d.slotTimeout)
	if res.Skipped {
		a.Abort(ErrDispatcherStopped)
		return
	}
	d.stats.actuated.Add(1)
	d.stats.totalTimeNs.Add(res.Duration.Nanoseconds())

	switch {
	case res.Panicked:
		d.stats.panicked.Add(1)
		perr := &PanicError{ConnectionID: a.ConnectionID(), Value: res.PanicValue, Stack: res.PanicStack}
		a.Abort(perr)
		if !e.deliver() {
			d.report(ctx, perr)
		}
	case res.Error != nil:
		d.stats.failed.Add(1)
		// A blocked emitter receives the error itself.
		if !e.deliver() {
			d.report(ctx, res.Error)
		}
	}

	if d.after != nil {
		res := d.executor.Execute(context.WithoutCancel(ctx), func(ctx context.Context) error { return d.after(ctx, a) })
		if err := resultError(res); err != nil {
			d.stats.hookErrors.Add(1)
			d.report(ctx, &HookError{Phase: PhaseAfter, Err: err})
		}
	}
}

// pop removes the head of the queue and marks it in flight.
func (d *Dispatcher) pop() *entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return nil
	}
	e := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	d.current = e
	if len(d.queue) <= d.warnDepth {
		d.warned = false
	}
	return e
}

// finish clears the in-flight entry and releases its emitter.
func (d *Dispatcher) finish(e *entry) {
	d.mu.Lock()
	if d.current == e {
		d.current = nil
	}
	d.mu.Unlock()
	e.unblock()
}

// actuationContext returns the context handed to slots and hooks. It marks
// the dispatcher so that Auto connections resolve to Direct inside it.
func (d *Dispatcher) actuationContext() context.Context {
	d.runMu.Lock()
	base := d.base
	d.runMu.Unlock()

	if base == nil {
		base = context.Background()
	}
	return context.WithValue(base, dispatcherKey{}, d)
}

// owns reports whether ctx belongs to an actuation run by d.
func (d *Dispatcher) owns(ctx context.Context) bool {
	return d != nil && CurrentDispatcher(ctx) == d
}

// report logs err and emits it on OnError. Failures of the error slots
// themselves are only logged.
func (d *Dispatcher) report(ctx context.Context, err error) {
	d.logger.Warn().Err(err).Msg("slot actuation failed")

	ctx = context.WithoutCancel(ctx)
	res := d.executor.Execute(ctx, func(ctx context.Context) error {
		_, emitErr := d.onError.Emit(ctx, err)
		return emitErr
	})
	if failure := resultError(res); failure != nil {
		d.logger.Error().Err(failure).Msg("error slot failed")
	}
}

// resultError converts a non-successful execution into an error.
func resultError(res dispatch.Result) error {
	if res.Panicked {
		if err, ok := res.PanicValue.(error); ok {
			return err
		}
		return fmt.Errorf("panic: %v", res.PanicValue)
	}
	return res.Error
}

// QueueDepth returns the number of actuations waiting to be dispatched.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stats returns dispatcher statistics.
func (d *Dispatcher) Stats() DispatcherStats {
	actuated := d.stats.actuated.Load()
	totalNs := d.stats.totalTimeNs.Load()

	var avgNs int64
	if actuated > 0 {
		avgNs = totalNs / int64(actuated)
	}

	return DispatcherStats{
		Submitted:     d.stats.submitted.Load(),
		Actuated:      actuated,
		Failed:        d.stats.failed.Load(),
		Panicked:      d.stats.panicked.Load(),
		Discarded:     d.stats.discarded.Load(),
		HookErrors:    d.stats.hookErrors.Load(),
		QueueDepth:    d.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}
