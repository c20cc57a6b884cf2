// Package signal implements typed signals and slots with per-connection
// delivery modes.
//
// A Signal[A, R] holds an ordered set of connections to slots. Emit fans an
// argument value out to every connection; each connection decides on its
// own how its slot runs relative to the emitting goroutine.
//
// # Connection Modes
//
//   - Direct: the slot runs synchronously in the emitter's goroutine.
//   - Queued: the slot is handed to a Dispatcher and runs later on its worker.
//   - BlockingQueued: like Queued, but the emitter waits until the worker has
//     run the slot and receives its result.
//   - Auto (default): Direct when the emitter is already running on the
//     connection's dispatcher, Queued otherwise.
//
// A queued connection whose result type is not Void is escalated to
// BlockingQueued: a value-returning slot is synchronous from the emitter's
// point of view.
//
// # Dispatchers
//
// A Dispatcher owns a FIFO queue and a single worker goroutine. Actuations
// submitted to one dispatcher run strictly in submission order. Errors and
// panics of queued slots never stop the worker; they are emitted on the
// dispatcher's OnError signal. Blocking-queued failures are returned to the
// blocked emitter instead. Stop discards the queue and wakes blocked
// emitters with ErrDispatcherStopped.
//
// Goroutines have no identity, so the dispatcher marks the context it hands
// to slots. Slots that emit further signals should pass their context along
// for Auto connections to resolve correctly.
//
// # Arity
//
// There is one generic contract. Multi-argument slots use the Args tuples
// with the Func adapters; Dynamic builds slots that receive their
// arguments as a flat list.
//
// # Usage
//
//	clicked := signal.NewSignal[int, signal.Void]()
//	conn, _ := clicked.Connect(signal.Action(func(ctx context.Context, n int) error {
//	    fmt.Println("clicked", n)
//	    return nil
//	}), signal.WithMode(signal.Queued))
//	defer conn.Disconnect()
//
//	clicked.Emit(ctx, 3) // returns immediately; the default dispatcher prints later
//
// Blocking-queued with a result:
//
//	worker := signal.NewDispatcher(signal.WithName("db"))
//	worker.Start()
//	defer worker.Stop()
//
//	lookup := signal.NewSignal[string, int]()
//	lookup.Connect(func(ctx context.Context, key string) (int, error) {
//	    return db.Count(ctx, key)
//	}, signal.WithDispatcher(worker))
//
//	n, err := lookup.Emit(ctx, "users") // runs on the db worker, waits for it
package signal
