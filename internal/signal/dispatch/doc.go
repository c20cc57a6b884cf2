// Package dispatch provides the guarded execution primitive used by signal
// dispatchers.
//
// An Executor runs a single unit of work with panic recovery, context
// awareness and timing. Dispatcher worker goroutines use it so that a
// misbehaving slot or hook can never terminate the worker.
//
// # Usage
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithPanicHandler(func(v any, stack []byte) {
//	        log.Printf("panic: %v\n%s", v, stack)
//	    }),
//	)
//	result := exec.Execute(ctx, func(ctx context.Context) error {
//	    return doWork(ctx)
//	})
//	if !result.IsSuccess() {
//	    // inspect result.Error or result.PanicValue
//	}
package dispatch
