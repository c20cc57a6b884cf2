package signal

import "sync"

// defaultName is the name of the process-wide dispatcher.
const defaultName = "default-dispatcher"

var (
	defaultMu         sync.Mutex
	defaultDispatcher *Dispatcher
	defaultOptions    []DispatcherOption
)

// ConfigureDefault sets the options used to create the default dispatcher.
// It only has an effect before the first call to DefaultDispatcher, or after
// SetDefaultDispatcher(nil).
func ConfigureDefault(opts ...DispatcherOption) {
	defaultMu.Lock()
	defaultOptions = opts
	defaultMu.Unlock()
}

// DefaultDispatcher returns the process-wide dispatcher used by connections
// that name none, creating and starting it on first use. It is never stopped
// implicitly, so it has no teardown ordering with other signals.
func DefaultDispatcher() *Dispatcher {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultDispatcher == nil {
		opts := append([]DispatcherOption{WithName(defaultName)}, defaultOptions...)
		defaultDispatcher = NewDispatcher(opts...)
		defaultDispatcher.Start()
	}
	return defaultDispatcher
}

// SetDefaultDispatcher replaces the default dispatcher and returns the
// previous one, which keeps running. Passing nil makes the next
// DefaultDispatcher call create a fresh one. Existing connections keep the
// dispatcher they were created with.
func SetDefaultDispatcher(d *Dispatcher) *Dispatcher {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	prev := defaultDispatcher
	defaultDispatcher = d
	return prev
}
