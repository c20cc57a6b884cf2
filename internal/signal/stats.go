package signal

import (
	"sync/atomic"
	"time"
)

// dispatcherCounters holds the live counters behind DispatcherStats.
type dispatcherCounters struct {
	submitted   atomic.Uint64
	actuated    atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	discarded   atomic.Uint64
	hookErrors  atomic.Uint64
	totalTimeNs atomic.Int64
}

// DispatcherStats contains statistics for a dispatcher.
// Counters are read individually and may be slightly inconsistent while the
// dispatcher is busy.
type DispatcherStats struct {
	// Submitted is the number of actuations handed to the dispatcher.
	Submitted uint64

	// Actuated is the number of slots the dispatcher has run.
	Actuated uint64

	// Failed is the number of slots that returned an error.
	Failed uint64

	// Panicked is the number of slots that panicked.
	Panicked uint64

	// Discarded is the number of queued actuations dropped by Stop.
	Discarded uint64

	// HookErrors is the number of failed before/after hooks.
	HookErrors uint64

	// QueueDepth is the number of actuations waiting to be dispatched.
	QueueDepth int

	// TotalDuration is the cumulative time spent in slots.
	TotalDuration time.Duration

	// AvgDuration is the average slot execution time.
	AvgDuration time.Duration
}
