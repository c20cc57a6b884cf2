package signal

import (
	"fmt"
	"strings"
)

// ConnectionMode specifies how a slot is actuated relative to the emitting
// goroutine.
type ConnectionMode int

const (
	// Auto resolves at emit time: Direct when the emitter is already running
	// on the connection's dispatcher, Queued otherwise.
	Auto ConnectionMode = iota

	// Direct actuates the slot synchronously in the emitter's goroutine.
	Direct

	// Queued hands the actuation to the dispatcher and returns immediately.
	// A queued slot with a non-void result is escalated to BlockingQueued.
	Queued

	// BlockingQueued hands the actuation to the dispatcher and blocks the
	// emitter until the dispatcher has actuated it.
	BlockingQueued
)

// String returns a human-readable mode name.
func (m ConnectionMode) String() string {
	switch m {
	case Auto:
		return "auto"
	case Direct:
		return "direct"
	case Queued:
		return "queued"
	case BlockingQueued:
		return "blocking_queued"
	default:
		return "unknown"
	}
}

// ParseConnectionMode parses a mode name as produced by String.
// Dashes and case are ignored, so "Blocking-Queued" is accepted.
func ParseConnectionMode(s string) (ConnectionMode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "auto":
		return Auto, nil
	case "direct":
		return Direct, nil
	case "queued":
		return Queued, nil
	case "blocking_queued", "blocking":
		return BlockingQueued, nil
	default:
		return Auto, fmt.Errorf("unknown connection mode %q", s)
	}
}
