package signal

import (
	"errors"
	"fmt"
)

// Sentinel errors for the signal package.
var (
	// ErrNilSlot is returned when connecting a nil slot.
	ErrNilSlot = errors.New("slot cannot be nil")

	// ErrNilActuation is returned when submitting a nil actuation.
	ErrNilActuation = errors.New("actuation cannot be nil")

	// ErrAlreadyActuated is returned when an actuation is run a second time.
	ErrAlreadyActuated = errors.New("slot actuation already performed")

	// ErrNotActuated is returned when reading the result of an actuation
	// that has not completed.
	ErrNotActuated = errors.New("slot actuation not completed")

	// ErrDispatcherStopped is delivered to actuations discarded by Stop,
	// including emitters parked in a blocking-queued emit.
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrSlotPanic matches any *PanicError through errors.Is.
	ErrSlotPanic = errors.New("slot panicked")
)

// PanicError wraps a panic recovered while a dispatcher actuated a slot.
type PanicError struct {
	// ConnectionID identifies the connection whose slot panicked.
	ConnectionID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("slot panicked on connection %s: %v", e.ConnectionID, e.Value)
}

// Is allows errors.Is to match PanicError with ErrSlotPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrSlotPanic
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// HookPhase identifies which dispatcher hook failed.
type HookPhase string

const (
	// PhaseBefore is the hook run before each actuation.
	PhaseBefore HookPhase = "before"

	// PhaseAfter is the hook run after each actuation.
	PhaseAfter HookPhase = "after"
)

// HookError wraps an error raised by a dispatcher hook.
type HookError struct {
	Phase HookPhase
	Err   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("%s-actuation hook: %v", e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *HookError) Unwrap() error {
	return e.Err
}
