package script

import (
	"errors"
	"fmt"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrFunctionNotFound is returned when calling an undefined function.
	ErrFunctionNotFound = errors.New("lua function not found")

	// ErrNoResult is returned by As when the function returned nothing.
	ErrNoResult = errors.New("lua function returned no value")
)

// CallError wraps a failure of a script slot.
type CallError struct {
	// Function is the Lua function name.
	Function string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("lua function %s: %v", e.Function, e.Err)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// ResultTypeError is returned when a Lua result cannot be converted.
type ResultTypeError struct {
	Want string
	Got  any
}

// Error implements the error interface.
func (e *ResultTypeError) Error() string {
	return fmt.Sprintf("lua result: want %s, got %T", e.Want, e.Got)
}
