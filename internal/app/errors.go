package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrShutdown indicates the application has been shut down.
	ErrShutdown = errors.New("application shut down")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// BindingError reports a script binding that could not be connected.
type BindingError struct {
	Index    int
	Signal   string
	Function string
	Err      error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding %d (%s -> %s): %v", e.Index, e.Signal, e.Function, e.Err)
}

func (e *BindingError) Unwrap() error {
	return e.Err
}
