package config

import (
	"errors"
	"fmt"

	"github.com/dshills/signalslot/internal/config/loader"
)

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// ParseError represents an error while parsing a configuration file.
type ParseError = loader.ParseError

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the setting path that failed validation.
	Path string
	// Message describes the validation error.
	Message string
	// Value is the invalid value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}

// Is matches ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// EnvError reports an environment override that could not be applied.
type EnvError struct {
	// Path is the setting the variable maps to.
	Path string
	// Value is the raw variable value.
	Value string
	// Err is the conversion error.
	Err error
}

// Error implements the error interface.
func (e *EnvError) Error() string {
	return fmt.Sprintf("environment override for %s (%q): %v", e.Path, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *EnvError) Unwrap() error {
	return e.Err
}
