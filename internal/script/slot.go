package script

import (
	"context"
	"reflect"

	"github.com/dshills/signalslot/internal/signal"
)

// Decoder converts the values returned by a Lua function into a slot result.
type Decoder[R any] func(values []any) (R, error)

// DecodeVoid ignores the Lua results.
func DecodeVoid(values []any) (signal.Void, error) {
	return signal.Void{}, nil
}

// As returns the first Lua result converted to T. Numbers convert between
// numeric kinds.
func As[T any](values []any) (T, error) {
	var zero T
	if len(values) == 0 || values[0] == nil {
		return zero, ErrNoResult
	}
	if v, ok := values[0].(T); ok {
		return v, nil
	}

	want := reflect.TypeOf((*T)(nil)).Elem()
	rv := reflect.ValueOf(values[0])
	if isNumeric(rv.Kind()) && isNumeric(want.Kind()) {
		return rv.Convert(want).Interface().(T), nil
	}
	return zero, &ResultTypeError{Want: want.String(), Got: values[0]}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// NewSlot builds a slot for a tuple-typed signal. The tuple's values are
// passed to the global Lua function fn as separate arguments.
func NewSlot[A signal.Args, R any](s *State, fn string, decode Decoder[R]) signal.Slot[A, R] {
	return signal.Dynamic[A, R](func(ctx context.Context, values []any) (R, error) {
		return call(ctx, s, fn, decode, values)
	})
}

// NewValueSlot builds a slot for a signal carrying a single value, which is
// passed to fn as one argument. Structs arrive as tables.
func NewValueSlot[A, R any](s *State, fn string, decode Decoder[R]) signal.Slot[A, R] {
	return func(ctx context.Context, arg A) (R, error) {
		return call(ctx, s, fn, decode, []any{arg})
	}
}

func call[R any](ctx context.Context, s *State, fn string, decode Decoder[R], args []any) (R, error) {
	results, err := s.Call(ctx, fn, args...)
	if err != nil {
		var zero R
		return zero, &CallError{Function: fn, Err: err}
	}
	return decode(results)
}
