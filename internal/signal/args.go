package signal

import "context"

// Void is the result type of slots that produce no value.
// A connection whose result type is Void is fire-and-forget when queued.
type Void = struct{}

// Args is implemented by the argument tuples below. It exposes the tuple as
// a flat list for slots that take their arguments dynamically.
type Args interface {
	Values() []any
}

// Args0 is the empty argument tuple.
type Args0 struct{}

// Values implements Args.
func (Args0) Values() []any { return nil }

// Args1 carries a single argument.
type Args1[A any] struct {
	V1 A
}

// Values implements Args.
func (a Args1[A]) Values() []any { return []any{a.V1} }

// Args2 carries two arguments.
type Args2[A, B any] struct {
	V1 A
	V2 B
}

// Values implements Args.
func (a Args2[A, B]) Values() []any { return []any{a.V1, a.V2} }

// Args3 carries three arguments.
type Args3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

// Values implements Args.
func (a Args3[A, B, C]) Values() []any { return []any{a.V1, a.V2, a.V3} }

// Args4 carries four arguments.
type Args4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

// Values implements Args.
func (a Args4[A, B, C, D]) Values() []any { return []any{a.V1, a.V2, a.V3, a.V4} }

// Pack1 builds an Args1.
func Pack1[A any](a A) Args1[A] { return Args1[A]{V1: a} }

// Pack2 builds an Args2.
func Pack2[A, B any](a A, b B) Args2[A, B] { return Args2[A, B]{V1: a, V2: b} }

// Pack3 builds an Args3.
func Pack3[A, B, C any](a A, b B, c C) Args3[A, B, C] {
	return Args3[A, B, C]{V1: a, V2: b, V3: c}
}

// Pack4 builds an Args4.
func Pack4[A, B, C, D any](a A, b B, c C, d D) Args4[A, B, C, D] {
	return Args4[A, B, C, D]{V1: a, V2: b, V3: c, V4: d}
}

// Func0 adapts a parameterless function to a slot over Args0.
func Func0[R any](fn func(ctx context.Context) (R, error)) Slot[Args0, R] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, _ Args0) (R, error) {
		return fn(ctx)
	}
}

// Func2 adapts a two-parameter function to a slot over Args2.
func Func2[A, B, R any](fn func(ctx context.Context, a A, b B) (R, error)) Slot[Args2[A, B], R] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args Args2[A, B]) (R, error) {
		return fn(ctx, args.V1, args.V2)
	}
}

// Func3 adapts a three-parameter function to a slot over Args3.
func Func3[A, B, C, R any](fn func(ctx context.Context, a A, b B, c C) (R, error)) Slot[Args3[A, B, C], R] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args Args3[A, B, C]) (R, error) {
		return fn(ctx, args.V1, args.V2, args.V3)
	}
}

// Func4 adapts a four-parameter function to a slot over Args4.
func Func4[A, B, C, D, R any](fn func(ctx context.Context, a A, b B, c C, d D) (R, error)) Slot[Args4[A, B, C, D], R] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args Args4[A, B, C, D]) (R, error) {
		return fn(ctx, args.V1, args.V2, args.V3, args.V4)
	}
}

// Action adapts a function without a result to a void slot.
func Action[A any](fn func(ctx context.Context, args A) error) Slot[A, Void] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args A) (Void, error) {
		return Void{}, fn(ctx, args)
	}
}

// Dynamic adapts a function taking its arguments as a flat list. Any tuple
// implementing Args can be delivered to it; the conversion is fixed when the
// slot is built, not on every emit.
func Dynamic[A Args, R any](fn func(ctx context.Context, values []any) (R, error)) Slot[A, R] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args A) (R, error) {
		return fn(ctx, args.Values())
	}
}
