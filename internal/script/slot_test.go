package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/signalslot/internal/signal"
)

func TestAs(t *testing.T) {
	if v, err := As[int]([]any{int64(4)}); err != nil || v != 4 {
		t.Errorf("As[int] = %v, %v", v, err)
	}
	if v, err := As[float64]([]any{int64(4)}); err != nil || v != 4 {
		t.Errorf("As[float64] = %v, %v", v, err)
	}
	if v, err := As[string]([]any{"x", "y"}); err != nil || v != "x" {
		t.Errorf("As[string] = %v, %v", v, err)
	}
	if _, err := As[int](nil); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
	var typeErr *ResultTypeError
	if _, err := As[bool]([]any{"x"}); !errors.As(err, &typeErr) {
		t.Errorf("expected *ResultTypeError, got %v", err)
	}
}

func TestNewSlot_Tuple(t *testing.T) {
	st := newTestState(t)
	st.DoString(`function scale(x, factor) return x * factor end`)

	s := signal.NewSignal[signal.Args2[int, int], int]()
	s.Connect(NewSlot[signal.Args2[int, int]](st, "scale", As[int]), signal.WithMode(signal.Direct))

	got, err := s.Emit(context.Background(), signal.Pack2(7, 6))
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Emit() = %d, want 42", got)
	}
}

func TestNewSlot_Error(t *testing.T) {
	st := newTestState(t)

	s := signal.NewSignal[signal.Args1[string], signal.Void]()
	s.Connect(NewSlot[signal.Args1[string]](st, "undefined", DecodeVoid), signal.WithMode(signal.Direct))

	_, err := s.Emit(context.Background(), signal.Pack1("x"))
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %v", err)
	}
	if callErr.Function != "undefined" || !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("unexpected error %v", err)
	}
}

type resize struct {
	Width  int `lua:"width"`
	Height int `lua:"height"`
}

func TestNewValueSlot_Struct(t *testing.T) {
	st := newTestState(t)
	st.DoString(`function area(size) return size.width * size.height end`)

	s := signal.NewSignal[resize, int]()
	s.Connect(NewValueSlot[resize](st, "area", As[int]), signal.WithMode(signal.Direct))

	got, err := s.Emit(context.Background(), resize{Width: 80, Height: 24})
	if err != nil || got != 1920 {
		t.Errorf("Emit() = %d, %v, want 1920", got, err)
	}
}

func TestNewValueSlot_QueuedOnScriptDispatcher(t *testing.T) {
	st := newTestState(t)
	st.DoString(`
		seen = {}
		function record(v) table.insert(seen, v) end
		function count() return #seen end
	`)

	d := signal.NewDispatcher(signal.WithName("script"))
	d.Start()
	defer d.Stop()

	s := signal.NewSignal[string, signal.Void]()
	s.Connect(NewValueSlot[string](st, "record", DecodeVoid),
		signal.WithMode(signal.Queued), signal.WithDispatcher(d))

	for _, v := range []string{"a", "b", "c"} {
		s.Emit(context.Background(), v)
	}

	// A blocking call on the same dispatcher runs after the queued ones.
	counter := signal.NewSignal[signal.Args0, int]()
	counter.Connect(NewSlot[signal.Args0](st, "count", As[int]),
		signal.WithMode(signal.BlockingQueued), signal.WithDispatcher(d))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := counter.Emit(ctx, signal.Args0{})
	if err != nil || got != 3 {
		t.Errorf("count = %d, %v, want 3", got, err)
	}
}
