package signal

import (
	"context"
	"errors"
	"testing"
)

func newTestActuation(slot Slot[int, int]) *SlotActuation[int, int] {
	s := NewSignal[int, int]()
	conn := newConnection(s, slot, connectConfig{mode: Direct})
	return newActuation(conn, 4, Direct)
}

func TestSlotActuation_Actuate(t *testing.T) {
	calls := 0
	a := newTestActuation(func(ctx context.Context, x int) (int, error) {
		calls++
		return x * x, nil
	})

	if _, err := a.Result(); !errors.Is(err, ErrNotActuated) {
		t.Errorf("expected ErrNotActuated before actuation, got %v", err)
	}
	if a.Err() != nil {
		t.Error("Err should be nil while pending")
	}

	if err := a.Actuate(context.Background()); err != nil {
		t.Fatalf("Actuate failed: %v", err)
	}
	got, err := a.Result()
	if err != nil || got != 16 {
		t.Errorf("expected 16, got %d, %v", got, err)
	}

	select {
	case <-a.Done():
	default:
		t.Error("Done should be closed after actuation")
	}

	if err := a.Actuate(context.Background()); !errors.Is(err, ErrAlreadyActuated) {
		t.Errorf("expected ErrAlreadyActuated, got %v", err)
	}
	if calls != 1 {
		t.Errorf("slot should run exactly once, ran %d times", calls)
	}
}

func TestSlotActuation_Error(t *testing.T) {
	boom := errors.New("boom")
	a := newTestActuation(func(ctx context.Context, x int) (int, error) { return 0, boom })

	if err := a.Actuate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !errors.Is(a.Err(), boom) {
		t.Errorf("expected Err to report boom, got %v", a.Err())
	}
}

func TestSlotActuation_Abort(t *testing.T) {
	ran := false
	a := newTestActuation(func(ctx context.Context, x int) (int, error) {
		ran = true
		return x, nil
	})

	if !a.Abort(ErrDispatcherStopped) {
		t.Fatal("first Abort should complete the actuation")
	}
	if a.Abort(errors.New("again")) {
		t.Error("second Abort should report already completed")
	}
	if err := a.Actuate(context.Background()); !errors.Is(err, ErrAlreadyActuated) {
		t.Errorf("aborted actuation should not run, got %v", err)
	}
	if ran {
		t.Error("slot ran after Abort")
	}

	got, err := a.Result()
	if got != 0 || !errors.Is(err, ErrDispatcherStopped) {
		t.Errorf("expected zero result and ErrDispatcherStopped, got %d, %v", got, err)
	}
}

func TestSlotActuation_AbortAfterCompletion(t *testing.T) {
	a := newTestActuation(func(ctx context.Context, x int) (int, error) { return x, nil })
	a.Actuate(context.Background())

	if a.Abort(ErrDispatcherStopped) {
		t.Error("Abort after completion should return false")
	}
	if got, err := a.Result(); err != nil || got != 4 {
		t.Errorf("result should be unchanged, got %d, %v", got, err)
	}
}

func TestSlotActuation_Metadata(t *testing.T) {
	s := NewSignal[int, int]()
	conn := newConnection(s, func(ctx context.Context, x int) (int, error) { return x, nil },
		connectConfig{mode: Queued})
	a := newActuation(conn, 1, BlockingQueued)

	if a.ConnectionID() != conn.ID() {
		t.Errorf("expected connection %s, got %s", conn.ID(), a.ConnectionID())
	}
	if a.Mode() != BlockingQueued {
		t.Errorf("expected resolved mode, got %v", a.Mode())
	}
}

func TestConnection_Resolve(t *testing.T) {
	d := NewDispatcher()
	other := NewDispatcher()
	outside := context.Background()
	onD := context.WithValue(outside, dispatcherKey{}, d)
	onOther := context.WithValue(outside, dispatcherKey{}, other)

	voidSig := NewSignal[int, Void]()
	valSig := NewSignal[int, int]()
	voidSlot := Action(func(ctx context.Context, x int) error { return nil })
	valSlot := func(ctx context.Context, x int) (int, error) { return x, nil }

	tests := []struct {
		name string
		mode ConnectionMode
		void bool
		ctx  context.Context
		want ConnectionMode
	}{
		{"auto void outside", Auto, true, outside, Queued},
		{"auto value outside", Auto, false, outside, BlockingQueued},
		{"auto on dispatcher", Auto, true, onD, Direct},
		{"auto on other dispatcher", Auto, true, onOther, Queued},
		{"direct", Direct, false, outside, Direct},
		{"queued void", Queued, true, outside, Queued},
		{"queued value", Queued, false, outside, BlockingQueued},
		{"queued void on dispatcher", Queued, true, onD, Queued},
		{"queued value on dispatcher", Queued, false, onD, Direct},
		{"blocking outside", BlockingQueued, true, outside, BlockingQueued},
		{"blocking on dispatcher", BlockingQueued, true, onD, Direct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := connectConfig{mode: tt.mode, dispatcher: d}
			var got ConnectionMode
			if tt.void {
				got = newConnection(voidSig, voidSlot, cfg).resolve(tt.ctx)
			} else {
				got = newConnection(valSig, valSlot, cfg).resolve(tt.ctx)
			}
			if got != tt.want {
				t.Errorf("resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}
