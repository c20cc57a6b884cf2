package signal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func direct() ConnectOption {
	return WithMode(Direct)
}

func TestSignal_Connect_NilSlot(t *testing.T) {
	s := NewSignal[int, int]()

	conn, err := s.Connect(nil, direct())
	if !errors.Is(err, ErrNilSlot) {
		t.Fatalf("expected ErrNilSlot, got %v", err)
	}
	if conn != nil {
		t.Error("expected no connection")
	}
	if s.Len() != 0 {
		t.Errorf("expected 0 connections, got %d", s.Len())
	}
}

func TestSignal_Connect_Defaults(t *testing.T) {
	d := NewDispatcher()
	s := NewSignal[int, Void](WithSignalName("changed"), WithDefaultDispatcher(d))

	conn, err := s.Connect(Action(func(ctx context.Context, v int) error { return nil }))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if conn.Mode() != Auto {
		t.Errorf("expected mode auto, got %v", conn.Mode())
	}
	if conn.Dispatcher() != d {
		t.Error("expected signal default dispatcher")
	}
	if conn.ID() == "" {
		t.Error("expected connection ID")
	}
	if !conn.Connected() {
		t.Error("expected connection to be live")
	}
	if s.Name() != "changed" {
		t.Errorf("expected name changed, got %q", s.Name())
	}
}

func TestSignal_Connect_DirectSkipsDispatcher(t *testing.T) {
	s := NewSignal[int, int]()

	conn, err := s.Connect(func(ctx context.Context, v int) (int, error) { return v, nil }, direct())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if conn.Dispatcher() != nil {
		t.Error("direct connection should not bind a dispatcher")
	}
}

func TestSignal_Emit_Direct(t *testing.T) {
	s := NewSignal[int, int]()

	var ran bool
	_, err := s.Connect(func(ctx context.Context, x int) (int, error) {
		ran = true
		return x * 2, nil
	}, direct())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	got, err := s.Emit(context.Background(), 21)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	// Direct slots complete before Emit returns, on the caller's goroutine.
	if !ran {
		t.Error("slot did not run synchronously")
	}
}

func TestSignal_Emit_NoConnections(t *testing.T) {
	s := NewSignal[string, int]()

	got, err := s.Emit(context.Background(), "x")
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got != 0 {
		t.Errorf("expected zero result, got %d", got)
	}
}

func TestSignal_Emit_NilContext(t *testing.T) {
	s := NewSignal[int, int]()
	s.Connect(func(ctx context.Context, x int) (int, error) {
		if ctx == nil {
			return 0, errors.New("nil context")
		}
		return x, nil
	}, direct())

	var ctx context.Context
	got, err := s.Emit(ctx, 7)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestSignal_Emit_ConnectionOrder(t *testing.T) {
	s := NewSignal[int, int]()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		s.Connect(func(ctx context.Context, x int) (int, error) {
			order = append(order, i)
			return x + i, nil
		}, direct())
	}

	got, err := s.Emit(context.Background(), 10)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got != 13 {
		t.Errorf("expected result of last slot (13), got %d", got)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected order [1 2 3], got %v", order)
	}
}

func TestSignal_Emit_DirectErrorStopsFanout(t *testing.T) {
	s := NewSignal[int, int]()
	boom := errors.New("boom")

	s.Connect(func(ctx context.Context, x int) (int, error) { return 0, boom }, direct())

	var reached bool
	s.Connect(func(ctx context.Context, x int) (int, error) {
		reached = true
		return x, nil
	}, direct())

	_, err := s.Emit(context.Background(), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if reached {
		t.Error("slot after a failing direct slot should not run")
	}
}

func TestSignal_Emit_DirectPanicPropagates(t *testing.T) {
	s := NewSignal[int, Void]()
	s.Connect(Action(func(ctx context.Context, x int) error {
		panic("direct panic")
	}), direct())

	defer func() {
		if r := recover(); r != "direct panic" {
			t.Errorf("expected panic to reach the emitter, got %v", r)
		}
	}()
	s.Emit(context.Background(), 1)
	t.Error("Emit should have panicked")
}

func TestSignal_Disconnect(t *testing.T) {
	s := NewSignal[int, Void]()

	calls := 0
	slot := Action(func(ctx context.Context, x int) error {
		calls++
		return nil
	})

	// The same slot connected twice is two independent connections.
	first, _ := s.Connect(slot, direct())
	second, _ := s.Connect(slot, direct())
	if first.ID() == second.ID() {
		t.Fatal("expected distinct connection IDs")
	}

	s.Emit(context.Background(), 1)
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}

	if !s.Disconnect(first) {
		t.Error("expected first Disconnect to succeed")
	}
	if s.Disconnect(first) {
		t.Error("expected second Disconnect to be a no-op")
	}
	if first.Connected() {
		t.Error("expected first connection to be disconnected")
	}
	if !second.Connected() {
		t.Error("expected second connection to stay live")
	}

	s.Emit(context.Background(), 1)
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 connection, got %d", s.Len())
	}
}

func TestSignal_Disconnect_Foreign(t *testing.T) {
	a := NewSignal[int, Void]()
	b := NewSignal[int, Void]()

	conn, _ := a.Connect(Action(func(ctx context.Context, x int) error { return nil }), direct())

	if b.Disconnect(conn) {
		t.Error("disconnecting a foreign connection should fail")
	}
	if b.Disconnect(nil) {
		t.Error("disconnecting nil should fail")
	}
	if !conn.Connected() {
		t.Error("connection should be unaffected")
	}
}

func TestConnection_Disconnect(t *testing.T) {
	s := NewSignal[int, Void]()
	conn, _ := s.Connect(Action(func(ctx context.Context, x int) error { return nil }), direct())

	conn.Disconnect()
	conn.Disconnect()

	if conn.Connected() {
		t.Error("expected disconnected")
	}
	if s.Len() != 0 {
		t.Errorf("expected 0 connections, got %d", s.Len())
	}
}

func TestSignal_DisconnectAll(t *testing.T) {
	s := NewSignal[int, Void]()

	var conns []*Connection[int, Void]
	for i := 0; i < 3; i++ {
		c, _ := s.Connect(Action(func(ctx context.Context, x int) error { return nil }), direct())
		conns = append(conns, c)
	}

	s.DisconnectAll()

	if s.Len() != 0 {
		t.Errorf("expected 0 connections, got %d", s.Len())
	}
	for _, c := range conns {
		if c.Connected() {
			t.Error("expected all connections disconnected")
		}
	}
}

func TestSignal_Emit_DisconnectLaterDuringEmit(t *testing.T) {
	s := NewSignal[int, Void]()

	var later *Connection[int, Void]
	var laterRan bool

	s.Connect(Action(func(ctx context.Context, x int) error {
		later.Disconnect()
		return nil
	}), direct())
	later, _ = s.Connect(Action(func(ctx context.Context, x int) error {
		laterRan = true
		return nil
	}), direct())

	s.Emit(context.Background(), 1)

	if laterRan {
		t.Error("a connection removed before it was reached should be skipped")
	}
}

func TestSignal_Emit_DisconnectSelfDuringActuation(t *testing.T) {
	s := NewSignal[int, int]()

	var self *Connection[int, int]
	self, _ = s.Connect(func(ctx context.Context, x int) (int, error) {
		self.Disconnect()
		return x + 1, nil
	}, direct())

	got, err := s.Emit(context.Background(), 1)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got != 2 {
		t.Errorf("expected the in-flight actuation to complete with 2, got %d", got)
	}
	if self.Connected() {
		t.Error("expected self to be disconnected")
	}
}

func TestSignal_Emit_ConnectDuringEmit(t *testing.T) {
	s := NewSignal[int, Void]()

	added := 0
	var connected bool
	s.Connect(Action(func(ctx context.Context, x int) error {
		if !connected {
			connected = true
			s.Connect(Action(func(ctx context.Context, x int) error {
				added++
				return nil
			}), direct())
		}
		return nil
	}), direct())

	s.Emit(context.Background(), 1)
	if added != 0 {
		t.Errorf("slot connected during an emission must not run in it, ran %d", added)
	}

	s.Emit(context.Background(), 2)
	if added != 1 {
		t.Errorf("expected new slot to run on the next emission, ran %d", added)
	}
}

func TestSignal_Emit_Reentrant(t *testing.T) {
	s := NewSignal[int, int]()

	s.Connect(func(ctx context.Context, n int) (int, error) {
		if n == 0 {
			return 0, nil
		}
		sum, err := s.Emit(ctx, n-1)
		return sum + n, err
	}, direct())

	got, err := s.Emit(context.Background(), 5)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}

func TestSignal_ConcurrentConnectEmit(t *testing.T) {
	s := NewSignal[int, Void]()

	var calls atomic.Int64
	slot := Action(func(ctx context.Context, x int) error {
		calls.Add(int64(x))
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c, err := s.Connect(slot, direct())
				if err != nil {
					t.Error(err)
					return
				}
				c.Disconnect()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Emit(context.Background(), 1)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 0 {
		t.Errorf("expected 0 connections after churn, got %d", s.Len())
	}
	t.Logf("%d slot calls", calls.Load())
}
