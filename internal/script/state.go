// Package script runs slots written in Lua.
//
// A State owns one sandboxed gopher-lua interpreter. NewSlot and
// NewValueSlot turn a global Lua function into a signal.Slot, so a script
// can react to any signal:
//
//	st, _ := script.NewState()
//	_ = st.DoString(`function on_key(k) emit_log("info", "key " .. k.rune) end`)
//	keys.Connect(script.NewValueSlot[term.KeyEvent](st, "on_key", script.DecodeVoid),
//	    signal.WithMode(signal.Queued), signal.WithDispatcher(scriptDispatcher))
//
// gopher-lua states are single threaded. State serializes calls with a
// mutex, but script slots are best connected Queued to one dedicated
// dispatcher so that Lua never blocks unrelated workers.
package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// DefaultCallTimeout bounds a single Lua call.
const DefaultCallTimeout = 5 * time.Second

// State wraps a gopher-lua state opened with the safe libraries only.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	bridge  *Bridge
	timeout time.Duration
	logger  zerolog.Logger
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallTimeout bounds each Lua call. Zero disables the bound.
func WithCallTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger behind the emit_log function.
func WithLogger(l zerolog.Logger) StateOption {
	return func(s *State) {
		s.logger = l
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{
		timeout: DefaultCallTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	s.L = L
	s.bridge = NewBridge(L)

	openSafeLibraries(L)
	L.SetGlobal("emit_log", L.NewFunction(s.emitLog))

	return s, nil
}

// openSafeLibraries opens base, table, string and math, then removes the
// base functions that load code from disk or strings.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// emitLog implements emit_log(level, message).
func (s *State) emitLog(L *lua.LState) int {
	level, err := zerolog.ParseLevel(L.CheckString(1))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	msg := L.CheckString(2)
	s.logger.WithLevel(level).Str("source", "lua").Msg(msg)
	return 0
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.do(context.Background(), func() error { return s.L.DoFile(path) })
}

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	return s.do(context.Background(), func() error { return s.L.DoString(code) })
}

// HasFunction reports whether name is a global Lua function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call calls a global Lua function with Go arguments and returns its
// results as Go values. It returns an empty slice if the function returns
// nothing.
func (s *State) Call(ctx context.Context, fn string, args ...any) ([]any, error) {
	var results []any
	err := s.do(ctx, func() error {
		fnVal := s.L.GetGlobal(fn)
		if fnVal.Type() != lua.LTFunction {
			return fmt.Errorf("%w: %s", ErrFunctionNotFound, fn)
		}

		// Record stack top before pushing anything
		stackTop := s.L.GetTop()

		s.L.Push(fnVal)
		for _, arg := range args {
			s.L.Push(s.bridge.ToLuaValue(arg))
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		nRet := s.L.GetTop() - stackTop
		results = make([]any, 0, max(nRet, 0))
		for i := 1; i <= nRet; i++ {
			results = append(results, s.bridge.ToGoValue(s.L.Get(stackTop+i)))
		}
		if nRet > 0 {
			s.L.Pop(nRet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// do runs fn under the lock with the call timeout applied and Go panics
// turned into errors.
func (s *State) do(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close releases the interpreter. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
