// Package term connects a tcell screen to signals.
//
// A Terminal emits KeyPressed and Resized from its event loop and doubles as
// a signal.ContextSwitcher: a Dispatcher created with
// signal.WithContextSwitcher(t) actuates its slots on the goroutine running
// Terminal.Run, which is the only goroutine allowed to draw.
package term

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/signalslot/internal/signal"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("terminal closed")

// postRetry is the pause between attempts to post into a full event queue.
const postRetry = time.Millisecond

// Size is a screen size in cells.
type Size struct {
	Width  int `lua:"width"`
	Height int `lua:"height"`
}

// KeyEvent describes one key press.
type KeyEvent struct {
	// Name is the tcell key name, or "Rune" for printable characters.
	Name string `lua:"name"`

	// Rune is the typed character, empty for special keys.
	Rune string `lua:"rune"`

	Ctrl  bool `lua:"ctrl"`
	Alt   bool `lua:"alt"`
	Shift bool `lua:"shift"`
}

// quitRequest is posted to end the event loop.
type quitRequest struct{}

// Terminal owns a tcell screen and its event loop.
type Terminal struct {
	// KeyPressed is emitted for every key except the quit keys.
	KeyPressed *signal.Signal[KeyEvent, signal.Void]

	// Resized is emitted when the screen size changes.
	Resized *signal.Signal[Size, signal.Void]

	screen  tcell.Screen
	quitKey rune
	logger  zerolog.Logger

	// mu guards the screen and status.
	mu      sync.Mutex
	status  string
	inited  bool
	running atomic.Bool
	closed  atomic.Bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithScreen uses screen instead of the real terminal.
func WithScreen(screen tcell.Screen) Option {
	return func(t *Terminal) {
		t.screen = screen
	}
}

// WithQuitKey sets the key that ends Run. Ctrl-C always ends Run.
func WithQuitKey(r rune) Option {
	return func(t *Terminal) {
		t.quitKey = r
	}
}

// WithStatus sets the text drawn on the first line.
func WithStatus(text string) Option {
	return func(t *Terminal) {
		t.status = text
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Terminal) {
		t.logger = l
	}
}

// New creates a terminal. The screen is not touched until Init.
func New(opts ...Option) (*Terminal, error) {
	t := &Terminal{
		quitKey: 'q',
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, err
		}
		t.screen = screen
	}

	t.KeyPressed = signal.NewSignal[KeyEvent, signal.Void](
		signal.WithSignalName("term.key"), signal.WithSignalLogger(t.logger))
	t.Resized = signal.NewSignal[Size, signal.Void](
		signal.WithSignalName("term.resize"), signal.WithSignalLogger(t.logger))
	return t, nil
}

// Init initializes the screen.
func (t *Terminal) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return ErrClosed
	}
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.inited = true
	t.screen.EnablePaste()
	return nil
}

// Screen returns the underlying screen. Draw only from slots running on a
// dispatcher that uses this terminal as its context switcher.
func (t *Terminal) Screen() tcell.Screen {
	return t.screen
}

// Size returns the current screen size.
func (t *Terminal) Size() Size {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, h := t.screen.Size()
	return Size{Width: w, Height: h}
}

// SwitchContext implements signal.ContextSwitcher. While Run is active,
// dispatch is posted to the event loop; otherwise it runs on the caller.
func (t *Terminal) SwitchContext(dispatch func()) {
	for t.running.Load() {
		if err := t.screen.PostEvent(tcell.NewEventInterrupt(dispatch)); err == nil {
			return
		}
		// Queue full.
		time.Sleep(postRetry)
	}
	dispatch()
}

// Run polls screen events until the quit key, Ctrl-C, ctx ends or Close.
// Key and resize events are emitted on the signals with ctx; interrupts
// posted by SwitchContext are dispatched in order.
func (t *Terminal) Run(ctx context.Context) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if !t.running.CompareAndSwap(false, true) {
		return errors.New("terminal already running")
	}
	defer t.running.Store(false)

	stop := context.AfterFunc(ctx, func() {
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(quitRequest{}))
	})
	defer stop()

	t.draw()

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			// Fini was called.
			return ErrClosed
		}

		switch e := ev.(type) {
		case *tcell.EventInterrupt:
			switch data := e.Data().(type) {
			case func():
				data()
			case quitRequest:
				return ctx.Err()
			}

		case *tcell.EventKey:
			if t.isQuit(e) {
				t.logger.Debug().Msg("quit key pressed")
				return nil
			}
			t.emit("key", func() error {
				_, err := t.KeyPressed.Emit(ctx, keyEvent(e))
				return err
			})

		case *tcell.EventResize:
			w, h := e.Size()
			t.screen.Sync()
			t.draw()
			t.emit("resize", func() error {
				_, err := t.Resized.Emit(ctx, Size{Width: w, Height: h})
				return err
			})
		}
	}
}

// SetStatus replaces the status line and redraws it while Run is active.
func (t *Terminal) SetStatus(text string) {
	t.mu.Lock()
	t.status = text
	t.mu.Unlock()

	if t.running.Load() {
		t.draw()
	}
}

// Status returns the status line text.
func (t *Terminal) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Running reports whether Run is active.
func (t *Terminal) Running() bool {
	return t.running.Load()
}

// Close restores the terminal and ends Run. It is safe to call more than
// once, and before Init.
func (t *Terminal) Close() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inited {
		t.screen.Fini()
	}
}

// emit logs slot errors instead of ending the loop.
func (t *Terminal) emit(kind string, fn func() error) {
	if err := fn(); err != nil {
		t.logger.Warn().Err(err).Str("event", kind).Msg("slot failed")
	}
}

func (t *Terminal) isQuit(e *tcell.EventKey) bool {
	if e.Key() == tcell.KeyCtrlC {
		return true
	}
	return e.Key() == tcell.KeyRune && e.Modifiers() == tcell.ModNone && e.Rune() == t.quitKey
}

// draw writes the status line.
func (t *Terminal) draw() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == "" || t.closed.Load() {
		return
	}

	t.screen.Clear()
	w, _ := t.screen.Size()
	style := tcell.StyleDefault.Reverse(true)
	x := 0
	for _, r := range t.status {
		if x >= w {
			break
		}
		t.screen.SetContent(x, 0, r, nil, style)
		x++
	}
	for ; x < w; x++ {
		t.screen.SetContent(x, 0, ' ', nil, style)
	}
	t.screen.Show()
}

// String returns a short label such as "Ctrl+Up" or "x".
func (k KeyEvent) String() string {
	var b strings.Builder
	if k.Ctrl {
		b.WriteString("Ctrl+")
	}
	if k.Alt {
		b.WriteString("Alt+")
	}
	if k.Shift {
		b.WriteString("Shift+")
	}
	if k.Name == "Rune" {
		b.WriteString(k.Rune)
	} else {
		b.WriteString(k.Name)
	}
	return b.String()
}

func keyEvent(e *tcell.EventKey) KeyEvent {
	mods := e.Modifiers()
	ke := KeyEvent{
		Ctrl:  mods&tcell.ModCtrl != 0,
		Alt:   mods&tcell.ModAlt != 0,
		Shift: mods&tcell.ModShift != 0,
	}
	if e.Key() == tcell.KeyRune {
		ke.Name = "Rune"
		ke.Rune = string(e.Rune())
		return ke
	}
	if name, ok := tcell.KeyNames[e.Key()]; ok {
		ke.Name = name
	} else {
		ke.Name = e.Name()
	}
	return ke
}
