// Package app wires the signalslot components together and manages the
// application lifecycle.
//
// Component roles:
//   - the default dispatcher applies configuration reloads
//   - the "script" dispatcher serializes every Lua slot
//   - the "ui" dispatcher runs its slots on the terminal event loop
package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/signalslot/internal/config"
	"github.com/dshills/signalslot/internal/config/watcher"
	"github.com/dshills/signalslot/internal/logging"
	"github.com/dshills/signalslot/internal/script"
	"github.com/dshills/signalslot/internal/signal"
	"github.com/dshills/signalslot/internal/term"

	"github.com/gdamore/tcell/v2"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses the
	// defaults and disables live reload.
	ConfigPath string

	// LogLevel overrides logging.level, including on reload.
	LogLevel string

	// ScriptPath overrides script.path.
	ScriptPath string

	// Screen replaces the real terminal when the terminal is enabled.
	Screen tcell.Screen
}

// Application is the central coordinator for all components.
type Application struct {
	opts Options

	mu  sync.RWMutex
	cfg config.Config

	log    *logging.Logger
	logger zerolog.Logger

	scriptDispatcher *signal.Dispatcher
	uiDispatcher     *signal.Dispatcher

	state   *script.State
	term    *term.Terminal
	watcher *watcher.Watcher

	// disconnects undoes every connection made during bootstrap.
	disconnects []func()

	scriptFailures atomic.Int64

	running      atomic.Bool
	done         chan struct{}
	shutdownOnce sync.Once
}

// New creates an Application with the given options. On error every
// component started so far is shut down again.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:   opts,
		logger: zerolog.Nop(),
		done:   make(chan struct{}),
	}

	if err := app.bootstrap(); err != nil {
		app.shutdown()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	if app.opts.LogLevel != "" {
		cfg.Logging.Level = app.opts.LogLevel
	}
	if app.opts.ScriptPath != "" {
		cfg.Script.Path = app.opts.ScriptPath
	}
	if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.cfg = cfg

	// 2. Logging
	app.log, err = logging.New(cfg.Logging)
	if err != nil {
		return &InitError{Component: "logging", Err: err}
	}
	app.logger = app.log.Component("app")

	// 3. Dispatchers
	common := []signal.DispatcherOption{
		signal.WithLogger(app.log.Component("dispatcher")),
		signal.WithQueueWarnThreshold(cfg.Dispatcher.QueueWarnThreshold),
		signal.WithSlotTimeout(cfg.Dispatcher.SlotTimeout.Std()),
	}
	signal.ConfigureDefault(common...)

	app.scriptDispatcher = signal.NewDispatcher(append(common, signal.WithName("script"))...)
	track(app, app.scriptDispatcher.OnError(), func(err error) {
		app.scriptFailures.Add(1)
	})
	app.scriptDispatcher.Start()

	// 4. Terminal
	if cfg.Terminal.Enabled {
		if err := app.initTerminal(common); err != nil {
			return &InitError{Component: "terminal", Err: err}
		}
	}

	// 5. Script
	if cfg.Script.Path != "" {
		if err := app.initScript(); err != nil {
			return &InitError{Component: "script", Err: err}
		}
	}

	// 6. Live reload
	if cfg.Watch.Enabled && app.opts.ConfigPath != "" {
		if err := app.initWatcher(); err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}

	app.logger.Info().
		Str("config", app.opts.ConfigPath).
		Str("script", cfg.Script.Path).
		Bool("terminal", cfg.Terminal.Enabled).
		Msg("application initialized")
	return nil
}

func (app *Application) initTerminal(common []signal.DispatcherOption) error {
	status := "signalslot: press " + app.cfg.Terminal.QuitKey + " to quit"
	opts := []term.Option{
		term.WithQuitKey([]rune(app.cfg.Terminal.QuitKey)[0]),
		term.WithStatus(status),
		term.WithLogger(app.log.Component("terminal")),
	}
	if app.opts.Screen != nil {
		opts = append(opts, term.WithScreen(app.opts.Screen))
	}

	t, err := term.New(opts...)
	if err != nil {
		return err
	}
	app.term = t

	app.uiDispatcher = signal.NewDispatcher(append(common,
		signal.WithName("ui"),
		signal.WithContextSwitcher(t),
	)...)
	app.uiDispatcher.Start()

	// Drawing happens on the event loop only.
	track(app, t.KeyPressed, func(k term.KeyEvent) {
		t.SetStatus(status + " | last key: " + k.String())
	}, signal.WithMode(signal.Queued), signal.WithDispatcher(app.uiDispatcher))
	return nil
}

func (app *Application) initScript() error {
	state, err := script.NewState(script.WithLogger(app.log.Component("script")))
	if err != nil {
		return err
	}
	app.state = state

	if err := state.DoFile(app.cfg.Script.Path); err != nil {
		return err
	}
	for i, b := range app.cfg.Script.Bindings {
		if err := app.bind(b); err != nil {
			return &BindingError{Index: i, Signal: b.Signal, Function: b.Function, Err: err}
		}
	}
	return nil
}

func (app *Application) initWatcher() error {
	w, err := watcher.New(app.opts.ConfigPath,
		watcher.WithDebounce(app.cfg.Watch.Debounce.Std()),
		watcher.WithLogger(app.log.Component("watcher")),
	)
	if err != nil {
		return err
	}
	app.watcher = w

	// Reloads are applied on the default dispatcher, off the watcher's
	// goroutine.
	track(app, w.Changed, app.applyConfig, signal.WithMode(signal.Queued))
	track(app, w.Failed, func(err error) {
		app.logger.Warn().Err(err).Msg("config reload failed")
	}, signal.WithMode(signal.Queued))
	return nil
}

// applyConfig adopts a reloaded configuration. Only the log level is live.
func (app *Application) applyConfig(cfg config.Config) {
	if app.opts.LogLevel != "" {
		cfg.Logging.Level = app.opts.LogLevel
	}
	if app.opts.ScriptPath != "" {
		cfg.Script.Path = app.opts.ScriptPath
	}

	app.mu.Lock()
	app.cfg = cfg
	app.mu.Unlock()

	level := logging.ParseLevel(cfg.Logging.Level)
	if level != app.log.CurrentLevel() {
		app.log.SetLevel(level)
		app.logger.Info().Str("level", level.String()).Msg("log level changed")
	}
}

// track connects a void callback and remembers the connection for shutdown.
func track[A any](app *Application, s *signal.Signal[A, signal.Void], fn func(A), opts ...signal.ConnectOption) {
	// The slot is never nil, so Connect cannot fail.
	conn, _ := s.Connect(signal.Action(func(_ context.Context, v A) error {
		fn(v)
		return nil
	}), opts...)
	app.disconnects = append(app.disconnects, conn.Disconnect)
}

// Config returns the current configuration.
func (app *Application) Config() config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.cfg
}

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger {
	return app.log
}

// Script returns the Lua state, or nil when no script is configured.
func (app *Application) Script() *script.State {
	return app.state
}

// Terminal returns the terminal, or nil when running headless.
func (app *Application) Terminal() *term.Terminal {
	return app.term
}

// ScriptDispatcher returns the dispatcher running Lua slots.
func (app *Application) ScriptDispatcher() *signal.Dispatcher {
	return app.scriptDispatcher
}

// UIDispatcher returns the dispatcher running slots on the terminal event
// loop, or nil when running headless.
func (app *Application) UIDispatcher() *signal.Dispatcher {
	return app.uiDispatcher
}

// ScriptFailures returns how many queued Lua slots have failed.
func (app *Application) ScriptFailures() int64 {
	return app.scriptFailures.Load()
}
