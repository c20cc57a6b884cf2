// Package watcher reloads the configuration file when it changes.
//
// The watcher is an event source: every successful reload is emitted on
// Changed and every failure on Failed. Consumers connect ordinary slots and
// choose, through the connection mode, where the new configuration is
// applied.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dshills/signalslot/internal/config"
	"github.com/dshills/signalslot/internal/signal"
)

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last file event before the
// file is reloaded.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDispatcher sets the dispatcher used by connections to Changed and
// Failed that do not name one.
func WithDispatcher(d *signal.Dispatcher) Option {
	return func(w *Watcher) {
		w.dispatcher = d
	}
}

// WithLoader replaces config.Load, mainly for tests.
func WithLoader(load func(path string) (config.Config, error)) Option {
	return func(w *Watcher) {
		if load != nil {
			w.load = load
		}
	}
}

// Watcher monitors one configuration file.
type Watcher struct {
	mu sync.Mutex

	path       string
	debounce   time.Duration
	logger     zerolog.Logger
	dispatcher *signal.Dispatcher
	load       func(path string) (config.Config, error)

	fsw *fsnotify.Watcher

	// Changed carries each successfully reloaded configuration.
	Changed *signal.Signal[config.Config, signal.Void]

	// Failed carries reload and file watching errors.
	Failed *signal.Signal[error, signal.Void]

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeWg sync.WaitGroup
}

// New watches the file at path. The containing directory is watched so
// that editors replacing the file atomically are noticed; the file itself
// need not exist yet.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		debounce: 100 * time.Millisecond,
		logger:   zerolog.Nop(),
		load:     config.Load,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With().Str("component", "config-watcher").Logger()

	sigOpts := []signal.SignalOption{signal.WithSignalLogger(w.logger)}
	if w.dispatcher != nil {
		sigOpts = append(sigOpts, signal.WithDefaultDispatcher(w.dispatcher))
	}
	w.Changed = signal.NewSignal[config.Config, signal.Void](append(sigOpts, signal.WithSignalName("config.changed"))...)
	w.Failed = signal.NewSignal[error, signal.Void](append(sigOpts, signal.WithSignalName("config.failed"))...)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.closeWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Reload loads the file now and emits the outcome.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrWatcherClosed
	}

	w.reload()
	return nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.closeWg.Wait()
	return w.fsw.Close()
}

// processLoop turns file events into debounced reloads.
func (w *Watcher) processLoop() {
	defer w.closeWg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug().Str("op", ev.Op.String()).Msg("config file event")
			if w.debounce == 0 {
				w.reload()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
			w.emitFailure(err)
		}
	}
}

// relevant reports whether ev changes the watched file's content.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// reload loads the file and emits the result.
func (w *Watcher) reload() {
	cfg, err := w.load(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("config reload failed")
		w.emitFailure(err)
		return
	}

	w.logger.Info().Str("path", w.path).Msg("config reloaded")
	if _, err := w.Changed.Emit(w.ctx, cfg); err != nil {
		w.logger.Error().Err(err).Msg("config change slot failed")
	}
}

// emitFailure emits err on Failed.
func (w *Watcher) emitFailure(err error) {
	if _, emitErr := w.Failed.Emit(w.ctx, err); emitErr != nil {
		w.logger.Error().Err(emitErr).Msg("config failure slot failed")
	}
}
