package app

import (
	"context"
	"errors"

	"github.com/dshills/signalslot/internal/signal"
	"github.com/dshills/signalslot/internal/term"
)

// Run drives the terminal event loop until the quit key, ctx ends or
// Shutdown. Without a terminal it waits for ctx or Shutdown. A normal quit
// returns nil.
func (app *Application) Run(ctx context.Context) error {
	select {
	case <-app.done:
		return ErrShutdown
	default:
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if app.term == nil {
		select {
		case <-ctx.Done():
		case <-app.done:
		}
		return nil
	}

	if err := app.term.Init(); err != nil {
		if errors.Is(err, term.ErrClosed) {
			return nil
		}
		return &InitError{Component: "terminal", Err: err}
	}
	defer app.term.Close()

	err := app.term.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, term.ErrClosed):
		app.logger.Info().Msg("event loop finished")
		return nil
	default:
		return err
	}
}

// Running reports whether Run is active.
func (app *Application) Running() bool {
	return app.running.Load()
}

// Shutdown stops every component in reverse initialization order. It is
// safe to call more than once and from any goroutine.
func (app *Application) Shutdown() {
	app.shutdownOnce.Do(func() {
		close(app.done)
		app.shutdown()
	})
}

// shutdown tolerates partially initialized applications.
func (app *Application) shutdown() {
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Warn().Err(err).Msg("closing config watcher")
		}
	}
	if app.term != nil {
		app.term.Close()
	}

	for _, disconnect := range app.disconnects {
		disconnect()
	}
	app.disconnects = nil

	timeout := app.cfg.Dispatcher.StopTimeout.Std()
	for _, d := range []*signal.Dispatcher{app.uiDispatcher, app.scriptDispatcher} {
		if d == nil {
			continue
		}
		d.Stop()

		ctx, cancel := context.Background(), context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		}
		if err := d.Wait(ctx); err != nil {
			app.logger.Warn().Str("dispatcher", d.Name()).Msg("dispatcher did not stop in time")
		}
		cancel()
	}

	if app.state != nil {
		_ = app.state.Close()
	}

	app.logger.Info().Msg("application stopped")
	if app.log != nil {
		_ = app.log.Close()
	}
}
