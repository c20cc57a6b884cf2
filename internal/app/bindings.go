package app

import (
	"fmt"

	"github.com/dshills/signalslot/internal/config"
	"github.com/dshills/signalslot/internal/script"
	"github.com/dshills/signalslot/internal/signal"
	"github.com/dshills/signalslot/internal/term"
)

// bind connects one configured signal to a Lua function on the dispatcher
// the binding names.
func (app *Application) bind(b config.Binding) error {
	if !app.state.HasFunction(b.Function) {
		return fmt.Errorf("%w: %s", script.ErrFunctionNotFound, b.Function)
	}
	mode, err := signal.ParseConnectionMode(b.Mode)
	if err != nil {
		return err
	}
	if app.term == nil {
		app.logger.Warn().
			Str("signal", b.Signal).
			Str("function", b.Function).
			Msg("terminal disabled, binding skipped")
		return nil
	}

	d := app.scriptDispatcher
	if b.Dispatcher == config.DispatcherUI {
		d = app.uiDispatcher
	}
	opts := []signal.ConnectOption{
		signal.WithMode(mode),
		signal.WithDispatcher(d),
	}

	switch b.Signal {
	case config.SignalKey:
		conn, err := app.term.KeyPressed.Connect(
			script.NewValueSlot[term.KeyEvent](app.state, b.Function, script.DecodeVoid), opts...)
		if err != nil {
			return err
		}
		app.disconnects = append(app.disconnects, conn.Disconnect)

	case config.SignalResize:
		conn, err := app.term.Resized.Connect(
			script.NewValueSlot[term.Size](app.state, b.Function, script.DecodeVoid), opts...)
		if err != nil {
			return err
		}
		app.disconnects = append(app.disconnects, conn.Disconnect)

	default:
		return fmt.Errorf("unknown signal %q", b.Signal)
	}

	app.logger.Debug().
		Str("signal", b.Signal).
		Str("function", b.Function).
		Str("mode", mode.String()).
		Str("dispatcher", d.Name()).
		Msg("script binding connected")
	return nil
}
