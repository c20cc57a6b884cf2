package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/signalslot/internal/signal"
)

// Signal names accepted by script bindings.
const (
	SignalKey    = "key"
	SignalResize = "resize"
)

// Dispatcher names accepted by script bindings.
const (
	DispatcherScript = "script"
	DispatcherUI     = "ui"
)

// Config is the complete signalslot configuration.
type Config struct {
	Dispatcher DispatcherConfig `toml:"dispatcher" yaml:"dispatcher"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	Script     ScriptConfig     `toml:"script" yaml:"script"`
	Terminal   TerminalConfig   `toml:"terminal" yaml:"terminal"`
	Watch      WatchConfig      `toml:"watch" yaml:"watch"`
}

// DispatcherConfig configures the dispatchers created by the application.
type DispatcherConfig struct {
	// QueueWarnThreshold logs a warning when a queue grows past this depth.
	// Zero disables the warning.
	QueueWarnThreshold int `toml:"queue_warn_threshold" yaml:"queue_warn_threshold"`

	// StopTimeout bounds how long shutdown waits for each worker to exit.
	StopTimeout Duration `toml:"stop_timeout" yaml:"stop_timeout"`

	// SlotTimeout bounds the context of each queued slot. Zero leaves
	// slots unbounded.
	SlotTimeout Duration `toml:"slot_timeout" yaml:"slot_timeout"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`

	// Format is console or json.
	Format string `toml:"format" yaml:"format"`

	// Output is stderr, stdout or a file path.
	Output string `toml:"output" yaml:"output"`
}

// ScriptConfig configures Lua-scripted slots.
type ScriptConfig struct {
	// Path is the Lua file to load. Empty disables scripting.
	Path string `toml:"path" yaml:"path"`

	// Bindings connect application signals to Lua functions.
	Bindings []Binding `toml:"bindings" yaml:"bindings"`
}

// Binding connects one signal to one global Lua function.
type Binding struct {
	// Signal is SignalKey or SignalResize.
	Signal string `toml:"signal" yaml:"signal"`

	// Function is the name of a global Lua function.
	Function string `toml:"function" yaml:"function"`

	// Mode is a connection mode name; see signal.ParseConnectionMode.
	Mode string `toml:"mode" yaml:"mode"`

	// Dispatcher is DispatcherScript (the default) or DispatcherUI, which
	// runs the function on the terminal event loop.
	Dispatcher string `toml:"dispatcher" yaml:"dispatcher"`
}

// TerminalConfig configures the terminal front end.
type TerminalConfig struct {
	// Enabled starts the terminal event loop. When false the application
	// runs headless until its context ends.
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// QuitKey is the key that ends the application.
	QuitKey string `toml:"quit_key" yaml:"quit_key"`
}

// WatchConfig configures live reload of the configuration file.
type WatchConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Debounce coalesces bursts of file events.
	Debounce Duration `toml:"debounce" yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Dispatcher: DispatcherConfig{
			QueueWarnThreshold: 1024,
			StopTimeout:        Duration(2 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Terminal: TerminalConfig{
			Enabled: true,
			QuitKey: "q",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: Duration(100 * time.Millisecond),
		},
	}
}

var (
	validLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validFormats = []string{"console", "json"}
)

// Validate checks every setting and returns all failures joined. Each
// failure is a *ValidationError matching ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	fail := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if c.Dispatcher.QueueWarnThreshold < 0 {
		fail("dispatcher.queue_warn_threshold", "must not be negative", c.Dispatcher.QueueWarnThreshold)
	}
	if c.Dispatcher.StopTimeout < 0 {
		fail("dispatcher.stop_timeout", "must not be negative", c.Dispatcher.StopTimeout)
	}
	if c.Dispatcher.SlotTimeout < 0 {
		fail("dispatcher.slot_timeout", "must not be negative", c.Dispatcher.SlotTimeout)
	}

	if !oneOf(c.Logging.Level, validLevels) {
		fail("logging.level", "must be one of "+strings.Join(validLevels, ", "), c.Logging.Level)
	}
	if !oneOf(c.Logging.Format, validFormats) {
		fail("logging.format", "must be one of "+strings.Join(validFormats, ", "), c.Logging.Format)
	}
	if strings.TrimSpace(c.Logging.Output) == "" {
		fail("logging.output", "must not be empty", c.Logging.Output)
	}

	for i, b := range c.Script.Bindings {
		path := fmt.Sprintf("script.bindings[%d]", i)
		if b.Signal != SignalKey && b.Signal != SignalResize {
			fail(path+".signal", "must be key or resize", b.Signal)
		}
		if b.Function == "" {
			fail(path+".function", "must not be empty", b.Function)
		}
		mode, err := signal.ParseConnectionMode(b.Mode)
		if err != nil {
			fail(path+".mode", err.Error(), b.Mode)
		}
		switch b.Dispatcher {
		case "", DispatcherScript:
		case DispatcherUI:
			// Terminal signals are emitted on the event loop the ui
			// dispatcher runs on.
			if mode == signal.BlockingQueued {
				fail(path+".mode", "blocking_queued would deadlock the ui dispatcher", b.Mode)
			}
		default:
			fail(path+".dispatcher", "must be script or ui", b.Dispatcher)
		}
	}
	if len(c.Script.Bindings) > 0 && c.Script.Path == "" {
		fail("script.path", "bindings require a script", c.Script.Path)
	}

	if c.Terminal.Enabled && len([]rune(c.Terminal.QuitKey)) != 1 {
		fail("terminal.quit_key", "must be a single character", c.Terminal.QuitKey)
	}

	if c.Watch.Debounce < 0 {
		fail("watch.debounce", "must not be negative", c.Watch.Debounce)
	}

	return errors.Join(errs...)
}

// oneOf reports whether s matches one of options, ignoring case.
func oneOf(s string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}
