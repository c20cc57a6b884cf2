package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/signalslot/internal/config/loader"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIGNALSLOT_"

// envShorthands are accepted in addition to SIGNALSLOT_<SECTION>_<KEY>.
var envShorthands = map[string]string{
	EnvPrefix + "LOG_LEVEL":  "logging.level",
	EnvPrefix + "LOG_FORMAT": "logging.format",
	EnvPrefix + "LOG_OUTPUT": "logging.output",
	EnvPrefix + "SCRIPT":     "script.path",
}

// Load reads the configuration file at path on top of Default, applies
// environment overrides and validates the result. An empty path or a
// missing file yields the defaults plus the environment. Parse failures are
// returned as *ParseError.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := loader.New(path).Load(&cfg); err != nil {
			return Config{}, err
		}
	}

	env := loader.NewEnvLoaderWithMapping(EnvPrefix, envShorthands)
	if err := cfg.applyEnv(env.Load()); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv sets the settings named by the keys of values. Unknown paths are
// ignored so that unrelated SIGNALSLOT_ variables do not break loading.
func (c *Config) applyEnv(values map[string]string) error {
	setters := c.setters()
	var errs []error
	for path, raw := range values {
		set, ok := setters[path]
		if !ok {
			continue
		}
		if err := set(raw); err != nil {
			errs = append(errs, &EnvError{Path: path, Value: raw, Err: err})
		}
	}
	return errors.Join(errs...)
}

// setters maps config paths to functions that parse and assign a raw value.
func (c *Config) setters() map[string]func(string) error {
	return map[string]func(string) error{
		"dispatcher.queue_warn_threshold": intSetter(&c.Dispatcher.QueueWarnThreshold),
		"dispatcher.stop_timeout":         durationSetter(&c.Dispatcher.StopTimeout),
		"dispatcher.slot_timeout":         durationSetter(&c.Dispatcher.SlotTimeout),
		"logging.level":                   stringSetter(&c.Logging.Level),
		"logging.format":                  stringSetter(&c.Logging.Format),
		"logging.output":                  stringSetter(&c.Logging.Output),
		"script.path":                     stringSetter(&c.Script.Path),
		"terminal.enabled":                boolSetter(&c.Terminal.Enabled),
		"terminal.quit_key":               stringSetter(&c.Terminal.QuitKey),
		"watch.enabled":                   boolSetter(&c.Watch.Enabled),
		"watch.debounce":                  durationSetter(&c.Watch.Debounce),
	}
}

func stringSetter(dst *string) func(string) error {
	return func(s string) error {
		*dst = s
		return nil
	}
}

func intSetter(dst *int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		*dst = v
		return nil
	}
}

func boolSetter(dst *bool) func(string) error {
	return func(s string) error {
		v, err := loader.ParseBool(s)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func durationSetter(dst *Duration) func(string) error {
	return func(s string) error {
		v, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*dst = Duration(v)
		return nil
	}
}
