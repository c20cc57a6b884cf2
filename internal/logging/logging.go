// Package logging builds the zerolog logger shared by all components.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/signalslot/internal/config"
)

// TimeFormat is used for console output.
const TimeFormat = "2006-01-02T15:04:05.000"

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the application logger. Its level can be changed at run time
// and the change applies to every logger derived from it.
type Logger struct {
	zerolog.Logger

	level *atomic.Int32
	file  *os.File
}

// levelHook discards events below the current level.
type levelHook struct {
	level *atomic.Int32
}

// Run implements zerolog.Hook.
func (h levelHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel && level < zerolog.Level(h.level.Load()) {
		e.Discard()
	}
}

// New creates a logger from cfg. Output "stderr" and "stdout" name the
// standard streams; anything else is a file opened for appending.
func New(cfg config.LoggingConfig) (*Logger, error) {
	var (
		w    io.Writer
		file *os.File
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		w, file = f, f
	}

	return newLogger(w, cfg.Format, ParseLevel(cfg.Level), file), nil
}

// NewWriter creates a logger writing to w, mainly for tests.
func NewWriter(w io.Writer, format string, level zerolog.Level) *Logger {
	return newLogger(w, format, level, nil)
}

func newLogger(w io.Writer, format string, level zerolog.Level, file *os.File) *Logger {
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: TimeFormat,
			NoColor:    file != nil,
		}
	}

	l := &Logger{level: new(atomic.Int32), file: file}
	l.level.Store(int32(level))
	l.Logger = zerolog.New(w).Hook(levelHook{level: l.level}).With().Timestamp().Logger()
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := &Logger{Logger: zerolog.Nop(), level: new(atomic.Int32)}
	l.level.Store(int32(zerolog.Disabled))
	return l
}

// SetLevel changes the minimum level for this logger and all loggers
// derived from it.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level.Store(int32(level))
}

// CurrentLevel returns the current minimum level.
func (l *Logger) CurrentLevel() zerolog.Level {
	return zerolog.Level(l.level.Load())
}

// Component returns a logger with the component field set.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Sync()
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

