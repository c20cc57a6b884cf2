package signal

import "github.com/rs/zerolog"

// ConnectOption configures a single connection.
type ConnectOption func(*connectConfig)

// connectConfig contains the routing choices of a connection.
type connectConfig struct {
	mode       ConnectionMode
	dispatcher *Dispatcher
}

// WithMode sets the connection mode. The default is Auto.
func WithMode(m ConnectionMode) ConnectOption {
	return func(c *connectConfig) {
		c.mode = m
	}
}

// WithDispatcher sets the dispatcher used when the connection resolves to a
// queued mode. Without it the signal's default dispatcher is used.
func WithDispatcher(d *Dispatcher) ConnectOption {
	return func(c *connectConfig) {
		if d != nil {
			c.dispatcher = d
		}
	}
}

// SignalOption configures a Signal.
type SignalOption func(*signalConfig)

// signalConfig contains configuration shared by all connections of a signal.
type signalConfig struct {
	name       string
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

// defaultSignalConfig returns the configuration of an unnamed signal that
// routes to the process-wide default dispatcher.
func defaultSignalConfig() signalConfig {
	return signalConfig{
		logger: zerolog.Nop(),
	}
}

// WithSignalName names the signal for logging.
func WithSignalName(name string) SignalOption {
	return func(c *signalConfig) {
		c.name = name
	}
}

// WithDefaultDispatcher sets the dispatcher used by connections of this
// signal that do not name one, instead of DefaultDispatcher().
func WithDefaultDispatcher(d *Dispatcher) SignalOption {
	return func(c *signalConfig) {
		c.dispatcher = d
	}
}

// WithSignalLogger sets the logger used for connection lifecycle messages.
func WithSignalLogger(l zerolog.Logger) SignalOption {
	return func(c *signalConfig) {
		c.logger = l
	}
}
