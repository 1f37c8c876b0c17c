package composable

import (
	"log/slog"

	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/timer"
)

// nodeConfig holds the settings of a root node.
type nodeConfig struct {
	ob        bus.Observable
	env       *Environment
	acceptKey any
	logger    *slog.Logger
	name      string
}

// Option configures a root node.
type Option func(*nodeConfig)

// WithBus sets the bus the graph publishes on.
// Default: a new bus from the environment, or a synchronous bus.
func WithBus(ob bus.Observable) Option {
	return func(c *nodeConfig) {
		c.ob = ob
	}
}

// WithEnvironment sets the environment supplying the bus, default timer and
// observability.
func WithEnvironment(env *Environment) Option {
	return func(c *nodeConfig) {
		c.env = env
	}
}

// WithAcceptKey makes the root accept values notified on key, so producers
// outside the graph can publish to it directly.
// Default: an anonymous key only the root knows.
func WithAcceptKey(key any) Option {
	return func(c *nodeConfig) {
		c.acceptKey = key
	}
}

// WithLogger sets the logger actions report dropped failures to. A root
// without WithBus or WithEnvironment also gives it to the bus it creates.
// Default: the environment logger, or slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *nodeConfig) {
		c.logger = logger
	}
}

// WithName labels the graph in logs.
// Default: "root"
func WithName(name string) Option {
	return func(c *nodeConfig) {
		c.name = name
	}
}

// timeoutConfig holds Timeout settings.
type timeoutConfig struct {
	timer timer.Timer
}

// TimeoutOption configures Timeout.
type TimeoutOption func(*timeoutConfig)

// WithTimer runs the inactivity check on t instead of the environment timer.
func WithTimer(t timer.Timer) TimeoutOption {
	return func(c *timeoutConfig) {
		c.timer = t
	}
}
