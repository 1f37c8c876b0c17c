package composable

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/config"
	"github.com/randalmurphal/composable/pkg/composable/observability"
	"github.com/randalmurphal/composable/pkg/composable/timer"
)

// Environment bundles what a family of graphs shares: the dispatcher behind
// the buses it creates, the default timer for Timeout, and the logger,
// metrics and spans threaded into every bus and action.
type Environment struct {
	dispatcher bus.Dispatcher
	timer      timer.Timer
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager

	mu      sync.Mutex
	buses   []*bus.Bus
	closers []func() error
	closed  bool
}

// EnvOption configures an Environment.
type EnvOption func(*Environment)

// WithDispatcher sets the dispatcher shared by the environment's buses.
// The environment closes it on Close.
// Default: a SyncDispatcher.
func WithDispatcher(d bus.Dispatcher) EnvOption {
	return func(e *Environment) {
		e.dispatcher = d
	}
}

// WithRootTimer sets the default timer used by Timeout.
// Default: a timer.Standard owned by the environment.
func WithRootTimer(t timer.Timer) EnvOption {
	return func(e *Environment) {
		e.timer = t
	}
}

// WithEnvLogger sets the logger for buses and actions.
// Default: slog.Default()
func WithEnvLogger(logger *slog.Logger) EnvOption {
	return func(e *Environment) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) EnvOption {
	return func(e *Environment) {
		e.metrics = m
	}
}

// WithSpans enables a span per delivery.
func WithSpans(s observability.SpanManager) EnvOption {
	return func(e *Environment) {
		e.spans = s
	}
}

// NewEnvironment creates an environment.
func NewEnvironment(opts ...EnvOption) *Environment {
	e := &Environment{}
	for _, opt := range opts {
		opt(e)
	}
	if e.dispatcher == nil {
		e.dispatcher = bus.NewSyncDispatcher()
	}
	e.closers = append(e.closers, e.dispatcher.Close)
	if e.timer == nil {
		std := timer.NewStandard()
		e.timer = std
		e.closers = append(e.closers, std.Close)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = observability.NoopMetrics{}
	}
	return e
}

// Settings is the decoded form of an environment configuration.
type Settings struct {
	// Dispatcher is "sync" (default) or "worker".
	Dispatcher string `mapstructure:"dispatcher"`
	// Workers is the lane count for the worker dispatcher.
	Workers int `mapstructure:"workers"`
	Timer   struct {
		// Resolution rounds timeout checks up to this granularity.
		Resolution time.Duration `mapstructure:"resolution"`
	} `mapstructure:"timer"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Tracing struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"tracing"`
	Log struct {
		// Level is the minimum level of a JSON logger on stderr.
		// Empty keeps the default logger.
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// EnvironmentFromConfig builds an environment from configuration.
// See Settings for the recognized keys.
func EnvironmentFromConfig(cfg config.Config) (*Environment, error) {
	var s Settings
	if err := cfg.Decode(&s); err != nil {
		return nil, err
	}
	return EnvironmentFromSettings(s)
}

// EnvironmentFromSettings builds an environment from decoded settings.
func EnvironmentFromSettings(s Settings) (*Environment, error) {
	var opts []EnvOption

	switch s.Dispatcher {
	case "", "sync":
	case "worker":
		workers := s.Workers
		if workers <= 0 {
			workers = bus.DefaultWorkerDispatcherConfig.Workers
		}
		opts = append(opts, WithDispatcher(bus.NewWorkerDispatcher(bus.WorkerDispatcherConfig{
			Workers: workers,
		})))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDispatcher, s.Dispatcher)
	}

	if s.Log.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		opts = append(opts, WithEnvLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))))
	}

	if s.Timer.Resolution > 0 {
		std := timer.NewStandard()
		opts = append(opts, WithRootTimer(timer.WithResolution(std, s.Timer.Resolution)), withCloser(std.Close))
	}

	if s.Metrics.Enabled {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}
	if s.Tracing.Enabled {
		opts = append(opts, WithSpans(observability.NewSpanManager()))
	}

	return NewEnvironment(opts...), nil
}

func withCloser(fn func() error) EnvOption {
	return func(e *Environment) {
		e.closers = append(e.closers, fn)
	}
}

// NewBus creates a bus sharing the environment's dispatcher and observability.
// The environment closes it on Close.
func (e *Environment) NewBus() *bus.Bus {
	b := bus.New(bus.Config{
		Dispatcher: e.dispatcher,
		Logger:     e.logger,
		Metrics:    e.metrics,
		Spans:      e.spans,
	})
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		_ = b.Close()
		return b
	}
	e.buses = append(e.buses, b)
	return b
}

// Timer returns the default timer.
func (e *Environment) Timer() timer.Timer {
	return e.timer
}

// Dispatcher returns the shared dispatcher.
func (e *Environment) Dispatcher() bus.Dispatcher {
	return e.dispatcher
}

// Logger returns the environment logger.
func (e *Environment) Logger() *slog.Logger {
	return e.logger
}

// Close stops the dispatcher, draining queued deliveries, and any timer the
// environment owns, then closes every bus it created.
func (e *Environment) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	buses := e.buses
	e.buses = nil
	closers := e.closers
	e.mu.Unlock()

	// Buses close last so queued deliveries still see live registrations.
	var errs []error
	for _, fn := range closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, b := range buses {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
