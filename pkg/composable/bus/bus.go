// Package bus provides the publish/subscribe boundary a composable graph is
// built on, plus a reference implementation backed by a selector registry and
// a pluggable dispatcher.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/composable/pkg/composable/event"
	"github.com/randalmurphal/composable/pkg/composable/observability"
	"github.com/randalmurphal/composable/pkg/composable/registry"
	"github.com/randalmurphal/composable/pkg/composable/selector"
)

// Observable is the contract a composable graph needs from a bus.
type Observable interface {
	// Register subscribes h to every key sel matches.
	Register(sel selector.Selector, h Handler, opts ...RegisterOption) *Registration

	// Notify delivers evt to the handlers matching key. It does not wait for
	// the handlers; delivery may happen on another goroutine.
	Notify(key any, evt event.Event[any])

	// Cancel removes a registration. Safe to call more than once.
	Cancel(reg *Registration)
}

// Inspector is implemented by buses that can list their registrations.
type Inspector interface {
	Registrations(key any) []*Registration
}

// RegisterOption configures a registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	cancelAfterUse bool
}

// WithCancelAfterUse removes the registration after its handler runs once.
func WithCancelAfterUse() RegisterOption {
	return func(o *registerOptions) {
		o.cancelAfterUse = true
	}
}

// Config configures a Bus.
type Config struct {
	// Name labels the bus in logs.
	Name string

	// Dispatcher runs deliveries.
	// Default: a SyncDispatcher owned by the bus.
	Dispatcher Dispatcher

	// OwnDispatcher makes Close also close Dispatcher.
	// Always true for the default dispatcher.
	OwnDispatcher bool

	// Logger receives panic and drop reports.
	// Default: slog.Default()
	Logger *slog.Logger

	// Metrics records bus metrics.
	// Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder

	// Spans creates a span per delivery when set.
	Spans observability.SpanManager

	// OnPanic is called when a handler panics.
	OnPanic func(key any, handler string, recovered any)
}

// Bus is a registry of handlers plus a dispatcher that runs them.
type Bus struct {
	config     Config
	registry   *registry.Registry[Handler]
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	closed     atomic.Bool
}

// Compile-time interface checks.
var (
	_ Observable = (*Bus)(nil)
	_ Inspector  = (*Bus)(nil)
)

// New creates a bus.
func New(config Config) *Bus {
	if config.Dispatcher == nil {
		config.Dispatcher = NewSyncDispatcher()
		config.OwnDispatcher = true
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	if config.Name != "" {
		config.Logger = config.Logger.With(slog.String("bus", config.Name))
	}

	return &Bus{
		config:     config,
		registry:   registry.New[Handler](),
		dispatcher: config.Dispatcher,
		logger:     config.Logger,
		metrics:    config.Metrics,
		spans:      config.Spans,
	}
}

// Register implements Observable.
func (b *Bus) Register(sel selector.Selector, h Handler, opts ...RegisterOption) *Registration {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return b.registry.Register(sel, h, o.cancelAfterUse)
}

// Cancel implements Observable.
func (b *Bus) Cancel(reg *Registration) {
	b.registry.Cancel(reg)
}

// Registrations implements Inspector.
func (b *Bus) Registrations(key any) []*Registration {
	return b.registry.Select(key)
}

// Len returns the number of live registrations.
func (b *Bus) Len() int {
	return b.registry.Len()
}

// Notify implements Observable. Handlers are selected when the delivery
// runs, not when Notify is called. Notifying after Close drops the event.
func (b *Bus) Notify(key any, evt event.Event[any]) {
	ctx := context.Background()
	if b.closed.Load() {
		b.drop(ctx, key)
		return
	}
	b.metrics.RecordNotify(ctx)
	if err := b.dispatcher.Dispatch(key, func() { b.deliver(key, evt) }); err != nil {
		b.drop(ctx, key)
	}
}

func (b *Bus) drop(ctx context.Context, key any) {
	b.metrics.RecordDropped(ctx)
	observability.LogDispatchAfterClose(b.logger, key)
}

// deliver runs every matching handler for one notification. A notification
// nothing matches is dropped.
func (b *Bus) deliver(key any, evt event.Event[any]) {
	regs := b.registry.Select(key)
	if len(regs) == 0 {
		b.metrics.RecordUnmatched(context.Background())
		observability.LogUnmatched(b.logger, key)
		return
	}
	for _, reg := range regs {
		if !reg.Claim() {
			continue
		}
		outcome := b.invoke(reg, key, evt)
		if outcome == Cancel || reg.CancelAfterUse() {
			reg.Cancel()
			b.metrics.RecordCancel(context.Background())
			observability.LogCancel(b.logger, observability.HandlerName(reg.Handler()))
		}
	}
}

// invoke runs one handler, turning a panic into a report.
func (b *Bus) invoke(reg *Registration, key any, evt event.Event[any]) (outcome Outcome) {
	h := reg.Handler()
	name := observability.HandlerName(h)
	ctx := context.Background()
	start := time.Now()

	var endSpan func(error)
	if b.spans != nil {
		_, s := b.spans.StartDeliverySpan(ctx, name, fmt.Sprint(key))
		endSpan = func(err error) { b.spans.EndSpanWithError(s, err) }
	}

	defer func() {
		var spanErr error
		if r := recover(); r != nil {
			outcome = Continue
			if s, ok := h.(Spent); ok && s.Called() {
				outcome = Cancel
			}
			spanErr = fmt.Errorf("handler panic: %v", r)
			b.metrics.RecordPanic(ctx, name)
			observability.LogDispatchPanic(b.logger, name, r)
			if b.config.OnPanic != nil {
				b.config.OnPanic(key, name, r)
			}
		}
		b.metrics.RecordDelivery(ctx, name, time.Since(start))
		if endSpan != nil {
			endSpan(spanErr)
		}
	}()

	return h.Handle(evt)
}

// Close stops deliveries and cancels every registration. It closes the
// dispatcher when the bus owns it.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if b.config.OwnDispatcher {
		err = b.dispatcher.Close()
	}
	b.registry.Clear()
	return err
}
