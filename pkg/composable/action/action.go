// Package action provides the adapters that turn bus deliveries into typed
// transformation steps.
//
// Every adapter is an *Action. The set of behaviors is closed: an Action
// carries a Kind tag and only the data that kind needs, and Handle switches on
// the tag. Typed constructors (Map, Filter, Supply, ...) erase their type
// parameters into closures over event.Event[any] so one struct serves all of
// them.
//
// An Action never lets a failure escape to the bus: returned errors, payload
// type mismatches and panics from user functions are wrapped in an *Error and
// published on the action's failure key.
package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/event"
	"github.com/randalmurphal/composable/pkg/composable/observability"
)

// Kind identifies an Action variant.
type Kind int

const (
	KindCallback Kind = iota
	KindCallbackEvent
	KindMap
	KindMapMany
	KindFilter
	KindConnect
	KindSupply
	KindTimeout
	KindWhen
	KindFlush
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindCallback:
		return "Callback"
	case KindCallbackEvent:
		return "CallbackEvent"
	case KindMap:
		return "Map"
	case KindMapMany:
		return "MapMany"
	case KindFilter:
		return "Filter"
	case KindConnect:
		return "Connect"
	case KindSupply:
		return "Supply"
	case KindTimeout:
		return "Timeout"
	case KindWhen:
		return "When"
	case KindFlush:
		return "Flush"
	default:
		return "Unknown"
	}
}

// Pipeline is the composable value a MapMany function returns.
type Pipeline interface {
	// Add attaches a to the pipeline's value channel.
	Add(a *Action)

	// AddError attaches a to the pipeline's error channel.
	AddError(a *Action)

	// Flush asks the pipeline to emit whatever it has buffered or can generate.
	Flush()
}

// Target is a (bus, key) pair an Action publishes to.
type Target struct {
	Role       string
	Observable bus.Observable
	Key        any
}

// Action adapts a bus registration into one transformation step.
type Action struct {
	kind       Kind
	name       string
	ob         bus.Observable
	successKey any
	failureKey any
	logger     *slog.Logger
	metrics    observability.MetricsRecorder

	consume   func(evt event.Event[any]) error
	transform func(evt event.Event[any]) (any, error)
	expand    func(evt event.Event[any]) (Pipeline, error)
	test      func(evt event.Event[any]) (bool, error)
	supply    func() (any, error)
	elseOb    bus.Observable
	elseKey   any
	timeout   *timeoutState
	hooked    *Action
}

// Compile-time interface check.
var _ bus.Handler = (*Action)(nil)

// Option configures an Action.
type Option func(*Action)

// WithLogger sets the logger used for dropped failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Action) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(a *Action) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithName overrides the diagnostic label.
func WithName(name string) Option {
	return func(a *Action) {
		a.name = name
	}
}

func newAction(kind Kind, ob bus.Observable, successKey, failureKey any, opts []Option) *Action {
	a := &Action{
		kind:       kind,
		name:       kind.String(),
		ob:         ob,
		successKey: successKey,
		failureKey: failureKey,
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind returns the variant tag.
func (a *Action) Kind() Kind {
	return a.kind
}

// String implements fmt.Stringer.
func (a *Action) String() string {
	return a.name
}

// Observable returns the bus the action publishes on.
func (a *Action) Observable() bus.Observable {
	return a.ob
}

// SuccessKey returns the key results are published on.
func (a *Action) SuccessKey() any {
	return a.successKey
}

// FailureKey returns the key failures are published on, or nil.
func (a *Action) FailureKey() any {
	return a.failureKey
}

// Flushable reports whether the action must also observe the flush channel
// of the node it is attached to.
func (a *Action) Flushable() bool {
	return a.kind == KindTimeout
}

// Targets returns the channels the action publishes to.
func (a *Action) Targets() []Target {
	var out []Target
	if a.successKey != nil && a.ob != nil {
		role := "value"
		if a.kind == KindTimeout {
			role = "flush"
		}
		out = append(out, Target{Role: role, Observable: a.ob, Key: a.successKey})
	}
	if a.elseKey != nil && a.elseOb != nil {
		out = append(out, Target{Role: "else", Observable: a.elseOb, Key: a.elseKey})
	}
	if a.failureKey != nil && a.ob != nil {
		out = append(out, Target{Role: "error", Observable: a.ob, Key: a.failureKey})
	}
	return out
}

// Handle implements bus.Handler. It always returns bus.Continue.
func (a *Action) Handle(evt event.Event[any]) bus.Outcome {
	defer func() {
		if r := recover(); r != nil {
			a.fail(&PanicError{Value: r})
		}
	}()

	if err := a.accept(evt); err != nil {
		a.fail(err)
	}
	return bus.Continue
}

// accept runs the variant computation.
func (a *Action) accept(evt event.Event[any]) error {
	switch a.kind {
	case KindCallback, KindCallbackEvent, KindWhen:
		return a.consume(evt)

	case KindMap:
		v, err := a.transform(evt)
		if err != nil {
			return err
		}
		a.ob.Notify(a.successKey, event.Derive[any](evt, v))
		return nil

	case KindMapMany:
		p, err := a.expand(evt)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		p.Add(Connect(a.ob, a.successKey, a.failureKey, WithLogger(a.logger), WithMetrics(a.metrics)))
		if a.failureKey != nil {
			p.AddError(Connect(a.ob, a.failureKey, nil, WithLogger(a.logger), WithMetrics(a.metrics)))
		}
		p.Flush()
		return nil

	case KindFilter:
		ok, err := a.test(evt)
		if err != nil {
			return err
		}
		switch {
		case ok:
			a.ob.Notify(a.successKey, evt)
		case a.elseKey != nil:
			a.elseOb.Notify(a.elseKey, evt)
		}
		return nil

	case KindConnect:
		a.ob.Notify(a.successKey, evt)
		return nil

	case KindSupply:
		v, err := a.supply()
		if err != nil {
			return err
		}
		a.ob.Notify(a.successKey, event.New(v))
		return nil

	case KindTimeout:
		a.timeout.touch()
		return nil

	case KindFlush:
		a.hooked.flushHook()
		return nil

	default:
		return fmt.Errorf("unknown action kind %d", a.kind)
	}
}

// flushHook runs the work a flushable action does when its node is flushed.
func (a *Action) flushHook() {
	if a.kind == KindTimeout {
		a.timeout.touch()
	}
}

// fail wraps err and publishes it on the failure key.
func (a *Action) fail(err error) {
	wrapped := &Error{Kind: a.kind, Action: a.name, Err: err}
	a.metrics.RecordActionFailure(context.Background(), a.name)
	if a.failureKey == nil || a.ob == nil {
		observability.LogDroppedFailure(a.logger, a.name, wrapped)
		return
	}
	a.ob.Notify(a.failureKey, event.New[any](error(wrapped)))
}
