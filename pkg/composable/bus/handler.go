package bus

import (
	"github.com/randalmurphal/composable/pkg/composable/event"
	"github.com/randalmurphal/composable/pkg/composable/registry"
)

// Outcome is what a handler tells the bus after an invocation.
type Outcome int

const (
	// Continue keeps the registration live.
	Continue Outcome = iota

	// Cancel asks the bus to remove the registration. It is a control
	// signal, not a failure.
	Cancel
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Handler processes events delivered by a bus.
type Handler interface {
	Handle(evt event.Event[any]) Outcome
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(evt event.Event[any]) Outcome

// Handle implements Handler.
func (f HandlerFunc) Handle(evt event.Event[any]) Outcome {
	return f(evt)
}

// Consume adapts a plain function that never cancels itself.
func Consume(fn func(evt event.Event[any])) Handler {
	return HandlerFunc(func(evt event.Event[any]) Outcome {
		fn(evt)
		return Continue
	})
}

// Spent is implemented by handlers that run at most once, such as
// consumer.SingleUse. The bus cancels a spent handler's registration even when
// its run panicked.
type Spent interface {
	Called() bool
}

// Registration is a handler subscribed to a selector on a bus.
type Registration = registry.Registration[Handler]
