// Package consumer provides the single-use handler wrapper.
//
// A SingleUse runs its delegate at most once, no matter how many goroutines
// deliver to it, and then asks the bus to cancel its registration by
// returning bus.Cancel. Register it with bus.WithCancelAfterUse so the bus
// also refuses concurrent deliveries once one has been claimed.
package consumer

import (
	"sync/atomic"

	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/event"
)

// SingleUse is a handler that runs once.
//
// If Delegate is nil, Hook runs instead, which allows one-shot behavior
// without wrapping an existing handler:
//
//	h := &consumer.SingleUse{Hook: func(evt event.Event[any]) { close(done) }}
type SingleUse struct {
	called atomic.Bool

	// Delegate is the wrapped handler.
	Delegate bus.Handler

	// Hook runs when there is no delegate.
	Hook func(evt event.Event[any])
}

// Compile-time interface checks.
var (
	_ bus.Handler = (*SingleUse)(nil)
	_ bus.Spent   = (*SingleUse)(nil)
)

// Once returns a single-use wrapper around delegate.
func Once(delegate bus.Handler) *SingleUse {
	return &SingleUse{Delegate: delegate}
}

// OnceFunc returns a single-use handler running fn.
func OnceFunc(fn func(evt event.Event[any])) *SingleUse {
	return &SingleUse{Hook: fn}
}

// NewSingleUse returns a single-use handler with no delegate that runs hook.
// A nil hook makes a wrapper that only cancels its registration.
func NewSingleUse(hook func(evt event.Event[any])) *SingleUse {
	return &SingleUse{Hook: hook}
}

// Handle implements bus.Handler. The first call runs the delegate and
// returns bus.Cancel; every other call returns bus.Cancel without running
// anything. A panic in the delegate propagates to the caller after the
// wrapper has been marked used.
func (s *SingleUse) Handle(evt event.Event[any]) bus.Outcome {
	if s.called.Load() {
		return bus.Cancel
	}
	if !s.called.CompareAndSwap(false, true) {
		return bus.Cancel
	}

	switch {
	case s.Delegate != nil:
		s.Delegate.Handle(evt)
	case s.Hook != nil:
		s.Hook(evt)
	}
	return bus.Cancel
}

// Called reports whether the wrapper has fired.
func (s *SingleUse) Called() bool {
	return s.called.Load()
}

// String labels the wrapper for diagnostics.
func (s *SingleUse) String() string {
	return "Once"
}
