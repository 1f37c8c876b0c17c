package action

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/event"
	"github.com/randalmurphal/composable/pkg/composable/selector"
)

// Callback invokes fn with each payload. Callbacks publish nothing on success.
func Callback[T any](fn func(T), ob bus.Observable, failureKey any, opts ...Option) *Action {
	a := newAction(KindCallback, ob, nil, failureKey, opts)
	a.consume = func(evt event.Event[any]) error {
		in, err := event.Assert[T](evt)
		if err != nil {
			return err
		}
		fn(in.Data())
		return nil
	}
	return a
}

// CallbackEvent invokes fn with each event, metadata included.
func CallbackEvent[T any](fn func(event.Event[T]), ob bus.Observable, failureKey any, opts ...Option) *Action {
	a := newAction(KindCallbackEvent, ob, nil, failureKey, opts)
	a.consume = func(evt event.Event[any]) error {
		in, err := event.Assert[T](evt)
		if err != nil {
			return err
		}
		fn(in)
		return nil
	}
	return a
}

// Map publishes fn(payload) on successKey.
func Map[T, V any](fn func(T) (V, error), ob bus.Observable, successKey, failureKey any, opts ...Option) *Action {
	a := newAction(KindMap, ob, successKey, failureKey, opts)
	a.transform = func(evt event.Event[any]) (any, error) {
		in, err := event.Assert[T](evt)
		if err != nil {
			return nil, err
		}
		return fn(in.Data())
	}
	return a
}

// MapMany connects the pipeline fn returns to successKey, forwards the
// pipeline's errors to failureKey and flushes it.
func MapMany[T any](fn func(T) (Pipeline, error), ob bus.Observable, successKey, failureKey any, opts ...Option) *Action {
	a := newAction(KindMapMany, ob, successKey, failureKey, opts)
	a.expand = func(evt event.Event[any]) (Pipeline, error) {
		in, err := event.Assert[T](evt)
		if err != nil {
			return nil, err
		}
		return fn(in.Data())
	}
	return a
}

// Filter republishes events whose payload satisfies p on successKey. Rejected
// events go to elseKey on elseOb when elseKey is non-nil and are dropped
// otherwise.
func Filter[T any](p func(T) (bool, error), ob bus.Observable, successKey, failureKey any, elseOb bus.Observable, elseKey any, opts ...Option) *Action {
	a := newAction(KindFilter, ob, successKey, failureKey, opts)
	a.test = func(evt event.Event[any]) (bool, error) {
		in, err := event.Assert[T](evt)
		if err != nil {
			return false, err
		}
		return p(in.Data())
	}
	if elseKey != nil {
		if elseOb == nil {
			elseOb = ob
		}
		a.elseOb = elseOb
		a.elseKey = elseKey
	}
	return a
}

// Connect republishes every event unchanged on key.
func Connect(ob bus.Observable, key, failureKey any, opts ...Option) *Action {
	return newAction(KindConnect, ob, key, failureKey, opts)
}

// Supply ignores the triggering payload and publishes fn() on successKey.
func Supply[T any](fn func() (T, error), ob bus.Observable, successKey, failureKey any, opts ...Option) *Action {
	a := newAction(KindSupply, ob, successKey, failureKey, opts)
	a.supply = func() (any, error) {
		return fn()
	}
	return a
}

// When invokes fn for error payloads assignable to E, as errors.As decides.
// Other payloads are ignored.
func When[E error](fn func(E), ob bus.Observable, failureKey any, opts ...Option) *Action {
	sel := selector.Type[E]()
	opts = append([]Option{WithName(fmt.Sprintf("When[%s]", reflect.TypeFor[E]()))}, opts...)
	a := newAction(KindWhen, ob, nil, failureKey, opts)
	a.consume = func(evt event.Event[any]) error {
		err, ok := evt.Data().(error)
		if !ok || !sel.Matches(err) {
			return nil
		}
		var target E
		if errors.As(err, &target) {
			fn(target)
		}
		return nil
	}
	return a
}

// FlushHook wraps a flushable action so it can be registered on a flush
// channel. It returns nil when target is not flushable.
func FlushHook(target *Action) *Action {
	if target == nil || !target.Flushable() {
		return nil
	}
	a := newAction(KindFlush, target.ob, nil, target.failureKey, []Option{
		WithName("Flush[" + target.name + "]"),
		WithLogger(target.logger),
		WithMetrics(target.metrics),
	})
	a.hooked = target
	return a
}
