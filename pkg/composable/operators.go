package composable

import (
	"fmt"
	"time"

	"github.com/randalmurphal/composable/pkg/composable/action"
	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/event"
)

// When calls fn for errors on n's error channel that errors.As can convert
// to E. It returns n.
func When[E error, T any](n *Node[T], fn func(E)) *Node[T] {
	requireFunc("When", fn)
	n.AddError(action.When(fn, n.ob, nil, n.actionOpts("error")...))
	return n
}

// OnError calls fn for every error on n's error channel. It returns n.
func (n *Node[T]) OnError(fn func(error)) *Node[T] {
	requireFunc("OnError", fn)
	n.AddError(action.Callback(fn, n.ob, nil, append(n.actionOpts("error"), action.WithName("OnError"))...))
	return n
}

// Connect forwards n's values, errors and flushes to other.
func (n *Node[T]) Connect(other *Node[T]) error {
	if err := n.ConnectValues(other); err != nil {
		return err
	}
	n.consumeErrorAndFlush(other)
	return nil
}

// ConnectValues forwards only n's values to other. Failures of the forward
// are reported on other's error channel.
func (n *Node[T]) ConnectValues(other *Node[T]) error {
	if err := n.checkTarget(other); err != nil {
		return err
	}
	n.Add(action.Connect(other.ob, other.acceptKey, other.ErrorKey(), n.actionOpts("accept")...))
	return nil
}

// Consume calls fn with every value. A panic in fn is published on n's error
// channel. It returns n.
func (n *Node[T]) Consume(fn func(T)) *Node[T] {
	requireFunc("Consume", fn)
	n.Add(action.Callback(fn, n.ob, n.ErrorKey(), n.actionOpts("accept")...))
	return n
}

// ConsumeEvent calls fn with every value event. It returns n.
func (n *Node[T]) ConsumeEvent(fn func(event.Event[T])) *Node[T] {
	requireFunc("ConsumeEvent", fn)
	n.Add(action.CallbackEvent(fn, n.ob, n.ErrorKey(), n.actionOpts("accept")...))
	return n
}

// ConsumeKey republishes every value on key of ob. It returns n.
func (n *Node[T]) ConsumeKey(key any, ob bus.Observable) *Node[T] {
	n.Add(action.Connect(ob, key, nil, n.actionOpts("accept")...))
	return n
}

// Map returns a node receiving fn(v) for every value v of n. Errors and
// flushes of n are forwarded to it.
func Map[T, V any](n *Node[T], fn func(T) V) *Node[V] {
	requireFunc("Map", fn)
	return TryMap(n, func(v T) (V, error) {
		return fn(v), nil
	})
}

// TryMap is Map for functions that can fail. A returned error is published
// on the child's error channel and the value is dropped.
func TryMap[T, V any](n *Node[T], fn func(T) (V, error)) *Node[V] {
	requireFunc("TryMap", fn)
	d := spawn[V](n, "map")
	n.Add(action.Map(fn, d.ob, d.acceptKey, d.ErrorKey(), n.actionOpts("accept")...))
	n.consumeErrorAndFlush(d)
	return d
}

// FlatMap returns a node receiving the values of the node fn returns for
// each value of n. Each nested node is connected to the child and flushed
// once per invocation; its errors reach the child's error channel. Errors of
// n are forwarded to the child, flushes of n are not.
//
// fn normally returns a fresh node, typically from From. Returning the same
// node on every call attaches a new forward each time.
func FlatMap[T, V any](n *Node[T], fn func(T) *Node[V]) *Node[V] {
	requireFunc("FlatMap", fn)
	d := spawn[V](n, "flatMap")
	expand := func(v T) (action.Pipeline, error) {
		nested := fn(v)
		if nested == nil {
			return nil, nil
		}
		return nested, nil
	}
	n.Add(action.MapMany(expand, d.ob, d.acceptKey, d.ErrorKey(), n.actionOpts("accept")...))
	n.connectErrors(d)
	return d
}

// Merge connects each of others into n.
func (n *Node[T]) Merge(others ...*Node[T]) error {
	for _, o := range others {
		if err := n.checkTarget(o); err != nil {
			return err
		}
	}
	for _, o := range others {
		if err := o.Connect(n); err != nil {
			return err
		}
	}
	return nil
}

// Filter returns a node receiving the values of n that satisfy p.
func (n *Node[T]) Filter(p func(T) bool) *Node[T] {
	return n.FilterElse(p, nil)
}

// FilterElse is Filter with rejected values sent to elseNode. A nil
// elseNode drops them. elseNode also receives n's errors and flushes.
func (n *Node[T]) FilterElse(p func(T) bool, elseNode *Node[T]) *Node[T] {
	requireFunc("Filter", p)
	return n.TryFilter(func(v T) (bool, error) {
		return p(v), nil
	}, elseNode)
}

// TryFilter is FilterElse for predicates that can fail. A returned error is
// published on the child's error channel and the value is dropped.
// elseNode must not be n.
func (n *Node[T]) TryFilter(p func(T) (bool, error), elseNode *Node[T]) *Node[T] {
	requireFunc("TryFilter", p)
	if elseNode == n {
		panic(fmt.Errorf("TryFilter: else node: %w", ErrSelfConnect))
	}
	d := spawn[T](n, "filter")

	var elseOb bus.Observable
	var elseKey any
	if elseNode != nil {
		elseOb = elseNode.ob
		elseKey = elseNode.acceptKey
	}
	n.Add(action.Filter(p, d.ob, d.acceptKey, d.ErrorKey(), elseOb, elseKey, n.actionOpts("accept")...))
	n.consumeErrorAndFlush(d)
	if elseNode != nil {
		n.consumeErrorAndFlush(elseNode)
	}
	return d
}

// FilterTrue passes the true values of n and sends false ones to elseNode,
// or drops them when elseNode is nil.
func FilterTrue(n *Node[bool], elseNode *Node[bool]) *Node[bool] {
	return n.FilterElse(func(v bool) bool { return v }, elseNode)
}

// Timeout flushes the root of n's graph whenever d passes without a value
// reaching n. A flush reaching n also counts as activity.
// The check runs on the WithTimer timer, else the environment timer.
//
// The returned action can be stopped to cancel the check.
func (n *Node[T]) Timeout(d time.Duration, opts ...TimeoutOption) (*action.Action, error) {
	var cfg timeoutConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if d <= 0 {
		return nil, fmt.Errorf("timeout %v: %w", d, ErrInvalidDuration)
	}
	tm := cfg.timer
	if tm == nil && n.env != nil {
		tm = n.env.Timer()
	}
	if tm == nil {
		return nil, ErrNoTimer
	}

	target := rootOf(n)
	a := action.Timeout(target.observable(), target.keys().flush, n.ErrorKey(), tm, d, n.actionOpts("accept")...)
	n.Add(a)
	return a, nil
}

// Propagate returns a node receiving supplier() each time n is flushed.
// Errors of n are forwarded to it.
func (n *Node[T]) Propagate(supplier func() T) *Node[T] {
	requireFunc("Propagate", supplier)
	return n.TryPropagate(func() (T, error) {
		return supplier(), nil
	})
}

// TryPropagate is Propagate for suppliers that can fail.
func (n *Node[T]) TryPropagate(supplier func() (T, error)) *Node[T] {
	requireFunc("TryPropagate", supplier)
	d := spawn[T](n, "propagate")
	n.AddFlush(action.Supply(supplier, d.ob, d.acceptKey, d.ErrorKey(), n.actionOpts("flush")...))
	n.connectErrors(d)
	return d
}

// checkTarget rejects forwarding n into itself or into nothing.
func (n *Node[T]) checkTarget(other *Node[T]) error {
	switch other {
	case nil:
		return ErrNilNode
	case n:
		return ErrSelfConnect
	}
	return nil
}
