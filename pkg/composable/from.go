package composable

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/event"
)

// From returns a root node that publishes values, in order, every time it
// is flushed.
//
//	words := composable.From([]string{"a", "b"})
//	words.Consume(func(s string) { fmt.Println(s) })
//	words.Flush() // prints a, b
func From[T any](values []T, opts ...Option) *Node[T] {
	n := NewRoot[T](opts...)
	n.ob.Register(n.flushSel, &replay[T]{node: n, values: slices.Clone(values)})
	return n
}

// replay republishes a fixed set of values on its node's value channel.
type replay[T any] struct {
	node   *Node[T]
	values []T
}

// Handle implements bus.Handler.
func (r *replay[T]) Handle(event.Event[any]) bus.Outcome {
	for _, v := range r.values {
		r.node.Accept(v)
	}
	return bus.Continue
}

// String labels the handler in Debug output.
func (r *replay[T]) String() string {
	return fmt.Sprintf("From[%d]", len(r.values))
}
