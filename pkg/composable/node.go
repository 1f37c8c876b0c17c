package composable

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/composable/pkg/composable/action"
	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/event"
	"github.com/randalmurphal/composable/pkg/composable/observability"
	"github.com/randalmurphal/composable/pkg/composable/selector"
)

// Node is one stage of a composable graph.
//
// A node owns three channels on a shared bus: accept (values), error, and
// flush. Operators attach actions to these channels and return the child
// node the actions publish to. Every node of a graph shares the root's bus.
type Node[T any] struct {
	acceptSel selector.Selector
	acceptKey any
	errorSel  selector.Keyed
	flushSel  selector.Keyed

	parent  graphNode
	ob      bus.Observable
	env     *Environment
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	name    string
}

// Compile-time interface check.
var _ action.Pipeline = (*Node[int])(nil)

// channelKeys are the keys a node's channels are notified on.
type channelKeys struct {
	accept any
	error  any
	flush  any
}

// graphNode is the part of a node that does not depend on its value type,
// so a child can refer to a parent of another type.
type graphNode interface {
	parentNode() graphNode
	observable() bus.Observable
	keys() channelKeys
	label() string
}

// NewRoot creates a node with no parent.
func NewRoot[T any](opts ...Option) *Node[T] {
	var cfg nodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = "root"
	}

	n := &Node[T]{
		errorSel: selector.Anonymous(),
		flushSel: selector.Anonymous(),
		env:      cfg.env,
		name:     cfg.name,
		logger:   cfg.logger,
		metrics:  observability.NoopMetrics{},
	}
	if cfg.env != nil {
		if n.logger == nil {
			n.logger = cfg.env.logger
		}
		n.metrics = cfg.env.metrics
		n.spans = cfg.env.spans
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}

	switch {
	case cfg.ob != nil:
		n.ob = cfg.ob
	case cfg.env != nil:
		n.ob = cfg.env.NewBus()
	default:
		n.ob = bus.New(bus.Config{Name: cfg.name, Logger: n.logger})
	}

	if cfg.acceptKey != nil {
		n.acceptSel = selector.Object(cfg.acceptKey)
		n.acceptKey = cfg.acceptKey
	} else {
		sel := selector.Anonymous()
		n.acceptSel = sel
		n.acceptKey = sel.Key()
	}
	return n
}

// spawn creates a child of parent on the same bus.
func spawn[V, T any](parent *Node[T], op string) *Node[V] {
	accept := selector.Anonymous()
	return &Node[V]{
		acceptSel: accept,
		acceptKey: accept.Key(),
		errorSel:  selector.Anonymous(),
		flushSel:  selector.Anonymous(),
		parent:    parent,
		ob:        parent.ob,
		env:       parent.env,
		logger:    parent.logger,
		metrics:   parent.metrics,
		spans:     parent.spans,
		name:      parent.name + "." + op,
	}
}

func (n *Node[T]) parentNode() graphNode {
	return n.parent
}

func (n *Node[T]) observable() bus.Observable {
	return n.ob
}

func (n *Node[T]) keys() channelKeys {
	return channelKeys{accept: n.acceptKey, error: n.errorSel.Key(), flush: n.flushSel.Key()}
}

func (n *Node[T]) label() string {
	return n.name
}

// rootOf walks parent links to the top of the graph.
func rootOf(n graphNode) graphNode {
	for n.parentNode() != nil {
		n = n.parentNode()
	}
	return n
}

// AcceptKey returns the key values for this node are notified on.
func (n *Node[T]) AcceptKey() any {
	return n.acceptKey
}

// ErrorKey returns the key errors for this node are notified on.
func (n *Node[T]) ErrorKey() any {
	return n.errorSel.Key()
}

// FlushKey returns the key flush signals for this node are notified on.
func (n *Node[T]) FlushKey() any {
	return n.flushSel.Key()
}

// Bus returns the bus the graph publishes on.
func (n *Node[T]) Bus() bus.Observable {
	return n.ob
}

// Environment returns the environment the graph was built with, or nil.
func (n *Node[T]) Environment() *Environment {
	return n.env
}

// Name returns the node's log label.
func (n *Node[T]) Name() string {
	return n.name
}

// Accept publishes v on the node's value channel.
func (n *Node[T]) Accept(v T) {
	n.ob.Notify(n.acceptKey, event.Erase(event.New(v)))
}

// AcceptEvent publishes evt, metadata included, on the node's value channel.
func (n *Node[T]) AcceptEvent(evt event.Event[T]) {
	n.ob.Notify(n.acceptKey, event.Erase(evt))
}

// Fail publishes err on the node's error channel.
func (n *Node[T]) Fail(err error) {
	n.ob.Notify(n.errorSel.Key(), event.New[any](err))
}

// Flush notifies the root's flush channel. Flushes cascade through the
// operators that forward them.
func (n *Node[T]) Flush() {
	root := rootOf(n)
	if n.spans != nil {
		ctx, span := n.spans.StartFlushSpan(context.Background(), root.label())
		defer n.spans.EndSpanWithError(span, nil)
		n.spans.AddSpanEvent(ctx, "flush.requested",
			attribute.String("node", n.name),
			attribute.Bool("from_root", n.parent == nil),
		)
	}
	root.observable().Notify(root.keys().flush, event.Empty)
}

// Add attaches a to the value channel. A flushable action is also attached
// to the flush channel.
func (n *Node[T]) Add(a *action.Action) {
	n.ob.Register(n.acceptSel, a)
	if hook := action.FlushHook(a); hook != nil {
		n.ob.Register(n.flushSel, hook)
	}
}

// AddError attaches a to the error channel.
func (n *Node[T]) AddError(a *action.Action) {
	n.ob.Register(n.errorSel, a)
}

// AddFlush attaches a to the flush channel.
func (n *Node[T]) AddFlush(a *action.Action) {
	n.ob.Register(n.flushSel, a)
}

// actionOpts returns the options every action attached for channel gets.
func (n *Node[T]) actionOpts(channel string) []action.Option {
	return []action.Option{
		action.WithLogger(observability.EnrichLogger(n.logger, n.name, channel)),
		action.WithMetrics(n.metrics),
	}
}

// connectErrors forwards this node's errors to other.
func (n *Node[T]) connectErrors(other graphNode) {
	n.AddError(action.Connect(other.observable(), other.keys().error, nil, n.actionOpts("error")...))
}

// consumeErrorAndFlush forwards this node's errors and flushes to other.
func (n *Node[T]) consumeErrorAndFlush(other graphNode) {
	n.AddFlush(action.Connect(other.observable(), other.keys().flush, nil, n.actionOpts("flush")...))
	n.connectErrors(other)
}
