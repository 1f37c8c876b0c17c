package composable

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/composable/pkg/composable/action"
	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/observability"
)

// Debug renders the graph reachable from the root of n: each channel, the
// handlers registered on it, and, for actions, the channels they publish
// to. A channel already printed is shown once and then elided.
//
//	accept anon:1f0c2a9e
//	  Map
//	    value anon:77d1e0b4
//	      Callback
//	    error anon:0a3b5c6d
//	error anon:4e5f6a7b
//	  Connect
//	...
//
// Buses that do not implement bus.Inspector are shown without handlers.
func (n *Node[T]) Debug() string {
	root := rootOf(n)
	k := root.keys()
	w := &debugWriter{seen: make(map[any]bool)}
	w.channel(root.observable(), "accept", k.accept, 0)
	w.channel(root.observable(), "error", k.error, 0)
	w.channel(root.observable(), "flush", k.flush, 0)
	return w.b.String()
}

type debugWriter struct {
	b    strings.Builder
	seen map[any]bool
}

func (w *debugWriter) channel(ob bus.Observable, role string, key any, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(&w.b, "%s%s %v\n", indent, role, key)
	if w.seen[key] {
		fmt.Fprintf(&w.b, "%s  ...\n", indent)
		return
	}
	w.seen[key] = true

	insp, ok := ob.(bus.Inspector)
	if !ok {
		return
	}
	for _, reg := range insp.Registrations(key) {
		h := reg.Handler()
		fmt.Fprintf(&w.b, "%s  %s\n", indent, observability.HandlerName(h))
		a, ok := h.(*action.Action)
		if !ok {
			continue
		}
		for _, t := range a.Targets() {
			w.channel(t.Observable, t.Role, t.Key, depth+2)
		}
	}
}
