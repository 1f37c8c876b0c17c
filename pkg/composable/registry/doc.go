// Package registry stores handlers against selectors and resolves the
// handlers a notification key should reach.
//
// Registry is designed for read-heavy workloads using sync.RWMutex: every
// notification performs a Select, while registrations change only when a
// graph is built or a one-shot handler fires.
//
// # Basic Usage
//
//	r := registry.New[func(any)]()
//	sel := selector.Anonymous()
//	reg := r.Register(sel, func(v any) { fmt.Println(v) }, false)
//
//	for _, match := range r.Select(sel.Key()) {
//	    match.Handler()("hello")
//	}
//
//	reg.Cancel()
//
// # One-Shot Registrations
//
// A registration created with cancelAfterUse set must be claimed before its
// handler runs. Claim is an atomic test-and-set, so of any number of
// concurrent deliveries only one observes the registration as live:
//
//	if reg.Claim() {
//	    reg.Handler()(v)
//	    reg.Cancel()
//	}
//
// # Ordering
//
// Select returns keyed registrations (anonymous and object selectors) before
// scanned ones (type and predicate selectors). Within each group handlers
// appear in registration order.
package registry
