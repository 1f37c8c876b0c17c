package registry

import (
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/composable/pkg/composable/selector"
)

// Registration is a live subscription of a handler to a selector.
type Registration[H any] struct {
	selector       selector.Selector
	handler        H
	cancelAfterUse bool
	seq            uint64

	used      atomic.Bool
	cancelled atomic.Bool
	registry  *Registry[H]
}

// ID returns the registry-local sequence number of the registration.
func (r *Registration[H]) ID() uint64 {
	return r.seq
}

// Selector returns the selector the handler was registered with.
func (r *Registration[H]) Selector() selector.Selector {
	return r.selector
}

// Handler returns the registered handler.
func (r *Registration[H]) Handler() H {
	return r.handler
}

// CancelAfterUse reports whether the registration is removed after its
// handler has run once.
func (r *Registration[H]) CancelAfterUse() bool {
	return r.cancelAfterUse
}

// Claim marks the registration as committed to run.
// It returns false if the registration is cancelled, or if it is a
// cancel-after-use registration another delivery has already claimed.
func (r *Registration[H]) Claim() bool {
	if r.cancelled.Load() {
		return false
	}
	if !r.cancelAfterUse {
		return true
	}
	return r.used.CompareAndSwap(false, true)
}

// Cancel removes the registration. Safe to call more than once.
func (r *Registration[H]) Cancel() {
	if !r.cancelled.CompareAndSwap(false, true) {
		return
	}
	if r.registry != nil {
		r.registry.remove(r)
	}
}

// Cancelled reports whether Cancel has been called.
func (r *Registration[H]) Cancelled() bool {
	return r.cancelled.Load()
}

// Registry is a thread-safe table of handlers indexed by selector.
// Keyed selectors are looked up directly; other selectors are scanned.
type Registry[H any] struct {
	mu      sync.RWMutex
	keyed   map[any][]*Registration[H]
	scanned []*Registration[H]
	nextSeq uint64
}

// New creates a new empty registry.
func New[H any]() *Registry[H] {
	return &Registry[H]{
		keyed: make(map[any][]*Registration[H]),
	}
}

// Register adds handler under sel.
func (r *Registry[H]) Register(sel selector.Selector, handler H, cancelAfterUse bool) *Registration[H] {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq++
	reg := &Registration[H]{
		selector:       sel,
		handler:        handler,
		cancelAfterUse: cancelAfterUse,
		seq:            r.nextSeq,
		registry:       r,
	}

	if k, ok := sel.(selector.Keyed); ok {
		key := k.Key()
		r.keyed[key] = append(r.keyed[key], reg)
	} else {
		r.scanned = append(r.scanned, reg)
	}
	return reg
}

// Select returns the live registrations matching key.
// Keyed registrations come first, then scanned ones, each in registration
// order. The returned slice is a snapshot.
func (r *Registry[H]) Select(key any) []*Registration[H] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Registration[H]
	if regs, ok := r.keyed[key]; ok {
		out = make([]*Registration[H], 0, len(regs))
		for _, reg := range regs {
			if !reg.cancelled.Load() {
				out = append(out, reg)
			}
		}
	}
	for _, reg := range r.scanned {
		if !reg.cancelled.Load() && reg.selector.Matches(key) {
			out = append(out, reg)
		}
	}
	return out
}

// Cancel removes reg. Safe to call more than once.
func (r *Registry[H]) Cancel(reg *Registration[H]) {
	if reg == nil {
		return
	}
	reg.Cancel()
}

// Len returns the number of live registrations.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.scanned)
	for _, regs := range r.keyed {
		n += len(regs)
	}
	return n
}

// Clear cancels every registration.
func (r *Registry[H]) Clear() {
	r.mu.Lock()
	all := r.scanned
	for _, regs := range r.keyed {
		all = append(all, regs...)
	}
	r.keyed = make(map[any][]*Registration[H])
	r.scanned = nil
	r.mu.Unlock()

	for _, reg := range all {
		reg.cancelled.Store(true)
	}
}

// remove deletes reg from the table. Called once per registration.
func (r *Registry[H]) remove(reg *Registration[H]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if k, ok := reg.selector.(selector.Keyed); ok {
		key := k.Key()
		regs := deleteReg(r.keyed[key], reg)
		if len(regs) == 0 {
			delete(r.keyed, key)
		} else {
			r.keyed[key] = regs
		}
		return
	}
	r.scanned = deleteReg(r.scanned, reg)
}

func deleteReg[H any](regs []*Registration[H], reg *Registration[H]) []*Registration[H] {
	for i, candidate := range regs {
		if candidate == reg {
			out := make([]*Registration[H], 0, len(regs)-1)
			out = append(out, regs[:i]...)
			return append(out, regs[i+1:]...)
		}
	}
	return regs
}
