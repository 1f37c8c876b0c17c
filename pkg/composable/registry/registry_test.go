package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/composable/pkg/composable/selector"
)

func handlers(regs []*Registration[string]) []string {
	out := make([]string, 0, len(regs))
	for _, reg := range regs {
		out = append(out, reg.Handler())
	}
	return out
}

func TestNew(t *testing.T) {
	r := New[string]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
}

func TestRegisterAndSelect(t *testing.T) {
	r := New[string]()
	a := selector.Anonymous()
	b := selector.Anonymous()

	r.Register(a, "a1", false)
	r.Register(b, "b1", false)
	r.Register(a, "a2", false)

	assert.Equal(t, []string{"a1", "a2"}, handlers(r.Select(a.Key())))
	assert.Equal(t, []string{"b1"}, handlers(r.Select(b.Key())))
	assert.Equal(t, 3, r.Len())
}

func TestSelectNoMatch(t *testing.T) {
	r := New[string]()
	r.Register(selector.Anonymous(), "x", false)

	assert.Empty(t, r.Select("nobody"))
	assert.Empty(t, r.Select(selector.Anonymous().Key()))
}

func TestSelectScannedAfterKeyed(t *testing.T) {
	r := New[string]()
	obj := selector.Object("k")

	r.Register(selector.Func("any", func(any) bool { return true }), "scan1", false)
	r.Register(obj, "keyed1", false)
	r.Register(selector.Func("never", func(any) bool { return false }), "scan2", false)
	r.Register(obj, "keyed2", false)

	assert.Equal(t, []string{"keyed1", "keyed2", "scan1"}, handlers(r.Select("k")))
}

func TestCancel(t *testing.T) {
	r := New[string]()
	sel := selector.Anonymous()

	first := r.Register(sel, "first", false)
	r.Register(sel, "second", false)

	r.Cancel(first)
	assert.True(t, first.Cancelled())
	assert.Equal(t, []string{"second"}, handlers(r.Select(sel.Key())))
	assert.Equal(t, 1, r.Len())

	// Idempotent.
	first.Cancel()
	r.Cancel(first)
	r.Cancel(nil)
	assert.Equal(t, 1, r.Len())
}

func TestCancelScanned(t *testing.T) {
	r := New[string]()
	reg := r.Register(selector.Type[error](), "errs", false)

	reg.Cancel()
	assert.Equal(t, 0, r.Len())
	assert.False(t, reg.Claim())
}

func TestCancelLastKeyedRemovesIndex(t *testing.T) {
	r := New[string]()
	sel := selector.Anonymous()
	reg := r.Register(sel, "only", false)

	reg.Cancel()

	r.mu.RLock()
	_, ok := r.keyed[sel.Key()]
	r.mu.RUnlock()
	assert.False(t, ok)
}

func TestClaim(t *testing.T) {
	r := New[string]()

	standing := r.Register(selector.Anonymous(), "standing", false)
	assert.True(t, standing.Claim())
	assert.True(t, standing.Claim(), "standing registrations claim repeatedly")

	once := r.Register(selector.Anonymous(), "once", true)
	assert.True(t, once.CancelAfterUse())
	assert.True(t, once.Claim())
	assert.False(t, once.Claim())
}

func TestClaimConcurrent(t *testing.T) {
	r := New[string]()
	reg := r.Register(selector.Anonymous(), "once", true)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if reg.Claim() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestClear(t *testing.T) {
	r := New[string]()
	a := r.Register(selector.Anonymous(), "a", false)
	b := r.Register(selector.Type[error](), "b", false)

	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.True(t, a.Cancelled())
	assert.True(t, b.Cancelled())
}

func TestRegistrationAccessors(t *testing.T) {
	r := New[string]()
	sel := selector.Object("k")

	first := r.Register(sel, "h1", false)
	second := r.Register(sel, "h2", false)

	assert.Equal(t, sel, first.Selector())
	assert.Equal(t, "h1", first.Handler())
	assert.Less(t, first.ID(), second.ID())
}

func TestConcurrentAccess(t *testing.T) {
	r := New[int]()
	sel := selector.Anonymous()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			reg := r.Register(sel, n, false)
			if n%2 == 0 {
				reg.Cancel()
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = r.Select(sel.Key())
		}()
	}
	wg.Wait()

	require.Equal(t, 25, r.Len())
	assert.Len(t, r.Select(sel.Key()), 25)
}
