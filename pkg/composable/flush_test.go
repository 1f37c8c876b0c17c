package composable_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/composable/pkg/composable"
	"github.com/randalmurphal/composable/pkg/composable/action"
	"github.com/randalmurphal/composable/pkg/composable/timer"
)

func TestFromReplaysOnEveryFlush(t *testing.T) {
	words := composable.From([]string{"a", "b"})
	var got collector[string]
	words.Consume(got.add)

	words.Flush()
	words.Flush()

	assert.Equal(t, []string{"a", "b", "a", "b"}, got.get())
}

func TestFlushWalksToRoot(t *testing.T) {
	root := composable.NewRoot[int]()
	flushes := 0
	root.Propagate(func() int { flushes++; return flushes })

	leaf := composable.Map(root, func(n int) int { return n }).Filter(func(int) bool { return true })
	leaf.Flush()

	assert.Equal(t, 1, flushes)
}

func TestFlushCascadesThroughMapAndFilter(t *testing.T) {
	root := composable.NewRoot[int]()
	leaf := composable.Map(root, func(n int) int { return n }).Filter(func(int) bool { return true })
	var got collector[int]
	n := 0
	leaf.Propagate(func() int { n++; return n }).Consume(got.add)

	root.Flush()
	root.Flush()

	assert.Equal(t, []int{1, 2}, got.get())
}

func TestPropagate(t *testing.T) {
	root := composable.NewRoot[string]()
	var got collector[string]
	var errs collector[error]

	ticks := root.Propagate(func() string { return "tick" })
	ticks.Consume(got.add)
	ticks.OnError(errs.add)

	root.Accept("ignored")
	root.Flush()
	root.Fail(errors.New("forwarded"))

	assert.Equal(t, []string{"tick"}, got.get())
	assert.Len(t, errs.get(), 1)
}

func TestTryPropagateError(t *testing.T) {
	root := composable.NewRoot[int]()
	var errs collector[error]
	boom := errors.New("supplier failed")

	root.TryPropagate(func() (int, error) { return 0, boom }).OnError(errs.add)
	root.Flush()

	require.Len(t, errs.get(), 1)
	assert.ErrorIs(t, errs.get()[0], boom)
}

func TestFlatMapEmitsNestedValues(t *testing.T) {
	root := composable.NewRoot[int]()
	var got collector[int]

	composable.FlatMap(root, func(n int) *composable.Node[int] {
		return composable.From([]int{n, n * 10})
	}).Consume(got.add)

	root.Accept(1)
	root.Accept(2)

	assert.Equal(t, []int{1, 10, 2, 20}, got.get())
}

func TestFlatMapNilNode(t *testing.T) {
	root := composable.NewRoot[int]()
	var got collector[int]

	composable.FlatMap(root, func(int) *composable.Node[int] { return nil }).Consume(got.add)
	root.Accept(1)

	assert.Empty(t, got.get())
}

func TestFlatMapForwardsErrorsNotFlushes(t *testing.T) {
	root := composable.NewRoot[int]()
	var errs collector[error]
	flushes := 0

	flat := composable.FlatMap(root, func(n int) *composable.Node[int] {
		return composable.From([]int{n})
	})
	flat.OnError(errs.add)
	flat.Propagate(func() int { flushes++; return 0 })

	boom := errors.New("parent error")
	root.Fail(boom)
	root.Flush()

	assert.Equal(t, []error{boom}, errs.get())
	assert.Equal(t, 0, flushes, "flush is not forwarded through FlatMap")
}

func TestFlatMapNestedErrors(t *testing.T) {
	root := composable.NewRoot[int]()
	var got collector[int]
	var errs collector[error]
	bad := errors.New("nested failure")

	flat := composable.FlatMap(root, func(n int) *composable.Node[int] {
		return composable.TryMap(composable.From([]int{n}), func(v int) (int, error) {
			if v == 2 {
				return 0, bad
			}
			return v, nil
		})
	})
	flat.Consume(got.add)
	flat.OnError(errs.add)

	root.Accept(1)
	root.Accept(2)
	root.Accept(3)

	assert.Equal(t, []int{1, 3}, got.get())
	require.Len(t, errs.get(), 1)
	assert.ErrorIs(t, errs.get()[0], bad)
}

func TestTimeoutFlushesAfterInactivity(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	root := composable.NewRoot[int]()
	var flushedAt []time.Time
	root.Propagate(func() int {
		flushedAt = append(flushedAt, clock.Now())
		return 0
	})

	stop, err := root.Timeout(10*time.Second, composable.WithTimer(clock))
	require.NoError(t, err)

	clock.Advance(9 * time.Second)
	root.Accept(1)

	clock.Advance(1 * time.Second)
	clock.Advance(9 * time.Second)
	assert.Empty(t, flushedAt, "value at 9s defers the flush")

	clock.Advance(1 * time.Second)
	require.Len(t, flushedAt, 1)
	assert.False(t, flushedAt[0].Before(time.Unix(19, 0)), "never earlier than last value plus timeout")

	stop.Stop()
	clock.Advance(time.Minute)
	assert.Len(t, flushedAt, 1)
}

func TestTimeoutOnChildFlushesRoot(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	root := composable.NewRoot[int]()
	flushes := 0
	root.Propagate(func() int { flushes++; return 0 })

	child := composable.Map(root, func(n int) int { return n })
	stop, err := child.Timeout(time.Second, composable.WithTimer(clock))
	require.NoError(t, err)
	defer stop.Stop()

	clock.Advance(time.Second)
	assert.Equal(t, 1, flushes)
}

func TestTimeoutOnDeepChildFlushesRoot(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	root := composable.NewRoot[int]()
	rootFlushes := 0
	root.Propagate(func() int { rootFlushes++; return 0 })

	mid := composable.Map(root, func(n int) int { return n + 1 })
	midOnly := 0
	mid.AddFlush(action.Callback(func(any) { midOnly++ }, mid.Bus(), nil))

	leaf := composable.Map(mid, func(n int) int { return n * 2 })
	stop, err := leaf.Timeout(time.Second, composable.WithTimer(clock))
	require.NoError(t, err)
	defer stop.Stop()

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3, rootFlushes, "the root is flushed, not the immediate parent")
	assert.Equal(t, rootFlushes, midOnly, "mid only sees flushes cascading from the root")

	// A value reaching the leaf defers the next flush.
	root.Accept(1)
	clock.Advance(500 * time.Millisecond)
	root.Accept(2)
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 3, rootFlushes)
}

func TestTimeoutUsesEnvironmentTimer(t *testing.T) {
	clock := timer.NewManual(time.Unix(0, 0))
	env := composable.NewEnvironment(composable.WithRootTimer(clock))
	defer env.Close()

	root := composable.NewRoot[int](composable.WithEnvironment(env))
	flushes := 0
	root.Propagate(func() int { flushes++; return 0 })

	stop, err := root.Timeout(time.Second)
	require.NoError(t, err)
	defer stop.Stop()

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3, flushes)
}

func TestTimeoutMisuse(t *testing.T) {
	root := composable.NewRoot[int]()

	_, err := root.Timeout(time.Second)
	assert.ErrorIs(t, err, composable.ErrNoTimer)

	_, err = root.Timeout(0, composable.WithTimer(timer.NewManual(time.Now())))
	assert.ErrorIs(t, err, composable.ErrInvalidDuration)
}
