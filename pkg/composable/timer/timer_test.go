package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardOneShot(t *testing.T) {
	tm := NewStandard()
	defer tm.Close()

	var fired atomic.Int32
	handle := tm.Schedule(10*time.Millisecond, false, func(time.Time) {
		fired.Add(1)
	})

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load(), "one-shot fires once")
	assert.True(t, handle.Cancelled(), "one-shot handle is spent after firing")
}

func TestStandardRecurring(t *testing.T) {
	tm := NewStandard()
	defer tm.Close()

	var fired atomic.Int32
	handle := tm.Schedule(5*time.Millisecond, true, func(time.Time) {
		fired.Add(1)
	})

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, 5*time.Millisecond)

	handle.Cancel()
	handle.Cancel()
	stopped := fired.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, fired.Load(), stopped+1, "at most one in-flight tick after cancel")
}

func TestStandardCancelBeforeFire(t *testing.T) {
	tm := NewStandard()
	defer tm.Close()

	var fired atomic.Bool
	handle := tm.Schedule(50*time.Millisecond, false, func(time.Time) {
		fired.Store(true)
	})
	handle.Cancel()

	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestStandardClose(t *testing.T) {
	tm := NewStandard()

	var fired atomic.Int32
	handle := tm.Schedule(5*time.Millisecond, true, func(time.Time) {
		fired.Add(1)
	})

	require.NoError(t, tm.Close())
	assert.True(t, handle.Cancelled())
	require.NoError(t, tm.Close(), "close is idempotent")

	late := tm.Schedule(time.Millisecond, false, func(time.Time) { fired.Add(100) })
	assert.True(t, late.Cancelled(), "schedule after close is inert")
	time.Sleep(20 * time.Millisecond)
	assert.Less(t, fired.Load(), int32(100))
}

func TestStandardNonPositiveDelay(t *testing.T) {
	tm := NewStandard()
	defer tm.Close()

	assert.Panics(t, func() {
		tm.Schedule(0, false, func(time.Time) {})
	})
}

func TestManualOneShot(t *testing.T) {
	start := time.Unix(1000, 0)
	tm := NewManual(start)

	var at []time.Time
	tm.Schedule(10*time.Second, false, func(now time.Time) {
		at = append(at, now)
	})

	tm.Advance(9 * time.Second)
	assert.Empty(t, at)
	assert.Equal(t, start.Add(9*time.Second), tm.Now())

	tm.Advance(time.Second)
	require.Len(t, at, 1)
	assert.Equal(t, start.Add(10*time.Second), at[0])

	tm.Advance(time.Minute)
	assert.Len(t, at, 1)
	assert.Equal(t, 0, tm.Pending())
}

func TestManualRecurring(t *testing.T) {
	tm := NewManual(time.Unix(0, 0))

	var count int
	handle := tm.Schedule(time.Second, true, func(time.Time) {
		count++
	})

	tm.Advance(3500 * time.Millisecond)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, tm.Pending())

	handle.Cancel()
	tm.Advance(10 * time.Second)
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, tm.Pending())
}

func TestManualOrdering(t *testing.T) {
	tm := NewManual(time.Unix(0, 0))

	var order []string
	tm.Schedule(2*time.Second, false, func(time.Time) { order = append(order, "b") })
	tm.Schedule(time.Second, false, func(time.Time) { order = append(order, "a") })
	tm.Schedule(2*time.Second, false, func(time.Time) { order = append(order, "c") })

	tm.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestManualClockDuringCallback(t *testing.T) {
	start := time.Unix(0, 0)
	tm := NewManual(start)

	var seen time.Time
	tm.Schedule(2*time.Second, false, func(time.Time) {
		seen = tm.Now()
	})

	tm.Advance(5 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), seen, "clock reads the due time inside the callback")
	assert.Equal(t, start.Add(5*time.Second), tm.Now())
}

func TestRound(t *testing.T) {
	tests := []struct {
		d, res, want time.Duration
	}{
		{10 * time.Millisecond, 0, 10 * time.Millisecond},
		{10 * time.Millisecond, 5 * time.Millisecond, 10 * time.Millisecond},
		{11 * time.Millisecond, 5 * time.Millisecond, 15 * time.Millisecond},
		{time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.d, tt.res), "Round(%v, %v)", tt.d, tt.res)
	}
}

func TestWithResolution(t *testing.T) {
	clock := NewManual(time.Unix(0, 0))
	assert.Same(t, clock, WithResolution(clock, 0))

	coarse := WithResolution(clock, time.Second)
	var fired []time.Time
	coarse.Schedule(1500*time.Millisecond, false, func(now time.Time) {
		fired = append(fired, now)
	})

	clock.Advance(1500 * time.Millisecond)
	assert.Empty(t, fired)

	clock.Advance(500 * time.Millisecond)
	require.Len(t, fired, 1)
	assert.Equal(t, time.Unix(2, 0), fired[0])
	assert.Equal(t, clock.Now(), coarse.Now())
}
