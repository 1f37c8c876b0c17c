package action

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/composable/pkg/composable/bus"
	"github.com/randalmurphal/composable/pkg/composable/event"
	"github.com/randalmurphal/composable/pkg/composable/observability"
	"github.com/randalmurphal/composable/pkg/composable/timer"
)

type timeoutState struct {
	owner  *Action
	timer  timer.Timer
	d      time.Duration
	last   atomic.Int64
	handle timer.Cancellable
}

// Timeout publishes event.Empty on flushKey whenever d elapses without the
// action seeing an event. The check runs every d on tm and rearms after each
// flush. d must be positive.
func Timeout(ob bus.Observable, flushKey, failureKey any, tm timer.Timer, d time.Duration, opts ...Option) *Action {
	opts = append([]Option{WithName("Timeout[" + d.String() + "]")}, opts...)
	a := newAction(KindTimeout, ob, flushKey, failureKey, opts)
	st := &timeoutState{owner: a, timer: tm, d: d}
	st.last.Store(tm.Now().UnixNano())
	a.timeout = st
	st.handle = tm.Schedule(d, true, st.check)
	return a
}

// Stop cancels the recurring inactivity check. It is a no-op for other kinds.
func (a *Action) Stop() {
	if a.kind == KindTimeout {
		a.timeout.handle.Cancel()
	}
}

// Stopped reports whether a Timeout action has been stopped.
func (a *Action) Stopped() bool {
	return a.kind == KindTimeout && a.timeout.handle.Cancelled()
}

// LastSeen returns when a Timeout action last observed activity.
func (a *Action) LastSeen() time.Time {
	if a.kind != KindTimeout {
		return time.Time{}
	}
	return time.Unix(0, a.timeout.last.Load())
}

func (st *timeoutState) touch() {
	st.last.Store(st.timer.Now().UnixNano())
}

func (st *timeoutState) check(now time.Time) {
	last := st.last.Load()
	idle := now.Sub(time.Unix(0, last))
	if idle < st.d {
		return
	}
	// Lose the race to a concurrent touch rather than flush over fresh activity.
	if !st.last.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	a := st.owner
	a.metrics.RecordTimeoutFlush(context.Background())
	observability.LogTimeoutFlush(a.logger, st.d, idle)
	a.ob.Notify(a.successKey, event.Empty)
}
