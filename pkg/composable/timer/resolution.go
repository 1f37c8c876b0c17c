package timer

import "time"

// resolutionTimer rounds every delay up to a multiple of res.
type resolutionTimer struct {
	Timer
	res time.Duration
}

// WithResolution returns a Timer that schedules on t with delays rounded up
// to a multiple of res, so many short timeouts share fewer distinct wakeups.
// A non-positive res returns t unchanged.
func WithResolution(t Timer, res time.Duration) Timer {
	if res <= 0 {
		return t
	}
	return &resolutionTimer{Timer: t, res: res}
}

// Schedule implements Timer.
func (r *resolutionTimer) Schedule(delay time.Duration, recurring bool, fn func(now time.Time)) Cancellable {
	return r.Timer.Schedule(Round(delay, r.res), recurring, fn)
}

// Resolution returns the rounding granularity.
func (r *resolutionTimer) Resolution() time.Duration {
	return r.res
}

// Round rounds d up to a multiple of res.
func Round(d, res time.Duration) time.Duration {
	if res <= 0 || d%res == 0 {
		return d
	}
	return (d/res + 1) * res
}
