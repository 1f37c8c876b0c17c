// Package timer provides the scheduling capability used by timeout actions:
// run a callback once or repeatedly after a delay.
//
// Standard is backed by the runtime timer. Manual advances only when told to
// and is meant for deterministic tests.
package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cancellable is a handle to a scheduled callback.
type Cancellable interface {
	// Cancel stops future invocations. Safe to call more than once.
	Cancel()

	// Cancelled reports whether Cancel has been called.
	Cancelled() bool
}

// Timer schedules callbacks.
type Timer interface {
	// Schedule runs fn after delay, and then every delay if recurring.
	// fn receives the timer's notion of the current time.
	Schedule(delay time.Duration, recurring bool, fn func(now time.Time)) Cancellable

	// Now returns the timer's current time.
	Now() time.Time
}

// Standard is a Timer backed by time.Timer and time.Ticker.
type Standard struct {
	mu     sync.Mutex
	tasks  map[*standardTask]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewStandard creates a runtime-backed timer.
func NewStandard() *Standard {
	return &Standard{tasks: make(map[*standardTask]struct{})}
}

type standardTask struct {
	owner     *Standard
	stop      chan struct{}
	cancelled atomic.Bool
}

func (t *standardTask) Cancel() {
	if !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	close(t.stop)
	t.owner.mu.Lock()
	delete(t.owner.tasks, t)
	t.owner.mu.Unlock()
}

func (t *standardTask) Cancelled() bool {
	return t.cancelled.Load()
}

// Schedule implements Timer. delay must be positive.
// Scheduling on a closed timer returns an already cancelled handle.
func (s *Standard) Schedule(delay time.Duration, recurring bool, fn func(now time.Time)) Cancellable {
	if delay <= 0 {
		panic("timer: non-positive delay")
	}
	task := &standardTask{owner: s, stop: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		task.cancelled.Store(true)
		return task
	}
	s.tasks[task] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(task, delay, recurring, fn)
	return task
}

func (s *Standard) run(task *standardTask, delay time.Duration, recurring bool, fn func(time.Time)) {
	defer s.wg.Done()

	if !recurring {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case now := <-t.C:
			if !task.cancelled.Load() {
				fn(now)
			}
			task.Cancel()
		case <-task.stop:
		}
		return
	}

	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if task.cancelled.Load() {
				return
			}
			fn(now)
		case <-task.stop:
			return
		}
	}
}

// Now implements Timer.
func (s *Standard) Now() time.Time {
	return time.Now()
}

// Close cancels every scheduled callback and waits for running ones.
func (s *Standard) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tasks := make([]*standardTask, 0, len(s.tasks))
	for t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	s.wg.Wait()
	return nil
}
