package timer

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Manual is a Timer whose clock only moves on Advance.
// Callbacks run on the goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
	seq   uint64
}

// NewManual creates a manual timer starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTask struct {
	due       time.Time
	period    time.Duration
	recurring bool
	fn        func(time.Time)
	seq       uint64
	cancelled atomic.Bool
}

func (t *manualTask) Cancel()         { t.cancelled.Store(true) }
func (t *manualTask) Cancelled() bool { return t.cancelled.Load() }

// Schedule implements Timer.
func (m *Manual) Schedule(delay time.Duration, recurring bool, fn func(now time.Time)) Cancellable {
	if delay <= 0 {
		panic("timer: non-positive delay")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	task := &manualTask{
		due:       m.now.Add(delay),
		period:    delay,
		recurring: recurring,
		fn:        fn,
		seq:       m.seq,
	}
	m.tasks = append(m.tasks, task)
	return task
}

// Now implements Timer.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, firing due callbacks in time order.
// A recurring callback fires once per elapsed period.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		task, ok := m.nextDue(target)
		if !ok {
			break
		}
		task.fn(task.due)
		if task.recurring && !task.cancelled.Load() {
			m.mu.Lock()
			task.due = task.due.Add(task.period)
			m.tasks = append(m.tasks, task)
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

// Pending returns the number of live scheduled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled.Load() {
			n++
		}
	}
	return n
}

// nextDue removes and returns the earliest live task due at or before target,
// moving the clock to its due time.
func (m *Manual) nextDue(target time.Time) (*manualTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled.Load() {
			live = append(live, t)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].due.Before(m.tasks[j].due)
	})
	if len(m.tasks) == 0 || m.tasks[0].due.After(target) {
		return nil, false
	}
	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	m.now = task.due
	return task, true
}
