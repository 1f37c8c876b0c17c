package bus

import (
	"errors"
	"hash/maphash"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrClosed indicates the bus or dispatcher has been closed.
var ErrClosed = errors.New("bus closed")

// Dispatcher runs delivery tasks. Tasks dispatched with the same key must run
// in dispatch order; tasks for different keys may run concurrently.
type Dispatcher interface {
	// Dispatch schedules task. It must not block on task completion.
	Dispatch(key any, task func()) error

	// Close stops accepting tasks and releases resources.
	Close() error
}

// SyncDispatcher runs each task on the dispatching goroutine.
type SyncDispatcher struct {
	closed atomic.Bool
}

// NewSyncDispatcher creates a synchronous dispatcher.
func NewSyncDispatcher() *SyncDispatcher {
	return &SyncDispatcher{}
}

// Dispatch implements Dispatcher.
func (d *SyncDispatcher) Dispatch(_ any, task func()) error {
	if d.closed.Load() {
		return ErrClosed
	}
	task()
	return nil
}

// Close implements Dispatcher.
func (d *SyncDispatcher) Close() error {
	d.closed.Store(true)
	return nil
}

// WorkerDispatcherConfig configures a WorkerDispatcher.
type WorkerDispatcherConfig struct {
	// Workers is the number of lanes.
	// Default: 4
	Workers int
}

// DefaultWorkerDispatcherConfig provides reasonable defaults.
var DefaultWorkerDispatcherConfig = WorkerDispatcherConfig{
	Workers: 4,
}

// WorkerDispatcher runs tasks on a fixed set of goroutines. Each key is
// hashed to one lane and each lane is an unbounded FIFO queue, so Dispatch
// never blocks and per-key order is preserved.
type WorkerDispatcher struct {
	lanes  []*lane
	seed   maphash.Seed
	group  *errgroup.Group
	closed atomic.Bool
	once   sync.Once
	err    error
}

// NewWorkerDispatcher starts a worker dispatcher.
func NewWorkerDispatcher(config WorkerDispatcherConfig) *WorkerDispatcher {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkerDispatcherConfig.Workers
	}

	d := &WorkerDispatcher{
		lanes: make([]*lane, config.Workers),
		seed:  maphash.MakeSeed(),
		group: &errgroup.Group{},
	}
	for i := range d.lanes {
		l := newLane()
		d.lanes[i] = l
		d.group.Go(l.run)
	}
	return d
}

// Dispatch implements Dispatcher. key must be comparable.
func (d *WorkerDispatcher) Dispatch(key any, task func()) error {
	if d.closed.Load() {
		return ErrClosed
	}
	idx := maphash.Comparable(d.seed, key) % uint64(len(d.lanes))
	if !d.lanes[idx].push(task) {
		return ErrClosed
	}
	return nil
}

// Workers returns the number of lanes.
func (d *WorkerDispatcher) Workers() int {
	return len(d.lanes)
}

// Close stops accepting tasks, runs everything already queued, then waits
// for the lanes to exit.
func (d *WorkerDispatcher) Close() error {
	d.once.Do(func() {
		d.closed.Store(true)
		for _, l := range d.lanes {
			l.close()
		}
		d.err = d.group.Wait()
	})
	return d.err
}

// lane is one worker goroutine with its queue.
type lane struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
}

func newLane() *lane {
	l := &lane{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *lane) push(task func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, task)
	l.cond.Signal()
	return true
}

func (l *lane) close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

func (l *lane) run() error {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return nil
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
	}
}
