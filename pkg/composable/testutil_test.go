package composable_test

import (
	"fmt"
	"sync"
	"testing"
)

// collector gathers values from concurrent consumers.
type collector[T any] struct {
	mu     sync.Mutex
	values []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector[T]) get() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.values))
	copy(out, c.values)
	return out
}

func (c *collector[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// recoverPanic runs fn and returns the value it panicked with, as an error.
func recoverPanic(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if e, ok := r.(error); ok {
			err = e
			return
		}
		err = fmt.Errorf("%v", r)
	}()
	fn()
	return nil
}
