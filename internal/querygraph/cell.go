package querygraph

import (
	"sync"
	"sync/atomic"
)

// cell is a one-shot lazily computed value. Unlike sync.Once, it
// exposes a non-blocking peek (TryGet) alongside the blocking
// compute-once accessor (GetOrInit), which the generational resolve
// algorithm needs to tell "not yet started" apart from "finished
// elsewhere, go read it".
type cell[T any] struct {
	mu   sync.Mutex
	done atomic.Bool
	val  T
}

func newCell[T any]() *cell[T] {
	return &cell[T]{}
}

// TryGet returns the computed value without blocking. ok is false if
// GetOrInit has not yet completed for this cell.
func (c *cell[T]) TryGet() (T, bool) {
	if c.done.Load() {
		return c.val, true
	}
	var zero T
	return zero, false
}

// GetOrInit runs fn and stores its result the first time it's called,
// and returns the cached result on every subsequent call. Concurrent
// callers block until the first call's fn returns. fn must not call
// back into this same cell; doing so deadlocks.
func (c *cell[T]) GetOrInit(fn func() T) T {
	if c.done.Load() {
		return c.val
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done.Load() {
		return c.val
	}
	c.val = fn()
	c.done.Store(true)
	return c.val
}
