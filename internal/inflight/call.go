// Package inflight provides the shared handle for a computation that several
// goroutines wait on while exactly one of them performs it.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// Call represents an active or completed computation. It resolves exactly
// once; every waiter observes the same value and error.
type Call[T any] struct {
	done    chan struct{}
	once    sync.Once
	val     T
	err     error
	waiters atomic.Int64
}

// New creates an unresolved Call.
func New[T any]() *Call[T] {
	return &Call[T]{
		done: make(chan struct{}),
	}
}

// Join records one more goroutine interested in the result and returns the
// updated count.
func (c *Call[T]) Join() int {
	return int(c.waiters.Add(1))
}

// Waiters returns how many goroutines have joined the call.
func (c *Call[T]) Waiters() int {
	return int(c.waiters.Load())
}

// Resolve publishes the outcome and releases all waiters. Only the first
// call has any effect; it reports whether this call resolved c.
func (c *Call[T]) Resolve(val T, err error) bool {
	resolved := false
	c.once.Do(func() {
		c.val = val
		c.err = err
		close(c.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the call has resolved.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call resolves or ctx ends. A resolved call wins over
// a context that ended at the same time.
func (c *Call[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.val, c.err
	default:
	}

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
