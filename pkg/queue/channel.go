// ABOUTME: Bounded blocking FIFO shared between pipeline stages
// ABOUTME: Ring buffer guarded by a mutex and two conditions plus a shutdown flag
package queue

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidCapacity is returned when a channel is created with no room.
var ErrInvalidCapacity = errors.New("channel capacity must be greater than zero")

// PopStatus is the outcome of a timed pop.
type PopStatus int

// Timed pop outcomes.
const (
	PopOK PopStatus = iota
	PopTimeout
	PopShutdown
)

// String implements fmt.Stringer.
func (s PopStatus) String() string {
	switch s {
	case PopOK:
		return "ok"
	case PopTimeout:
		return "timeout"
	case PopShutdown:
		return "shutdown"
	}
	return "unknown"
}

// Stats is a snapshot of a channel's occupancy.
type Stats struct {
	Size     int
	Capacity int
}

// FillPercent returns how full the channel was, from 0 to 100.
func (s Stats) FillPercent() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Size) * 100 / float64(s.Capacity)
}

// Channel is a fixed-capacity, thread-safe FIFO.
//
// After Shutdown, pushes fail and pops keep returning buffered items until
// the channel is empty.
type Channel[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf      []T
	head     int
	count    int
	shutdown bool
}

// New creates a channel holding at most capacity items.
func New[T any](capacity int) (*Channel[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	c := &Channel[T]{
		buf: make([]T, capacity),
	}
	c.notFull = sync.NewCond(&c.mu)
	c.notEmpty = sync.NewCond(&c.mu)
	return c, nil
}

// Push blocks until there is room, then appends item.
// It returns false without inserting once the channel is shut down.
func (c *Channel[T]) Push(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.count == len(c.buf) && !c.shutdown {
		c.notFull.Wait()
	}
	if c.shutdown {
		return false
	}

	c.enqueue(item)
	return true
}

// TryPush appends item if there is room and the channel is open.
func (c *Channel[T]) TryPush(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown || c.count == len(c.buf) {
		return false
	}

	c.enqueue(item)
	return true
}

// Pop blocks until an item is available and returns it.
// The second result is false only when the channel is shut down and empty.
func (c *Channel[T]) Pop() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.count == 0 && !c.shutdown {
		c.notEmpty.Wait()
	}
	if c.count == 0 {
		var zero T
		return zero, false
	}

	return c.dequeue(), true
}

// PopTimeout behaves like Pop but gives up after timeout.
func (c *Channel[T]) PopTimeout(timeout time.Duration) (T, PopStatus) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 && !c.shutdown {
		deadline := time.Now().Add(timeout)

		// sync.Cond has no timed wait; the timer wakes every waiter and each
		// one re-checks its own deadline.
		timer := time.AfterFunc(timeout, func() {
			c.mu.Lock()
			c.notEmpty.Broadcast()
			c.mu.Unlock()
		})
		defer timer.Stop()

		for c.count == 0 && !c.shutdown {
			if !time.Now().Before(deadline) {
				return zero, PopTimeout
			}
			c.notEmpty.Wait()
		}
	}

	if c.count == 0 {
		return zero, PopShutdown
	}

	return c.dequeue(), PopOK
}

// TryPop returns the oldest item if there is one.
func (c *Channel[T]) TryPop() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		var zero T
		return zero, false
	}

	return c.dequeue(), true
}

// Shutdown wakes every waiter and makes further pushes fail.
func (c *Channel[T]) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return
	}
	c.shutdown = true
	c.notFull.Broadcast()
	c.notEmpty.Broadcast()
}

// Len returns the number of buffered items.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Cap returns the fixed capacity.
func (c *Channel[T]) Cap() int {
	return len(c.buf)
}

// IsEmpty reports whether no items are buffered.
func (c *Channel[T]) IsEmpty() bool {
	return c.Len() == 0
}

// IsFull reports whether the channel is at capacity.
func (c *Channel[T]) IsFull() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count == len(c.buf)
}

// IsShutdown reports whether Shutdown was called.
func (c *Channel[T]) IsShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

// Stats returns size and capacity read together.
func (c *Channel[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.count, Capacity: len(c.buf)}
}

func (c *Channel[T]) enqueue(item T) {
	c.buf[(c.head+c.count)%len(c.buf)] = item
	c.count++
	c.notEmpty.Signal()
}

func (c *Channel[T]) dequeue() T {
	var zero T
	item := c.buf[c.head]
	c.buf[c.head] = zero
	c.head = (c.head + 1) % len(c.buf)
	c.count--
	c.notFull.Signal()
	return item
}
