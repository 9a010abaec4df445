// ABOUTME: Bounded queue package used between pipeline stages
// ABOUTME: Provides a generic blocking channel with explicit shutdown
// Package queue provides a bounded, blocking FIFO.
//
// Unlike a Go channel, a Channel can be shut down while producers and
// consumers are blocked on it: pushes fail, and pops drain what is left
// before reporting exhaustion. Timed pops distinguish "nothing arrived yet"
// from "shut down and empty".
//
// Example:
//
//	c, err := queue.New[*media.Sample](60)
//	c.Push(sample)
//	s, status := c.PopTimeout(20 * time.Millisecond)
package queue
