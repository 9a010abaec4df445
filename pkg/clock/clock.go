// ABOUTME: Shared media clock driving audio/video presentation
// ABOUTME: Monotonic elapsed time with pause accounting and audio latency offset
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// noCopy makes go vet report accidental copies of a MediaClock.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// MediaClock is the playback timeline shared by the pipeline and renderers.
// It must be shared by pointer.
type MediaClock struct {
	noCopy noCopy

	mu          sync.RWMutex
	started     bool
	paused      bool
	startTime   time.Time     // origin, carries the monotonic reading
	pauseStart  time.Time     // instant of the current pause
	pauseOffset time.Duration // total of all completed pauses

	audioLatencyMs atomic.Int64

	now func() time.Time
}

// New creates an unstarted clock.
func New() *MediaClock {
	return &MediaClock{now: time.Now}
}

// Start begins the timeline. Calls after the first have no effect.
func (c *MediaClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true
	c.paused = false
	c.startTime = c.now()
	c.pauseOffset = 0
}

// Pause freezes the timeline.
func (c *MediaClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.paused {
		return
	}
	c.paused = true
	c.pauseStart = c.now()
}

// Resume continues the timeline, excluding the paused interval.
func (c *MediaClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || !c.paused {
		return
	}
	c.pauseOffset += c.now().Sub(c.pauseStart)
	c.paused = false
}

// Reset returns the clock to the unstarted state.
func (c *MediaClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = false
	c.paused = false
	c.startTime = time.Time{}
	c.pauseStart = time.Time{}
	c.pauseOffset = 0
	c.audioLatencyMs.Store(0)
}

// TimeMs returns elapsed playback time in milliseconds.
func (c *MediaClock) TimeMs() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return 0
	}

	var elapsed time.Duration
	if c.paused {
		elapsed = c.pauseStart.Sub(c.startTime)
	} else {
		elapsed = c.now().Sub(c.startTime)
	}
	return (elapsed - c.pauseOffset).Milliseconds()
}

// SetAudioLatencyMs records how far the audio device lags the clock.
func (c *MediaClock) SetAudioLatencyMs(ms int64) {
	c.audioLatencyMs.Store(ms)
}

// AudioLatencyMs returns the last reported audio latency.
func (c *MediaClock) AudioLatencyMs() int64 {
	return c.audioLatencyMs.Load()
}

// VideoTimeMs returns the time video frames should be matched against,
// which trails the clock by the audio latency.
func (c *MediaClock) VideoTimeMs() int64 {
	return c.TimeMs() - c.AudioLatencyMs()
}

// IsStarted reports whether Start was called since the last Reset.
func (c *MediaClock) IsStarted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// IsPaused reports whether the clock is frozen.
func (c *MediaClock) IsPaused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}
