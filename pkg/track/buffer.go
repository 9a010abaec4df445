// ABOUTME: Per-track buffer of encoded samples
// ABOUTME: Tracks upstream end-of-stream and buffered duration
package track

import (
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/queue"
)

// Defaults used when Config fields are zero.
const (
	DefaultCapacity   = 1024
	DefaultPopTimeout = 20 * time.Millisecond
)

// Error is the outcome of PopSample.
type Error int

// PopSample outcomes.
const (
	NoError Error = iota
	Timeout
	EndOfStream
)

// String implements fmt.Stringer.
func (e Error) String() string {
	switch e {
	case NoError:
		return "no error"
	case Timeout:
		return "timeout"
	case EndOfStream:
		return "end of stream"
	}
	return "unknown"
}

// Result is returned by PopSample.
type Result struct {
	TrackID uint32
	Err     Error
	Sample  *media.Sample
}

// Config configures a Buffer.
type Config struct {
	// Capacity is the maximum number of queued samples (default: 1024)
	Capacity int

	// PopTimeout bounds how long PopSample waits (default: 20ms)
	PopTimeout time.Duration
}

// Buffer holds the encoded samples of one track between the buffering
// goroutine and the track's decode goroutine.
type Buffer struct {
	info       *media.TrackInfo
	ch         *queue.Channel[*media.Sample]
	popTimeout time.Duration

	bufferedDuration atomic.Uint64
	eos              atomic.Bool
}

// New creates a buffer for the given track.
func New(info *media.TrackInfo, config Config) (*Buffer, error) {
	if config.Capacity == 0 {
		config.Capacity = DefaultCapacity
	}
	if config.PopTimeout == 0 {
		config.PopTimeout = DefaultPopTimeout
	}

	ch, err := queue.New[*media.Sample](config.Capacity)
	if err != nil {
		return nil, err
	}

	return &Buffer{
		info:       info,
		ch:         ch,
		popTimeout: config.PopTimeout,
	}, nil
}

// PushSample queues a sample, blocking while the buffer is full.
// It returns false once the buffer is shut down.
func (b *Buffer) PushSample(s *media.Sample) bool {
	if !b.ch.Push(s) {
		return false
	}
	b.bufferedDuration.Add(s.Duration)
	return true
}

// SetDataSourceReachedEOS records that no more samples will be pushed.
func (b *Buffer) SetDataSourceReachedEOS() {
	b.eos.Store(true)
}

// ReachedEOS reports whether the upstream source is exhausted.
func (b *Buffer) ReachedEOS() bool {
	return b.eos.Load()
}

// PopSample returns the next sample, a timeout, or end of stream.
// It never blocks once the buffer is empty and EOS was reported.
func (b *Buffer) PopSample() Result {
	res := Result{TrackID: b.info.ID}

	if b.eos.Load() && b.ch.IsEmpty() {
		res.Err = EndOfStream
		return res
	}

	s, st := b.ch.PopTimeout(b.popTimeout)
	switch st {
	case queue.PopOK:
		res.Sample = s
	case queue.PopTimeout:
		res.Err = Timeout
	case queue.PopShutdown:
		res.Err = EndOfStream
	}
	return res
}

// Info returns the track description.
func (b *Buffer) Info() *media.TrackInfo {
	return b.info
}

// BufferedDuration returns the total duration of all samples ever pushed,
// in milliseconds.
func (b *Buffer) BufferedDuration() uint64 {
	return b.bufferedDuration.Load()
}

// Stats returns queue occupancy.
func (b *Buffer) Stats() queue.Stats {
	return b.ch.Stats()
}

// Shutdown wakes any goroutine blocked on the buffer.
func (b *Buffer) Shutdown() {
	b.ch.Shutdown()
}
