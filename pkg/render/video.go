// ABOUTME: Annex-B video renderer
// ABOUTME: Writes due access units to an elementary stream sink
package render

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/clock"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/queue"
)

// VideoConfig configures a Video renderer.
type VideoConfig struct {
	QueueSize int
	Tolerance time.Duration
}

// Video renders Annex-B access units to an io.Writer, gated by the video
// time of the clock. Writing to io.Discard gives a headless renderer that
// still keeps sync statistics.
type Video struct {
	w     io.Writer
	clock *clock.MediaClock
	log   logger.Writer

	queue *queue.Channel[*media.Sample]
	gate  *Gate

	width    atomic.Int64
	height   atomic.Int64
	position atomic.Int64
	written  atomic.Uint64

	eos     atomic.Bool
	paused  atomic.Bool
	stopped atomic.Bool
}

// NewVideo allocates a Video.
func NewVideo(cfg VideoConfig, w io.Writer, clk *clock.MediaClock, l logger.Writer) (*Video, error) {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultVideoTolerance
	}
	if w == nil {
		w = io.Discard
	}

	q, err := queue.New[*media.Sample](cfg.QueueSize)
	if err != nil {
		return nil, err
	}

	return &Video{
		w:     w,
		clock: clk,
		log:   logger.OrDiscard(l),
		queue: q,
		gate:  NewGate(q, cfg.Tolerance, cfg.Tolerance),
	}, nil
}

// Resize implements VideoRenderer.
func (v *Video) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid video size %dx%d", width, height)
	}
	v.width.Store(int64(width))
	v.height.Store(int64(height))
	v.log.Log(logger.Info, "video size %dx%d", width, height)
	return nil
}

// Size returns the size set by Resize.
func (v *Video) Size() (int, int) {
	return int(v.width.Load()), int(v.height.Load())
}

// SetTolerance changes the sync window.
func (v *Video) SetTolerance(d time.Duration) {
	v.gate.SetTolerances(d, d)
}

// PushFrame implements Renderer.
func (v *Video) PushFrame(s *media.Sample) bool {
	if v.stopped.Load() {
		return false
	}
	return v.queue.Push(s)
}

// Render implements Renderer.
func (v *Video) Render() {
	if v.paused.Load() || v.stopped.Load() {
		return
	}

	_, err := v.gate.Tick(v.clock.VideoTimeMs(), v.write)
	if err != nil {
		v.log.Log(logger.Warn, "unable to write frame: %v", err)
	}
}

func (v *Video) write(s *media.Sample) error {
	v.position.Store(s.PTS)
	n, err := v.w.Write(s.Data)
	v.written.Add(uint64(n))
	return err
}

// Pause implements Renderer.
func (v *Video) Pause() {
	v.paused.Store(true)
}

// Resume implements Renderer.
func (v *Video) Resume() {
	v.paused.Store(false)
}

// Stop implements Renderer.
func (v *Video) Stop() {
	if v.stopped.Swap(true) {
		return
	}
	v.queue.Shutdown()
}

// EndOfStream implements Renderer.
func (v *Video) EndOfStream() {
	v.eos.Store(true)
}

// Drained implements Renderer.
func (v *Video) Drained() bool {
	return v.eos.Load() && v.queue.IsEmpty() && !v.gate.HasPending()
}

// QueueStats implements Renderer.
func (v *Video) QueueStats() queue.Stats {
	return v.queue.Stats()
}

// PositionMs implements VideoRenderer.
func (v *Video) PositionMs() int64 {
	return v.position.Load()
}

// GateStats returns the played and dropped frame counters.
func (v *Video) GateStats() GateStats {
	return v.gate.Stats()
}

// BytesWritten returns the size of the elementary stream written so far.
func (v *Video) BytesWritten() uint64 {
	return v.written.Load()
}
