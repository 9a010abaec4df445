// ABOUTME: Renderer interfaces consumed by the pipeline
// ABOUTME: Video and audio sinks fed by the decode loops and ticked by the render loop
package render

import (
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/queue"
)

// Default queue sizes and sync tolerances.
const (
	DefaultQueueSize           = 60
	DefaultVideoTolerance      = 15 * time.Millisecond
	DefaultAudioAheadTolerance = 50 * time.Millisecond
	DefaultAudioLateTolerance  = 100 * time.Millisecond
)

// Renderer is the part shared by audio and video renderers.
type Renderer interface {
	// PushFrame queues a decoded frame. It blocks while the queue is full
	// and returns false once the renderer is stopped.
	PushFrame(*media.Sample) bool

	// Render is called by the render loop on every tick.
	Render()

	Pause()
	Resume()
	Stop()

	// EndOfStream tells the renderer no more frames will be pushed.
	EndOfStream()

	// Drained reports whether every frame pushed before EndOfStream has
	// been rendered or dropped.
	Drained() bool

	QueueStats() queue.Stats
}

// VideoRenderer presents decoded video.
type VideoRenderer interface {
	Renderer
	Resize(width, height int) error
	PositionMs() int64
}

// AudioRenderer plays decoded audio.
type AudioRenderer interface {
	Renderer
	SetVolume(int)
	Volume() int
}
