// ABOUTME: Pipeline configuration, factories and states
// ABOUTME: Factories let callers choose every collaborator of the pipeline
package pipeline

import (
	"context"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/clock"
	"github.com/Resonate-Protocol/reel-go/pkg/decode"
	"github.com/Resonate-Protocol/reel-go/pkg/extract"
	"github.com/Resonate-Protocol/reel-go/pkg/input"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/render"
	"github.com/Resonate-Protocol/reel-go/pkg/source"
	"github.com/Resonate-Protocol/reel-go/pkg/track"
)

// Defaults.
const (
	DefaultRenderInterval = 5 * time.Millisecond
	DefaultIdleInterval   = 5 * time.Millisecond
	DefaultMaxReadErrors  = 64
)

// Config configures a Pipeline.
type Config struct {
	// TrackQueueSize is the capacity of every track buffer (default: 1024)
	TrackQueueSize int

	// PopTimeout bounds how long a decode loop waits for a sample (default: 20ms)
	PopTimeout time.Duration

	// RenderInterval is the render loop period (default: 5ms)
	RenderInterval time.Duration

	// IdleInterval is how long paused loops sleep (default: 5ms)
	IdleInterval time.Duration

	// MaxReadErrors is the number of consecutive read errors after which
	// the stream is treated as ended (default: 64). Errors below it are
	// logged and reading continues.
	MaxReadErrors int

	// StopOnEOS makes Play return once every renderer has drained.
	// Otherwise the pipeline idles at the end of the stream.
	StopOnEOS bool

	// OnStateChange is called after every state transition, outside of
	// any pipeline lock.
	OnStateChange func(State)

	Log logger.Writer
}

func (c Config) withDefaults() Config {
	if c.TrackQueueSize == 0 {
		c.TrackQueueSize = track.DefaultCapacity
	}
	if c.PopTimeout == 0 {
		c.PopTimeout = track.DefaultPopTimeout
	}
	if c.RenderInterval == 0 {
		c.RenderInterval = DefaultRenderInterval
	}
	if c.IdleInterval == 0 {
		c.IdleInterval = DefaultIdleInterval
	}
	if c.MaxReadErrors <= 0 {
		c.MaxReadErrors = DefaultMaxReadErrors
	}
	c.Log = logger.OrDiscard(c.Log)
	return c
}

// SourceFactory opens the source of a URL.
type SourceFactory func(ctx context.Context, url string) (source.Source, error)

// ExtractorFactory builds an unstarted extractor reading src.
type ExtractorFactory func(src source.Source) (extract.Extractor, error)

// DecoderFactory builds the decoder of a track.
type DecoderFactory func(info *media.TrackInfo) (decode.Decoder, error)

// VideoRendererFactory builds the renderer of the video track.
type VideoRendererFactory func(info *media.TrackInfo, clk *clock.MediaClock) (render.VideoRenderer, error)

// AudioRendererFactory builds the renderer of the audio track.
type AudioRendererFactory func(info *media.TrackInfo, clk *clock.MediaClock) (render.AudioRenderer, error)

// InputFactory builds the input handler polled while playing.
type InputFactory func() (input.Handler, error)

// Factories are the collaborators of a Pipeline.
// Source, Extractor and at least one renderer factory are required.
type Factories struct {
	Source        SourceFactory
	Extractor     ExtractorFactory
	Decoder       DecoderFactory
	VideoRenderer VideoRendererFactory
	AudioRenderer AudioRendererFactory
	Input         InputFactory
}

// State is the lifecycle state of a Pipeline.
type State int

// States.
const (
	StateIdle State = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateStopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}
