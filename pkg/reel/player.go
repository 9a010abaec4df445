// ABOUTME: High-level Player API for reel
// ABOUTME: Wires the default sources, extractors, decoders and renderers into a pipeline
package reel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/reel-go/internal/version"
	"github.com/Resonate-Protocol/reel-go/pkg/audio/output"
	"github.com/Resonate-Protocol/reel-go/pkg/clock"
	"github.com/Resonate-Protocol/reel-go/pkg/decode"
	"github.com/Resonate-Protocol/reel-go/pkg/extract"
	"github.com/Resonate-Protocol/reel-go/pkg/input"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/pipeline"
	"github.com/Resonate-Protocol/reel-go/pkg/render"
	"github.com/Resonate-Protocol/reel-go/pkg/source"
)

// volume change of VolumeUp and VolumeDown
const volumeStep = 10

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// TrackQueueSize is the capacity of each track buffer (default: 1024)
	TrackQueueSize int

	// VideoQueueSize and AudioQueueSize are the renderer queue capacities (default: 60)
	VideoQueueSize int
	AudioQueueSize int

	// HTTPBufferMin is what the HTTP source buffers before reads return (default: 512KB)
	HTTPBufferMin int64

	PopTimeout     time.Duration
	RenderInterval time.Duration

	// Sync windows (defaults: 15ms, 50ms, 100ms)
	VideoTolerance      time.Duration
	AudioAheadTolerance time.Duration
	AudioLateTolerance  time.Duration

	// DeviceSampleRate opens the audio device at a fixed rate (0: follow the track)
	DeviceSampleRate int

	// Volume is the initial volume (0-100)
	Volume int

	// VideoOutput receives the Annex-B stream (default: discarded)
	VideoOutput io.Writer

	// AudioOutput plays audio (default: the system device)
	AudioOutput output.Output

	// Input is polled for commands while playing
	Input input.Handler

	// StopOnEOS makes Play return at the end of the media
	StopOnEOS bool

	Log logger.Writer

	// OnStateChange is called when playback state changes
	OnStateChange func(PlayerState)

	// OnError is called when errors occur
	OnError func(error)
}

// PlayerState describes the current state
type PlayerState struct {
	State     pipeline.State
	Volume    int
	URL       string
	SessionID string
}

// Player plays a URL with the bundled collaborators.
type Player struct {
	config  PlayerConfig
	log     logger.Writer
	sources *source.Registry
	pl      *pipeline.Pipeline

	mutex sync.Mutex
	state PlayerState
	video *render.Video
	audio *render.Audio
}

// NewPlayer creates a new player with the given configuration
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.Volume == 0 {
		config.Volume = 100
	}
	if config.VideoTolerance == 0 {
		config.VideoTolerance = render.DefaultVideoTolerance
	}
	if config.AudioAheadTolerance == 0 {
		config.AudioAheadTolerance = render.DefaultAudioAheadTolerance
	}
	if config.AudioLateTolerance == 0 {
		config.AudioLateTolerance = render.DefaultAudioLateTolerance
	}
	if config.VideoOutput == nil {
		config.VideoOutput = io.Discard
	}

	l := logger.OrDiscard(config.Log)

	p := &Player{
		config: config,
		log:    l,
		sources: source.NewRegistry(source.Config{
			HTTPBufferMin: config.HTTPBufferMin,
			UserAgent:     version.UserAgent,
			Log:           logger.WithPrefix(l, "source"),
		}),
		state: PlayerState{
			State:  pipeline.StateIdle,
			Volume: clampVolume(config.Volume),
		},
	}

	f := pipeline.Factories{
		Source:        p.openSource,
		Extractor:     p.newExtractor,
		Decoder:       decode.NewForTrack,
		VideoRenderer: p.newVideoRenderer,
		AudioRenderer: p.newAudioRenderer,
	}
	if config.Input != nil {
		f.Input = func() (input.Handler, error) {
			return sharedInput{config.Input}, nil
		}
	}

	pl, err := pipeline.New(pipeline.Config{
		TrackQueueSize: config.TrackQueueSize,
		PopTimeout:     config.PopTimeout,
		RenderInterval: config.RenderInterval,
		StopOnEOS:      config.StopOnEOS,
		OnStateChange: func(pipeline.State) {
			p.notifyStateChange()
		},
		Log: logger.WithPrefix(l, "pipeline"),
	}, f)
	if err != nil {
		return nil, err
	}
	pl.SetCommandCallback(p.HandleCommand)
	p.pl = pl

	return p, nil
}

// Sources returns the scheme registry, to register custom sources.
func (p *Player) Sources() *source.Registry {
	return p.sources
}

func (p *Player) openSource(ctx context.Context, url string) (source.Source, error) {
	return p.sources.Open(ctx, url)
}

func (p *Player) newExtractor(src source.Source) (extract.Extractor, error) {
	e, c, err := extract.New(src, extract.Options{Log: logger.WithPrefix(p.log, "extract")})
	if err != nil {
		return nil, err
	}
	p.log.Log(logger.Debug, "container: %s", c)
	return e, nil
}

func (p *Player) newVideoRenderer(_ *media.TrackInfo, clk *clock.MediaClock) (render.VideoRenderer, error) {
	v, err := render.NewVideo(render.VideoConfig{
		QueueSize: p.config.VideoQueueSize,
		Tolerance: p.config.VideoTolerance,
	}, p.config.VideoOutput, clk, logger.WithPrefix(p.log, "video"))
	if err != nil {
		return nil, err
	}

	p.mutex.Lock()
	p.video = v
	p.mutex.Unlock()

	return v, nil
}

func (p *Player) newAudioRenderer(info *media.TrackInfo, clk *clock.MediaClock) (render.AudioRenderer, error) {
	out := p.config.AudioOutput
	if out == nil {
		out = output.NewOto(logger.WithPrefix(p.log, "oto"))
	}

	p.mutex.Lock()
	volume := p.state.Volume
	p.mutex.Unlock()

	a, err := render.NewAudio(render.AudioConfig{
		QueueSize:        p.config.AudioQueueSize,
		AheadTolerance:   p.config.AudioAheadTolerance,
		LateTolerance:    p.config.AudioLateTolerance,
		DeviceSampleRate: p.config.DeviceSampleRate,
		Volume:           volume,
	}, info, out, clk, logger.WithPrefix(p.log, "audio"))
	if err != nil {
		return nil, err
	}

	p.mutex.Lock()
	p.audio = a
	p.mutex.Unlock()

	return a, nil
}

// Load opens url and prepares playback.
func (p *Player) Load(ctx context.Context, url string) error {
	p.mutex.Lock()
	p.video = nil
	p.audio = nil
	p.mutex.Unlock()

	err := p.pl.Load(ctx, url)
	if err != nil {
		p.notifyError(fmt.Errorf("failed to load %s: %w", url, err))
		return err
	}

	p.log.Log(logger.Info, "%s", p.pl.MediaInfo())

	p.mutex.Lock()
	p.state.URL = url
	p.state.SessionID = p.pl.SessionID()
	p.mutex.Unlock()

	return nil
}

// Play plays until Stop, a quit command or, with StopOnEOS, the end of
// the media. It blocks.
func (p *Player) Play() error {
	err := p.pl.Play()
	if err != nil {
		p.notifyError(fmt.Errorf("playback error: %w", err))
	}
	return err
}

// Pause pauses playback
func (p *Player) Pause() {
	p.pl.Pause()
}

// Resume resumes playback
func (p *Player) Resume() {
	p.pl.Resume()
}

// TogglePause pauses or resumes playback
func (p *Player) TogglePause() {
	if p.pl.IsPaused() {
		p.Resume()
	} else {
		p.Pause()
	}
}

// Stop stops playback and releases the media
func (p *Player) Stop() error {
	return p.pl.Stop()
}

// SetVolume sets the volume (0-100)
func (p *Player) SetVolume(volume int) {
	volume = clampVolume(volume)

	p.mutex.Lock()
	p.state.Volume = volume
	a := p.audio
	p.mutex.Unlock()

	if a != nil {
		a.SetVolume(volume)
	}

	p.notifyStateChange()
}

// Volume returns the volume (0-100)
func (p *Player) Volume() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state.Volume
}

// SetTolerances changes the sync windows of the running renderers and of
// renderers created by later loads.
func (p *Player) SetTolerances(video, audioAhead, audioLate time.Duration) {
	p.mutex.Lock()
	p.config.VideoTolerance = video
	p.config.AudioAheadTolerance = audioAhead
	p.config.AudioLateTolerance = audioLate
	v, a := p.video, p.audio
	p.mutex.Unlock()

	if v != nil {
		v.SetTolerance(video)
	}
	if a != nil {
		a.SetTolerances(audioAhead, audioLate)
	}
}

// HandleCommand applies a user command.
func (p *Player) HandleCommand(c input.Command) {
	p.log.Log(logger.Debug, "command: %s", c)

	switch c {
	case input.TogglePause:
		p.TogglePause()

	case input.Quit:
		err := p.Stop()
		if err != nil {
			p.notifyError(err)
		}

	case input.VolumeUp:
		p.SetVolume(p.Volume() + volumeStep)

	case input.VolumeDown:
		p.SetVolume(p.Volume() - volumeStep)

	case input.ShowStats:
		p.log.Log(logger.Info, "stats:\n%s", p.pl.Stats())

	case input.SeekForward, input.SeekBackward:
		p.log.Log(logger.Info, "%s: seeking is not implemented", c)
	}
}

// Status returns the current player state
func (p *Player) Status() PlayerState {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	st := p.state
	st.State = p.pl.State()
	return st
}

// Stats returns playback statistics
func (p *Player) Stats() pipeline.Stats {
	return p.pl.Stats()
}

// MediaInfo returns the description of the loaded media
func (p *Player) MediaInfo() *media.MediaInfo {
	return p.pl.MediaInfo()
}

// Close stops playback and releases all resources
func (p *Player) Close() error {
	err := p.Stop()
	if p.config.Input != nil {
		p.config.Input.Close()
	}
	return err
}

// notifyStateChange calls the OnStateChange callback if set
func (p *Player) notifyStateChange() {
	if p.config.OnStateChange != nil {
		p.config.OnStateChange(p.Status())
	}
}

// notifyError calls the OnError callback if set
func (p *Player) notifyError(err error) {
	if p.config.OnError != nil {
		p.config.OnError(err)
	} else {
		p.log.Log(logger.Error, "%v", err)
	}
}

// sharedInput outlives a single load; Close releases it.
type sharedInput struct {
	input.Handler
}

func (sharedInput) Close() error { return nil }

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
