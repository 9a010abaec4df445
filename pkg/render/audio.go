// ABOUTME: Audio renderer backed by an audio output device
// ABOUTME: Feeds due PCM frames to the device and reports its latency to the clock
package render

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/audio/output"
	"github.com/Resonate-Protocol/reel-go/pkg/audio/resample"
	"github.com/Resonate-Protocol/reel-go/pkg/clock"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/queue"
)

// frames written per tick at most, so a backlog after a pause does not
// stall the render loop
const maxAudioFramesPerTick = 8

// AudioConfig configures an Audio renderer.
type AudioConfig struct {
	QueueSize      int
	AheadTolerance time.Duration
	LateTolerance  time.Duration

	// DeviceSampleRate opens the device at a fixed rate and resamples.
	// Zero follows the track.
	DeviceSampleRate int

	Volume int
}

// Audio renders decoded PCM to an output.Output.
//
// The reference time is the clock time minus the device buffer latency,
// and a frame may run ahead of it by the device buffer plus AheadTolerance.
type Audio struct {
	out   output.Output
	clock *clock.MediaClock
	log   logger.Writer

	format    audio.Format
	resampler *resample.Resampler

	queue *queue.Channel[*media.Sample]
	gate  *Gate

	eos     atomic.Bool
	paused  atomic.Bool
	stopped atomic.Bool
}

// NewAudio opens out with the format of the track and allocates an Audio.
func NewAudio(cfg AudioConfig, info *media.TrackInfo, out output.Output, clk *clock.MediaClock, l logger.Writer) (*Audio, error) {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.AheadTolerance == 0 {
		cfg.AheadTolerance = DefaultAudioAheadTolerance
	}
	if cfg.LateTolerance == 0 {
		cfg.LateTolerance = DefaultAudioLateTolerance
	}

	format, err := audio.FormatOf(info)
	if err != nil {
		return nil, err
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid audio format %d Hz, %d channels", format.SampleRate, format.Channels)
	}

	q, err := queue.New[*media.Sample](cfg.QueueSize)
	if err != nil {
		return nil, err
	}

	a := &Audio{
		out:    out,
		clock:  clk,
		log:    logger.OrDiscard(l),
		format: format,
		queue:  q,
		gate:   NewGate(q, cfg.AheadTolerance, cfg.LateTolerance),
	}

	rate := format.SampleRate
	if cfg.DeviceSampleRate > 0 && cfg.DeviceSampleRate != rate {
		a.resampler = resample.New(rate, cfg.DeviceSampleRate, format.Channels)
		rate = cfg.DeviceSampleRate
		a.log.Log(logger.Info, "resampling %d Hz to %d Hz", format.SampleRate, rate)
	}

	err = out.Open(rate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio output: %w", err)
	}

	if cfg.Volume != 0 {
		out.SetVolume(cfg.Volume)
	}

	return a, nil
}

// SetTolerances changes the sync window.
func (a *Audio) SetTolerances(ahead, late time.Duration) {
	a.gate.SetTolerances(ahead, late)
}

// PushFrame implements Renderer.
func (a *Audio) PushFrame(s *media.Sample) bool {
	if a.stopped.Load() {
		return false
	}
	return a.queue.Push(s)
}

// Render implements Renderer.
func (a *Audio) Render() {
	if a.paused.Load() || a.stopped.Load() {
		return
	}

	latency := a.out.Latency().Milliseconds()
	a.clock.SetAudioLatencyMs(latency)
	ref := a.clock.TimeMs() - latency

	for i := 0; i < maxAudioFramesPerTick; i++ {
		played, err := a.gate.TickWithSlack(ref, latency, a.write)
		if err != nil && !a.stopped.Load() {
			a.log.Log(logger.Warn, "unable to write audio: %v", err)
		}
		if !played {
			return
		}
	}
}

func (a *Audio) write(s *media.Sample) error {
	samples := audio.UnpackSamples(s.Data)
	if a.resampler != nil {
		samples = a.resampler.Convert(samples)
	}
	return a.out.Write(samples)
}

// Pause implements Renderer.
func (a *Audio) Pause() {
	a.paused.Store(true)
	if p, ok := a.out.(output.Pauser); ok {
		p.Pause()
	}
}

// Resume implements Renderer.
func (a *Audio) Resume() {
	a.paused.Store(false)
	if p, ok := a.out.(output.Pauser); ok {
		p.Resume()
	}
}

// Stop implements Renderer. It may run while Render is in progress on
// another goroutine; the output is closed under it.
func (a *Audio) Stop() {
	if a.stopped.Swap(true) {
		return
	}
	a.queue.Shutdown()

	err := a.out.Close()
	if err != nil {
		a.log.Log(logger.Warn, "unable to close audio output: %v", err)
	}
}

// EndOfStream implements Renderer.
func (a *Audio) EndOfStream() {
	a.eos.Store(true)
}

// Drained implements Renderer.
func (a *Audio) Drained() bool {
	return a.eos.Load() && a.queue.IsEmpty() && !a.gate.HasPending()
}

// QueueStats implements Renderer.
func (a *Audio) QueueStats() queue.Stats {
	return a.queue.Stats()
}

// SetVolume implements AudioRenderer.
func (a *Audio) SetVolume(v int) {
	a.out.SetVolume(v)
}

// Volume implements AudioRenderer.
func (a *Audio) Volume() int {
	return a.out.Volume()
}

// GateStats returns the played and dropped frame counters.
func (a *Audio) GateStats() GateStats {
	return a.gate.Stats()
}
