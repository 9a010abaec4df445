// ABOUTME: Playback pipeline orchestrator
// ABOUTME: Runs the buffering, decode and render loops around a shared clock
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/reel-go/pkg/bitstream"
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

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state.
	ErrInvalidState = errors.New("invalid pipeline state")

	// ErrNoPlayableTrack is returned by Load when no track can be decoded
	// and rendered.
	ErrNoPlayableTrack = errors.New("no playable track")
)

// stream is a track with a decode loop.
type stream struct {
	buf      *track.Buffer
	decoder  decode.Decoder
	renderer render.Renderer
}

// Pipeline moves samples from a source to the renderers.
//
// Load prepares the collaborators, Play runs until Stop or, with
// StopOnEOS, until every renderer has drained.
type Pipeline struct {
	cfg   Config
	f     Factories
	log   logger.Writer
	clock *clock.MediaClock

	mutex     sync.Mutex
	state     State
	src       source.Source
	ext       extract.Extractor
	info      *media.MediaInfo
	tracks    map[uint32]*track.Buffer
	video     render.VideoRenderer
	audio     render.AudioRenderer
	videoStr  *stream
	audioStr  *stream
	input     input.Handler
	sessionID uuid.UUID
	group     *errgroup.Group
	cancel    context.CancelFunc

	running atomic.Bool
	paused  atomic.Bool

	commands  chan input.Command
	cbMutex   sync.Mutex
	commandCb func(input.Command)

	notify []State

	decoded      atomic.Uint64
	decodeErrors atomic.Uint64
	readErrors   atomic.Uint64
	skipped      atomic.Uint64
}

// New allocates a Pipeline.
func New(cfg Config, f Factories) (*Pipeline, error) {
	if f.Source == nil || f.Extractor == nil {
		return nil, fmt.Errorf("source and extractor factories are required")
	}
	if f.VideoRenderer == nil && f.AudioRenderer == nil {
		return nil, fmt.Errorf("at least one renderer factory is required")
	}
	if f.Decoder == nil {
		f.Decoder = decode.NewForTrack
	}

	cfg = cfg.withDefaults()

	return &Pipeline{
		cfg:      cfg,
		f:        f,
		log:      cfg.Log,
		clock:    clock.New(),
		commands: make(chan input.Command, 16),
	}, nil
}

// Clock returns the clock shared by the renderers.
func (p *Pipeline) Clock() *clock.MediaClock {
	return p.clock
}

// Load opens url and prepares tracks, decoders and renderers.
// On failure everything opened is closed again and the pipeline stays idle.
func (p *Pipeline) Load(ctx context.Context, url string) error {
	p.mutex.Lock()
	defer p.unlock()

	if p.state != StateIdle && p.state != StateStopped {
		return fmt.Errorf("%w: cannot load while %s", ErrInvalidState, p.state)
	}

	p.reset()

	err := p.load(ctx, url)
	if err != nil {
		p.closeAll()
		p.reset()
		p.setState(StateIdle)
		return err
	}

	p.sessionID = uuid.New()
	p.setState(StateLoaded)

	p.log.Log(logger.Info, "loaded %s (session %s)", url, p.sessionID)
	return nil
}

func (p *Pipeline) load(ctx context.Context, url string) error {
	src, err := p.f.Source(ctx, url)
	if err != nil {
		return fmt.Errorf("unable to open source: %w", err)
	}
	p.src = src

	ext, err := p.f.Extractor(src)
	if err != nil {
		return fmt.Errorf("unable to create extractor: %w", err)
	}
	p.ext = ext

	err = ext.Start(ctx)
	if err != nil {
		return fmt.Errorf("unable to start extractor: %w", err)
	}

	info := ext.MediaInfo()
	if info == nil || len(info.Tracks) == 0 {
		return fmt.Errorf("%w: no tracks found", ErrNoPlayableTrack)
	}
	p.info = info

	for _, ti := range info.Tracks {
		buf, err := track.New(ti, track.Config{
			Capacity:   p.cfg.TrackQueueSize,
			PopTimeout: p.cfg.PopTimeout,
		})
		if err != nil {
			return err
		}
		p.tracks[ti.ID] = buf
	}

	if vt := info.FirstOfType(media.TrackTypeVideo); vt != nil && p.f.VideoRenderer != nil {
		dec := p.newDecoder(vt)
		if dec != nil {
			r, err := p.f.VideoRenderer(vt, p.clock)
			if err != nil {
				dec.Close()
				p.log.Log(logger.Warn, "video track %d disabled: unable to create renderer: %v", vt.ID, err)
			} else {
				p.video = r
				p.videoStr = &stream{buf: p.tracks[vt.ID], decoder: dec, renderer: r}
				p.resizeVideo(vt, dec)
			}
		}
	}

	if at := info.FirstOfType(media.TrackTypeAudio); at != nil && p.f.AudioRenderer != nil {
		dec := p.newDecoder(at)
		if dec != nil {
			r, err := p.f.AudioRenderer(at, p.clock)
			if err != nil {
				dec.Close()
				p.log.Log(logger.Warn, "audio track %d disabled: unable to create renderer: %v", at.ID, err)
			} else {
				p.audio = r
				p.audioStr = &stream{buf: p.tracks[at.ID], decoder: dec, renderer: r}
			}
		}
	}

	if p.videoStr == nil && p.audioStr == nil {
		return ErrNoPlayableTrack
	}

	if p.f.Input != nil {
		h, err := p.f.Input()
		if err != nil {
			p.log.Log(logger.Warn, "input disabled: %v", err)
		} else {
			p.input = h
		}
	}

	return nil
}

func (p *Pipeline) newDecoder(info *media.TrackInfo) decode.Decoder {
	dec, err := p.f.Decoder(info)
	if err != nil {
		p.log.Log(logger.Warn, "%s track %d disabled: %v", info.Type, info.ID, err)
		return nil
	}
	return dec
}

type sizer interface {
	Size() (int, int)
}

func (p *Pipeline) resizeVideo(info *media.TrackInfo, dec decode.Decoder) {
	var w, h int
	if v, ok := info.Video(); ok {
		w, h = v.Width, v.Height
		if (w == 0 || h == 0) && v.SPS != nil {
			if pic, err := bitstream.ParseSPS(v.SPS); err == nil {
				w, h = pic.Width, pic.Height
			}
		}
	}
	if w == 0 || h == 0 {
		if s, ok := dec.(sizer); ok {
			w, h = s.Size()
		}
	}

	if w == 0 || h == 0 {
		p.log.Log(logger.Warn, "video size unknown")
		return
	}

	err := p.video.Resize(w, h)
	if err != nil {
		p.log.Log(logger.Warn, "unable to resize video renderer: %v", err)
	}
}

// setState must be called with the mutex held. The change is reported
// by unlock.
func (p *Pipeline) setState(st State) {
	p.state = st
	if p.cfg.OnStateChange != nil {
		p.notify = append(p.notify, st)
	}
}

// unlock releases the mutex and reports state changes made under it.
func (p *Pipeline) unlock() {
	notify := p.notify
	p.notify = nil
	p.mutex.Unlock()

	for _, st := range notify {
		p.cfg.OnStateChange(st)
	}
}

// reset drops the references of a previous load.
func (p *Pipeline) reset() {
	p.src = nil
	p.ext = nil
	p.info = nil
	p.tracks = make(map[uint32]*track.Buffer)
	p.video = nil
	p.audio = nil
	p.videoStr = nil
	p.audioStr = nil
	p.input = nil
	p.group = nil
	p.cancel = nil
	p.paused.Store(false)
	p.decoded.Store(0)
	p.decodeErrors.Store(0)
	p.readErrors.Store(0)
	p.skipped.Store(0)
}

func (p *Pipeline) streams() []*stream {
	var out []*stream
	if p.videoStr != nil {
		out = append(out, p.videoStr)
	}
	if p.audioStr != nil {
		out = append(out, p.audioStr)
	}
	return out
}

// Play starts the worker goroutines and runs the render loop on the
// calling goroutine. It returns after Stop, or once drained with StopOnEOS.
func (p *Pipeline) Play() error {
	p.mutex.Lock()

	if p.state == StatePaused {
		p.mutex.Unlock()
		p.Resume()
		return nil
	}

	if p.state != StateLoaded {
		st := p.state
		p.mutex.Unlock()
		return fmt.Errorf("%w: cannot play while %s", ErrInvalidState, st)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	p.cancel = cancel
	p.group = g
	p.running.Store(true)
	p.setState(StatePlaying)

	g.Go(func() error {
		return p.runBuffering(gctx)
	})

	for _, s := range p.streams() {
		g.Go(func() error {
			return p.runDecode(gctx, s)
		})
	}

	h := p.input

	p.clock.Start()
	p.unlock()

	p.log.Log(logger.Info, "playing")

	p.runRender(gctx, h)

	return p.Stop()
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (p *Pipeline) runBuffering(ctx context.Context) error {
	active := make(map[uint32]*track.Buffer)
	for _, s := range p.streams() {
		active[s.buf.Info().ID] = s.buf
	}

	errCount := 0

	for p.running.Load() && ctx.Err() == nil {
		if p.paused.Load() {
			p.sleep(ctx, p.cfg.IdleInterval)
			continue
		}

		s, err := p.ext.ReadSample()
		if err != nil {
			if errors.Is(err, media.ErrEndOfStream) {
				p.log.Log(logger.Info, "end of stream")
				p.markEOS()
				return nil
			}

			if !p.running.Load() {
				return nil
			}

			p.readErrors.Add(1)
			errCount++
			if errCount >= p.cfg.MaxReadErrors {
				p.log.Log(logger.Error, "too many read errors, last: %v", err)
				p.markEOS()
				return nil
			}

			p.log.Log(logger.Warn, "read: %v", err)
			continue
		}
		errCount = 0

		buf, ok := active[s.TrackID]
		if !ok {
			if _, known := p.tracks[s.TrackID]; !known {
				p.log.Log(logger.Debug, "%v: %d", media.ErrInvalidStreamIndex, s.TrackID)
			}
			p.skipped.Add(1)
			continue
		}

		if !buf.PushSample(s) {
			return nil
		}
	}

	return nil
}

func (p *Pipeline) markEOS() {
	for _, buf := range p.tracks {
		buf.SetDataSourceReachedEOS()
	}
}

func (p *Pipeline) runDecode(ctx context.Context, s *stream) error {
	info := s.buf.Info()
	l := logger.WithPrefix(p.log, info.Type.String())

	for p.running.Load() && ctx.Err() == nil {
		if p.paused.Load() {
			p.sleep(ctx, p.cfg.IdleInterval)
			continue
		}

		res := s.buf.PopSample()

		switch res.Err {
		case track.Timeout:
			continue

		case track.EndOfStream:
			l.Log(logger.Debug, "track %d drained", info.ID)
			s.renderer.EndOfStream()
			return nil
		}

		frame, err := s.decoder.Decode(info, res.Sample)
		if err != nil {
			p.decodeErrors.Add(1)
			l.Log(logger.Warn, "decode at %d ms: %v", res.Sample.PTS, err)
			continue
		}
		if frame == nil {
			continue
		}

		p.decoded.Add(1)

		if !s.renderer.PushFrame(frame) {
			return nil
		}
	}

	return nil
}

// runRender polls the input handler, dispatches commands and renders, all
// on the goroutine that called Play.
func (p *Pipeline) runRender(ctx context.Context, h input.Handler) {
	t := time.NewTicker(p.cfg.RenderInterval)
	defer t.Stop()

	for p.running.Load() {
		if h != nil {
			for _, c := range h.Poll() {
				p.handleCommand(c)
			}
		}
		p.dispatchCommands()

		if !p.running.Load() {
			return
		}

		if !p.paused.Load() {
			if p.video != nil {
				p.video.Render()
			}
			if p.audio != nil {
				p.audio.Render()
			}

			if p.cfg.StopOnEOS && p.drained() {
				p.log.Log(logger.Info, "playback finished")
				return
			}
		}

		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) drained() bool {
	for _, s := range p.streams() {
		if !s.renderer.Drained() {
			return false
		}
	}
	return true
}

// SendCommand queues a command for the render loop, as if it came from
// the input handler.
func (p *Pipeline) SendCommand(c input.Command) {
	select {
	case p.commands <- c:
	default:
	}
}

func (p *Pipeline) dispatchCommands() {
	for {
		select {
		case c := <-p.commands:
			p.handleCommand(c)
		default:
			return
		}
	}
}

func (p *Pipeline) handleCommand(c input.Command) {
	p.cbMutex.Lock()
	cb := p.commandCb
	p.cbMutex.Unlock()

	if cb != nil {
		cb(c)
		return
	}

	switch c {
	case input.TogglePause:
		if p.IsPaused() {
			p.Resume()
		} else {
			p.Pause()
		}

	case input.Quit:
		p.running.Store(false)
	}
}

// SetCommandCallback sets the function the render loop calls for every
// command. Without one, the pipeline handles TogglePause and Quit itself.
func (p *Pipeline) SetCommandCallback(cb func(input.Command)) {
	p.cbMutex.Lock()
	defer p.cbMutex.Unlock()
	p.commandCb = cb
}

// Pause freezes the clock and the renderers.
func (p *Pipeline) Pause() {
	p.mutex.Lock()
	defer p.unlock()

	if p.state != StatePlaying {
		return
	}

	p.paused.Store(true)
	p.clock.Pause()
	for _, s := range p.streams() {
		s.renderer.Pause()
	}
	p.setState(StatePaused)

	p.log.Log(logger.Info, "paused at %s", FormatProgress(p.clock.TimeMs(), p.durationMs()))
}

// Resume continues after Pause.
func (p *Pipeline) Resume() {
	p.mutex.Lock()
	defer p.unlock()

	if p.state != StatePaused {
		return
	}

	for _, s := range p.streams() {
		s.renderer.Resume()
	}
	p.clock.Resume()
	p.paused.Store(false)
	p.setState(StatePlaying)

	p.log.Log(logger.Info, "resumed")
}

// IsPaused reports whether playback is paused.
func (p *Pipeline) IsPaused() bool {
	return p.paused.Load()
}

// Stop ends playback and releases every collaborator. It is safe to call
// from any state and from any goroutine, including command callbacks.
func (p *Pipeline) Stop() error {
	p.mutex.Lock()
	defer p.unlock()

	switch p.state {
	case StateIdle, StateStopped:
		return nil
	}

	p.running.Store(false)
	if p.cancel != nil {
		p.cancel()
	}

	for _, buf := range p.tracks {
		buf.Shutdown()
	}

	if p.video != nil {
		p.video.Stop()
	}
	if p.audio != nil {
		p.audio.Stop()
	}

	// unblocks a buffering loop waiting on a live source
	if p.src != nil {
		err := p.src.Close()
		if err != nil {
			p.log.Log(logger.Warn, "unable to close source: %v", err)
		}
		p.src = nil
	}

	var err error
	if p.group != nil {
		err = p.group.Wait()
	}

	p.closeAll()
	p.clock.Reset()
	p.paused.Store(false)
	p.setState(StateStopped)

	p.log.Log(logger.Info, "stopped")
	return err
}

// closeAll closes decoders, input, extractor and source.
func (p *Pipeline) closeAll() {
	for _, s := range p.streams() {
		err := s.decoder.Close()
		if err != nil {
			p.log.Log(logger.Warn, "unable to close decoder: %v", err)
		}
	}

	if p.input != nil {
		p.input.Close()
	}

	if p.ext != nil {
		err := p.ext.Close()
		if err != nil {
			p.log.Log(logger.Warn, "unable to close extractor: %v", err)
		}
	}

	if p.src != nil {
		err := p.src.Close()
		if err != nil {
			p.log.Log(logger.Warn, "unable to close source: %v", err)
		}
	}
}

// State returns the lifecycle state.
func (p *Pipeline) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

// MediaInfo returns the description of the loaded media, or nil.
func (p *Pipeline) MediaInfo() *media.MediaInfo {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.info
}

// SessionID identifies the current load.
func (p *Pipeline) SessionID() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.sessionID == uuid.Nil {
		return ""
	}
	return p.sessionID.String()
}

func (p *Pipeline) durationMs() int64 {
	if p.info == nil {
		return 0
	}
	return p.info.Duration.Milliseconds()
}
