// ABOUTME: Tests for the pipeline orchestrator
// ABOUTME: Plays an in-memory MP4 through copy decoders and recording renderers
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/reel-go/internal/test"
	"github.com/Resonate-Protocol/reel-go/pkg/clock"
	"github.com/Resonate-Protocol/reel-go/pkg/decode"
	"github.com/Resonate-Protocol/reel-go/pkg/extract"
	"github.com/Resonate-Protocol/reel-go/pkg/input"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/render"
	"github.com/Resonate-Protocol/reel-go/pkg/source"
)

func fixture(t *testing.T) []byte {
	video := &test.MP4Track{
		ID:        1,
		TimeScale: 90000,
		SPS:       test.SPS,
		PPS:       test.PPS,
		Width:     1920,
		Height:    1080,
	}
	for i := 0; i < 3; i++ {
		video.Samples = append(video.Samples, &test.MP4Sample{
			Duration: 3000,
			NonSync:  i != 0,
			Payload:  test.AVCC(4, []byte{0x65, 0x88, byte(i)}),
		})
	}

	audio := &test.MP4Track{
		ID:         2,
		TimeScale:  48000,
		Config:     []byte{0x11, 0x90},
		SampleRate: 48000,
		Channels:   2,
	}
	for i := 0; i < 4; i++ {
		audio.Samples = append(audio.Samples, &test.MP4Sample{
			Duration: 1024,
			Payload:  []byte{0x21, byte(i)},
		})
	}

	buf, err := test.MP4File(video, audio)
	require.NoError(t, err)
	return buf
}

// trackedSource records Close calls.
type trackedSource struct {
	*source.Memory
	mutex  sync.Mutex
	closed int
}

func (s *trackedSource) Close() error {
	s.mutex.Lock()
	s.closed++
	s.mutex.Unlock()
	return s.Memory.Close()
}

func (s *trackedSource) closes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

type harness struct {
	src   *trackedSource
	video *render.Recorder
	audio *render.Recorder
	f     Factories
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		src:   &trackedSource{Memory: source.NewMemory(fixture(t))},
		video: render.NewRecorder(),
		audio: render.NewRecorder(),
	}

	h.f = Factories{
		Source: func(ctx context.Context, url string) (source.Source, error) {
			err := h.src.Open(ctx, url)
			return h.src, err
		},
		Extractor: func(src source.Source) (extract.Extractor, error) {
			e, _, err := extract.New(src, extract.Options{Log: test.NilLogger})
			return e, err
		},
		Decoder: func(*media.TrackInfo) (decode.Decoder, error) {
			return decode.Copy{}, nil
		},
		VideoRenderer: func(*media.TrackInfo, *clock.MediaClock) (render.VideoRenderer, error) {
			return h.video, nil
		},
		AudioRenderer: func(*media.TrackInfo, *clock.MediaClock) (render.AudioRenderer, error) {
			return h.audio, nil
		},
	}
	return h
}

func play(p *Pipeline) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- p.Play()
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return")
	}
}

func TestSmoke(t *testing.T) {
	h := newHarness(t)

	p, err := New(Config{Log: test.NilLogger}, h.f)
	require.NoError(t, err)
	require.Equal(t, StateIdle, p.State())

	require.NoError(t, p.Load(context.Background(), "stub://"))
	require.Equal(t, StateLoaded, p.State())
	require.NotEmpty(t, p.SessionID())
	require.Len(t, p.MediaInfo().Tracks, 2)

	w, hgt := h.video.Size()
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, hgt)

	done := play(p)

	require.Eventually(t, func() bool {
		return h.video.Drained() && h.audio.Drained()
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())
	waitDone(t, done)

	require.Equal(t, StateStopped, p.State())
	require.Len(t, h.video.Frames(), 3)
	require.Len(t, h.audio.Frames(), 4)
	require.Equal(t, int64(33), h.video.Frames()[1].PTS)

	_, _, stopped := h.video.State()
	require.True(t, stopped)
	require.GreaterOrEqual(t, h.src.closes(), 1)

	// idempotent
	require.NoError(t, p.Stop())
	require.False(t, p.Clock().IsStarted())
}

func TestStopOnEOS(t *testing.T) {
	h := newHarness(t)

	p, err := New(Config{StopOnEOS: true}, h.f)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background(), "stub://"))

	waitDone(t, play(p))

	require.Equal(t, StateStopped, p.State())

	st := p.Stats()
	require.Equal(t, uint64(7), st.DecodedFrames)
	require.Equal(t, int64(100), st.DurationMs)
	require.NotEmpty(t, st.SessionID)
	require.Contains(t, st.String(), "7 decoded")
}

func TestReload(t *testing.T) {
	h := newHarness(t)

	p, err := New(Config{StopOnEOS: true}, h.f)
	require.NoError(t, err)

	require.NoError(t, p.Load(context.Background(), "stub://"))
	first := p.SessionID()
	waitDone(t, play(p))

	require.NoError(t, p.Load(context.Background(), "stub://"))
	require.NotEqual(t, first, p.SessionID())
	require.NoError(t, p.Stop())
}

func TestLoadFailure(t *testing.T) {
	h := newHarness(t)
	h.f.Extractor = func(source.Source) (extract.Extractor, error) {
		return nil, errors.New("boom")
	}

	p, err := New(Config{}, h.f)
	require.NoError(t, err)

	err = p.Load(context.Background(), "stub://")
	require.EqualError(t, err, "unable to create extractor: boom")
	require.Equal(t, StateIdle, p.State())
	require.Equal(t, 1, h.src.closes())
	require.Empty(t, p.SessionID())
}

func TestNoPlayableTrack(t *testing.T) {
	h := newHarness(t)
	h.f.Decoder = func(info *media.TrackInfo) (decode.Decoder, error) {
		return nil, decode.ErrUnsupportedCodec
	}

	p, err := New(Config{}, h.f)
	require.NoError(t, err)

	err = p.Load(context.Background(), "stub://")
	require.ErrorIs(t, err, ErrNoPlayableTrack)
	require.Equal(t, StateIdle, p.State())
}

func TestUnsupportedAudio(t *testing.T) {
	h := newHarness(t)
	h.f.Decoder = decode.NewForTrack

	p, err := New(Config{StopOnEOS: true}, h.f)
	require.NoError(t, err)

	// the fixture audio is AAC, which has no decoder
	require.NoError(t, p.Load(context.Background(), "stub://"))
	waitDone(t, play(p))

	require.Len(t, h.video.Frames(), 3)
	require.Empty(t, h.audio.Frames())
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t)

	p, err := New(Config{}, h.f)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background(), "stub://"))

	// pausing is only possible while playing
	p.Pause()
	require.False(t, p.IsPaused())

	done := play(p)
	require.Eventually(t, func() bool {
		return p.State() == StatePlaying
	}, 5*time.Second, time.Millisecond)

	p.Pause()
	require.True(t, p.IsPaused())
	require.Equal(t, StatePaused, p.State())
	require.True(t, p.Clock().IsPaused())

	_, paused, _ := h.video.State()
	require.True(t, paused)

	p.Resume()
	require.False(t, p.IsPaused())
	require.Equal(t, StatePlaying, p.State())
	require.False(t, p.Clock().IsPaused())

	require.NoError(t, p.Stop())
	waitDone(t, done)
}

func TestInvalidState(t *testing.T) {
	h := newHarness(t)

	p, err := New(Config{}, h.f)
	require.NoError(t, err)

	require.ErrorIs(t, p.Play(), ErrInvalidState)
	require.NoError(t, p.Stop())

	require.NoError(t, p.Load(context.Background(), "stub://"))
	require.ErrorIs(t, p.Load(context.Background(), "stub://"), ErrInvalidState)
	require.NoError(t, p.Stop())
}

func TestNewMissingFactories(t *testing.T) {
	_, err := New(Config{}, Factories{})
	require.Error(t, err)

	h := newHarness(t)
	h.f.VideoRenderer = nil
	h.f.AudioRenderer = nil
	_, err = New(Config{}, h.f)
	require.Error(t, err)
}

func TestCommands(t *testing.T) {
	h := newHarness(t)
	q := input.NewQueue(4)
	h.f.Input = func() (input.Handler, error) {
		return q, nil
	}

	p, err := New(Config{}, h.f)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background(), "stub://"))

	done := play(p)

	// without a callback, the pipeline handles pause and quit itself
	q.Send(input.TogglePause)
	require.Eventually(t, p.IsPaused, 5*time.Second, time.Millisecond)

	var mutex sync.Mutex
	var got []input.Command
	p.SetCommandCallback(func(c input.Command) {
		mutex.Lock()
		got = append(got, c)
		mutex.Unlock()
	})

	p.SendCommand(input.ShowStats)
	require.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(got) == 1 && got[0] == input.ShowStats
	}, 5*time.Second, time.Millisecond)

	p.SetCommandCallback(nil)
	q.Send(input.Quit)
	waitDone(t, done)
	require.Equal(t, StateStopped, p.State())
}

// countingInput counts polls and asks to quit once quit is set.
type countingInput struct {
	polls atomic.Int64
	quit  atomic.Bool
}

func (c *countingInput) Poll() []input.Command {
	c.polls.Add(1)
	if c.quit.Load() {
		return []input.Command{input.Quit}
	}
	return nil
}

func (c *countingInput) Close() error { return nil }

func TestInputPolledByRenderLoop(t *testing.T) {
	h := newHarness(t)
	in := &countingInput{}
	h.f.Input = func() (input.Handler, error) {
		return in, nil
	}

	p, err := New(Config{}, h.f)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background(), "stub://"))
	require.Zero(t, in.polls.Load())

	done := play(p)
	require.Eventually(t, func() bool { return in.polls.Load() > 0 }, 5*time.Second, time.Millisecond)

	// polling goes on while paused
	p.Pause()
	n := in.polls.Load()
	require.Eventually(t, func() bool { return in.polls.Load() > n }, 5*time.Second, time.Millisecond)

	in.quit.Store(true)
	waitDone(t, done)

	n = in.polls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, in.polls.Load())
}

// faultyExtractor fails every read when always is set, otherwise every
// other read.
type faultyExtractor struct {
	extract.Extractor
	always bool
	reads  int
}

func (e *faultyExtractor) ReadSample() (*media.Sample, error) {
	e.reads++
	if e.always || e.reads%2 == 0 {
		return nil, errors.New("corrupt packet")
	}
	return e.Extractor.ReadSample()
}

func faultyHarness(t *testing.T, always bool) *harness {
	h := newHarness(t)
	next := h.f.Extractor
	h.f.Extractor = func(src source.Source) (extract.Extractor, error) {
		e, err := next(src)
		if err != nil {
			return nil, err
		}
		return &faultyExtractor{Extractor: e, always: always}, nil
	}
	return h
}

func TestReadErrorsSkipped(t *testing.T) {
	h := faultyHarness(t, false)

	p, err := New(Config{StopOnEOS: true}, h.f)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background(), "stub://"))

	waitDone(t, play(p))

	st := p.Stats()
	require.Equal(t, uint64(7), st.DecodedFrames)
	require.GreaterOrEqual(t, st.ReadErrors, uint64(7))
	require.Len(t, h.video.Frames(), 3)
	require.Len(t, h.audio.Frames(), 4)
}

func TestReadErrorsLimit(t *testing.T) {
	h := faultyHarness(t, true)

	p, err := New(Config{StopOnEOS: true, MaxReadErrors: 5}, h.f)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background(), "stub://"))

	// the stream ends after five consecutive errors
	waitDone(t, play(p))

	require.Equal(t, StateStopped, p.State())
	require.Equal(t, uint64(5), p.Stats().ReadErrors)
	require.Empty(t, h.video.Frames())
}

func TestFormatProgress(t *testing.T) {
	for _, ca := range []struct {
		pos, dur int64
		out      string
	}{
		{0, 0, "0:00 / --:--"},
		{61000, 3600000 - 1000, "1:01 / 59:59"},
		{3723000, 7200000, "1:02:03 / 2:00:00"},
		{-5, 1000, "0:00 / 0:01"},
	} {
		require.Equal(t, ca.out, FormatProgress(ca.pos, ca.dur))
	}
}

func TestRendererFailure(t *testing.T) {
	h := newHarness(t)
	h.f.AudioRenderer = func(*media.TrackInfo, *clock.MediaClock) (render.AudioRenderer, error) {
		return nil, errors.New("no audio device")
	}

	p, err := New(Config{StopOnEOS: true}, h.f)
	require.NoError(t, err)

	// playback continues with the video track alone
	require.NoError(t, p.Load(context.Background(), "stub://"))
	waitDone(t, play(p))
	require.Len(t, h.video.Frames(), 3)
}
