// ABOUTME: Tests for the frame gate and the renderers
// ABOUTME: Uses a started clock and a fake audio output
package render

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/reel-go/internal/test"
	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/audio/output"
	"github.com/Resonate-Protocol/reel-go/pkg/clock"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/queue"
)

func frame(pts int64, data ...byte) *media.Sample {
	return &media.Sample{PTS: pts, Data: data}
}

func TestGate(t *testing.T) {
	q, err := queue.New[*media.Sample](8)
	require.NoError(t, err)

	g := NewGate(q, 15*time.Millisecond, 15*time.Millisecond)

	for _, pts := range []int64{70, 80, 100, 116, 200} {
		q.Push(frame(pts))
	}

	var played []int64
	sink := func(s *media.Sample) error {
		played = append(played, s.PTS)
		return nil
	}

	// 70 and 80 are too late, 100 is due
	ok, err := g.Tick(100, sink)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int64{100}, played)

	// 116 is one ms beyond the window
	ok, err = g.Tick(100, sink)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, g.HasPending())

	ok, _ = g.Tick(101, sink)
	require.True(t, ok)
	require.Equal(t, []int64{100, 116}, played)

	// slack widens the ahead window only
	ok, _ = g.TickWithSlack(101, 100, sink)
	require.True(t, ok)

	ok, _ = g.Tick(1000, sink)
	require.False(t, ok)
	require.False(t, g.HasPending())

	require.Equal(t, GateStats{Played: 3, Dropped: 2, Waiting: 1}, g.Stats())
}

func TestGateReset(t *testing.T) {
	q, err := queue.New[*media.Sample](2)
	require.NoError(t, err)

	g := NewGate(q, 0, 0)
	q.Push(frame(50))

	ok, _ := g.Tick(0, func(*media.Sample) error { return nil })
	require.False(t, ok)
	require.True(t, g.HasPending())

	g.Reset()
	require.False(t, g.HasPending())
}

func startedClock() *clock.MediaClock {
	clk := clock.New()
	clk.Start()
	return clk
}

func TestVideo(t *testing.T) {
	var buf bytes.Buffer
	v, err := NewVideo(VideoConfig{QueueSize: 4}, &buf, startedClock(), test.NilLogger)
	require.NoError(t, err)

	require.Error(t, v.Resize(0, 10))
	require.NoError(t, v.Resize(1920, 1080))
	w, h := v.Size()
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, h)

	require.True(t, v.PushFrame(frame(-500, 1)))
	require.True(t, v.PushFrame(frame(0, 2, 3)))
	require.True(t, v.PushFrame(frame(5000, 4)))

	v.Render()
	v.Render()

	require.Equal(t, []byte{2, 3}, buf.Bytes())
	require.Equal(t, int64(0), v.PositionMs())
	require.Equal(t, uint64(2), v.BytesWritten())

	st := v.GateStats()
	require.Equal(t, uint64(1), st.Played)
	require.Equal(t, uint64(1), st.Dropped)
	require.Equal(t, uint64(1), st.Waiting)

	v.EndOfStream()
	require.False(t, v.Drained())

	v.Stop()
	require.False(t, v.PushFrame(frame(1)))
}

func TestVideoPaused(t *testing.T) {
	var buf bytes.Buffer
	v, err := NewVideo(VideoConfig{}, &buf, startedClock(), nil)
	require.NoError(t, err)

	v.PushFrame(frame(0, 1))
	v.Pause()
	v.Render()
	require.Zero(t, buf.Len())

	v.Resume()
	v.Render()
	require.Equal(t, 1, buf.Len())

	v.EndOfStream()
	require.True(t, v.Drained())
}

type fakeOutput struct {
	mutex    sync.Mutex
	rate     int
	channels int
	written  [][]int32
	volume   int
	paused   bool
	closed   bool
	latency  time.Duration
}

func (o *fakeOutput) Open(rate, channels int) error {
	o.rate, o.channels = rate, channels
	return nil
}

func (o *fakeOutput) Write(s []int32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.written = append(o.written, s)
	return nil
}

func (o *fakeOutput) Latency() time.Duration { return o.latency }
func (o *fakeOutput) SetVolume(v int)        { o.volume = v }
func (o *fakeOutput) Volume() int            { return o.volume }
func (o *fakeOutput) SetMuted(bool)          {}
func (o *fakeOutput) IsMuted() bool          { return false }
func (o *fakeOutput) Pause()                 { o.paused = true }
func (o *fakeOutput) Resume()                { o.paused = false }

func (o *fakeOutput) Close() error {
	o.closed = true
	return nil
}

func audioTrack() *media.TrackInfo {
	return media.NewAudioTrack(2, media.CodecPCMS16LE, &media.AudioProps{SampleRate: 48000, Channels: 2})
}

func TestAudio(t *testing.T) {
	out := &fakeOutput{latency: 30 * time.Millisecond}
	clk := startedClock()

	a, err := NewAudio(AudioConfig{Volume: 80}, audioTrack(), out, clk, test.NilLogger)
	require.NoError(t, err)
	require.Equal(t, 48000, out.rate)
	require.Equal(t, 2, out.channels)
	require.Equal(t, 80, a.Volume())

	for _, pts := range []int64{-200, 0, 20, 500} {
		require.True(t, a.PushFrame(&media.Sample{PTS: pts, Data: audio.PackSamples([]int32{int32(pts), 1})}))
	}

	a.Render()

	require.Equal(t, [][]int32{{0, 1}, {20, 1}}, out.written)
	require.Equal(t, int64(30), clk.AudioLatencyMs())
	require.Equal(t, GateStats{Played: 2, Dropped: 1, Waiting: 1}, a.GateStats())

	a.Pause()
	require.True(t, out.paused)
	a.Resume()
	require.False(t, out.paused)

	a.SetVolume(10)
	require.Equal(t, 10, out.volume)

	a.Stop()
	require.True(t, out.closed)
	require.False(t, a.PushFrame(frame(0)))
}

func TestAudioStopWhileRendering(t *testing.T) {
	a, err := NewAudio(AudioConfig{}, audioTrack(), output.NewWriter(io.Discard, 16), startedClock(), test.NilLogger)
	require.NoError(t, err)

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			if !a.PushFrame(&media.Sample{Data: audio.PackSamples(make([]int32, 96))}) {
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			a.Render()
		}
	}()

	time.Sleep(5 * time.Millisecond)
	a.Stop()
	a.Render()
	close(done)
	wg.Wait()

	require.False(t, a.PushFrame(frame(0)))
}

func TestAudioResample(t *testing.T) {
	out := &fakeOutput{}
	a, err := NewAudio(AudioConfig{DeviceSampleRate: 96000}, audioTrack(), out, startedClock(), nil)
	require.NoError(t, err)
	require.Equal(t, 96000, out.rate)

	a.PushFrame(&media.Sample{Data: audio.PackSamples(make([]int32, 480*2))})
	a.Render()

	require.Len(t, out.written, 1)
	require.Greater(t, len(out.written[0]), 900*2)
}

func TestAudioInvalidTrack(t *testing.T) {
	_, err := NewAudio(AudioConfig{}, media.NewVideoTrack(1, media.CodecH264, &media.VideoProps{}), &fakeOutput{}, clock.New(), nil)
	require.Error(t, err)

	_, err = NewAudio(AudioConfig{}, media.NewAudioTrack(1, media.CodecPCMS16LE, &media.AudioProps{}), &fakeOutput{}, clock.New(), nil)
	require.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	var _ VideoRenderer = r
	var _ AudioRenderer = r

	require.True(t, r.PushFrame(frame(10)))
	require.True(t, r.PushFrame(frame(20)))
	r.Render()
	require.Equal(t, int64(20), r.PositionMs())
	require.Len(t, r.Frames(), 2)

	require.False(t, r.Drained())
	r.EndOfStream()
	require.True(t, r.Drained())

	r.Stop()
	require.False(t, r.PushFrame(frame(30)))

	renders, _, stopped := r.State()
	require.Equal(t, 1, renders)
	require.True(t, stopped)
}
