// ABOUTME: Tests for the per-track sample buffer
// ABOUTME: Tests EOS fast path, timeouts, FIFO and shutdown
package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

func newBuffer(t *testing.T, capacity int) *Buffer {
	info := media.NewVideoTrack(7, media.CodecH264, &media.VideoProps{})
	b, err := New(info, Config{Capacity: capacity})
	require.NoError(t, err)
	return b
}

func TestEOSFastPath(t *testing.T) {
	b := newBuffer(t, 4)
	b.SetDataSourceReachedEOS()
	b.SetDataSourceReachedEOS()

	start := time.Now()
	res := b.PopSample()
	require.Less(t, time.Since(start), 5*time.Millisecond)
	require.Equal(t, EndOfStream, res.Err)
	require.Equal(t, uint32(7), res.TrackID)
	require.Nil(t, res.Sample)
}

func TestEOSDrainsRemainingSamples(t *testing.T) {
	b := newBuffer(t, 4)
	b.PushSample(&media.Sample{PTS: 1, Duration: 40})
	b.PushSample(&media.Sample{PTS: 2, Duration: 40})
	b.SetDataSourceReachedEOS()

	for _, pts := range []int64{1, 2} {
		res := b.PopSample()
		require.Equal(t, NoError, res.Err)
		require.Equal(t, pts, res.Sample.PTS)
	}
	require.Equal(t, EndOfStream, b.PopSample().Err)
	require.Equal(t, uint64(80), b.BufferedDuration())
}

func TestPopTimeout(t *testing.T) {
	b := newBuffer(t, 4)

	start := time.Now()
	res := b.PopSample()
	require.Equal(t, Timeout, res.Err)
	require.GreaterOrEqual(t, time.Since(start), DefaultPopTimeout)
}

func TestShutdownUnblocksPush(t *testing.T) {
	b := newBuffer(t, 1)
	require.True(t, b.PushSample(&media.Sample{}))

	done := make(chan bool)
	go func() {
		done <- b.PushSample(&media.Sample{})
	}()

	time.Sleep(10 * time.Millisecond)
	b.Shutdown()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("push was not unblocked by shutdown")
	}

	require.Equal(t, NoError, b.PopSample().Err)
	require.Equal(t, EndOfStream, b.PopSample().Err)
}

func TestPushAfterShutdown(t *testing.T) {
	b := newBuffer(t, 4)
	require.True(t, b.PushSample(&media.Sample{Duration: 40}))

	b.Shutdown()
	require.False(t, b.PushSample(&media.Sample{Duration: 40}))
	require.Equal(t, uint64(40), b.BufferedDuration())
}

func TestInfoAndStats(t *testing.T) {
	b := newBuffer(t, 0)
	require.Equal(t, uint32(7), b.Info().ID)
	require.Equal(t, DefaultCapacity, b.Stats().Capacity)
	require.False(t, b.ReachedEOS())
}
