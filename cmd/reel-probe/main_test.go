// ABOUTME: Tests for the media probe command
// ABOUTME: Probes a generated MP4 file with and without sample statistics
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/reel-go/internal/test"
)

func writeFile(t *testing.T) string {
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

	fpath := filepath.Join(t.TempDir(), "movie.mp4")
	require.NoError(t, os.WriteFile(fpath, buf, 0o644))
	return fpath
}

func TestProbe(t *testing.T) {
	var out bytes.Buffer
	err := probe(context.Background(), writeFile(t), false, &out, test.NilLogger)
	require.NoError(t, err)

	require.Contains(t, out.String(), "container: mp4")
	require.Contains(t, out.String(), "tracks: 2")
	require.NotContains(t, out.String(), "samples")
}

func TestProbeSamples(t *testing.T) {
	var out bytes.Buffer
	err := probe(context.Background(), writeFile(t), true, &out, test.NilLogger)
	require.NoError(t, err)

	require.Contains(t, out.String(), "track 1 (h264): 3 samples")
	require.Contains(t, out.String(), "keyframes, avcc 3")
	require.Contains(t, out.String(), "track 2 (aac): 4 samples, 8B")
}

func TestProbeMissing(t *testing.T) {
	var out bytes.Buffer
	err := probe(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), false, &out, test.NilLogger)
	require.Error(t, err)
}
