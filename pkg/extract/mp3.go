// ABOUTME: MP3 extractor built on go-mp3
// ABOUTME: Decodes the stream and returns 16-bit stereo PCM in short chunks
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// MP3ChunkDuration is the amount of audio in each sample returned by MP3.
const MP3ChunkDuration = 20 * time.Millisecond

// mp3TrackID is the id of the single track an MP3 stream exposes.
const mp3TrackID = 1

// MP3 decodes an MP3 stream while extracting it. Samples carry pcm_s16le
// stereo audio, which is what go-mp3 produces.
type MP3 struct {
	R   io.Reader
	Log logger.Writer

	dec     *mp3.Decoder
	info    *media.MediaInfo
	chunk   int
	written int64
	rate    int64
	ended   bool
}

// Start implements Extractor.
func (e *MP3) Start(_ context.Context) error {
	e.Log = logger.OrDiscard(e.Log)

	dec, err := mp3.NewDecoder(e.R)
	if err != nil {
		return fmt.Errorf("failed to decode MP3: %w", err)
	}

	e.dec = dec
	e.rate = int64(dec.SampleRate())
	e.chunk = int(e.rate*int64(MP3ChunkDuration)/int64(time.Second)) * 4

	e.info = &media.MediaInfo{
		Tracks: []*media.TrackInfo{
			media.NewAudioTrack(mp3TrackID, media.CodecPCMS16LE, &media.AudioProps{
				SampleRate: dec.SampleRate(),
				Channels:   2,
				BitDepth:   16,
			}),
		},
	}

	// length is only known when the input can seek
	if l := dec.Length(); l > 0 && e.rate > 0 {
		e.info.Duration = time.Duration(l/4) * time.Second / time.Duration(e.rate)
	}

	e.Log.Log(logger.Debug, "sample rate %d Hz", dec.SampleRate())
	return nil
}

// MediaInfo implements Extractor.
func (e *MP3) MediaInfo() *media.MediaInfo {
	return e.info
}

// ReadSample implements Extractor.
func (e *MP3) ReadSample() (*media.Sample, error) {
	if e.ended {
		return nil, media.ErrEndOfStream
	}

	buf := make([]byte, e.chunk)
	n, err := io.ReadFull(e.dec, buf)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", media.ErrInvalidSample, err)
		}
		e.ended = true
		if n == 0 {
			return nil, media.ErrEndOfStream
		}
	}

	// whole stereo frames only
	n -= n % 4

	frames := int64(n / 4)
	ts := e.written * 1000 / e.rate
	e.written += frames

	return &media.Sample{
		TrackID:  mp3TrackID,
		PTS:      ts,
		DTS:      ts,
		Duration: uint64(frames * 1000 / e.rate),
		Data:     buf[:n],
	}, nil
}

// Close implements Extractor.
func (e *MP3) Close() error {
	return nil
}
