// ABOUTME: FLAC extractor built on mewkiz/flac
// ABOUTME: Decodes each frame into packed little-endian PCM
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

const flacTrackID = 1

// FLAC decodes a FLAC stream while extracting it. Streams up to 16 bits
// come out as pcm_s16le, deeper ones as pcm_s24le.
type FLAC struct {
	R   io.Reader
	Log logger.Writer

	stream   *flac.Stream
	info     *media.MediaInfo
	bitDepth int
	channels int
	rate     int64
	written  int64
}

// Start implements Extractor.
func (e *FLAC) Start(_ context.Context) error {
	e.Log = logger.OrDiscard(e.Log)

	stream, err := flac.New(e.R)
	if err != nil {
		return fmt.Errorf("failed to decode FLAC: %w", err)
	}

	si := stream.Info
	e.stream = stream
	e.bitDepth = int(si.BitsPerSample)
	e.channels = int(si.NChannels)
	e.rate = int64(si.SampleRate)

	if e.rate == 0 || e.channels == 0 {
		return fmt.Errorf("invalid FLAC stream info")
	}

	codec := media.CodecPCMS24LE
	outDepth := 24
	if e.bitDepth <= 16 {
		codec = media.CodecPCMS16LE
		outDepth = 16
	}

	e.info = &media.MediaInfo{
		Tracks: []*media.TrackInfo{
			media.NewAudioTrack(flacTrackID, codec, &media.AudioProps{
				SampleRate: int(si.SampleRate),
				Channels:   e.channels,
				BitDepth:   outDepth,
			}),
		},
	}
	if si.NSamples > 0 {
		e.info.Duration = time.Duration(si.NSamples) * time.Second / time.Duration(e.rate)
	}

	e.Log.Log(logger.Debug, "sample rate %d Hz, %d channels, %d bits", si.SampleRate, e.channels, e.bitDepth)
	return nil
}

// MediaInfo implements Extractor.
func (e *FLAC) MediaInfo() *media.MediaInfo {
	return e.info
}

// ReadSample implements Extractor.
func (e *FLAC) ReadSample() (*media.Sample, error) {
	frame, err := e.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, media.ErrEndOfStream
		}
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidSample, err)
	}

	n := int(frame.BlockSize)
	if len(frame.Subframes) < e.channels {
		return nil, fmt.Errorf("%w: frame has %d subframes", media.ErrInvalidSample, len(frame.Subframes))
	}

	var data []byte
	if e.bitDepth <= 16 {
		data = make([]byte, 0, n*e.channels*2)
		for i := 0; i < n; i++ {
			for ch := 0; ch < e.channels; ch++ {
				v := frame.Subframes[ch].Samples[i] << (16 - e.bitDepth)
				data = append(data, byte(v), byte(v>>8))
			}
		}
	} else {
		data = make([]byte, 0, n*e.channels*3)
		for i := 0; i < n; i++ {
			for ch := 0; ch < e.channels; ch++ {
				v := scaleTo24(frame.Subframes[ch].Samples[i], e.bitDepth)
				b := audio.SampleTo24Bit(v)
				data = append(data, b[:]...)
			}
		}
	}

	ts := e.written * 1000 / e.rate
	e.written += int64(n)

	return &media.Sample{
		TrackID:  flacTrackID,
		PTS:      ts,
		DTS:      ts,
		Duration: uint64(int64(n) * 1000 / e.rate),
		Data:     data,
	}, nil
}

func scaleTo24(v int32, bitDepth int) int32 {
	if bitDepth > 24 {
		return v >> (bitDepth - 24)
	}
	return v << (24 - bitDepth)
}

// Close implements Extractor.
func (e *FLAC) Close() error {
	if e.stream != nil {
		return e.stream.Close()
	}
	return nil
}
