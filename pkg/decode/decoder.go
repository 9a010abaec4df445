// ABOUTME: Decoder interface and codec selection
// ABOUTME: Turns encoded track samples into renderable frames
package decode

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// ErrUnsupportedCodec is returned when no decoder handles a track's codec.
var ErrUnsupportedCodec = errors.New("unsupported codec")

// Decoder converts one encoded sample into one decoded frame.
//
// A nil frame with a nil error means the packet produced no output.
// The returned frame keeps the PTS, DTS and duration of the input.
type Decoder interface {
	Decode(info *media.TrackInfo, in *media.Sample) (*media.Sample, error)
	Close() error
}

// NewForTrack returns the decoder for the track's codec.
func NewForTrack(info *media.TrackInfo) (Decoder, error) {
	switch info.Codec {
	case media.CodecH264:
		return NewH264(info)

	case media.CodecPCMS16LE, media.CodecPCMS24LE:
		return NewPCM(info)

	case media.CodecOpus:
		return NewOpus(info)
	}

	return nil, fmt.Errorf("track %d (%s): %w", info.ID, info.Codec, ErrUnsupportedCodec)
}

func frameOf(in *media.Sample, data []byte) *media.Sample {
	return &media.Sample{
		TrackID:  in.TrackID,
		PTS:      in.PTS,
		DTS:      in.DTS,
		Duration: in.Duration,
		Data:     data,
	}
}
