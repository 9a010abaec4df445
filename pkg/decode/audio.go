// ABOUTME: Audio decoder stages for PCM and Opus tracks
// ABOUTME: Emits interleaved int32 samples packed little-endian
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	adecode "github.com/Resonate-Protocol/reel-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// Audio decodes an audio track into 24-bit range PCM.
type Audio struct {
	dec    adecode.Decoder
	format audio.Format
}

// NewPCM allocates an Audio for a pcm_s16le or pcm_s24le track.
func NewPCM(info *media.TrackInfo) (*Audio, error) {
	if info.Codec != media.CodecPCMS16LE && info.Codec != media.CodecPCMS24LE {
		return nil, fmt.Errorf("track %d is not a PCM track", info.ID)
	}
	return newAudio(info)
}

// NewOpus allocates an Audio for an Opus track.
func NewOpus(info *media.TrackInfo) (*Audio, error) {
	if info.Codec != media.CodecOpus {
		return nil, fmt.Errorf("track %d is not an Opus track", info.ID)
	}
	return newAudio(info)
}

func newAudio(info *media.TrackInfo) (*Audio, error) {
	format, err := audio.FormatOf(info)
	if err != nil {
		return nil, err
	}

	dec, err := adecode.New(format)
	if err != nil {
		return nil, err
	}

	return &Audio{
		dec:    dec,
		format: format,
	}, nil
}

// Format returns the format of the decoded output.
func (d *Audio) Format() audio.Format {
	return d.format
}

// Decode implements Decoder.
func (d *Audio) Decode(_ *media.TrackInfo, in *media.Sample) (*media.Sample, error) {
	samples, err := d.dec.Decode(in.Data)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}

	out := frameOf(in, audio.PackSamples(samples))
	if out.Duration == 0 && d.format.Channels > 0 && d.format.SampleRate > 0 {
		frames := len(samples) / d.format.Channels
		out.Duration = uint64(frames * 1000 / d.format.SampleRate)
	}

	return out, nil
}

// Close implements Decoder.
func (d *Audio) Close() error {
	return d.dec.Close()
}
