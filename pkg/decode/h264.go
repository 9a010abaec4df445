// ABOUTME: H.264 decoder stage
// ABOUTME: Normalizes packets to Annex-B and validates each access unit
package decode

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"

	"github.com/Resonate-Protocol/reel-go/pkg/bitstream"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// ErrInvalidAccessUnit is returned when a packet does not split into NAL units.
var ErrInvalidAccessUnit = errors.New("invalid access unit")

// H264 emits Annex-B access units ready for a hardware decoder or an
// elementary stream sink.
type H264 struct {
	norm *bitstream.Normalizer

	width  atomic.Int64
	height atomic.Int64

	frames    atomic.Uint64
	keyFrames atomic.Uint64
}

// NewH264 allocates a H264 for a video track.
func NewH264(info *media.TrackInfo) (*H264, error) {
	v, ok := info.Video()
	if !ok || info.Codec != media.CodecH264 {
		return nil, fmt.Errorf("track %d is not a H264 track", info.ID)
	}

	params := bitstream.Params{
		SPS:           v.SPS,
		PPS:           v.PPS,
		NALLengthSize: v.NALLengthSize,
	}
	if params.NALLengthSize == 0 && len(v.ExtraData) != 0 {
		p, err := bitstream.ParseDecoderConfig(v.ExtraData)
		if err != nil && p.NALLengthSize == 0 {
			return nil, err
		}
		if err == nil {
			params = p
		} else {
			params.NALLengthSize = p.NALLengthSize
		}
	}

	d := &H264{
		norm: bitstream.NewNormalizer(params),
	}

	d.width.Store(int64(v.Width))
	d.height.Store(int64(v.Height))
	if (v.Width == 0 || v.Height == 0) && params.SPS != nil {
		if pic, err := bitstream.ParseSPS(params.SPS); err == nil {
			d.width.Store(int64(pic.Width))
			d.height.Store(int64(pic.Height))
		}
	}

	return d, nil
}

// Decode implements Decoder.
func (d *H264) Decode(_ *media.TrackInfo, in *media.Sample) (*media.Sample, error) {
	out, _, err := d.norm.Normalize(in.Data)
	if err != nil {
		// a truncated packet still carries the NAL units before the cut
		if !errors.Is(err, bitstream.ErrTruncatedNAL) || len(out) == 0 {
			return nil, err
		}
	}

	var au h264.AnnexB
	if err := au.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessUnit, err)
	}

	if sps, _ := bitstream.ExtractParams(au); sps != nil {
		if pic, err := bitstream.ParseSPS(sps); err == nil {
			d.width.Store(int64(pic.Width))
			d.height.Store(int64(pic.Height))
		}
	}

	d.frames.Add(1)
	if h264.IsRandomAccess(au) {
		d.keyFrames.Add(1)
	}

	return frameOf(in, out), nil
}

// Size returns the picture size known so far.
func (d *H264) Size() (int, int) {
	return int(d.width.Load()), int(d.height.Load())
}

// Frames returns the number of decoded and key frames.
func (d *H264) Frames() (total uint64, key uint64) {
	return d.frames.Load(), d.keyFrames.Load()
}

// NormalizerStats returns the packet format counters.
func (d *H264) NormalizerStats() bitstream.Stats {
	return d.norm.Stats()
}

// Close implements Decoder.
func (d *H264) Close() error {
	return nil
}
