// ABOUTME: Raw PCM decoder
// ABOUTME: Unpacks pcm_s16le and pcm_s24le sample frames into 24-bit range int32
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// PCMDecoder unpacks interleaved little-endian PCM. Packets must hold
// whole sample frames.
type PCMDecoder struct {
	width      int
	frameBytes int
}

// NewPCM creates a PCM decoder for a pcm_s16le or pcm_s24le format.
func NewPCM(format audio.Format) (Decoder, error) {
	width, err := format.PCMWidth()
	if err != nil {
		return nil, fmt.Errorf("invalid format for PCM decoder: %w", err)
	}

	return &PCMDecoder{
		width:      width,
		frameBytes: width * max(format.Channels, 1),
	}, nil
}

// Decode implements Decoder.
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	if len(data)%d.frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes do not split into %d-byte frames",
			media.ErrInvalidPacketSize, len(data), d.frameBytes)
	}

	samples := make([]int32, len(data)/d.width)
	for i := range samples {
		b := data[i*d.width:]
		if d.width == 3 {
			samples[i] = audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]})
		} else {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(b)))
		}
	}
	return samples, nil
}

// Close implements Decoder.
func (d *PCMDecoder) Close() error {
	return nil
}
