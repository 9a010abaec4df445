// ABOUTME: Raw PCM encoder
// ABOUTME: Packs 24-bit range samples as pcm_s16le or pcm_s24le into a reused buffer
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
)

// PCMEncoder packs samples as little-endian PCM. The slice returned by
// Encode is reused by the next call.
type PCMEncoder struct {
	width int
	buf   []byte
}

// NewPCM creates a PCM encoder for a pcm_s16le or pcm_s24le format.
func NewPCM(format audio.Format) (*PCMEncoder, error) {
	width, err := format.PCMWidth()
	if err != nil {
		return nil, fmt.Errorf("invalid format for PCM encoder: %w", err)
	}
	return &PCMEncoder{width: width}, nil
}

// Encode implements Encoder.
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	n := len(samples) * e.width
	if cap(e.buf) < n {
		e.buf = make([]byte, n)
	}
	out := e.buf[:n]

	for i, s := range samples {
		if e.width == 3 {
			b := audio.SampleTo24Bit(s)
			copy(out[i*3:], b[:])
		} else {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(audio.SampleToInt16(s)))
		}
	}
	return out, nil
}

// Close implements Encoder.
func (e *PCMEncoder) Close() error {
	e.buf = nil
	return nil
}
