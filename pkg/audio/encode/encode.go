// ABOUTME: Audio encoder interface and codec selection
// ABOUTME: Picks the PCM or Opus encoder for an audio.Format
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// Encoder turns 24-bit range samples into the bytes of a codec.
type Encoder interface {
	Encode(samples []int32) ([]byte, error)
	Close() error
}

// New returns the encoder for the format's codec.
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case media.CodecPCMS16LE, media.CodecPCMS24LE:
		return NewPCM(format)
	case media.CodecOpus:
		return NewOpus(format)
	}
	return nil, fmt.Errorf("no audio encoder for codec: %s", format.Codec)
}
