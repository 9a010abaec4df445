// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for the PCM and Opus audio decoders
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// Decoder decodes audio in various formats to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder for the format's codec.
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case media.CodecPCMS16LE, media.CodecPCMS24LE:
		return NewPCM(format)
	case media.CodecOpus:
		return NewOpus(format)
	}
	return nil, fmt.Errorf("no audio decoder for codec: %s", format.Codec)
}
