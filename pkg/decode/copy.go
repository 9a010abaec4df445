// ABOUTME: Pass-through decoder
// ABOUTME: Copies sample payloads unchanged, used by tests and raw sinks
package decode

import (
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// Copy is a Decoder that copies its input.
type Copy struct{}

// Decode implements Decoder.
func (Copy) Decode(_ *media.TrackInfo, in *media.Sample) (*media.Sample, error) {
	data := make([]byte, len(in.Data))
	copy(data, in.Data)
	return frameOf(in, data), nil
}

// Close implements Decoder.
func (Copy) Close() error {
	return nil
}
