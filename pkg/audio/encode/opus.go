// ABOUTME: Opus encoder built on libopus
// ABOUTME: Encodes one frame of 24-bit range samples per call into an Opus packet
package encode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// largest packet libopus is asked to produce
const maxOpusPacket = 4000

// frame durations libopus accepts, in tenths of a millisecond
var opusFrameDurations = []int{25, 50, 100, 200, 400, 600}

// OpusEncoder encodes one Opus frame per Encode call.
type OpusEncoder struct {
	encoder  *opus.Encoder
	rate     int
	channels int
	pcm      []int16
	packet   []byte
}

// NewOpus creates an Opus encoder.
func NewOpus(format audio.Format) (*OpusEncoder, error) {
	if format.Codec != media.CodecOpus {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:  encoder,
		rate:     format.SampleRate,
		channels: format.Channels,
		packet:   make([]byte, maxOpusPacket),
	}, nil
}

func (e *OpusEncoder) validFrame(frames int) bool {
	for _, d := range opusFrameDurations {
		if frames*10000 == d*e.rate {
			return true
		}
	}
	return false
}

// Encode implements Encoder. samples must hold exactly one frame of 2.5,
// 5, 10, 20, 40 or 60ms.
func (e *OpusEncoder) Encode(samples []int32) ([]byte, error) {
	frames := len(samples) / e.channels
	if len(samples)%e.channels != 0 || !e.validFrame(frames) {
		return nil, fmt.Errorf("%w: %d samples is not an Opus frame at %d Hz",
			media.ErrInvalidPacketSize, len(samples), e.rate)
	}

	if cap(e.pcm) < len(samples) {
		e.pcm = make([]int16, len(samples))
	}
	pcm := e.pcm[:len(samples)]
	for i, s := range samples {
		pcm[i] = audio.SampleToInt16(s)
	}

	n, err := e.encoder.Encode(pcm, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	return append([]byte(nil), e.packet[:n]...), nil
}

// Close implements Encoder.
func (e *OpusEncoder) Close() error {
	return nil
}
