// ABOUTME: Unit tests for the Opus encoder
// ABOUTME: Covers codec checks, frame size validation and packet ownership
package encode

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

func opusFormat() audio.Format {
	return audio.Format{Codec: media.CodecOpus, SampleRate: 48000, Channels: 2}
}

func TestNewOpusInvalidCodec(t *testing.T) {
	_, err := NewOpus(audio.Format{Codec: media.CodecPCMS16LE, SampleRate: 48000, Channels: 2})
	if err == nil {
		t.Fatal("expected error for pcm_s16le")
	}
}

func TestOpusEncodeFrameSizes(t *testing.T) {
	enc, err := NewOpus(opusFormat())
	if err != nil {
		t.Fatalf("NewOpus: %v", err)
	}
	defer enc.Close()

	// stereo frames of 2.5, 10, 20 and 60ms at 48kHz
	for _, frames := range []int{120, 480, 960, 2880} {
		pkt, err := enc.Encode(make([]int32, frames*2))
		if err != nil {
			t.Errorf("%d frames: %v", frames, err)
			continue
		}
		if len(pkt) == 0 {
			t.Errorf("%d frames: empty packet", frames)
		}
	}
}

func TestOpusEncodeInvalidFrameSize(t *testing.T) {
	enc, err := NewOpus(opusFormat())
	if err != nil {
		t.Fatalf("NewOpus: %v", err)
	}
	defer enc.Close()

	for _, n := range []int{0, 100, 961 * 2, 960*2 + 1} {
		if _, err := enc.Encode(make([]int32, n)); !errors.Is(err, media.ErrInvalidPacketSize) {
			t.Errorf("%d samples: err = %v, want ErrInvalidPacketSize", n, err)
		}
	}
}

func TestOpusEncodeOwnsPacket(t *testing.T) {
	enc, err := NewOpus(opusFormat())
	if err != nil {
		t.Fatalf("NewOpus: %v", err)
	}
	defer enc.Close()

	loud := make([]int32, 960*2)
	for i := range loud {
		loud[i] = int32((i%200)*4000 - 400000)
	}

	first, err := enc.Encode(loud)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	kept := append([]byte(nil), first...)

	if _, err := enc.Encode(make([]int32, 960*2)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(first) != string(kept) {
		t.Error("second encode changed the first packet")
	}
}
