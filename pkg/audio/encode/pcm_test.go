// ABOUTME: Unit tests for the PCM encoder
// ABOUTME: Covers format checks, 16/24-bit packing and buffer reuse
package encode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

func TestNewPCMInvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		format audio.Format
		want   string
	}{
		{
			name:   "opus",
			format: audio.Format{Codec: media.CodecOpus, SampleRate: 48000, Channels: 2},
			want:   "opus is not a raw PCM codec",
		},
		{
			name:   "depth mismatch",
			format: audio.Format{Codec: media.CodecPCMS16LE, SampleRate: 48000, Channels: 2, BitDepth: 32},
			want:   "bit depth 32 does not match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPCM(tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestPCMEncode16Bit(t *testing.T) {
	enc, err := NewPCM(audio.Format{Codec: media.CodecPCMS16LE, SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("NewPCM: %v", err)
	}

	// 24-bit range in, top 16 bits out
	out, err := enc.Encode([]int32{0x000100, -0x000100, 0x7FFF00})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x01, 0x00, 0xFF, 0xFF, 0xFF, 0x7F}
	if !bytes.Equal(out, want) {
		t.Errorf("Encode = % x, want % x", out, want)
	}
}

func TestPCMEncode24Bit(t *testing.T) {
	enc, err := NewPCM(audio.Format{Codec: media.CodecPCMS24LE, SampleRate: 48000, Channels: 1, BitDepth: 24})
	if err != nil {
		t.Fatalf("NewPCM: %v", err)
	}

	out, err := enc.Encode([]int32{0x020100, -1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x00, 0x01, 0x02, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(out, want) {
		t.Errorf("Encode = % x, want % x", out, want)
	}
}

func TestPCMEncodeReusesBuffer(t *testing.T) {
	enc, err := NewPCM(audio.Format{Codec: media.CodecPCMS16LE, SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("NewPCM: %v", err)
	}

	first, _ := enc.Encode(make([]int32, 8))
	second, _ := enc.Encode(make([]int32, 4))
	if len(second) != 8 {
		t.Fatalf("len = %d, want 8", len(second))
	}
	if &first[0] != &second[0] {
		t.Error("expected the smaller encode to reuse the buffer")
	}

	empty, err := enc.Encode(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Encode(nil) = %v, %v", empty, err)
	}
}

func TestNew(t *testing.T) {
	if _, ok := mustNew(t, audio.Format{Codec: media.CodecPCMS24LE, SampleRate: 44100, Channels: 2}).(*PCMEncoder); !ok {
		t.Error("expected a PCM encoder for pcm_s24le")
	}
	if _, ok := mustNew(t, audio.Format{Codec: media.CodecOpus, SampleRate: 48000, Channels: 2}).(*OpusEncoder); !ok {
		t.Error("expected an Opus encoder for opus")
	}

	if _, err := New(audio.Format{Codec: media.CodecAAC, SampleRate: 48000, Channels: 2}); err == nil {
		t.Error("expected error for aac")
	}
}

func mustNew(t *testing.T, format audio.Format) Encoder {
	t.Helper()
	enc, err := New(format)
	if err != nil {
		t.Fatalf("New(%s): %v", format.Codec, err)
	}
	return enc
}
