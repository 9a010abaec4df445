// ABOUTME: Tests for the raw PCM decoder
// ABOUTME: Covers 16 and 24-bit unpacking, frame alignment and format checks
package decode

import (
	"errors"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

func TestPCMDecode16Bit(t *testing.T) {
	decoder, err := NewPCM(audio.Format{Codec: media.CodecPCMS16LE, SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	output, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(output) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(output))
	}

	// 0x0100 = 256 shifted into the 24-bit range
	if output[0] != int32(256<<8) {
		t.Errorf("expected first sample %d, got %d", 256<<8, output[0])
	}
	if output[1] != int32(770<<8) {
		t.Errorf("expected second sample %d, got %d", 770<<8, output[1])
	}
}

func TestPCMDecode24Bit(t *testing.T) {
	decoder, err := NewPCM(audio.Format{Codec: media.CodecPCMS24LE, SampleRate: 192000, Channels: 2, BitDepth: 24})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	output, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0xF5})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(output) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(output))
	}
	if output[0] != 0x020100 {
		t.Errorf("expected first sample %d, got %d", 0x020100, output[0])
	}
	// sign extended
	if output[1] != -0x0AFBFD {
		t.Errorf("expected second sample %d, got %d", -0x0AFBFD, output[1])
	}
}

func TestPCMDecodePartialFrame(t *testing.T) {
	decoder, err := NewPCM(audio.Format{Codec: media.CodecPCMS16LE, Channels: 2})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	// one and a half stereo frames
	_, err = decoder.Decode(make([]byte, 6))
	if !errors.Is(err, media.ErrInvalidPacketSize) {
		t.Errorf("expected ErrInvalidPacketSize, got %v", err)
	}
}

func TestNewPCMInvalidFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   audio.Format
		contains string
	}{
		{"opus", audio.Format{Codec: media.CodecOpus, Channels: 2}, "opus is not a raw PCM codec"},
		{"depth mismatch", audio.Format{Codec: media.CodecPCMS16LE, BitDepth: 24}, "bit depth 24 does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewPCM(tt.format)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if decoder != nil {
				t.Error("expected no decoder")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error containing %q, got %q", tt.contains, err.Error())
			}
		})
	}
}

func TestPCMDecodeEmptyInput(t *testing.T) {
	decoder, err := NewPCM(audio.Format{Codec: media.CodecPCMS16LE})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	output, err := decoder.Decode([]byte{})
	if err != nil {
		t.Fatalf("decode failed with empty input: %v", err)
	}

	if len(output) != 0 {
		t.Errorf("expected 0 samples from empty input, got %d", len(output))
	}
}

func TestNew(t *testing.T) {
	if _, err := New(audio.Format{Codec: media.CodecPCMS24LE, BitDepth: 24}); err != nil {
		t.Errorf("unexpected error for pcm: %v", err)
	}
	if _, err := New(audio.Format{Codec: media.CodecAAC}); err == nil {
		t.Error("expected error for aac")
	}
}
