// ABOUTME: Audio output tests
// ABOUTME: Verifies software volume and the raw PCM writer
package output

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
	var _ Output = (*Writer)(nil)
	var _ Pauser = (*Oto)(nil)
}

func TestApplyVolume(t *testing.T) {
	tests := []struct {
		name     string
		volume   int
		muted    bool
		input    int32
		expected int32
	}{
		{"full", 100, false, 1000, 1000},
		{"half", 50, false, 1000, 500},
		{"muted", 100, true, 1000, 0},
		{"zero", 0, false, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := applyVolume([]int32{tt.input}, tt.volume, tt.muted)
			if out[0] != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, out[0])
			}
		})
	}
}

func TestSoftVolumeClamp(t *testing.T) {
	v := &softVolume{volume: 100}
	if v.Volume() != 100 {
		t.Errorf("expected default volume 100, got %d", v.Volume())
	}

	v.SetVolume(150)
	if v.Volume() != 100 {
		t.Errorf("expected volume clamped to 100, got %d", v.Volume())
	}

	v.SetVolume(-5)
	if v.Volume() != 0 {
		t.Errorf("expected volume clamped to 0, got %d", v.Volume())
	}

	v.SetMuted(true)
	if !v.IsMuted() {
		t.Error("expected muted")
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 16)

	if err := w.Write([]int32{1}); err == nil {
		t.Fatal("expected error before Open")
	}

	if err := w.Open(48000, 2); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer w.Close()

	w.SetVolume(50)
	if err := w.Write([]int32{1000 << 8, -(1000 << 8)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if buf.Len() != 4 {
		t.Fatalf("expected 4 bytes, got %d", buf.Len())
	}
	if v := int16(binary.LittleEndian.Uint16(buf.Bytes())); v != 500 {
		t.Errorf("expected 500, got %d", v)
	}
	if v := int16(binary.LittleEndian.Uint16(buf.Bytes()[2:])); v != -500 {
		t.Errorf("expected -500, got %d", v)
	}
	if w.Latency() != 0 {
		t.Errorf("expected zero latency")
	}
}
