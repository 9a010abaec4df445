// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats, decoded buffers and sample conversions
package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes audio stream format
type Format struct {
	Codec      media.CodecID
	SampleRate int
	Channels   int
	BitDepth   int
	Header     []byte // decoder configuration, if the codec has one
}

// FormatOf returns the format of an audio track.
func FormatOf(info *media.TrackInfo) (Format, error) {
	a, ok := info.Audio()
	if !ok {
		return Format{}, fmt.Errorf("track %d is not an audio track", info.ID)
	}

	f := Format{
		Codec:      info.Codec,
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
		BitDepth:   a.BitDepth,
		Header:     a.ExtraData,
	}

	switch info.Codec {
	case media.CodecPCMS16LE:
		f.BitDepth = 16
	case media.CodecPCMS24LE:
		f.BitDepth = 24
	}

	return f, nil
}

// SampleWidth is the size in bytes of one sample of a raw PCM codec, or
// zero when the codec is not raw PCM.
func (f Format) SampleWidth() int {
	switch f.Codec {
	case media.CodecPCMS16LE:
		return 2
	case media.CodecPCMS24LE:
		return 3
	}
	return 0
}

// PCMWidth validates a raw PCM format and returns its sample width. A
// non-zero BitDepth must agree with the codec.
func (f Format) PCMWidth() (int, error) {
	width := f.SampleWidth()
	if width == 0 {
		return 0, fmt.Errorf("%s is not a raw PCM codec", f.Codec)
	}
	if f.BitDepth != 0 && f.BitDepth != width*8 {
		return 0, fmt.Errorf("bit depth %d does not match %s", f.BitDepth, f.Codec)
	}
	return width, nil
}

// Buffer is decoded PCM with its presentation time.
type Buffer struct {
	PTS     int64   // milliseconds
	Samples []int32 // interleaved, 24-bit range
	Format  Format
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// DurationMs returns the playing time of the buffer.
func (b *Buffer) DurationMs() int64 {
	if b.Format.SampleRate == 0 {
		return 0
	}
	return int64(b.Frames()) * 1000 / int64(b.Format.SampleRate)
}

// PackSamples stores samples as little-endian int32, the layout of decoded
// audio in a media.Sample.
func PackSamples(samples []int32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(s))
	}
	return out
}

// UnpackSamples is the inverse of PackSamples. Trailing bytes that do not
// form a whole sample are ignored.
func UnpackSamples(data []byte) []int32 {
	out := make([]int32, len(data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// Clamp24 limits a sample to the 24-bit range.
func Clamp24(v int64) int32 {
	if v > Max24Bit {
		return Max24Bit
	}
	if v < Min24Bit {
		return Min24Bit
	}
	return int32(v)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// sign extend
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
