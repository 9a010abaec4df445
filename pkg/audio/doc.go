// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the PCM types shared by the audio decoders and the
// audio renderer.
//
// Decoded audio travels through the pipeline as a media.Sample whose Data
// holds interleaved little-endian int32 samples in the 24-bit range.
// PackSamples and UnpackSamples convert between that layout and []int32.
//
// Example:
//
//	format, err := audio.FormatOf(track)
//	samples := audio.UnpackSamples(frame.Data)
//	buf := &audio.Buffer{PTS: frame.PTS, Samples: samples, Format: format}
package audio
