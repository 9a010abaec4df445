// ABOUTME: Audio decoder package for PCM and Opus
// ABOUTME: Provides the Decoder interface and its implementations
// Package decode turns encoded audio packets into int32 samples.
//
// Supports: PCM (16-bit and 24-bit little-endian) and Opus.
// MP3 and FLAC are decoded by their extractors and arrive here as PCM.
//
// All decoders output int32 samples in 24-bit range for consistent
// processing downstream.
//
// Example:
//
//	decoder, err := decode.New(format)
//	samples, err := decoder.Decode(packet)
package decode
