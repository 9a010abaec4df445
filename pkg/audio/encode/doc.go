// ABOUTME: Audio encoder package for encoding PCM to wire formats
// ABOUTME: Provides the Encoder interface, codec selection and the PCM and Opus encoders
// Package encode provides audio encoders.
//
// Supports: PCM (16-bit and 24-bit), Opus
//
// All encoders accept int32 samples in 24-bit range. The PCM encoder backs
// the raw audio output; the Opus encoder produces test material.
//
// Example:
//
//	encoder, err := encode.New(format)
//	data, err := encoder.Encode(samples)
package encode
