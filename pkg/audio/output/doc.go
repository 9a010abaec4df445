// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface with oto and raw PCM backends
// Package output provides audio playback backends.
//
// Oto plays through the sound card with ebitengine/oto. Writer encodes raw
// PCM to any io.Writer, which is what headless runs and tests use.
//
// Example:
//
//	out := output.NewOto(log)
//	err := out.Open(48000, 2)
//	err = out.Write(samples)
package output
