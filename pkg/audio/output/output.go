// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and software volume
package output

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs audio samples (blocks until written)
	Write(samples []int32) error

	// Latency is the audio written but not yet heard
	Latency() time.Duration

	SetVolume(volume int)
	Volume() int
	SetMuted(muted bool)
	IsMuted() bool

	// Close releases output resources. It may run while another
	// goroutine is in Write or Latency; a blocked Write returns.
	Close() error
}

// Pauser is implemented by outputs that can hold playback of what they
// have buffered.
type Pauser interface {
	Pause()
	Resume()
}

// softVolume is the software volume shared by the outputs.
// The zero value is not ready, set volume to 100.
type softVolume struct {
	mutex  sync.Mutex
	volume int
	muted  bool
}

// SetVolume sets the volume (0-100)
func (v *softVolume) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	v.mutex.Lock()
	v.volume = volume
	v.mutex.Unlock()
}

// Volume returns current volume
func (v *softVolume) Volume() int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.volume
}

// SetMuted sets mute state
func (v *softVolume) SetMuted(muted bool) {
	v.mutex.Lock()
	v.muted = muted
	v.mutex.Unlock()
}

// IsMuted returns mute state
func (v *softVolume) IsMuted() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.muted
}

func (v *softVolume) apply(samples []int32) []int32 {
	v.mutex.Lock()
	volume, muted := v.volume, v.muted
	v.mutex.Unlock()
	return applyVolume(samples, volume, muted)
}

// applyVolume applies volume and mute to samples with clipping protection
func applyVolume(samples []int32, volume int, muted bool) []int32 {
	multiplier := getVolumeMultiplier(volume, muted)

	result := make([]int32, len(samples))
	for i, sample := range samples {
		result[i] = audio.Clamp24(int64(float64(sample) * multiplier))
	}

	return result
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
