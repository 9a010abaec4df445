// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams 16-bit PCM to the sound card through a persistent oto player
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
)

// oto allows a single context per process
var (
	otoMutex   sync.Mutex
	otoContext *oto.Context
	otoRate    int
	otoChans   int
)

// Oto output implementation using oto library
type Oto struct {
	softVolume

	log logger.Writer

	mutex      sync.Mutex
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	ready      bool
}

// NewOto creates a new Oto output
func NewOto(l logger.Writer) *Oto {
	return &Oto{
		softVolume: softVolume{volume: 100},
		log:        logger.OrDiscard(l),
	}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	otoMutex.Lock()
	defer otoMutex.Unlock()

	if otoContext == nil {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan

		otoContext = ctx
		otoRate = sampleRate
		otoChans = channels
	} else if otoRate != sampleRate || otoChans != channels {
		// the context cannot be recreated, callers have to resample
		return fmt.Errorf("audio device already open at %dHz %dch", otoRate, otoChans)
	} else {
		otoContext.Resume()
	}

	o.mutex.Lock()
	o.sampleRate = sampleRate
	o.channels = channels

	// persistent player fed through a pipe
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = otoContext.NewPlayer(o.pipeReader)
	o.player.Play()

	o.ready = true
	o.mutex.Unlock()

	o.log.Log(logger.Info, "audio output initialized: %dHz, %d channels", sampleRate, channels)

	return nil
}

// DeviceFormat returns the format of the device context, if one was
// created earlier in this process.
func DeviceFormat() (sampleRate, channels int, ok bool) {
	otoMutex.Lock()
	defer otoMutex.Unlock()
	return otoRate, otoChans, otoContext != nil
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(samples []int32) error {
	o.mutex.Lock()
	w := o.pipeWriter
	ready := o.ready
	o.mutex.Unlock()

	if !ready || w == nil {
		return fmt.Errorf("output not initialized")
	}

	volumed := o.apply(samples)

	buf := make([]byte, len(volumed)*2)
	for i, s := range volumed {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(audio.SampleToInt16(s)))
	}

	// Close unblocks this write by closing the pipe
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	return nil
}

// Latency implements Output from the bytes the player holds.
func (o *Oto) Latency() time.Duration {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.ready || o.sampleRate == 0 {
		return 0
	}
	frames := o.player.BufferedSize() / (2 * o.channels)
	return time.Duration(frames) * time.Second / time.Duration(o.sampleRate)
}

// Pause implements Pauser.
func (o *Oto) Pause() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.ready {
		o.player.Pause()
	}
}

// Resume implements Pauser.
func (o *Oto) Resume() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.ready {
		o.player.Play()
	}
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.ready = false
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.sampleRate != 0 {
		otoMutex.Lock()
		if otoContext != nil {
			otoContext.Suspend()
		}
		otoMutex.Unlock()
		o.sampleRate = 0
	}
	return nil
}
