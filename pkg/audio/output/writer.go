// ABOUTME: Raw PCM output implementation
// ABOUTME: Writes little-endian PCM to any io.Writer instead of a device
package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/audio"
	"github.com/Resonate-Protocol/reel-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// Writer is an Output that encodes samples as raw PCM and writes them to W.
// It has no device buffer, so its latency is always zero.
type Writer struct {
	softVolume

	w        io.Writer
	bitDepth int

	mutex sync.Mutex
	enc   encode.Encoder
}

// NewWriter creates a Writer producing 16 or 24-bit samples.
func NewWriter(w io.Writer, bitDepth int) *Writer {
	return &Writer{
		softVolume: softVolume{volume: 100},
		w:          w,
		bitDepth:   bitDepth,
	}
}

// Open implements Output.
func (o *Writer) Open(sampleRate, channels int) error {
	codec := media.CodecPCMS16LE
	if o.bitDepth == 24 {
		codec = media.CodecPCMS24LE
	}

	enc, err := encode.New(audio.Format{
		Codec:      codec,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   o.bitDepth,
	})
	if err != nil {
		return err
	}

	o.mutex.Lock()
	o.enc = enc
	o.mutex.Unlock()
	return nil
}

// Write implements Output.
func (o *Writer) Write(samples []int32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.enc == nil {
		return fmt.Errorf("output not initialized")
	}

	buf, err := o.enc.Encode(o.apply(samples))
	if err != nil {
		return err
	}

	_, err = o.w.Write(buf)
	return err
}

// Latency implements Output.
func (o *Writer) Latency() time.Duration {
	return 0
}

// Close implements Output. The underlying writer is left open.
func (o *Writer) Close() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.enc != nil {
		o.enc.Close()
		o.enc = nil
	}
	return nil
}
