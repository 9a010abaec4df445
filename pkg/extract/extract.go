// ABOUTME: Extractor interface and container detection
// ABOUTME: Sniffs the container format and builds the matching extractor
package extract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// ErrUnsupportedContainer is returned when no extractor recognizes the
// stream.
var ErrUnsupportedContainer = errors.New("unsupported container")

// Extractor demultiplexes a container into per-track samples.
//
// MediaInfo is valid after Start returns. ReadSample returns
// media.ErrEndOfStream at the end; the other media errors are per-sample
// and the caller may keep reading.
type Extractor interface {
	Start(ctx context.Context) error
	MediaInfo() *media.MediaInfo
	ReadSample() (*media.Sample, error)
	Close() error
}

// Container is a container format.
type Container int

// Containers.
const (
	ContainerUnknown Container = iota
	ContainerMP4
	ContainerMPEGTS
	ContainerMP3
	ContainerFLAC
)

// String implements fmt.Stringer.
func (c Container) String() string {
	switch c {
	case ContainerMP4:
		return "mp4"
	case ContainerMPEGTS:
		return "mpegts"
	case ContainerMP3:
		return "mp3"
	case ContainerFLAC:
		return "flac"
	}
	return "unknown"
}

// SniffSize is the number of bytes Sniff needs to decide.
const SniffSize = 2*188 + 1

const tsPacketSize = 188

// Sniff detects the container from the first bytes of a stream.
func Sniff(header []byte) Container {
	switch {
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return ContainerMP4

	case len(header) >= 4 && bytes.Equal(header[:4], []byte("fLaC")):
		return ContainerFLAC

	case isTS(header):
		return ContainerMPEGTS

	case len(header) >= 3 && bytes.Equal(header[:3], []byte("ID3")):
		return ContainerMP3

	// frame sync with a valid layer, which rules out ADTS
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0 && header[1]&0x06 != 0:
		return ContainerMP3
	}
	return ContainerUnknown
}

func isTS(header []byte) bool {
	if len(header) == 0 || header[0] != 0x47 {
		return false
	}
	// when more packets are available, their sync bytes must line up too
	for i := tsPacketSize; i < len(header); i += tsPacketSize {
		if header[i] != 0x47 {
			return false
		}
	}
	return true
}

// Options are passed to the extractor New builds.
type Options struct {
	Log logger.Writer
}

// New peeks at r and returns the extractor for its container.
// The returned extractor reads from r, including the peeked bytes.
func New(r io.Reader, opts Options) (Extractor, Container, error) {
	br := bufio.NewReaderSize(r, 4096)

	header, err := br.Peek(SniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, ContainerUnknown, fmt.Errorf("unable to read header: %w", err)
	}

	c := Sniff(header)

	l := logger.OrDiscard(opts.Log)

	// seekable input is handed over untouched so MP4 can seek
	var in io.Reader = br
	if rs, ok := r.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekStart); err == nil {
			in = rs
		}
	}

	switch c {
	case ContainerMP4:
		return &MP4{R: in, Log: logger.WithPrefix(l, "mp4")}, c, nil
	case ContainerMPEGTS:
		return &MPEGTS{R: in, Log: logger.WithPrefix(l, "mpegts")}, c, nil
	case ContainerMP3:
		return &MP3{R: in, Log: logger.WithPrefix(l, "mp3")}, c, nil
	case ContainerFLAC:
		return &FLAC{R: in, Log: logger.WithPrefix(l, "flac")}, c, nil
	}

	return nil, c, ErrUnsupportedContainer
}

func ticksToMs(v int64, timescale uint32) int64 {
	if timescale == 0 {
		return 0
	}
	return v * 1000 / int64(timescale)
}
