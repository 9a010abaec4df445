// ABOUTME: Core media types passed between pipeline stages
// ABOUTME: Defines samples, track descriptions and read errors
package media

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sample is one encoded or decoded access unit.
// PTS, DTS and Duration are in milliseconds.
type Sample struct {
	TrackID  uint32
	PTS      int64
	DTS      int64
	Duration uint64
	Data     []byte
}

// TrackType is the kind of elementary stream a track carries.
type TrackType int

// Track types.
const (
	TrackTypeUnknown TrackType = iota
	TrackTypeAudio
	TrackTypeVideo
	TrackTypeSubtitle
)

// String implements fmt.Stringer.
func (t TrackType) String() string {
	switch t {
	case TrackTypeAudio:
		return "audio"
	case TrackTypeVideo:
		return "video"
	case TrackTypeSubtitle:
		return "subtitle"
	}
	return "unknown"
}

// CodecID names a codec.
type CodecID string

// Codecs known to the bundled extractors and decoders.
const (
	CodecUnknown  CodecID = "unknown"
	CodecH264     CodecID = "h264"
	CodecAAC      CodecID = "aac"
	CodecOpus     CodecID = "opus"
	CodecMP3      CodecID = "mp3"
	CodecFLAC     CodecID = "flac"
	CodecPCMS16LE CodecID = "pcm_s16le"
	CodecPCMS24LE CodecID = "pcm_s24le"
)

// Properties is the type-specific part of a TrackInfo.
// It is implemented only by *AudioProps and *VideoProps.
type Properties interface {
	trackType() TrackType
}

// AudioProps describes an audio track.
type AudioProps struct {
	SampleRate int
	Channels   int
	BitDepth   int
	BitRate    int
	ExtraData  []byte
}

func (*AudioProps) trackType() TrackType { return TrackTypeAudio }

// VideoProps describes a video track.
type VideoProps struct {
	Width     int
	Height    int
	FrameRate float64
	BitRate   int
	ExtraData []byte

	// H.264 parameter sets and AVCC length field width, from ExtraData.
	SPS           []byte
	PPS           []byte
	NALLengthSize int
}

func (*VideoProps) trackType() TrackType { return TrackTypeVideo }

// TrackInfo is the immutable description of one track.
type TrackInfo struct {
	ID    uint32
	Type  TrackType
	Codec CodecID
	Props Properties
}

// NewAudioTrack builds an audio TrackInfo.
func NewAudioTrack(id uint32, codec CodecID, props *AudioProps) *TrackInfo {
	return &TrackInfo{ID: id, Type: TrackTypeAudio, Codec: codec, Props: props}
}

// NewVideoTrack builds a video TrackInfo.
func NewVideoTrack(id uint32, codec CodecID, props *VideoProps) *TrackInfo {
	return &TrackInfo{ID: id, Type: TrackTypeVideo, Codec: codec, Props: props}
}

// Audio returns the audio properties if this is an audio track.
func (t *TrackInfo) Audio() (*AudioProps, bool) {
	if t.Type != TrackTypeAudio {
		return nil, false
	}
	p, ok := t.Props.(*AudioProps)
	return p, ok
}

// Video returns the video properties if this is a video track.
func (t *TrackInfo) Video() (*VideoProps, bool) {
	if t.Type != TrackTypeVideo {
		return nil, false
	}
	p, ok := t.Props.(*VideoProps)
	return p, ok
}

// String implements fmt.Stringer.
func (t *TrackInfo) String() string {
	s := fmt.Sprintf("#%d %s %s", t.ID, t.Type, t.Codec)
	if a, ok := t.Audio(); ok {
		s += fmt.Sprintf(" %dHz %dch", a.SampleRate, a.Channels)
		if a.BitDepth != 0 {
			s += fmt.Sprintf(" %d-bit", a.BitDepth)
		}
	}
	if v, ok := t.Video(); ok {
		s += fmt.Sprintf(" %dx%d", v.Width, v.Height)
		if v.FrameRate != 0 {
			s += fmt.Sprintf(" %.2ffps", v.FrameRate)
		}
	}
	return s
}

// MediaInfo describes a loaded media item.
type MediaInfo struct {
	Duration time.Duration
	Tracks   []*TrackInfo
}

// FirstOfType returns the first track of the given type, or nil.
func (m *MediaInfo) FirstOfType(t TrackType) *TrackInfo {
	for _, tr := range m.Tracks {
		if tr.Type == t {
			return tr
		}
	}
	return nil
}

// Track returns the track with the given id, or nil.
func (m *MediaInfo) Track(id uint32) *TrackInfo {
	for _, tr := range m.Tracks {
		if tr.ID == id {
			return tr
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (m *MediaInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "duration: %s, tracks: %d", m.Duration.Round(time.Millisecond), len(m.Tracks))
	for _, tr := range m.Tracks {
		b.WriteString("\n  ")
		b.WriteString(tr.String())
	}
	return b.String()
}

// Errors returned by extractors when reading samples.
// Everything except ErrEndOfStream is recoverable.
var (
	ErrInvalidSample      = errors.New("invalid sample")
	ErrInvalidPacketSize  = errors.New("invalid packet size")
	ErrInvalidStreamIndex = errors.New("invalid stream index")
	ErrEndOfStream        = errors.New("end of stream")
)
