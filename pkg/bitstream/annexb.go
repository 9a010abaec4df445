// ABOUTME: H.264 packet format detection and Annex-B rewriting
// ABOUTME: Converts AVCC and raw NAL payloads into start-code delimited streams
package bitstream

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// StartCode is the 4-byte Annex-B start code.
var StartCode = []byte{0x00, 0x00, 0x00, 0x01}

var (
	// ErrUnknownFormat is returned for packets that are neither Annex-B,
	// AVCC nor a raw NAL payload.
	ErrUnknownFormat = errors.New("unknown packet format")

	// ErrTruncatedNAL is returned when an AVCC length prefix runs past the
	// end of the packet.
	ErrTruncatedNAL = errors.New("truncated NAL unit")
)

// PacketFormat is the NAL encapsulation of a packet.
type PacketFormat int

// Packet formats.
const (
	FormatUnknown PacketFormat = iota
	FormatRawNALPayload
	FormatAnnexB
	FormatAVCC
)

// String implements fmt.Stringer.
func (f PacketFormat) String() string {
	switch f {
	case FormatRawNALPayload:
		return "raw"
	case FormatAnnexB:
		return "annexb"
	case FormatAVCC:
		return "avcc"
	}
	return "unknown"
}

// NALHeader is the first byte of a NAL unit.
type NALHeader struct {
	Type      h264.NALUType
	RefIDC    uint8
	Forbidden bool
}

// ParseNALHeader splits a NAL header byte into its fields.
func ParseNALHeader(b byte) NALHeader {
	return NALHeader{
		Type:      h264.NALUType(b & 0x1F),
		RefIDC:    (b >> 5) & 0x03,
		Forbidden: b>>7 != 0,
	}
}

// IsSlice reports whether the NAL unit carries coded picture data that
// must be preceded by parameter sets.
func (h NALHeader) IsSlice() bool {
	return h.Type == h264.NALUTypeIDR || h.Type == h264.NALUTypeNonIDR
}

// Params are the out-of-band parameters of an H.264 track.
type Params struct {
	SPS           []byte
	PPS           []byte
	NALLengthSize int
}

// DeterminePacketFormat classifies a packet given the AVCC length field
// width of its track.
func DeterminePacketFormat(pkt []byte, nalLengthSize int) PacketFormat {
	if len(pkt) < 4 {
		return FormatRawNALPayload
	}

	if nalLengthSize <= 1 || nalLengthSize > 4 {
		return FormatRawNALPayload
	}

	if nalLengthSize >= 3 && bytes.Equal(pkt[:nalLengthSize], StartCode[4-nalLengthSize:]) {
		return FormatAnnexB
	}

	declared := readLength(pkt, nalLengthSize)
	if declared > 0 && declared <= uint64(len(pkt)-nalLengthSize) {
		return FormatAVCC
	}

	return FormatUnknown
}

func readLength(b []byte, size int) uint64 {
	var n uint64
	for i := 0; i < size; i++ {
		n = n<<8 | uint64(b[i])
	}
	return n
}

// PacketToAnnexB appends the Annex-B form of pkt to dst.
//
// AVCC slices are preceded by the SPS and PPS in params. On ErrTruncatedNAL
// the NAL units converted so far are returned along with the error. On
// ErrUnknownFormat dst is returned unchanged.
func PacketToAnnexB(dst, pkt []byte, params Params) ([]byte, PacketFormat, error) {
	format := DeterminePacketFormat(pkt, params.NALLengthSize)

	switch format {
	case FormatAnnexB:
		return append(dst, pkt...), format, nil

	case FormatRawNALPayload:
		dst = append(dst, StartCode...)
		return append(dst, pkt...), format, nil

	case FormatAVCC:
		out, err := avccToAnnexB(dst, pkt, params)
		return out, format, err
	}

	return dst, format, ErrUnknownFormat
}

func avccToAnnexB(dst, pkt []byte, params Params) ([]byte, error) {
	width := params.NALLengthSize
	pos := 0

	for pos+width <= len(pkt) {
		size := readLength(pkt[pos:], width)
		pos += width

		if size > uint64(len(pkt)-pos) {
			return dst, fmt.Errorf("%w: declared %d bytes, %d left", ErrTruncatedNAL, size, len(pkt)-pos)
		}

		nalu := pkt[pos : pos+int(size)]
		pos += int(size)

		if len(nalu) == 0 {
			continue
		}

		if ParseNALHeader(nalu[0]).IsSlice() {
			dst = append(dst, StartCode...)
			dst = append(dst, params.SPS...)
			dst = append(dst, StartCode...)
			dst = append(dst, params.PPS...)
		}

		dst = append(dst, StartCode...)
		dst = append(dst, nalu...)
	}

	return dst, nil
}

// Stats counts what a Normalizer has seen.
type Stats struct {
	AnnexB    uint64
	AVCC      uint64
	Raw       uint64
	Unknown   uint64
	Truncated uint64
}

// Normalizer rewrites the packets of one track into Annex-B.
// It keeps its own counters so concurrent tracks never share state.
type Normalizer struct {
	params Params

	annexB    atomic.Uint64
	avcc      atomic.Uint64
	raw       atomic.Uint64
	unknown   atomic.Uint64
	truncated atomic.Uint64
}

// NewNormalizer creates a Normalizer for a track with the given parameters.
func NewNormalizer(params Params) *Normalizer {
	return &Normalizer{params: params}
}

// Normalize converts pkt to Annex-B in a new buffer.
func (n *Normalizer) Normalize(pkt []byte) ([]byte, PacketFormat, error) {
	capHint := len(pkt) + 4
	if n.params.NALLengthSize > 1 {
		capHint += 8 + len(n.params.SPS) + len(n.params.PPS)
	}

	out, format, err := PacketToAnnexB(make([]byte, 0, capHint), pkt, n.params)

	switch format {
	case FormatAnnexB:
		n.annexB.Add(1)
	case FormatAVCC:
		n.avcc.Add(1)
	case FormatRawNALPayload:
		n.raw.Add(1)
	default:
		n.unknown.Add(1)
	}
	if errors.Is(err, ErrTruncatedNAL) {
		n.truncated.Add(1)
	}

	return out, format, err
}

// Stats returns a snapshot of the counters.
func (n *Normalizer) Stats() Stats {
	return Stats{
		AnnexB:    n.annexB.Load(),
		AVCC:      n.avcc.Load(),
		Raw:       n.raw.Load(),
		Unknown:   n.unknown.Load(),
		Truncated: n.truncated.Load(),
	}
}
