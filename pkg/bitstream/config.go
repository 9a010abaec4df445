// ABOUTME: H.264 decoder configuration and SPS parsing
// ABOUTME: Extracts parameter sets, NAL length size and picture size
package bitstream

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// ErrShortConfig is returned when extradata is too short to hold an avcC
// record header.
var ErrShortConfig = errors.New("decoder configuration too short")

// ParseDecoderConfig reads an avcC record (ISO/IEC 14496-15).
//
// If the record is malformed beyond its fixed header, the NAL length size
// is still returned along with the error.
func ParseDecoderConfig(extradata []byte) (Params, error) {
	if len(extradata) < 5 {
		return Params{}, ErrShortConfig
	}

	params := Params{
		NALLengthSize: int(extradata[4]&0x03) + 1,
	}

	cfg := mp4.AVCDecoderConfiguration{
		AnyTypeBox: mp4.AnyTypeBox{Type: mp4.BoxTypeAvcC()},
	}
	_, err := mp4.Unmarshal(bytes.NewReader(extradata), uint64(len(extradata)), &cfg, mp4.Context{})
	if err != nil {
		return params, fmt.Errorf("invalid avcC record: %w", err)
	}

	return ParamsFromConfig(&cfg), nil
}

// ParamsFromConfig converts a parsed avcC box.
// Only the first SPS and PPS are kept.
func ParamsFromConfig(cfg *mp4.AVCDecoderConfiguration) Params {
	params := Params{
		NALLengthSize: int(cfg.LengthSizeMinusOne) + 1,
	}
	if len(cfg.SequenceParameterSets) > 0 {
		params.SPS = cfg.SequenceParameterSets[0].NALUnit
	}
	if len(cfg.PictureParameterSets) > 0 {
		params.PPS = cfg.PictureParameterSets[0].NALUnit
	}
	return params
}

// PictureInfo is what an SPS tells about the decoded picture.
type PictureInfo struct {
	Width  int
	Height int
	FPS    float64
}

// ParseSPS decodes the picture size and frame rate from an SPS NAL unit.
func ParseSPS(sps []byte) (PictureInfo, error) {
	var s h264.SPS
	if err := s.Unmarshal(sps); err != nil {
		return PictureInfo{}, fmt.Errorf("invalid SPS: %w", err)
	}
	return PictureInfo{
		Width:  s.Width(),
		Height: s.Height(),
		FPS:    s.FPS(),
	}, nil
}

// ExtractParams scans an Annex-B access unit for in-band parameter sets.
func ExtractParams(au [][]byte) (sps, pps []byte) {
	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}
		switch h264.NALUType(nalu[0] & 0x1F) {
		case h264.NALUTypeSPS:
			sps = nalu
		case h264.NALUTypePPS:
			pps = nalu
		}
	}
	return sps, pps
}
