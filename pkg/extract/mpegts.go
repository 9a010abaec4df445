// ABOUTME: MPEG-TS extractor built on mediacommon and go-astits
// ABOUTME: Demuxes H.264, AAC and Opus elementary streams into samples
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astits"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	mcopus "github.com/bluenviron/mediacommon/v2/pkg/codecs/opus"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/Resonate-Protocol/reel-go/pkg/bitstream"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

// tsProbeSamples bounds how far Start reads ahead looking for an SPS.
const tsProbeSamples = 512

// MPEGTS extracts samples from a transport stream.
// H.264 access units are returned in Annex-B form. Timestamps start at zero.
type MPEGTS struct {
	R   io.Reader
	Log logger.Writer

	r       *mpegts.Reader
	td      *mpegts.TimeDecoder
	info    *media.MediaInfo
	pending []*media.Sample
	ended   bool
	err     error

	video      *media.VideoProps
	videoReady bool

	origin    int64
	hasOrigin bool
}

// Start implements Extractor.
func (e *MPEGTS) Start(ctx context.Context) error {
	e.Log = logger.OrDiscard(e.Log)

	e.r = &mpegts.Reader{R: e.R}
	err := e.r.Initialize()
	if err != nil {
		return fmt.Errorf("invalid transport stream: %w", err)
	}

	e.r.OnDecodeError(func(err error) {
		e.Log.Log(logger.Warn, "%v", err)
	})

	e.td = &mpegts.TimeDecoder{}
	e.td.Initialize()

	e.info = &media.MediaInfo{}
	e.videoReady = true

	for _, track := range e.r.Tracks() {
		id := uint32(track.PID)

		switch codec := track.Codec.(type) {
		case *mpegts.CodecH264:
			e.video = &media.VideoProps{NALLengthSize: 4}
			e.videoReady = false
			e.info.Tracks = append(e.info.Tracks, media.NewVideoTrack(id, media.CodecH264, e.video))

			e.r.OnDataH264(track, func(pts int64, dts int64, au [][]byte) error {
				e.onH264(id, pts, dts, au)
				return nil
			})

		case *mpegts.CodecMPEG4Audio:
			props := &media.AudioProps{
				SampleRate: codec.Config.SampleRate,
				Channels:   codec.Config.ChannelCount,
			}
			if asc, err := codec.Config.Marshal(); err == nil {
				props.ExtraData = asc
			}
			e.info.Tracks = append(e.info.Tracks, media.NewAudioTrack(id, media.CodecAAC, props))

			sampleRate := int64(props.SampleRate)
			e.r.OnDataMPEG4Audio(track, func(pts int64, aus [][]byte) error {
				e.onAAC(id, sampleRate, pts, aus)
				return nil
			})

		case *mpegts.CodecOpus:
			e.info.Tracks = append(e.info.Tracks, media.NewAudioTrack(id, media.CodecOpus, &media.AudioProps{
				SampleRate: 48000,
				Channels:   codec.ChannelCount,
			}))

			e.r.OnDataOpus(track, func(pts int64, packets [][]byte) error {
				e.onOpus(id, pts, packets)
				return nil
			})

		default:
			e.Log.Log(logger.Debug, "skipping PID %d with unsupported codec %T", track.PID, track.Codec)
		}
	}

	if len(e.info.Tracks) == 0 {
		return fmt.Errorf("no supported tracks found")
	}

	// picture size is only known once an SPS has been seen
	for !e.videoReady && !e.ended && len(e.pending) < tsProbeSamples {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.readPacket()
	}

	return nil
}

func (e *MPEGTS) readPacket() {
	err := e.r.Read()
	if err == nil {
		return
	}

	e.ended = true
	if !errors.Is(err, astits.ErrNoMorePackets) && !errors.Is(err, io.EOF) {
		e.err = err
	}
}

// decodeTicks unwraps a 90 kHz timestamp and rebases it on the first one seen.
func (e *MPEGTS) decodeTicks(ts int64) int64 {
	v := e.td.Decode(ts)
	if !e.hasOrigin {
		e.origin = v
		e.hasOrigin = true
	}
	return v - e.origin
}

func (e *MPEGTS) decodeMs(ts int64) int64 {
	return e.decodeTicks(ts) / 90
}

func (e *MPEGTS) onH264(id uint32, pts int64, dts int64, au [][]byte) {
	if !e.videoReady {
		if sps, pps := bitstream.ExtractParams(au); sps != nil {
			e.video.SPS = sps
			e.video.PPS = pps
			if pic, err := bitstream.ParseSPS(sps); err == nil {
				e.video.Width = pic.Width
				e.video.Height = pic.Height
				e.video.FrameRate = pic.FPS
			}
			e.videoReady = true
		}
	}

	buf, err := h264.AnnexB(au).Marshal()
	if err != nil {
		e.Log.Log(logger.Warn, "unable to encode access unit: %v", err)
		return
	}

	d := e.decodeMs(dts)
	p := e.decodeMs(pts)

	e.pending = append(e.pending, &media.Sample{
		TrackID: id,
		PTS:     p,
		DTS:     d,
		Data:    buf,
	})
}

func (e *MPEGTS) onAAC(id uint32, sampleRate int64, pts int64, aus [][]byte) {
	base := e.decodeTicks(pts)
	if sampleRate == 0 {
		return
	}

	dur := int64(mpeg4audio.SamplesPerAccessUnit) * 1000 / sampleRate

	for i, au := range aus {
		ts := (base + int64(i)*mpeg4audio.SamplesPerAccessUnit*90000/sampleRate) / 90
		e.pending = append(e.pending, &media.Sample{
			TrackID:  id,
			PTS:      ts,
			DTS:      ts,
			Duration: uint64(dur),
			Data:     au,
		})
	}
}

func (e *MPEGTS) onOpus(id uint32, pts int64, packets [][]byte) {
	base := e.decodeTicks(pts)

	for _, pkt := range packets {
		dur := mcopus.PacketDuration2(pkt)
		ts := base / 90
		e.pending = append(e.pending, &media.Sample{
			TrackID:  id,
			PTS:      ts,
			DTS:      ts,
			Duration: uint64(dur / 48),
			Data:     pkt,
		})
		base += dur * 90000 / 48000
	}
}

// MediaInfo implements Extractor.
func (e *MPEGTS) MediaInfo() *media.MediaInfo {
	return e.info
}

// ReadSample implements Extractor.
func (e *MPEGTS) ReadSample() (*media.Sample, error) {
	for len(e.pending) == 0 {
		if e.ended {
			if e.err != nil {
				err := e.err
				e.err = nil
				return nil, fmt.Errorf("%w: %v", media.ErrInvalidSample, err)
			}
			return nil, media.ErrEndOfStream
		}
		e.readPacket()
	}

	s := e.pending[0]
	e.pending[0] = nil
	e.pending = e.pending[1:]
	return s, nil
}

// Close implements Extractor.
func (e *MPEGTS) Close() error {
	e.pending = nil
	return nil
}
