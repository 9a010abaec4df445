// ABOUTME: MP4 extractor built on abema/go-mp4
// ABOUTME: Reads sample tables once and serves samples interleaved by DTS
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/abema/go-mp4"

	"github.com/Resonate-Protocol/reel-go/pkg/bitstream"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
)

type mp4Sample struct {
	offset   int64
	size     uint32
	dts      int64
	cto      int64
	duration uint32
}

type mp4Track struct {
	info      *media.TrackInfo
	timescale uint32
	samples   []mp4Sample
	next      int
}

func (t *mp4Track) nextDTSMs() int64 {
	return ticksToMs(t.samples[t.next].dts, t.timescale)
}

// codec configuration collected while walking the box tree
type mp4TrackHeader struct {
	id         uint32
	timescale  uint32
	codec      media.CodecID
	width      int
	height     int
	sampleRate int
	channels   int
	bitDepth   int
	avcC       *mp4.AVCDecoderConfiguration
	extraData  []byte
}

// MP4 extracts H.264, AAC and Opus tracks from progressive MP4 files.
// H.264 samples are returned in AVCC form. Input that cannot seek is read
// into memory first.
type MP4 struct {
	R   io.Reader
	Log logger.Writer

	rs     io.ReadSeeker
	info   *media.MediaInfo
	tracks []*mp4Track
}

// Start implements Extractor.
func (e *MP4) Start(ctx context.Context) error {
	e.Log = logger.OrDiscard(e.Log)

	if rs, ok := e.R.(io.ReadSeeker); ok {
		e.rs = rs
	} else {
		e.Log.Log(logger.Debug, "input is not seekable, reading it into memory")
		buf, err := io.ReadAll(e.R)
		if err != nil {
			return fmt.Errorf("unable to read input: %w", err)
		}
		e.rs = bytes.NewReader(buf)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	headers, err := readMP4Headers(e.rs)
	if err != nil {
		return err
	}

	_, err = e.rs.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}

	probe, err := mp4.Probe(e.rs)
	if err != nil {
		return fmt.Errorf("unable to probe MP4: %w", err)
	}

	info := &media.MediaInfo{}
	if probe.Timescale != 0 {
		info.Duration = time.Duration(probe.Duration) * time.Second / time.Duration(probe.Timescale)
	}

	for _, pt := range probe.Tracks {
		h, ok := headers[pt.TrackID]
		if !ok || h.codec == media.CodecUnknown {
			e.Log.Log(logger.Debug, "skipping track %d with unsupported codec", pt.TrackID)
			continue
		}

		tr := &mp4Track{
			timescale: pt.Timescale,
			samples:   flattenSamples(pt),
		}
		if len(tr.samples) == 0 {
			continue
		}

		tr.info = h.trackInfo(pt, tr.samples)
		e.tracks = append(e.tracks, tr)
		info.Tracks = append(info.Tracks, tr.info)
	}

	if len(e.tracks) == 0 {
		return fmt.Errorf("no supported tracks found")
	}

	e.info = info
	return nil
}

func flattenSamples(pt *mp4.Track) []mp4Sample {
	out := make([]mp4Sample, 0, len(pt.Samples))

	var dts int64
	i := 0

	for _, chunk := range pt.Chunks {
		offset := int64(chunk.DataOffset)

		for j := uint32(0); j < chunk.SamplesPerChunk && i < len(pt.Samples); j++ {
			s := pt.Samples[i]
			out = append(out, mp4Sample{
				offset:   offset,
				size:     s.Size,
				dts:      dts,
				cto:      s.CompositionTimeOffset,
				duration: s.TimeDelta,
			})
			offset += int64(s.Size)
			dts += int64(s.TimeDelta)
			i++
		}
	}

	return out
}

func (h *mp4TrackHeader) trackInfo(pt *mp4.Track, samples []mp4Sample) *media.TrackInfo {
	if h.codec == media.CodecH264 {
		props := &media.VideoProps{
			Width:     h.width,
			Height:    h.height,
			ExtraData: h.extraData,
		}

		if h.avcC != nil {
			params := bitstream.ParamsFromConfig(h.avcC)
			props.SPS = params.SPS
			props.PPS = params.PPS
			props.NALLengthSize = params.NALLengthSize
		} else if pt.AVC != nil {
			props.NALLengthSize = int(pt.AVC.LengthSize)
		}

		if (props.Width == 0 || props.Height == 0) && props.SPS != nil {
			if pic, err := bitstream.ParseSPS(props.SPS); err == nil {
				props.Width, props.Height = pic.Width, pic.Height
			}
		}

		last := samples[len(samples)-1]
		total := last.dts + int64(last.duration)
		if total > 0 && pt.Timescale != 0 {
			props.FrameRate = float64(len(samples)) * float64(pt.Timescale) / float64(total)
		}

		return media.NewVideoTrack(h.id, h.codec, props)
	}

	return media.NewAudioTrack(h.id, h.codec, &media.AudioProps{
		SampleRate: h.sampleRate,
		Channels:   h.channels,
		BitDepth:   h.bitDepth,
		ExtraData:  h.extraData,
	})
}

func readMP4Headers(r io.ReadSeeker) (map[uint32]*mp4TrackHeader, error) {
	headers := make(map[uint32]*mp4TrackHeader)
	var cur *mp4TrackHeader

	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStsd():

		case mp4.BoxTypeTrak():
			cur = &mp4TrackHeader{codec: media.CodecUnknown}

		case mp4.BoxTypeTkhd():
			if cur == nil {
				return nil, fmt.Errorf("tkhd outside of trak")
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			cur.id = box.(*mp4.Tkhd).TrackID
			headers[cur.id] = cur
			return nil, nil

		case mp4.BoxTypeMdhd():
			if cur == nil {
				return nil, fmt.Errorf("mdhd outside of trak")
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			cur.timescale = box.(*mp4.Mdhd).Timescale
			return nil, nil

		case mp4.BoxTypeAvc1():
			if cur == nil {
				return nil, fmt.Errorf("avc1 outside of trak")
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			vse := box.(*mp4.VisualSampleEntry)
			cur.codec = media.CodecH264
			cur.width = int(vse.Width)
			cur.height = int(vse.Height)

		case mp4.BoxTypeAvcC():
			if cur == nil || cur.codec != media.CodecH264 {
				return nil, fmt.Errorf("unexpected avcC")
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			conf := box.(*mp4.AVCDecoderConfiguration)
			cur.avcC = conf

			var buf bytes.Buffer
			if _, err := mp4.Marshal(&buf, conf, h.BoxInfo.Context); err == nil {
				cur.extraData = buf.Bytes()
			}
			return nil, nil

		case mp4.BoxTypeMp4a(), mp4.BoxTypeOpus():
			if cur == nil {
				return nil, fmt.Errorf("audio sample entry outside of trak")
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			ase := box.(*mp4.AudioSampleEntry)
			cur.sampleRate = int(ase.GetSampleRateInt())
			cur.channels = int(ase.ChannelCount)
			cur.bitDepth = int(ase.SampleSize)
			if h.BoxInfo.Type == mp4.BoxTypeOpus() {
				cur.codec = media.CodecOpus
				cur.sampleRate = 48000
			} else {
				cur.codec = media.CodecAAC
			}

		case mp4.BoxTypeEsds():
			if cur == nil {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			for _, d := range box.(*mp4.Esds).Descriptors {
				if d.Tag == mp4.DecSpecificInfoTag {
					cur.extraData = d.Data
				}
			}
			return nil, nil

		default:
			return nil, nil
		}

		return h.Expand()
	})
	if err != nil {
		return nil, fmt.Errorf("invalid MP4: %w", err)
	}

	return headers, nil
}

// MediaInfo implements Extractor.
func (e *MP4) MediaInfo() *media.MediaInfo {
	return e.info
}

// ReadSample implements Extractor.
func (e *MP4) ReadSample() (*media.Sample, error) {
	var best *mp4Track
	for _, t := range e.tracks {
		if t.next >= len(t.samples) {
			continue
		}
		if best == nil || t.nextDTSMs() < best.nextDTSMs() {
			best = t
		}
	}

	if best == nil {
		return nil, media.ErrEndOfStream
	}

	s := best.samples[best.next]
	best.next++

	if s.size == 0 {
		return nil, fmt.Errorf("%w: empty sample on track %d", media.ErrInvalidPacketSize, best.info.ID)
	}

	_, err := e.rs.Seek(s.offset, io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidSample, err)
	}

	data := make([]byte, s.size)
	_, err = io.ReadFull(e.rs, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidSample, err)
	}

	return &media.Sample{
		TrackID:  best.info.ID,
		DTS:      ticksToMs(s.dts, best.timescale),
		PTS:      ticksToMs(s.dts+s.cto, best.timescale),
		Duration: uint64(ticksToMs(int64(s.duration), best.timescale)),
		Data:     data,
	}, nil
}

// Close implements Extractor.
func (e *MP4) Close() error {
	return nil
}
