// ABOUTME: Minimal progressive MP4 writer for extractor tests
// ABOUTME: Writes ftyp, moov and mdat with one sample per chunk
package test

import (
	"io"

	"github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
)

// MP4Sample is a sample of an MP4Track.
type MP4Sample struct {
	Duration  uint32
	PTSOffset int32
	NonSync   bool
	Payload   []byte

	offset uint32
}

// MP4Track is a track written by MP4File. Video tracks are H.264 and
// carry SPS and PPS, audio tracks are AAC and carry an AudioSpecificConfig.
type MP4Track struct {
	ID        int
	TimeScale uint32
	Samples   []*MP4Sample

	// H.264
	SPS    []byte
	PPS    []byte
	Width  int
	Height int

	// AAC
	Config     []byte
	SampleRate int
	Channels   int
}

func (t *MP4Track) isVideo() bool {
	return t.SPS != nil
}

// MP4File encodes tracks into a progressive MP4 file.
func MP4File(tracks ...*MP4Track) ([]byte, error) {
	dataSize := interleave(tracks)

	var buf seekablebuffer.Buffer
	w := &mp4Writer{w: mp4.NewWriter(&buf)}

	_, err := w.writeBox(&mp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', 'm'},
		MinorVersion: 1,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '2'}},
		},
	})
	if err != nil {
		return nil, err
	}

	_, err = w.writeBoxStart(&mp4.Moov{})
	if err != nil {
		return nil, err
	}

	mvhd := &mp4.Mvhd{
		Timescale:   1000,
		Rate:        65536,
		Volume:      256,
		Matrix:      [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
		NextTrackID: uint32(len(tracks) + 1),
	}
	mvhdOffset, err := w.writeBox(mvhd)
	if err != nil {
		return nil, err
	}

	stcos := make([]*mp4.Stco, len(tracks))
	stcoOffsets := make([]int, len(tracks))

	for i, t := range tracks {
		var dur uint32
		stcos[i], stcoOffsets[i], dur, err = t.marshal(w)
		if err != nil {
			return nil, err
		}
		if dur > mvhd.DurationV0 {
			mvhd.DurationV0 = dur
		}
	}

	err = w.rewriteBox(mvhdOffset, mvhd)
	if err != nil {
		return nil, err
	}

	err = w.writeBoxEnd() // </moov>
	if err != nil {
		return nil, err
	}

	moovEnd, err := buf.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	dataOffset := uint32(moovEnd + 8)

	for i := range tracks {
		for j := range stcos[i].ChunkOffset {
			stcos[i].ChunkOffset[j] += dataOffset
		}
		err = w.rewriteBox(stcoOffsets[i], stcos[i])
		if err != nil {
			return nil, err
		}
	}

	out := buf.Bytes()

	mdatSize := 8 + dataSize
	out = append(out, byte(mdatSize>>24), byte(mdatSize>>16), byte(mdatSize>>8), byte(mdatSize))
	out = append(out, 'm', 'd', 'a', 't')

	for _, sa := range sortedSamples(tracks) {
		out = append(out, sa.Payload...)
	}

	return out, nil
}

// interleave assigns mdat offsets in decode order across tracks.
func interleave(tracks []*MP4Track) uint32 {
	offset := uint32(0)
	for _, sa := range sortedSamples(tracks) {
		sa.offset = offset
		offset += uint32(len(sa.Payload))
	}
	return offset
}

func sortedSamples(tracks []*MP4Track) []*MP4Sample {
	next := make([]int, len(tracks))
	elapsed := make([]int64, len(tracks))
	var out []*MP4Sample

	for {
		best := -1
		for i, t := range tracks {
			if next[i] >= len(t.Samples) {
				continue
			}
			if best == -1 ||
				elapsed[i]*int64(tracks[best].TimeScale) < elapsed[best]*int64(t.TimeScale) {
				best = i
			}
		}
		if best == -1 {
			return out
		}

		sa := tracks[best].Samples[next[best]]
		next[best]++
		elapsed[best] += int64(sa.Duration)
		out = append(out, sa)
	}
}

func (t *MP4Track) marshal(w *mp4Writer) (*mp4.Stco, int, uint32, error) {
	var total uint32
	for _, sa := range t.Samples {
		total += sa.Duration
	}
	presentation := uint32(uint64(total) * 1000 / uint64(t.TimeScale))

	boxes := []mp4.IImmutableBox{&mp4.Trak{}}
	if err := w.startAll(boxes...); err != nil {
		return nil, 0, 0, err
	}

	tkhd := &mp4.Tkhd{
		FullBox:    mp4.FullBox{Flags: [3]byte{0, 0, 3}},
		TrackID:    uint32(t.ID),
		DurationV0: presentation,
		Matrix:     [9]int32{0x10000, 0, 0, 0, 0x10000, 0, 0, 0, 0x40000000},
	}
	if t.isVideo() {
		tkhd.Width = uint32(t.Width * 65536)
		tkhd.Height = uint32(t.Height * 65536)
	} else {
		tkhd.AlternateGroup = 1
		tkhd.Volume = 256
	}
	if _, err := w.writeBox(tkhd); err != nil {
		return nil, 0, 0, err
	}

	if err := w.startAll(&mp4.Mdia{}); err != nil {
		return nil, 0, 0, err
	}

	_, err := w.writeBox(&mp4.Mdhd{
		Timescale:  t.TimeScale,
		DurationV0: total,
		Language:   [3]byte{'u', 'n', 'd'},
	})
	if err != nil {
		return nil, 0, 0, err
	}

	hdlr := &mp4.Hdlr{HandlerType: [4]byte{'s', 'o', 'u', 'n'}, Name: "SoundHandler"}
	if t.isVideo() {
		hdlr = &mp4.Hdlr{HandlerType: [4]byte{'v', 'i', 'd', 'e'}, Name: "VideoHandler"}
	}
	if _, err = w.writeBox(hdlr); err != nil {
		return nil, 0, 0, err
	}

	if err = w.startAll(&mp4.Minf{}); err != nil {
		return nil, 0, 0, err
	}

	if t.isVideo() {
		_, err = w.writeBox(&mp4.Vmhd{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}}})
	} else {
		_, err = w.writeBox(&mp4.Smhd{})
	}
	if err != nil {
		return nil, 0, 0, err
	}

	if err = w.startAll(&mp4.Dinf{}, &mp4.Dref{EntryCount: 1}); err != nil {
		return nil, 0, 0, err
	}
	if _, err = w.writeBox(&mp4.Url{FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}}}); err != nil {
		return nil, 0, 0, err
	}
	if err = w.endAll(2); err != nil { // </dref></dinf>
		return nil, 0, 0, err
	}

	if err = w.startAll(&mp4.Stbl{}, &mp4.Stsd{EntryCount: 1}); err != nil {
		return nil, 0, 0, err
	}

	if t.isVideo() {
		err = t.marshalAVC1(w)
	} else {
		err = t.marshalMP4A(w)
	}
	if err != nil {
		return nil, 0, 0, err
	}

	if err = w.endAll(1); err != nil { // </stsd>
		return nil, 0, 0, err
	}

	stco, stcoOffset, err := t.marshalTables(w)
	if err != nil {
		return nil, 0, 0, err
	}

	if err = w.endAll(4); err != nil { // </stbl></minf></mdia></trak>
		return nil, 0, 0, err
	}

	return stco, stcoOffset, presentation, nil
}

func (t *MP4Track) marshalAVC1(w *mp4Writer) error {
	_, err := w.writeBoxStart(&mp4.VisualSampleEntry{
		SampleEntry: mp4.SampleEntry{
			AnyTypeBox:         mp4.AnyTypeBox{Type: mp4.BoxTypeAvc1()},
			DataReferenceIndex: 1,
		},
		Width:           uint16(t.Width),
		Height:          uint16(t.Height),
		Horizresolution: 4718592,
		Vertresolution:  4718592,
		FrameCount:      1,
		Depth:           24,
		PreDefined3:     -1,
	})
	if err != nil {
		return err
	}

	_, err = w.writeBox(&mp4.AVCDecoderConfiguration{
		AnyTypeBox:                 mp4.AnyTypeBox{Type: mp4.BoxTypeAvcC()},
		ConfigurationVersion:       1,
		Profile:                    t.SPS[1],
		ProfileCompatibility:       t.SPS[2],
		Level:                      t.SPS[3],
		LengthSizeMinusOne:         3,
		NumOfSequenceParameterSets: 1,
		SequenceParameterSets: []mp4.AVCParameterSet{
			{Length: uint16(len(t.SPS)), NALUnit: t.SPS},
		},
		NumOfPictureParameterSets: 1,
		PictureParameterSets: []mp4.AVCParameterSet{
			{Length: uint16(len(t.PPS)), NALUnit: t.PPS},
		},
	})
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </avc1>
}

func (t *MP4Track) marshalMP4A(w *mp4Writer) error {
	_, err := w.writeBoxStart(&mp4.AudioSampleEntry{
		SampleEntry: mp4.SampleEntry{
			AnyTypeBox:         mp4.AnyTypeBox{Type: mp4.BoxTypeMp4a()},
			DataReferenceIndex: 1,
		},
		ChannelCount: uint16(t.Channels),
		SampleSize:   16,
		SampleRate:   uint32(t.SampleRate * 65536),
	})
	if err != nil {
		return err
	}

	_, err = w.writeBox(&mp4.Esds{
		Descriptors: []mp4.Descriptor{
			{
				Tag:          mp4.ESDescrTag,
				Size:         32 + uint32(len(t.Config)),
				ESDescriptor: &mp4.ESDescriptor{ESID: uint16(t.ID)},
			},
			{
				Tag:  mp4.DecoderConfigDescrTag,
				Size: 18 + uint32(len(t.Config)),
				DecoderConfigDescriptor: &mp4.DecoderConfigDescriptor{
					ObjectTypeIndication: 0x40,
					StreamType:           0x05,
					Reserved:             true,
					MaxBitrate:           128825,
					AvgBitrate:           128825,
				},
			},
			{
				Tag:  mp4.DecSpecificInfoTag,
				Size: uint32(len(t.Config)),
				Data: t.Config,
			},
			{
				Tag:  mp4.SLConfigDescrTag,
				Size: 1,
				Data: []byte{0x02},
			},
		},
	})
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </mp4a>
}

func (t *MP4Track) marshalTables(w *mp4Writer) (*mp4.Stco, int, error) {
	stts := &mp4.Stts{}
	ctts := &mp4.Ctts{}
	stsz := &mp4.Stsz{SampleCount: uint32(len(t.Samples))}
	stco := &mp4.Stco{EntryCount: uint32(len(t.Samples))}
	stss := &mp4.Stss{}

	for i, sa := range t.Samples {
		stts.Entries = append(stts.Entries, mp4.SttsEntry{SampleCount: 1, SampleDelta: sa.Duration})
		ctts.Entries = append(ctts.Entries, mp4.CttsEntry{SampleCount: 1, SampleOffsetV0: uint32(sa.PTSOffset)})
		stsz.EntrySize = append(stsz.EntrySize, uint32(len(sa.Payload)))
		stco.ChunkOffset = append(stco.ChunkOffset, sa.offset)
		if !sa.NonSync {
			stss.SampleNumber = append(stss.SampleNumber, uint32(i+1))
		}
	}
	stts.EntryCount = uint32(len(stts.Entries))
	ctts.EntryCount = uint32(len(ctts.Entries))
	stss.EntryCount = uint32(len(stss.SampleNumber))

	boxes := []mp4.IImmutableBox{stts}
	if t.isVideo() {
		boxes = append(boxes, stss, ctts)
	}
	boxes = append(boxes, &mp4.Stsc{
		EntryCount: 1,
		Entries: []mp4.StscEntry{{
			FirstChunk:             1,
			SamplesPerChunk:        1,
			SampleDescriptionIndex: 1,
		}},
	}, stsz)

	for _, b := range boxes {
		if _, err := w.writeBox(b); err != nil {
			return nil, 0, err
		}
	}

	off, err := w.writeBox(stco)
	if err != nil {
		return nil, 0, err
	}

	return stco, off, nil
}

type mp4Writer struct {
	w *mp4.Writer
}

func (w *mp4Writer) writeBoxStart(box mp4.IImmutableBox) (int, error) {
	bi, err := w.w.StartBox(&mp4.BoxInfo{Type: box.GetType()})
	if err != nil {
		return 0, err
	}

	_, err = mp4.Marshal(w.w, box, mp4.Context{})
	if err != nil {
		return 0, err
	}

	return int(bi.Offset), nil
}

func (w *mp4Writer) writeBoxEnd() error {
	_, err := w.w.EndBox()
	return err
}

func (w *mp4Writer) writeBox(box mp4.IImmutableBox) (int, error) {
	off, err := w.writeBoxStart(box)
	if err != nil {
		return 0, err
	}
	return off, w.writeBoxEnd()
}

func (w *mp4Writer) startAll(boxes ...mp4.IImmutableBox) error {
	for _, b := range boxes {
		if _, err := w.writeBoxStart(b); err != nil {
			return err
		}
	}
	return nil
}

func (w *mp4Writer) endAll(n int) error {
	for i := 0; i < n; i++ {
		if err := w.writeBoxEnd(); err != nil {
			return err
		}
	}
	return nil
}

func (w *mp4Writer) rewriteBox(off int, box mp4.IImmutableBox) error {
	prev, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	if _, err = w.w.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}

	if _, err = w.writeBox(box); err != nil {
		return err
	}

	_, err = w.w.Seek(prev, io.SeekStart)
	return err
}
