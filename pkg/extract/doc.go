// ABOUTME: Extractor package
// ABOUTME: Demultiplexes MP4, MPEG-TS, MP3 and FLAC into timed samples
// Package extract turns a byte stream into per-track samples.
//
// New sniffs the first bytes and returns the matching Extractor:
//
//	ex, container, err := extract.New(src, extract.Options{Log: l})
//	err = ex.Start(ctx)
//	for {
//	    s, err := ex.ReadSample()
//	    if errors.Is(err, media.ErrEndOfStream) {
//	        break
//	    }
//	}
//
// Timestamps are in milliseconds. MP4 returns H.264 in AVCC form and
// MPEG-TS in Annex-B form; the bitstream package normalizes both. MP3 and
// FLAC are decoded while extracting and yield PCM.
package extract
