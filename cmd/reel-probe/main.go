// ABOUTME: Media probe command
// ABOUTME: Prints the tracks of a file or URL and, optionally, per-track sample statistics
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"code.cloudfoundry.org/bytefmt"
	"github.com/alecthomas/kong"

	"github.com/Resonate-Protocol/reel-go/internal/version"
	"github.com/Resonate-Protocol/reel-go/pkg/decode"
	"github.com/Resonate-Protocol/reel-go/pkg/extract"
	"github.com/Resonate-Protocol/reel-go/pkg/logger"
	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/source"
)

var cli struct {
	Version  bool   `help:"print version"`
	Samples  bool   `help:"read every sample and print per-track statistics"`
	LogLevel string `help:"log level (debug, info, warn, error)" default:"warn"`
	URL      string `arg:"" optional:"" help:"file path or URL to probe"`
}

type trackStats struct {
	samples  uint64
	bytes    uint64
	errors   uint64
	firstPTS int64
	lastPTS  int64

	h264 *decode.H264
}

func main() {
	parser, err := kong.New(&cli,
		kong.Name("reel-probe"),
		kong.Description("Prints the tracks of a media file or URL"),
		kong.UsageOnError())
	if err != nil {
		panic(err)
	}

	_, err = parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if cli.Version {
		fmt.Println(version.UserAgent)
		os.Exit(0)
	}

	if cli.URL == "" {
		parser.Fatalf("expected <url>")
	}

	level, err := logger.ParseLevel(cli.LogLevel)
	parser.FatalIfErrorf(err)

	l, err := logger.New(level, []logger.Destination{logger.DestinationStdout}, "")
	parser.FatalIfErrorf(err)
	defer l.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err = probe(ctx, cli.URL, cli.Samples, os.Stdout, l)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERR: %s\n", err)
		os.Exit(1)
	}
}

func probe(ctx context.Context, url string, samples bool, w io.Writer, l logger.Writer) error {
	reg := source.NewRegistry(source.Config{
		UserAgent: version.UserAgent,
		Log:       l,
	})

	src, err := reg.Open(ctx, url)
	if err != nil {
		return err
	}
	defer src.Close()

	ex, container, err := extract.New(src, extract.Options{Log: l})
	if err != nil {
		return err
	}
	defer ex.Close()

	err = ex.Start(ctx)
	if err != nil {
		return fmt.Errorf("unable to start extractor: %w", err)
	}

	info := ex.MediaInfo()
	fmt.Fprintf(w, "container: %s\n%s\n", container, info)

	if !samples {
		return nil
	}

	stats, readErrors, err := readSamples(ctx, ex, info)
	if err != nil {
		return err
	}

	printStats(w, info, stats)
	if readErrors > 0 {
		fmt.Fprintf(w, "read errors: %d\n", readErrors)
	}
	return nil
}

func readSamples(ctx context.Context, ex extract.Extractor, info *media.MediaInfo) (map[uint32]*trackStats, uint64, error) {
	stats := make(map[uint32]*trackStats)
	var readErrors uint64

	for _, tr := range info.Tracks {
		ts := &trackStats{firstPTS: -1}
		if tr.Codec == media.CodecH264 {
			// the decoder validates access units and counts keyframes
			d, err := decode.NewH264(tr)
			if err == nil {
				ts.h264 = d
			}
		}
		stats[tr.ID] = ts
	}

	for ctx.Err() == nil {
		s, err := ex.ReadSample()
		if errors.Is(err, media.ErrEndOfStream) {
			break
		}

		if err != nil {
			// only the end of the stream is fatal
			readErrors++
			continue
		}

		ts, ok := stats[s.TrackID]
		if !ok {
			continue
		}

		ts.samples++
		ts.bytes += uint64(len(s.Data))
		if ts.firstPTS < 0 {
			ts.firstPTS = s.PTS
		}
		ts.lastPTS = s.PTS

		if ts.h264 != nil {
			_, err := ts.h264.Decode(info.Track(s.TrackID), s)
			if err != nil {
				ts.errors++
			}
		}
	}

	return stats, readErrors, ctx.Err()
}

func printStats(w io.Writer, info *media.MediaInfo, stats map[uint32]*trackStats) {
	ids := make([]int, 0, len(stats))
	for id := range stats {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	for _, id := range ids {
		ts := stats[uint32(id)]
		tr := info.Track(uint32(id))

		fmt.Fprintf(w, "track %d (%s): %d samples, %s, pts %d..%d ms",
			id, tr.Codec, ts.samples, bytefmt.ByteSize(ts.bytes), max(ts.firstPTS, 0), ts.lastPTS)

		if ts.h264 != nil {
			_, keys := ts.h264.Frames()
			n := ts.h264.NormalizerStats()
			fmt.Fprintf(w, ", %d keyframes, avcc %d, annexb %d, raw %d, truncated %d",
				keys, n.AVCC, n.AnnexB, n.Raw, n.Truncated)
			ts.h264.Close() //nolint:errcheck
		}

		if ts.errors > 0 {
			fmt.Fprintf(w, ", %d errors", ts.errors)
		}
		fmt.Fprintln(w)
	}
}
