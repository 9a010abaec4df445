// ABOUTME: Pipeline statistics and progress formatting
// ABOUTME: Aggregates clock position, queue occupancy and frame counters
package pipeline

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/google/uuid"

	"github.com/Resonate-Protocol/reel-go/pkg/queue"
	"github.com/Resonate-Protocol/reel-go/pkg/render"
)

// Stats is a snapshot of the pipeline.
type Stats struct {
	State     State
	SessionID string

	PositionMs          int64
	DurationMs          int64
	SourceBufferedBytes int64

	VideoTrackQueue    queue.Stats
	AudioTrackQueue    queue.Stats
	VideoRendererQueue queue.Stats
	AudioRendererQueue queue.Stats

	DecodedFrames  uint64
	DecodeErrors   uint64
	ReadErrors     uint64
	SkippedSamples uint64

	// renderer gate counters, when the renderers keep them
	PlayedFrames  uint64
	DroppedFrames uint64
}

type gated interface {
	GateStats() render.GateStats
}

// Stats returns a snapshot of the pipeline.
func (p *Pipeline) Stats() Stats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	st := Stats{
		State:          p.state,
		PositionMs:     p.clock.TimeMs(),
		DurationMs:     p.durationMs(),
		DecodedFrames:  p.decoded.Load(),
		DecodeErrors:   p.decodeErrors.Load(),
		ReadErrors:     p.readErrors.Load(),
		SkippedSamples: p.skipped.Load(),
	}

	if p.sessionID != uuid.Nil {
		st.SessionID = p.sessionID.String()
	}

	if p.src != nil {
		st.SourceBufferedBytes = p.src.Available()
	}

	if p.videoStr != nil {
		st.VideoTrackQueue = p.videoStr.buf.Stats()
		st.VideoRendererQueue = p.video.QueueStats()
	}
	if p.audioStr != nil {
		st.AudioTrackQueue = p.audioStr.buf.Stats()
		st.AudioRendererQueue = p.audio.QueueStats()
	}

	for _, s := range p.streams() {
		if g, ok := s.renderer.(gated); ok {
			gs := g.GateStats()
			st.PlayedFrames += gs.Played
			st.DroppedFrames += gs.Dropped
		}
	}

	return st
}

// String returns a multi-line description of the stats.
func (s Stats) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "state: %s\n", s.State)
	fmt.Fprintf(&b, "position: %s\n", FormatProgress(s.PositionMs, s.DurationMs))
	fmt.Fprintf(&b, "source buffered: %s\n", bytefmt.ByteSize(uint64(max(s.SourceBufferedBytes, 0))))
	fmt.Fprintf(&b, "video queues: track %s, renderer %s\n", formatQueue(s.VideoTrackQueue), formatQueue(s.VideoRendererQueue))
	fmt.Fprintf(&b, "audio queues: track %s, renderer %s\n", formatQueue(s.AudioTrackQueue), formatQueue(s.AudioRendererQueue))
	fmt.Fprintf(&b, "frames: %d decoded, %d played, %d dropped, %d decode errors, %d read errors",
		s.DecodedFrames, s.PlayedFrames, s.DroppedFrames, s.DecodeErrors, s.ReadErrors)

	return b.String()
}

func formatQueue(q queue.Stats) string {
	if q.Capacity == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d (%.0f%%)", q.Size, q.Capacity, q.FillPercent())
}

// FormatProgress formats a position and a duration as "m:ss / m:ss",
// switching to "h:mm:ss" from one hour on. An unknown duration prints as --:--.
func FormatProgress(posMs, durMs int64) string {
	dur := "--:--"
	if durMs > 0 {
		dur = formatTime(durMs)
	}
	return formatTime(posMs) + " / " + dur
}

func formatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
