// ABOUTME: Frame gate deciding when a queued frame is played or dropped
// ABOUTME: Compares the pending frame's PTS against a clock reference
package render

import (
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/queue"
)

// GateStats tracks gate decisions.
type GateStats struct {
	Played  uint64
	Dropped uint64
	Waiting uint64
}

// Gate holds at most one pending frame pulled from a queue and releases
// it when it is due.
//
// Tick must be called from a single goroutine.
type Gate struct {
	queue *queue.Channel[*media.Sample]

	ahead atomic.Int64
	late  atomic.Int64

	pending    *media.Sample
	hasPending atomic.Bool

	played  atomic.Uint64
	dropped atomic.Uint64
	waiting atomic.Uint64
}

// NewGate creates a gate that pulls from q.
func NewGate(q *queue.Channel[*media.Sample], ahead, late time.Duration) *Gate {
	g := &Gate{queue: q}
	g.SetTolerances(ahead, late)
	return g
}

// SetTolerances changes the sync window. It is safe to call while ticking.
func (g *Gate) SetTolerances(ahead, late time.Duration) {
	g.ahead.Store(ahead.Milliseconds())
	g.late.Store(late.Milliseconds())
}

// Tick runs one gate decision against the reference time ref (ms).
//
// A frame ahead of ref by more than the ahead tolerance stays pending.
// A frame behind ref by more than the late tolerance is dropped and the
// next one is tried. Any other frame goes to sink.
// It returns whether a frame reached the sink.
func (g *Gate) Tick(ref int64, sink func(*media.Sample) error) (bool, error) {
	return g.TickWithSlack(ref, 0, sink)
}

// TickWithSlack is Tick with slack ms added to the ahead tolerance.
func (g *Gate) TickWithSlack(ref int64, slack int64, sink func(*media.Sample) error) (bool, error) {
	for {
		if g.pending == nil {
			s, ok := g.queue.TryPop()
			if !ok {
				return false, nil
			}
			g.pending = s
			g.hasPending.Store(true)
		}

		pts := g.pending.PTS

		if pts > ref+g.ahead.Load()+slack {
			g.waiting.Add(1)
			return false, nil
		}

		s := g.pending
		g.pending = nil
		g.hasPending.Store(false)

		if pts < ref-g.late.Load() {
			g.dropped.Add(1)
			continue
		}

		g.played.Add(1)
		return true, sink(s)
	}
}

// HasPending reports whether a frame is held back.
func (g *Gate) HasPending() bool {
	return g.hasPending.Load()
}

// Reset discards the pending frame.
func (g *Gate) Reset() {
	g.pending = nil
	g.hasPending.Store(false)
}

// Stats returns a snapshot of the counters.
func (g *Gate) Stats() GateStats {
	return GateStats{
		Played:  g.played.Load(),
		Dropped: g.dropped.Load(),
		Waiting: g.waiting.Load(),
	}
}
