// ABOUTME: Recording renderer
// ABOUTME: Keeps every pushed frame, used by tests and dry runs
package render

import (
	"sync"

	"github.com/Resonate-Protocol/reel-go/pkg/media"
	"github.com/Resonate-Protocol/reel-go/pkg/queue"
)

// Recorder implements VideoRenderer and AudioRenderer by storing frames.
// Frames are considered rendered as soon as they are pushed.
type Recorder struct {
	mutex   sync.Mutex
	frames  []*media.Sample
	renders int
	width   int
	height  int
	volume  int
	eos     bool
	paused  bool
	stopped bool
}

// NewRecorder allocates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{volume: 100}
}

// PushFrame implements Renderer.
func (r *Recorder) PushFrame(s *media.Sample) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.stopped {
		return false
	}
	r.frames = append(r.frames, s)
	return true
}

// Render implements Renderer.
func (r *Recorder) Render() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.renders++
}

// Pause implements Renderer.
func (r *Recorder) Pause() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.paused = true
}

// Resume implements Renderer.
func (r *Recorder) Resume() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.paused = false
}

// Stop implements Renderer.
func (r *Recorder) Stop() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.stopped = true
}

// EndOfStream implements Renderer.
func (r *Recorder) EndOfStream() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.eos = true
}

// Drained implements Renderer.
func (r *Recorder) Drained() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.eos
}

// QueueStats implements Renderer.
func (r *Recorder) QueueStats() queue.Stats {
	return queue.Stats{}
}

// Resize implements VideoRenderer.
func (r *Recorder) Resize(width, height int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.width, r.height = width, height
	return nil
}

// PositionMs implements VideoRenderer.
func (r *Recorder) PositionMs() int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.frames) == 0 {
		return 0
	}
	return r.frames[len(r.frames)-1].PTS
}

// SetVolume implements AudioRenderer.
func (r *Recorder) SetVolume(v int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.volume = v
}

// Volume implements AudioRenderer.
func (r *Recorder) Volume() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.volume
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []*media.Sample {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]*media.Sample(nil), r.frames...)
}

// Size returns the size set by Resize.
func (r *Recorder) Size() (int, int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.width, r.height
}

// State returns the number of Render calls and the pause and stop flags.
func (r *Recorder) State() (renders int, paused bool, stopped bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.renders, r.paused, r.stopped
}
