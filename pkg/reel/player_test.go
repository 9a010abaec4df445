// ABOUTME: Integration tests for Player API
// ABOUTME: Plays an in-memory MP4 through the default decoders and renderers
package reel

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/reel-go/internal/test"
	"github.com/Resonate-Protocol/reel-go/pkg/audio/output"
	"github.com/Resonate-Protocol/reel-go/pkg/bitstream"
	"github.com/Resonate-Protocol/reel-go/pkg/input"
	"github.com/Resonate-Protocol/reel-go/pkg/pipeline"
	"github.com/Resonate-Protocol/reel-go/pkg/source"
)

func videoFile(t *testing.T) []byte {
	track := &test.MP4Track{
		ID:        1,
		TimeScale: 90000,
		SPS:       test.SPS,
		PPS:       test.PPS,
		Width:     1920,
		Height:    1080,
	}
	for i := 0; i < 3; i++ {
		track.Samples = append(track.Samples, &test.MP4Sample{
			Duration: 3000,
			NonSync:  i != 0,
			Payload:  test.AVCC(4, []byte{0x65, 0x88, byte(i)}),
		})
	}

	buf, err := test.MP4File(track)
	if err != nil {
		t.Fatalf("Failed to build file: %v", err)
	}
	return buf
}

// stateLog collects OnStateChange notifications.
type stateLog struct {
	mutex  sync.Mutex
	states []pipeline.State
}

func (l *stateLog) add(st PlayerState) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.states = append(l.states, st.State)
}

func (l *stateLog) get() []pipeline.State {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]pipeline.State(nil), l.states...)
}

func newTestPlayer(t *testing.T, config PlayerConfig) *Player {
	config.Log = test.NilLogger
	if config.AudioOutput == nil {
		config.AudioOutput = output.NewWriter(io.Discard, 16)
	}

	player, err := NewPlayer(config)
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}

	data := videoFile(t)
	player.Sources().Register("mem", func(source.Config) source.Source {
		return source.NewMemory(data)
	})
	return player
}

func TestNewPlayer(t *testing.T) {
	player := newTestPlayer(t, PlayerConfig{Volume: 80})
	defer player.Close()

	state := player.Status()
	if state.State != pipeline.StateIdle {
		t.Errorf("Expected initial state=idle, got %s", state.State)
	}
	if state.Volume != 80 {
		t.Errorf("Expected volume=80, got %d", state.Volume)
	}
	if state.SessionID != "" {
		t.Errorf("Expected no session, got %s", state.SessionID)
	}
}

func TestNewPlayerDefaults(t *testing.T) {
	player := newTestPlayer(t, PlayerConfig{})
	defer player.Close()

	if player.Volume() != 100 {
		t.Errorf("Expected default volume=100, got %d", player.Volume())
	}
	if player.config.VideoOutput != io.Discard {
		t.Error("Expected video output to default to io.Discard")
	}
	if player.config.AudioLateTolerance != 100*time.Millisecond {
		t.Errorf("Expected AudioLateTolerance=100ms, got %v", player.config.AudioLateTolerance)
	}
}

func TestPlayerVolume(t *testing.T) {
	player := newTestPlayer(t, PlayerConfig{Volume: 50})
	defer player.Close()

	tests := []struct {
		input    int
		expected int
	}{
		{75, 75},
		{150, 100},
		{-10, 0},
	}

	for _, tt := range tests {
		player.SetVolume(tt.input)
		if player.Volume() != tt.expected {
			t.Errorf("SetVolume(%d): expected %d, got %d", tt.input, tt.expected, player.Volume())
		}
	}

	player.SetVolume(95)
	player.HandleCommand(input.VolumeUp)
	if player.Volume() != 100 {
		t.Errorf("Expected volume_up to clamp at 100, got %d", player.Volume())
	}
	player.HandleCommand(input.VolumeDown)
	if player.Volume() != 90 {
		t.Errorf("Expected volume=90 after volume_down, got %d", player.Volume())
	}
}

func TestPlayerPlay(t *testing.T) {
	var out bytes.Buffer
	var states stateLog

	player := newTestPlayer(t, PlayerConfig{
		VideoOutput:   &out,
		StopOnEOS:     true,
		OnStateChange: states.add,
	})
	defer player.Close()

	err := player.Load(context.Background(), "mem://movie")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	state := player.Status()
	if state.State != pipeline.StateLoaded {
		t.Errorf("Expected state=loaded, got %s", state.State)
	}
	if state.URL != "mem://movie" {
		t.Errorf("Expected URL to be recorded, got %q", state.URL)
	}
	if state.SessionID == "" {
		t.Error("Expected a session ID after load")
	}
	if len(player.MediaInfo().Tracks) != 1 {
		t.Errorf("Expected 1 track, got %d", len(player.MediaInfo().Tracks))
	}

	done := make(chan error, 1)
	go func() {
		done <- player.Play()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Play failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return at the end of the media")
	}

	if !bytes.HasPrefix(out.Bytes(), bitstream.StartCode) {
		t.Errorf("Expected Annex-B output, got % x", out.Bytes())
	}

	stats := player.Stats()
	if stats.DecodedFrames != 3 {
		t.Errorf("Expected 3 decoded frames, got %d", stats.DecodedFrames)
	}

	expected := []pipeline.State{pipeline.StateLoaded, pipeline.StatePlaying, pipeline.StateStopped}
	got := states.get()
	if len(got) != len(expected) {
		t.Fatalf("Expected states %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("State %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
}

func TestPlayerQuitCommand(t *testing.T) {
	q := input.NewQueue(4)
	player := newTestPlayer(t, PlayerConfig{Input: q})
	defer player.Close()

	err := player.Load(context.Background(), "mem://movie")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- player.Play()
	}()

	q.Send(input.Quit)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return after quit")
	}

	if player.Status().State != pipeline.StateStopped {
		t.Errorf("Expected state=stopped, got %s", player.Status().State)
	}
}

func TestPlayerLoadError(t *testing.T) {
	var got error
	player := newTestPlayer(t, PlayerConfig{
		OnError: func(err error) { got = err },
	})
	defer player.Close()

	err := player.Load(context.Background(), "gopher://nowhere")
	if err == nil {
		t.Fatal("Expected an error for an unknown scheme")
	}
	if got == nil {
		t.Error("Expected OnError to be called")
	}
	if player.Status().State != pipeline.StateIdle {
		t.Errorf("Expected state=idle, got %s", player.Status().State)
	}
}
