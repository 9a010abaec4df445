// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Turns key presses into commands and renders playback status
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/reel-go/pkg/input"
	"github.com/Resonate-Protocol/reel-go/pkg/pipeline"
)

// Model represents the TUI state
type Model struct {
	commands *input.Queue

	// Media
	url   string
	video string
	audio string

	// Playback
	state    string
	volume   int
	position int64
	duration int64

	// Stats
	decoded uint64
	played  uint64
	dropped uint64
	stats   string

	showStats bool
	notice    string

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	case QuitMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderMediaInfo()
	s += m.renderControls()

	if m.showStats {
		s += m.renderStats()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders the playback state and URL
func (m Model) renderHeader() string {
	url := m.url
	if url == "" {
		url = "(nothing loaded)"
	}

	return fmt.Sprintf(`┌─ Reel ───────────────────────────────────────────────┐
│ State:  %-44s │
│ Media:  %-44s │
├──────────────────────────────────────────────────────┤
`, m.state, truncate(url, 44))
}

// renderMediaInfo renders the selected tracks
func (m Model) renderMediaInfo() string {
	video := m.video
	if video == "" {
		video = "none"
	}
	audio := m.audio
	if audio == "" {
		audio = "none"
	}

	return fmt.Sprintf("│ Video:  %-44s │\n│ Audio:  %-44s │\n",
		truncate(video, 44), truncate(audio, 44))
}

// renderControls renders volume and progress
func (m Model) renderControls() string {
	volumeBar := renderBar(m.volume, 100, 10)
	progress := pipeline.FormatProgress(m.position, m.duration)

	s := fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %3d%%%-28s │\n"+
		"│ Time:   %-44s │\n",
		volumeBar, m.volume, "", progress)

	if m.notice != "" {
		s += fmt.Sprintf("│ %-52s │\n", truncate(m.notice, 52))
	}

	return s
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	s := fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  Decoded: %d  Played: %d  Dropped: %d%-6s │
`, m.decoded, m.played, m.dropped, "")

	if m.stats != "" {
		s += m.stats
		if s[len(s)-1] != '\n' {
			s += "\n"
		}
	}

	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Pause  ←/→:Seek  ↑/↓:Volume  s:Stats  q:Quit   │
└──────────────────────────────────────────────────────┘
`
}

// handleKey forwards the command of a key to the player
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := input.FromKey(msg.String())
	if c == input.None {
		return m, nil
	}

	if m.commands != nil {
		m.commands.Send(c)
	}

	switch c {
	case input.Quit:
		return m, tea.Quit

	case input.VolumeUp:
		m.volume = min(m.volume+10, 100)

	case input.VolumeDown:
		m.volume = max(m.volume-10, 0)

	case input.ShowStats:
		m.showStats = !m.showStats

	case input.SeekForward, input.SeekBackward:
		m.notice = "Seeking is not supported"
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.URL != "" {
		m.url = msg.URL
	}
	if msg.Video != "" || msg.Audio != "" {
		m.video = msg.Video
		m.audio = msg.Audio
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.DurationMs != 0 {
		m.duration = msg.DurationMs
	}
	m.position = msg.PositionMs

	if msg.Decoded != 0 {
		m.decoded = msg.Decoded
		m.played = msg.Played
		m.dropped = msg.Dropped
	}
	if msg.Stats != "" {
		m.stats = msg.Stats
	}
}

// StatusMsg updates TUI state. Zero fields leave the state unchanged,
// except PositionMs.
type StatusMsg struct {
	State      string
	URL        string
	Video      string
	Audio      string
	Volume     *int
	PositionMs int64
	DurationMs int64
	Decoded    uint64
	Played     uint64
	Dropped    uint64
	Stats      string
}

// QuitMsg closes the TUI.
type QuitMsg struct{}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
