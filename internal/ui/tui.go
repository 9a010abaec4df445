// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for player UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/reel-go/pkg/input"
)

// NewModel creates a new TUI model. Key commands are sent to commands,
// which may be nil.
func NewModel(commands *input.Queue) Model {
	return Model{
		volume:   100,
		state:    "idle",
		duration: -1,
		commands: commands,
	}
}

// Run creates the TUI program. The caller runs it.
func Run(commands *input.Queue) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(commands), tea.WithAltScreen())
	return p, nil
}
