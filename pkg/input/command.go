// ABOUTME: Playback commands and input handlers
// ABOUTME: Front ends translate user input into Commands polled by the pipeline
package input

import (
	"sync"
)

// Command is a user request to the player.
type Command int

// Commands.
const (
	None Command = iota
	TogglePause
	Quit
	SeekForward
	SeekBackward
	VolumeUp
	VolumeDown
	ShowStats
)

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case TogglePause:
		return "toggle_pause"
	case Quit:
		return "quit"
	case SeekForward:
		return "seek_forward"
	case SeekBackward:
		return "seek_backward"
	case VolumeUp:
		return "volume_up"
	case VolumeDown:
		return "volume_down"
	case ShowStats:
		return "show_stats"
	}
	return "none"
}

// Handler is polled by the render loop for pending commands.
type Handler interface {
	Poll() []Command
	Close() error
}

// Queue is a Handler fed by any front end through Send.
type Queue struct {
	ch        chan Command
	closeOnce sync.Once
	done      chan struct{}
}

// NewQueue allocates a Queue that holds up to size unpolled commands.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{
		ch:   make(chan Command, size),
		done: make(chan struct{}),
	}
}

// Send queues a command. It returns false when the queue is full or closed.
func (q *Queue) Send(c Command) bool {
	if c == None {
		return false
	}

	select {
	case <-q.done:
		return false
	default:
	}

	select {
	case q.ch <- c:
		return true
	default:
		return false
	}
}

// Poll implements Handler.
func (q *Queue) Poll() []Command {
	var out []Command
	for {
		select {
		case c := <-q.ch:
			out = append(out, c)
		default:
			return out
		}
	}
}

// Close implements Handler.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	return nil
}

// Done is closed by Close.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// FromKey maps a key name, as reported by terminal front ends, to a command.
func FromKey(key string) Command {
	switch key {
	case " ", "space", "p":
		return TogglePause
	case "q", "esc", "ctrl+c":
		return Quit
	case "right", "l":
		return SeekForward
	case "left", "h":
		return SeekBackward
	case "up", "+", "=":
		return VolumeUp
	case "down", "-":
		return VolumeDown
	case "s":
		return ShowStats
	}
	return None
}
