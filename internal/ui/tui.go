// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and forwards key actions to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Action is a transport command raised by a key press
type Action int

const (
	ActionTogglePause Action = iota + 1
	ActionReset
	ActionQuit
)

// VolumeChangeMsg carries the volume the user dialled in
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// Controls holds the channels the TUI writes to.
// Sends never block; a full channel drops the action.
type Controls struct {
	Actions chan Action
	Volume  chan VolumeChangeMsg
	Quit    chan struct{}
}

// NewControls creates a control channel set
func NewControls() *Controls {
	return &Controls{
		Actions: make(chan Action, 10),
		Volume:  make(chan VolumeChangeMsg, 10),
		Quit:    make(chan struct{}),
	}
}

func (c *Controls) send(a Action) {
	if c == nil {
		return
	}
	if a == ActionQuit {
		select {
		case <-c.Quit:
		default:
			close(c.Quit)
		}
		return
	}
	select {
	case c.Actions <- a:
	default:
	}
}

func (c *Controls) sendVolume(volume int, muted bool) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- VolumeChangeMsg{Volume: volume, Muted: muted}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Controls, source string) Model {
	return Model{
		source: source,
		volume: 100,
		state:  "idle",
		ctrl:   ctrl,
	}
}

// Run creates the TUI program; the caller starts it
func Run(ctrl *Controls, source string) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl, source), tea.WithAltScreen())
	return p, nil
}
