// ABOUTME: Bubbletea model for the playback TUI
// ABOUTME: Renders adapter state and buffer fill, turns keys into control actions
package ui

import (
	"fmt"
	"math"

	"github.com/Sendspin/pullbridge/internal/player"
	"github.com/Sendspin/pullbridge/pkg/audio"
	tea "github.com/charmbracelet/bubbletea"
)

const volumeStep = 5

// Model represents the TUI state
type Model struct {
	// Source
	source       string
	sessionID    string
	driver       string
	sourceFormat string
	deviceFormat string

	// Adapter
	state     string
	delay     float64
	buffered  int
	capacity  int
	written   uint64
	read      uint64
	underruns uint64

	// Player
	decoded uint64
	loops   uint64
	paused  bool
	volume  int
	muted   bool

	// Runtime
	goroutines int
	memAlloc   uint64
	memSys     uint64

	showDebug bool

	ctrl *Controls

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
	s += m.renderFormat()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	source := m.source
	if source == "" {
		source = "(none)"
	}

	return fmt.Sprintf(`┌─ Pullbridge ─────────────────────────────────────────┐
│ Source: %-44s │
│ State:  %-44s │
├──────────────────────────────────────────────────────┤
`, truncate(source, 44), stateLabel(m.state, m.paused))
}

func (m Model) renderFormat() string {
	if m.deviceFormat == "" {
		return "│ No stream                                            │\n"
	}

	s := fmt.Sprintf("│ Decoded: %-43s │\n", truncate(m.sourceFormat, 43))
	s += fmt.Sprintf("│ Device:  %-43s │\n", truncate(m.driver+" "+m.deviceFormat, 43))
	return s
}

func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}

	volumeBar := renderBar(m.volume, 100, 10)
	bufferBar := renderBar(m.buffered, m.capacity, 20)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Volume: [%s] %d%%%s%-17s │\n"+
		"│ Buffer: [%s] %d/%d frames%-6s │\n"+
		"│ Delay:  %.1fms%-38s │\n",
		volumeBar, m.volume, muteIcon, "",
		bufferBar, m.buffered, m.capacity, "",
		m.delay*1000, "")
}

func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Written: %d  Read: %d  Underruns: %d%-8s │
│ Decoded: %d  Loops: %d%-24s │
`, m.written, m.read, m.underruns, "", m.decoded, m.loops, "")
}

func (m Model) renderHelp() string {
	return `│ space:Pause  r:Reset  ↑/↓:Volume  m:Mute  q:Quit     │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Session:    %-38s │
│   Goroutines: %-38d │
│   Heap:       %.1f/%.1f MiB%-25s │
`, m.sessionID, m.goroutines,
		float64(m.memAlloc)/(1<<20), float64(m.memSys)/(1<<20), "")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.ctrl.send(ActionQuit)
		return m, tea.Quit
	case " ":
		m.paused = !m.paused
		m.ctrl.send(ActionTogglePause)
	case "r":
		m.ctrl.send(ActionReset)
	case "up":
		if m.volume < 100 {
			m.volume = min(m.volume+volumeStep, 100)
			m.ctrl.sendVolume(m.volume, m.muted)
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-volumeStep, 0)
			m.ctrl.sendVolume(m.volume, m.muted)
		}
	case "m":
		m.muted = !m.muted
		m.ctrl.sendVolume(m.volume, m.muted)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.SessionID != "" {
		m.sessionID = msg.SessionID
	}
	if msg.Driver != "" {
		m.driver = msg.Driver
	}
	if msg.DeviceFormat != "" {
		m.sourceFormat = msg.SourceFormat
		m.deviceFormat = msg.DeviceFormat
	}
	if msg.State != "" {
		m.state = msg.State
		m.delay = msg.Delay
		m.buffered = msg.Buffered
		m.capacity = msg.Capacity
		m.written = msg.Written
		m.read = msg.Read
		m.underruns = msg.Underruns
		m.decoded = msg.Decoded
		m.loops = msg.Loops
	}
	if msg.Paused != nil {
		m.paused = *msg.Paused
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
}

// StatusMsg updates TUI state. Zero fields leave the model unchanged.
type StatusMsg struct {
	Source       string
	SessionID    string
	Driver       string
	SourceFormat string
	DeviceFormat string

	State     string
	Delay     float64
	Buffered  int
	Capacity  int
	Written   uint64
	Read      uint64
	Underruns uint64
	Decoded   uint64
	Loops     uint64

	Paused *bool
	Muted  *bool
	Volume int

	Goroutines int
	MemAlloc   uint64
	MemSys     uint64
}

// StatusFromStats converts a player snapshot into a status update
func StatusFromStats(s player.Stats) StatusMsg {
	paused := s.Paused
	muted := s.Muted
	return StatusMsg{
		SessionID:    s.SessionID,
		SourceFormat: sourceLabel(s.Source),
		DeviceFormat: s.Device.String(),
		State:        s.Adapter.State.String(),
		Delay:        s.Adapter.Delay,
		Buffered:     s.Adapter.BufferedFrames,
		Capacity:     s.Adapter.CapacityFrames,
		Written:      s.Adapter.FramesWritten,
		Read:         s.Adapter.FramesRead,
		Underruns:    s.Adapter.Underruns,
		Decoded:      s.DecodedFrames,
		Loops:        s.Loops,
		Paused:       &paused,
		Muted:        &muted,
		Volume:       int(math.Round(s.Volume.Level())),
	}
}

// Utility functions
func sourceLabel(f audio.Format) string {
	codec := f.Codec
	if codec == "" {
		codec = "pcm"
	}
	return fmt.Sprintf("%s %dHz %dch %d-bit", codec, f.SampleRate, f.Channels, f.BitDepth)
}

func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = (value * width) / max
	}
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

func stateLabel(state string, paused bool) string {
	if state == "" {
		state = "idle"
	}
	if paused && state != "paused" {
		return state + " (pausing)"
	}
	return state
}
