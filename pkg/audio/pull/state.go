// ABOUTME: Playback state machine of the pull adapter
// ABOUTME: Pause, resume and reset with driver hook forwarding
package pull

import "go.uber.org/zap"

// State is the adapter playback state
type State int32

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// State returns the current playback state
func (a *Adapter) State() State {
	return State(a.state.Load())
}

// Pause stops delivery without dropping buffered audio. The driver's Pause
// hook runs first so the device stops pulling before the state flips.
// Pause, Resume and Reset do nothing once the adapter is uninitialized.
func (a *Adapter) Pause() {
	if a.closed.Load() {
		return
	}
	if a.hooks.pause != nil {
		a.hooks.pause.Pause()
	}
	a.state.Store(int32(StatePaused))
	a.log.Debug("paused")
}

// Resume restarts delivery of buffered audio
func (a *Adapter) Resume() {
	if a.closed.Load() {
		return
	}
	a.state.Store(int32(StatePlaying))
	if a.hooks.resume != nil {
		a.hooks.resume.Resume()
	}
	a.log.Debug("resumed")
}

// Reset drops all buffered audio and returns to Idle.
//
// This is not race-free against a Read running at the same time: it relies
// on the driver's Reset hook having stopped the device callback. ready is
// cleared for the window in which the planes are emptied, so a callback that
// slips through outputs silence instead of touching the buffers.
func (a *Adapter) Reset() {
	if a.closed.Load() {
		return
	}
	if a.hooks.reset != nil {
		a.hooks.reset.Reset()
	}
	a.ready.Store(false)
	a.state.Store(int32(StateIdle))
	for _, p := range a.planes {
		p.Reset()
	}
	a.endTime.Store(0)
	a.ready.Store(true)
	a.log.Debug("reset")
}

// transitionToPlaying is the implicit resume done by Write
func (a *Adapter) transitionToPlaying() {
	if a.closed.Load() {
		return
	}
	prev := State(a.state.Load())
	a.endTime.Store(0)
	a.state.Store(int32(StatePlaying))
	if a.hooks.resume != nil {
		a.hooks.resume.Resume()
	}
	a.log.Debug("playback started by write", zap.Stringer("from", prev))
}
