// ABOUTME: Device backend contract for the pull adapter
// ABOUTME: Required teardown plus optional init/resume/pause/reset/control capabilities
package pull

// Host is the adapter surface a driver uses from its device callback
type Host interface {
	// Config returns the validated adapter configuration
	Config() Config
	// Now returns the adapter clock in microseconds
	Now() int64
	// Read fills out with frames of audio; see Adapter.Read
	Read(out [][]byte, frames int, endTime int64) int
}

// Driver is a device backend. Uninit is the only required hook.
// The optional hooks are discovered by type assertion when the adapter is
// created: Initializer, Resumer, Pauser, Resetter and Controller.
type Driver interface {
	Uninit() error
}

// Initializer opens the device. It runs once, after the plane buffers exist.
type Initializer interface {
	Init(host Host) error
}

// Resumer starts or restarts the device callback
type Resumer interface {
	Resume()
}

// Pauser stops the device callback without dropping buffered audio
type Pauser interface {
	Pause()
}

// Resetter halts the device callback before the adapter clears its buffers.
// The adapter's reset is only race-free if Reset has stopped the callback
// by the time it returns.
type Resetter interface {
	Reset()
}

// Controller handles device specific commands such as hardware volume
type Controller interface {
	Control(cmd Command, arg any) ControlResult
}

// hooks caches the optional capabilities of a driver
type hooks struct {
	resume  Resumer
	pause   Pauser
	reset   Resetter
	control Controller
}

func hooksOf(d Driver) hooks {
	var h hooks
	h.resume, _ = d.(Resumer)
	h.pause, _ = d.(Pauser)
	h.reset, _ = d.(Resetter)
	h.control, _ = d.(Controller)
	return h
}
