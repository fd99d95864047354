// ABOUTME: Control commands forwarded to device drivers
// ABOUTME: Volume and mute commands with their result codes
package pull

import "fmt"

// Command identifies a driver control request
type Command int

const (
	CmdGetVolume Command = iota + 1 // arg: *Volume
	CmdSetVolume                    // arg: *Volume
	CmdGetMute                      // arg: *bool
	CmdSetMute                      // arg: *bool
)

func (c Command) String() string {
	switch c {
	case CmdGetVolume:
		return "get-volume"
	case CmdSetVolume:
		return "set-volume"
	case CmdGetMute:
		return "get-mute"
	case CmdSetMute:
		return "set-mute"
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ControlResult is the status returned by Control
type ControlResult int

const (
	ControlOK      ControlResult = 1
	ControlFalse   ControlResult = 0
	ControlUnknown ControlResult = -1
	ControlError   ControlResult = -2
	ControlNA      ControlResult = -3
)

func (r ControlResult) String() string {
	switch r {
	case ControlOK:
		return "ok"
	case ControlFalse:
		return "false"
	case ControlUnknown:
		return "unknown"
	case ControlError:
		return "error"
	case ControlNA:
		return "n/a"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// Volume is a per-side level in percent (0-100)
type Volume struct {
	Left  float64
	Right float64
}

// Level returns the average of both sides
func (v Volume) Level() float64 {
	return (v.Left + v.Right) / 2
}
