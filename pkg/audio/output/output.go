// ABOUTME: Device driver registry for the pull adapter
// ABOUTME: Builds malgo, oto or null drivers by name from shared options
package output

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"go.uber.org/zap"
)

var (
	// ErrUnknownDriver is returned by New for an unregistered driver name
	ErrUnknownDriver = errors.New("unknown output driver")

	// ErrUnsupportedFormat is returned from Init when a driver cannot play
	// the adapter's sample layout
	ErrUnsupportedFormat = errors.New("unsupported sample format")
)

// Options configures a driver. Fields a driver has no use for are ignored.
type Options struct {
	// Device selects a playback device by name or ID (malgo); empty means default
	Device string

	// PeriodFrames is the number of frames pulled per callback (malgo, null)
	PeriodFrames int

	// Latency is the device-side delay reported to the adapter (null) or
	// the device buffer size (oto)
	Latency time.Duration

	// Realtime makes the null driver pull on a ticker instead of on Tick
	Realtime bool

	// Sink receives every period rendered by the null driver. It runs inside
	// the device callback and must not call back into the adapter.
	Sink func(planes [][]byte, frames int)

	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Factory creates an unopened driver
type Factory func(Options) pull.Driver

var drivers = map[string]Factory{
	"malgo": func(o Options) pull.Driver { return NewMalgo(o) },
	"oto":   func(o Options) pull.Driver { return NewOto(o) },
	"null":  func(o Options) pull.Driver { return NewNull(o) },
}

// New returns the named driver. The device itself is opened when the
// driver is handed to pull.New.
func New(name string, opts Options) (pull.Driver, error) {
	f, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownDriver, name, Names())
	}
	return f(opts), nil
}

// Names lists the registered drivers in sorted order
func Names() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// periodDuration converts a frame count to wall time at rate
func periodDuration(frames, rate int) time.Duration {
	return time.Duration(int64(frames) * int64(time.Second) / int64(rate))
}
