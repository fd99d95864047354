// ABOUTME: Monotonic microsecond clock shared by the adapter and its drivers
// ABOUTME: Provides the process clock plus a manual clock for tests
package clock

import (
	"sync/atomic"
	"time"
)

// startOffset keeps Now() well above zero so a zero timestamp always means "unset"
const startOffset = 10 * time.Second

var processStart = time.Now()

// Clock reports monotonic time in microseconds
type Clock interface {
	NowMicros() int64
}

// Now returns microseconds on the process monotonic clock.
// Only differences between two readings are meaningful.
func Now() int64 {
	return (time.Since(processStart) + startOffset).Microseconds()
}

// After returns the process-clock timestamp d from now
func After(d time.Duration) int64 {
	return Now() + d.Microseconds()
}

type monotonic struct{}

func (monotonic) NowMicros() int64 { return Now() }

// System is the process monotonic clock
var System Clock = monotonic{}

// Manual is a clock that only moves when told to
type Manual struct {
	now atomic.Int64
}

// NewManual creates a manual clock reading start microseconds
func NewManual(start int64) *Manual {
	m := &Manual{}
	m.now.Store(start)
	return m
}

// NowMicros returns the current manual reading
func (m *Manual) NowMicros() int64 {
	return m.now.Load()
}

// Set jumps the clock to an absolute reading
func (m *Manual) Set(us int64) {
	m.now.Store(us)
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.now.Add(d.Microseconds())
}
