// ABOUTME: Point-in-time counters of the pull adapter
// ABOUTME: Read by metrics exporters and the terminal UI
package pull

// Stats is a snapshot of the adapter buffers and counters
type Stats struct {
	State          State
	BufferedFrames int
	FreeFrames     int
	CapacityFrames int
	Delay          float64 // seconds

	FramesWritten uint64
	FramesRead    uint64
	Underruns     uint64 // reads while playing that came up short
}

// Stats returns the current counters. Buffer levels are read without
// stopping either side, so they may be off by one callback's worth.
func (a *Adapter) Stats() Stats {
	s := Stats{
		State:          a.State(),
		CapacityFrames: a.cfg.BufferFrames,
		Delay:          a.Delay(),
		FramesWritten:  a.written.Load(),
		FramesRead:     a.read.Load(),
		Underruns:      a.underruns.Load(),
	}
	if !a.closed.Load() {
		s.BufferedFrames = a.planes[0].Buffered() / a.cfg.Stride
		s.FreeFrames = a.Space()
	}
	return s
}
