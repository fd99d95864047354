// ABOUTME: Plane buffer backed by smallnest/ringbuffer
// ABOUTME: Mutex-guarded FIFO; short transfers are reported as counts, not errors
package ring

import (
	"github.com/smallnest/ringbuffer"
)

// Locked adapts ringbuffer.RingBuffer to Buffer. Each call takes the ring's
// internal mutex for the duration of one copy.
type Locked struct {
	rb *ringbuffer.RingBuffer
}

// NewLocked creates a mutex-guarded ring holding exactly size bytes
func NewLocked(size int) *Locked {
	return &Locked{rb: ringbuffer.New(size)}
}

// Write copies as much of p as fits. ErrIsFull and partial-write errors
// from the underlying ring just mean fewer bytes were taken.
func (l *Locked) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	n, _ := l.rb.Write(p)
	return n
}

// Read copies up to len(p) bytes. An empty ring reads as zero bytes.
func (l *Locked) Read(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	n, _ := l.rb.Read(p)
	return n
}

func (l *Locked) Buffered() int  { return l.rb.Length() }
func (l *Locked) Available() int { return l.rb.Free() }
func (l *Locked) Cap() int       { return l.rb.Capacity() }
func (l *Locked) Reset()         { l.rb.Reset() }
