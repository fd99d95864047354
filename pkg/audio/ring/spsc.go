// ABOUTME: Lock-free single-producer single-consumer byte ring
// ABOUTME: Atomic read/write counters, no mutex on either side
package ring

import "sync/atomic"

// SPSC is a lock-free ring with an exact (not rounded) capacity.
//
// The producer publishes writePos after copying data in; the consumer
// publishes readPos after copying data out. Go atomics are sequentially
// consistent, so each side sees the other's bytes before the position.
type SPSC struct {
	// Separate cache lines so producer and consumer don't false-share
	writePos atomic.Uint64
	_pad1    [56]byte
	readPos  atomic.Uint64
	_pad2    [56]byte

	buf  []byte
	size uint64
}

// NewSPSC creates a ring holding exactly size bytes
func NewSPSC(size int) *SPSC {
	return &SPSC{
		buf:  make([]byte, size),
		size: uint64(size),
	}
}

// Write copies up to len(p) bytes into the ring. Producer only.
func (rb *SPSC) Write(p []byte) int {
	r := rb.readPos.Load()
	w := rb.writePos.Load()

	free := rb.size - (w - r)
	n := uint64(len(p))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	pos := w % rb.size
	first := rb.size - pos
	if first >= n {
		copy(rb.buf[pos:pos+n], p[:n])
	} else {
		copy(rb.buf[pos:], p[:first])
		copy(rb.buf[:n-first], p[first:n])
	}

	rb.writePos.Store(w + n)
	return int(n)
}

// Read copies up to len(p) bytes out of the ring. Consumer only.
func (rb *SPSC) Read(p []byte) int {
	r := rb.readPos.Load()
	w := rb.writePos.Load()

	n := uint64(len(p))
	if avail := w - r; n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	pos := r % rb.size
	first := rb.size - pos
	if first >= n {
		copy(p[:n], rb.buf[pos:pos+n])
	} else {
		copy(p[:first], rb.buf[pos:])
		copy(p[first:n], rb.buf[:n-first])
	}

	rb.readPos.Store(r + n)
	return int(n)
}

// Buffered returns the number of bytes available to read.
// readPos is loaded first so the result can never go negative.
func (rb *SPSC) Buffered() int {
	r := rb.readPos.Load()
	w := rb.writePos.Load()
	return int(w - r)
}

// Available returns the number of bytes available to write
func (rb *SPSC) Available() int {
	return int(rb.size) - rb.Buffered()
}

// Cap returns the capacity in bytes
func (rb *SPSC) Cap() int {
	return int(rb.size)
}

// Reset empties the ring. The consumer must not be running.
func (rb *SPSC) Reset() {
	rb.readPos.Store(0)
	rb.writePos.Store(0)
}
