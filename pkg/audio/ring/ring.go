// ABOUTME: Plane buffer interface and constructor
// ABOUTME: Bounded byte FIFOs with exact capacity for one producer and one consumer
// Package ring provides the bounded per-plane byte FIFOs used by the pull
// adapter. Every implementation is safe for exactly one writer goroutine and
// one reader goroutine running concurrently.
package ring

import (
	"fmt"
	"strings"
)

// Buffer is a bounded byte FIFO.
//
// Write and Available belong to the producer; Read and Buffered belong to the
// consumer. Reset may only be called while the consumer is halted.
type Buffer interface {
	// Write copies up to len(p) bytes in and returns how many were taken
	Write(p []byte) int
	// Read copies up to len(p) bytes out and returns how many were copied
	Read(p []byte) int
	// Buffered returns the number of bytes ready to read
	Buffered() int
	// Available returns the number of bytes that can be written
	Available() int
	// Cap returns the fixed capacity in bytes
	Cap() int
	// Reset drops all buffered bytes
	Reset()
}

// Kind selects a Buffer implementation
type Kind string

const (
	KindSPSC   Kind = "spsc"
	KindLocked Kind = "locked"
)

// ParseKind validates a kind name from configuration
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case "", KindSPSC:
		return KindSPSC, nil
	case KindLocked:
		return KindLocked, nil
	default:
		return "", fmt.Errorf("unknown ring kind: %q (supported: spsc, locked)", name)
	}
}

// New creates a buffer of the given kind holding exactly size bytes
func New(kind Kind, size int) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid ring size: %d", size)
	}
	switch kind {
	case "", KindSPSC:
		return NewSPSC(size), nil
	case KindLocked:
		return NewLocked(size), nil
	default:
		return nil, fmt.Errorf("unknown ring kind: %q", kind)
	}
}
