// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders
package decode

import (
	"errors"

	"github.com/Sendspin/pullbridge/pkg/audio"
)

// ErrUnsupportedFormat is returned for containers, extensions or bit
// depths no decoder handles
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder produces interleaved PCM samples scaled to the 24-bit range
type Decoder interface {
	// Format describes the decoded stream (Sample is left unset)
	Format() audio.Format

	// Read fills samples and returns how many were written. It returns
	// io.EOF once the stream is exhausted.
	Read(samples []int32) (int, error)

	// Close releases decoder resources
	Close() error
}

// scaleTo24 moves a sample of the given bit depth into the 24-bit range
func scaleTo24(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return sample
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	default:
		return sample >> (bitDepth - 24)
	}
}
