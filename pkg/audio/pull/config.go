// ABOUTME: Pull adapter construction options
// ABOUTME: Plane layout, capacity, format and injectable clock/logger
package pull

import (
	"errors"
	"fmt"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/ring"
	"github.com/Sendspin/pullbridge/pkg/clock"
	"go.uber.org/zap"
)

// ErrInvalidConfig is wrapped by every Config validation failure
var ErrInvalidConfig = errors.New("invalid pull adapter config")

// Config holds adapter configuration
type Config struct {
	// Planes is the number of plane buffers (1 for packed formats)
	Planes int

	// Stride is bytes per frame per plane
	Stride int

	// BufferFrames is the capacity of every plane, in frames
	BufferFrames int

	// Format selects the silence value used for padding
	Format audio.SampleFormat

	// SampleRate is frames per second, used for the delay estimate
	SampleRate int

	// Channels is derived from Format/Stride/Planes when zero
	Channels int

	// Ring selects the plane buffer implementation (default: spsc)
	Ring ring.Kind

	// Clock defaults to the process monotonic clock
	Clock clock.Clock

	// Logger defaults to a no-op logger
	Logger *zap.Logger
}

// ConfigFor derives the plane layout from a device format
func ConfigFor(f audio.Format, bufferFrames int) Config {
	return Config{
		Planes:       f.Planes(),
		Stride:       f.Stride(),
		BufferFrames: bufferFrames,
		Format:       f.Sample,
		SampleRate:   f.SampleRate,
		Channels:     f.Channels,
	}
}

// AudioFormat returns the device format this config describes
func (c Config) AudioFormat() audio.Format {
	return audio.Format{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		Sample:     c.Format,
		BitDepth:   c.Format.BytesPerSample() * 8,
	}
}

// BytesPerSecond is the per-plane byte rate
func (c Config) BytesPerSecond() int {
	return c.SampleRate * c.Stride
}

func (c Config) withDefaults() Config {
	if c.Channels == 0 {
		if c.Format.IsPlanar() {
			c.Channels = c.Planes
		} else if bps := c.Format.BytesPerSample(); bps > 0 {
			c.Channels = c.Stride / bps
		}
	}
	if c.Ring == "" {
		c.Ring = ring.KindSPSC
	}
	if c.Clock == nil {
		c.Clock = clock.System
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Validate checks the plane layout is self-consistent
func (c Config) Validate() error {
	switch {
	case c.Planes < 1:
		return fmt.Errorf("%w: planes must be >= 1, got %d", ErrInvalidConfig, c.Planes)
	case c.Stride < 1:
		return fmt.Errorf("%w: stride must be >= 1, got %d", ErrInvalidConfig, c.Stride)
	case c.BufferFrames < 1:
		return fmt.Errorf("%w: buffer frames must be >= 1, got %d", ErrInvalidConfig, c.BufferFrames)
	case c.SampleRate < 1:
		return fmt.Errorf("%w: sample rate must be >= 1, got %d", ErrInvalidConfig, c.SampleRate)
	case c.Format.BytesPerSample() == 0:
		return fmt.Errorf("%w: unknown sample format %v", ErrInvalidConfig, c.Format)
	}

	bps := c.Format.BytesPerSample()
	if c.Format.IsPlanar() {
		if c.Stride != bps {
			return fmt.Errorf("%w: planar %v needs stride %d, got %d", ErrInvalidConfig, c.Format, bps, c.Stride)
		}
		if c.Channels != 0 && c.Channels != c.Planes {
			return fmt.Errorf("%w: planar format with %d channels needs %d planes, got %d",
				ErrInvalidConfig, c.Channels, c.Channels, c.Planes)
		}
		return nil
	}

	if c.Planes != 1 {
		return fmt.Errorf("%w: packed %v needs 1 plane, got %d", ErrInvalidConfig, c.Format, c.Planes)
	}
	if c.Stride%bps != 0 || (c.Channels != 0 && c.Stride != bps*c.Channels) {
		return fmt.Errorf("%w: stride %d does not match %v x %d channels", ErrInvalidConfig, c.Stride, c.Format, c.Channels)
	}
	return nil
}
