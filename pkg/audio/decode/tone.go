// ABOUTME: Test tone generator
// ABOUTME: Endless sine wave at a fixed frequency, duplicated to every channel
package decode

import (
	"math"

	"github.com/Sendspin/pullbridge/pkg/audio"
)

const (
	// DefaultToneFrequency is A4
	DefaultToneFrequency = 440.0

	toneAmplitude = 0.5 // 50% volume
)

// ToneDecoder generates a sine wave. It never returns io.EOF.
type ToneDecoder struct {
	format      audio.Format
	frequency   float64
	sampleIndex uint64
}

// NewTone creates a sine generator
func NewTone(sampleRate, channels int, frequency float64) *ToneDecoder {
	return &ToneDecoder{
		format: audio.Format{
			Codec:      "tone",
			SampleRate: sampleRate,
			Channels:   channels,
			BitDepth:   24,
		},
		frequency: frequency,
	}
}

// Format returns the generated stream format
func (s *ToneDecoder) Format() audio.Format {
	return s.format
}

// Read fills whole frames of samples
func (s *ToneDecoder) Read(samples []int32) (int, error) {
	channels := s.format.Channels
	frames := len(samples) / channels

	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.format.SampleRate)
		v := int32(math.Sin(2*math.Pi*s.frequency*t) * audio.Max24Bit * toneAmplitude)
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	s.sampleIndex += uint64(frames)

	return frames * channels, nil
}

// Close is a no-op
func (s *ToneDecoder) Close() error { return nil }
