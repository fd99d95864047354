// ABOUTME: Tests for the test tone generator
// ABOUTME: Channel duplication, amplitude bound and phase continuity
package decode

import (
	"math"
	"testing"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneFillsWholeFrames(t *testing.T) {
	tone := NewTone(48000, 2, DefaultToneFrequency)

	buf := make([]int32, 11)
	n, err := tone.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	for i := 0; i < n; i += 2 {
		assert.Equal(t, buf[i], buf[i+1], "frame %d", i/2)
		assert.LessOrEqual(t, math.Abs(float64(buf[i])), audio.Max24Bit*toneAmplitude)
	}
}

func TestToneIsContinuousAcrossReads(t *testing.T) {
	whole := NewTone(8000, 1, 1000)
	split := NewTone(8000, 1, 1000)

	want := make([]int32, 16)
	_, _ = whole.Read(want)

	got := make([]int32, 16)
	_, _ = split.Read(got[:7])
	_, _ = split.Read(got[7:])
	assert.Equal(t, want, got)

	// 1 kHz at 8 kHz: a quarter period in, the wave peaks
	assert.Equal(t, int32(math.Sin(math.Pi/2)*audio.Max24Bit*toneAmplitude), want[2])
}
