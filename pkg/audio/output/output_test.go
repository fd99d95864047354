// ABOUTME: Tests for the driver registry and the hardware driver guards
// ABOUTME: Name lookup and format rejection before any device is opened
package output

import (
	"testing"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDriversImplementHooks(t *testing.T) {
	for _, d := range []pull.Driver{NewNull(Options{}), NewMalgo(Options{}), NewOto(Options{})} {
		assert.Implements(t, (*pull.Initializer)(nil), d)
		assert.Implements(t, (*pull.Resumer)(nil), d)
		assert.Implements(t, (*pull.Pauser)(nil), d)
		assert.Implements(t, (*pull.Resetter)(nil), d)
		assert.Implements(t, (*pull.Controller)(nil), d)
	}
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"malgo", "null", "oto"}, Names())

	for _, name := range Names() {
		drv, err := New(name, Options{})
		require.NoError(t, err, name)
		assert.NotNil(t, drv)
	}

	_, err := New("portaudio", Options{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

// stubHost only answers Config; the guards under test never read audio
type stubHost struct{ cfg pull.Config }

func (h stubHost) Config() pull.Config { return h.cfg }

func (h stubHost) Now() int64 { return 0 }

func (h stubHost) Read(_ [][]byte, _ int, _ int64) int { return 0 }

func TestHardwareDriversRejectPlanar(t *testing.T) {
	cfg := pull.ConfigFor(audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.SampleF32P}, 4800)

	assert.ErrorIs(t, NewMalgo(Options{}).Init(stubHost{cfg}), ErrUnsupportedFormat)
	assert.ErrorIs(t, NewOto(Options{}).Init(stubHost{cfg}), ErrUnsupportedFormat)
}

func TestMalgoFormat(t *testing.T) {
	tests := []struct {
		in   audio.SampleFormat
		want malgo.FormatType
		ok   bool
	}{
		{audio.SampleU8, malgo.FormatU8, true},
		{audio.SampleS16, malgo.FormatS16, true},
		{audio.SampleS24, malgo.FormatS24, true},
		{audio.SampleS32, malgo.FormatS32, true},
		{audio.SampleF32, malgo.FormatF32, true},
		{audio.SampleS16P, malgo.FormatUnknown, false},
	}
	for _, tt := range tests {
		got, ok := malgoFormat(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in.String())
		assert.Equal(t, tt.want, got, tt.in.String())
	}
	assert.Equal(t, "S24", formatName(malgo.FormatS24))
}

func TestOtoSampleFormat(t *testing.T) {
	_, ok := otoSampleFormat(audio.SampleS16)
	assert.True(t, ok)
	_, ok = otoSampleFormat(audio.SampleS24)
	assert.False(t, ok, "oto has no 24-bit format")
}
