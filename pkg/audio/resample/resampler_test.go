package resample

import (
	"io"
	"testing"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(start, frames, channels int, step int32) []int32 {
	out := make([]int32, 0, frames*channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			out = append(out, int32(start+f)*step)
		}
	}
	return out
}

func runResample(r *Resampler, in []int32) []int32 {
	out := make([]int32, r.MaxOutputSamples(len(in)))
	n := r.Resample(in, out)
	return out[:n]
}

func TestUpsampleInterpolates(t *testing.T) {
	r := New(1000, 2000, 1)
	got := runResample(r, ramp(0, 10, 1, 100))

	require.Len(t, got, 18)
	for i, s := range got {
		assert.Equal(t, int32(i*50), s)
	}
}

func TestDownsample(t *testing.T) {
	r := New(2000, 1000, 2)
	got := runResample(r, ramp(0, 10, 2, 100))

	// every other frame, both channels
	assert.Equal(t, []int32{0, 0, 200, 200, 400, 400, 600, 600, 800, 800}, got)
}

func TestChunkEdgesAreContinuous(t *testing.T) {
	whole := runResample(New(1000, 2000, 1), ramp(0, 20, 1, 100))

	r := New(1000, 2000, 1)
	split := runResample(r, ramp(0, 10, 1, 100))
	split = append(split, runResample(r, ramp(10, 10, 1, 100))...)

	assert.Equal(t, whole, split)
}

func TestResetDropsCarriedFrame(t *testing.T) {
	r := New(1000, 2000, 1)
	runResample(r, ramp(0, 10, 1, 100))
	r.Reset()

	got := runResample(r, ramp(0, 2, 1, 100))
	assert.Equal(t, []int32{0, 50}, got)
}

func TestEmptyInput(t *testing.T) {
	r := New(44100, 48000, 2)
	assert.Equal(t, 0, r.Resample(nil, make([]int32, 8)))
	assert.Equal(t, 0, r.Resample([]int32{1}, make([]int32, 8)), "partial frame is ignored")
}

func TestSizeHelpers(t *testing.T) {
	r := New(1000, 2000, 2)
	assert.Equal(t, 40, r.OutputSamplesNeeded(20))
	assert.Equal(t, 10, r.InputSamplesNeeded(20))
}

// sliceDecoder serves fixed samples then io.EOF
type sliceDecoder struct {
	format  audio.Format
	samples []int32
	closed  bool
}

func (d *sliceDecoder) Format() audio.Format { return d.format }

func (d *sliceDecoder) Read(p []int32) (int, error) {
	if len(d.samples) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.samples)
	d.samples = d.samples[n:]
	return n, nil
}

func (d *sliceDecoder) Close() error {
	d.closed = true
	return nil
}

func readAll(t *testing.T, d interface{ Read([]int32) (int, error) }, chunk int) []int32 {
	t.Helper()
	var all []int32
	buf := make([]int32, chunk)
	for i := 0; i < 10000; i++ {
		n, err := d.Read(buf)
		all = append(all, buf[:n]...)
		if err == io.EOF {
			return all
		}
		require.NoError(t, err)
	}
	t.Fatal("decoder never reached EOF")
	return nil
}

func TestWrapIdentity(t *testing.T) {
	src := &sliceDecoder{format: audio.Format{SampleRate: 48000, Channels: 2}}
	assert.Same(t, src, Wrap(src, 48000, 2))
	assert.Same(t, src, Wrap(src, 0, 0))
}

func TestWrapChannelsOnly(t *testing.T) {
	src := &sliceDecoder{
		format:  audio.Format{Codec: "pcm", SampleRate: 1000, Channels: 1},
		samples: []int32{1, 2, 3},
	}
	d := Wrap(src, 0, 2)

	assert.Equal(t, audio.Format{Codec: "pcm", SampleRate: 1000, Channels: 2}, d.Format())
	assert.Equal(t, []int32{1, 1, 2, 2, 3, 3}, readAll(t, d, 4))

	require.NoError(t, d.Close())
	assert.True(t, src.closed)
}

func TestWrapDownmix(t *testing.T) {
	src := &sliceDecoder{
		format:  audio.Format{SampleRate: 1000, Channels: 2},
		samples: []int32{10, 20, -4, 4},
	}
	assert.Equal(t, []int32{15, 0}, readAll(t, Wrap(src, 0, 1), 8))
}

func TestWrapRate(t *testing.T) {
	src := &sliceDecoder{
		format:  audio.Format{SampleRate: 1000, Channels: 1},
		samples: ramp(0, 100, 1, 100),
	}
	d := Wrap(src, 2000, 0)
	assert.Equal(t, 2000, d.Format().SampleRate)

	got := readAll(t, d, 16)

	// the final source frame is held back waiting for a successor
	require.Len(t, got, 198)
	for i, s := range got {
		assert.Equal(t, int32(i*50), s)
	}
}

func TestRemix(t *testing.T) {
	tests := []struct {
		name     string
		in       []int32
		inCh     int
		outCh    int
		expected []int32
	}{
		{"same", []int32{1, 2}, 2, 2, []int32{1, 2}},
		{"mono to stereo", []int32{5, 6}, 1, 2, []int32{5, 5, 6, 6}},
		{"stereo to mono", []int32{2, 4, 6, 8}, 2, 1, []int32{3, 7}},
		{"surround to stereo", []int32{1, 2, 3, 4, 5, 6}, 6, 2, []int32{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, remix(nil, tt.in, tt.inCh, tt.outCh))
		})
	}
}
