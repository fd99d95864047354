// ABOUTME: Decoder wrapper that converts sample rate and channel count
// ABOUTME: Lets a device run at a pinned format regardless of the source
package resample

import (
	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/decode"
)

// Decoder converts another decoder's output to a target rate and channel count
type Decoder struct {
	src    decode.Decoder
	format audio.Format
	inCh   int
	outCh  int
	r      *Resampler // nil when only channels change

	in      []int32
	mixed   []int32
	out     []int32
	pending []int32
	err     error
}

// Wrap returns src unchanged when it already produces rate and channels
// (zero means keep the source value), otherwise a converting decoder
func Wrap(src decode.Decoder, rate, channels int) decode.Decoder {
	f := src.Format()
	if rate <= 0 {
		rate = f.SampleRate
	}
	if channels <= 0 {
		channels = f.Channels
	}
	if rate == f.SampleRate && channels == f.Channels {
		return src
	}

	d := &Decoder{
		src:    src,
		format: f,
		inCh:   f.Channels,
		outCh:  channels,
	}
	d.format.SampleRate = rate
	d.format.Channels = channels
	if rate != f.SampleRate {
		d.r = New(f.SampleRate, rate, channels)
	}
	return d
}

// Format returns the converted stream format
func (d *Decoder) Format() audio.Format {
	return d.format
}

// Read fills samples with converted audio. Source errors, io.EOF included,
// are reported once everything converted before them has been returned.
func (d *Decoder) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(d.pending) > 0 {
			c := copy(samples[n:], d.pending)
			d.pending = d.pending[c:]
			n += c
			continue
		}
		if d.err != nil || !d.fill(len(samples)-n) {
			break
		}
	}
	if n > 0 {
		return n, nil
	}
	return 0, d.err
}

// fill converts roughly want output samples into pending and reports
// whether the source produced anything
func (d *Decoder) fill(want int) bool {
	frames := want/d.outCh + 1
	if d.r != nil {
		frames = int(float64(frames)*d.r.step) + 1
	}
	need := frames * d.inCh
	if cap(d.in) < need {
		d.in = make([]int32, need)
	}

	got, err := d.src.Read(d.in[:need])
	if err != nil {
		d.err = err
	}
	got -= got % d.inCh
	if got == 0 {
		return false
	}

	d.mixed = remix(d.mixed, d.in[:got], d.inCh, d.outCh)
	if d.r == nil {
		d.pending = d.mixed
		return true
	}

	size := d.r.MaxOutputSamples(len(d.mixed))
	if cap(d.out) < size {
		d.out = make([]int32, size)
	}
	k := d.r.Resample(d.mixed, d.out[:size])
	d.pending = d.out[:k]
	return true
}

// Close closes the wrapped decoder
func (d *Decoder) Close() error {
	return d.src.Close()
}

// remix maps inCh-channel frames onto outCh channels. Mono output averages
// every input channel; otherwise output channel c copies input c mod inCh.
func remix(dst, in []int32, inCh, outCh int) []int32 {
	if inCh == outCh {
		return append(dst[:0], in...)
	}

	frames := len(in) / inCh
	dst = dst[:0]
	for f := 0; f < frames; f++ {
		frame := in[f*inCh : (f+1)*inCh]
		if outCh == 1 {
			var sum int64
			for _, s := range frame {
				sum += int64(s)
			}
			dst = append(dst, int32(sum/int64(inCh)))
			continue
		}
		for c := 0; c < outCh; c++ {
			dst = append(dst, frame[c%inCh])
		}
	}
	return dst
}
