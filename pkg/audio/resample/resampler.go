// ABOUTME: Streaming linear-interpolation resampler
// ABOUTME: Carries the last input frame across calls so chunk edges stay continuous
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	step       float64 // input frames advanced per output frame
	position   float64 // read position relative to the carried frame
	last       []int32 // final frame of the previous call, one sample per channel
	haveLast   bool
	window     []int32 // last frame followed by the current input
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       float64(inputRate) / float64(outputRate),
		last:       make([]int32, channels),
	}
}

// MaxOutputSamples is the output size that always fits one Resample call
// with inputSamples of input
func (r *Resampler) MaxOutputSamples(inputSamples int) int {
	frames := inputSamples/r.channels + 1
	return (int(float64(frames)/r.step) + 2) * r.channels
}

// Resample converts interleaved input at inputRate into interleaved output
// at outputRate and returns the number of samples written. output must hold
// MaxOutputSamples(len(input)) samples. The last input frame is held back
// until the next call provides the frame after it.
func (r *Resampler) Resample(input []int32, output []int32) int {
	ch := r.channels
	inFrames := len(input) / ch
	if inFrames == 0 {
		return 0
	}

	src := input[:inFrames*ch]
	if r.haveLast {
		r.window = append(r.window[:0], r.last...)
		r.window = append(r.window, src...)
		src = r.window
	}
	frames := len(src) / ch
	outFrames := len(output) / ch

	out := 0
	for out < outFrames {
		idx := int(r.position)
		if idx+1 >= frames {
			break
		}
		frac := r.position - float64(idx)
		a := src[idx*ch : idx*ch+ch]
		b := src[(idx+1)*ch : (idx+1)*ch+ch]
		for c := 0; c < ch; c++ {
			output[out*ch+c] = int32(float64(a[c])*(1-frac) + float64(b[c])*frac)
		}
		out++
		r.position += r.step
	}

	copy(r.last, src[(frames-1)*ch:])
	r.haveLast = true
	r.position -= float64(frames - 1)
	if r.position < 0 {
		r.position = 0
	}

	return out * ch
}

// Reset drops the carried frame and position
func (r *Resampler) Reset() {
	r.position = 0
	r.haveLast = false
	clear(r.last)
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.step)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.step)
	return inputFrames * r.channels
}
