// ABOUTME: PCM audio decoder
// ABOUTME: Decodes raw 16-bit and 24-bit little-endian PCM to int32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/pullbridge/pkg/audio"
)

// PCMDecoder decodes headerless PCM
type PCMDecoder struct {
	src    io.ReadCloser
	format audio.Format
	width  int
	buf    []byte
}

// NewPCM creates a decoder for raw PCM described by format. The decoder owns src.
func NewPCM(src io.ReadCloser, format audio.Format) (*PCMDecoder, error) {
	if format.BitDepth != 16 && format.BitDepth != 24 {
		src.Close()
		return nil, fmt.Errorf("%w: PCM bit depth %d (supported: 16, 24)", ErrUnsupportedFormat, format.BitDepth)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		src.Close()
		return nil, fmt.Errorf("%w: PCM needs a sample rate and channel count", ErrUnsupportedFormat)
	}
	format.Codec = "pcm"

	return &PCMDecoder{
		src:    src,
		format: format,
		width:  format.BitDepth / 8,
	}, nil
}

// Format returns the decoded stream format
func (d *PCMDecoder) Format() audio.Format {
	return d.format
}

// Read converts PCM bytes to int32 samples. A trailing partial sample is dropped.
func (d *PCMDecoder) Read(samples []int32) (int, error) {
	need := len(samples) * d.width
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := io.ReadFull(d.src, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("pcm read error: %w", err)
	}

	numSamples := n / d.width
	if numSamples == 0 {
		return 0, io.EOF
	}
	for i := 0; i < numSamples; i++ {
		if d.width == 3 {
			samples[i] = audio.SampleFrom24Bit([3]byte{buf[i*3], buf[i*3+1], buf[i*3+2]})
		} else {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
		}
	}
	return numSamples, nil
}

// Close releases the underlying reader
func (d *PCMDecoder) Close() error {
	return d.src.Close()
}
