// ABOUTME: WAV audio decoder
// ABOUTME: Reads 16, 24 and 32-bit PCM WAV files through go-audio/wav
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/pullbridge/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder decodes PCM WAV files
type WAVDecoder struct {
	src     io.ReadSeekCloser
	decoder *wav.Decoder
	format  audio.Format
	buf     *goaudio.IntBuffer
}

// NewWAV creates a decoder reading WAV from src. The decoder owns src.
func NewWAV(src io.ReadSeekCloser) (*WAVDecoder, error) {
	decoder := wav.NewDecoder(src)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		src.Close()
		return nil, fmt.Errorf("%w: input is not a valid WAV file", ErrUnsupportedFormat)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		src.Close()
		return nil, fmt.Errorf("%w: WAV bit depth %d (supported: 16, 24, 32)", ErrUnsupportedFormat, bitDepth)
	}

	format := audio.Format{
		Codec:      "wav",
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   bitDepth,
	}
	return &WAVDecoder{
		src:     src,
		decoder: decoder,
		format:  format,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{SampleRate: format.SampleRate, NumChannels: format.Channels},
		},
	}, nil
}

// Format returns the decoded stream format
func (d *WAVDecoder) Format() audio.Format {
	return d.format
}

// Read decodes the next block of samples
func (d *WAVDecoder) Read(samples []int32) (int, error) {
	if cap(d.buf.Data) < len(samples) {
		d.buf.Data = make([]int, len(samples))
	}
	d.buf.Data = d.buf.Data[:len(samples)]

	n, err := d.decoder.PCMBuffer(d.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("wav decode error: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		samples[i] = scaleTo24(int32(d.buf.Data[i]), d.format.BitDepth)
	}
	return n, nil
}

// Close releases the underlying reader
func (d *WAVDecoder) Close() error {
	return d.src.Close()
}
