// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 audio to int32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio. go-mp3 always produces 16-bit stereo.
type MP3Decoder struct {
	src     io.ReadCloser
	decoder *mp3.Decoder
	format  audio.Format
	buf     []byte
}

// NewMP3 creates a decoder reading MP3 from src. The decoder owns src.
func NewMP3(src io.ReadCloser) (*MP3Decoder, error) {
	decoder, err := mp3.NewDecoder(src)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &MP3Decoder{
		src:     src,
		decoder: decoder,
		format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   2,
			BitDepth:   16,
		},
	}, nil
}

// Format returns the decoded stream format
func (d *MP3Decoder) Format() audio.Format {
	return d.format
}

// Read converts decoded int16 PCM to int32 samples
func (d *MP3Decoder) Read(samples []int32) (int, error) {
	need := len(samples) * 2
	if cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := io.ReadFull(d.decoder, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	if numSamples == 0 {
		return 0, io.EOF
	}
	return numSamples, nil
}

// Close releases the underlying reader
func (d *MP3Decoder) Close() error {
	return d.src.Close()
}
