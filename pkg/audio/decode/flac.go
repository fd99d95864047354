// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames to int32 samples in the 24-bit range
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct {
	src    io.ReadCloser
	stream *flac.Stream
	format audio.Format

	// frame being drained and the next unread sample position within it
	cur *frame.Frame
	pos int
}

// NewFLAC creates a decoder reading FLAC from src. The decoder owns src.
func NewFLAC(src io.ReadCloser) (*FLACDecoder, error) {
	stream, err := flac.New(src)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLACDecoder{
		src:    src,
		stream: stream,
		format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		},
	}, nil
}

// Format returns the decoded stream format
func (d *FLACDecoder) Format() audio.Format {
	return d.format
}

// Read interleaves the subframes of successive FLAC frames
func (d *FLACDecoder) Read(samples []int32) (int, error) {
	channels := d.format.Channels
	n := 0

	for n+channels <= len(samples) {
		if d.cur == nil || d.pos >= int(d.cur.BlockSize) {
			f, err := d.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			if err != nil {
				return n, fmt.Errorf("flac decode error: %w", err)
			}
			d.cur, d.pos = f, 0
		}

		for ; d.pos < int(d.cur.BlockSize) && n+channels <= len(samples); d.pos++ {
			for ch := 0; ch < channels; ch++ {
				samples[n] = scaleTo24(d.cur.Subframes[ch].Samples[d.pos], d.format.BitDepth)
				n++
			}
		}
	}
	return n, nil
}

// Close releases the stream and the underlying reader
func (d *FLACDecoder) Close() error {
	d.stream.Close()
	return d.src.Close()
}
