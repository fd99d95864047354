// ABOUTME: Ogg Opus file decoder
// ABOUTME: Wraps libopusfile through hraban/opus; output is always 48kHz 16-bit
package decode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusSampleRate is the only rate libopusfile decodes to
const OpusSampleRate = 48000

// opusHeadPeek covers the first Ogg page header, its segment table and the
// start of the OpusHead packet
const opusHeadPeek = 27 + 255 + 19

var (
	oggMagic  = []byte("OggS")
	opusMagic = []byte("OpusHead")
)

// OpusDecoder decodes an Ogg Opus stream
type OpusDecoder struct {
	src    io.ReadCloser
	stream *opus.Stream
	format audio.Format
	pcm    []int16
}

// NewOpus creates a decoder reading Ogg Opus from src. The decoder owns src.
func NewOpus(src io.ReadCloser) (*OpusDecoder, error) {
	br := bufio.NewReaderSize(src, 4096)
	channels, err := opusChannels(br)
	if err != nil {
		src.Close()
		return nil, err
	}

	stream, err := opus.NewStream(br)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to decode Opus: %w", err)
	}

	return &OpusDecoder{
		src:    src,
		stream: stream,
		format: audio.Format{
			Codec:      "opus",
			SampleRate: OpusSampleRate,
			Channels:   channels,
			BitDepth:   16,
		},
	}, nil
}

// opusChannels reads the channel count from the OpusHead packet without
// consuming it
func opusChannels(br *bufio.Reader) (int, error) {
	head, err := br.Peek(opusHeadPeek)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return 0, fmt.Errorf("failed to read Opus header: %w", err)
	}
	if !bytes.HasPrefix(head, oggMagic) {
		return 0, fmt.Errorf("%w: not an Ogg stream", ErrUnsupportedFormat)
	}
	i := bytes.Index(head, opusMagic)
	if i < 0 || i+10 > len(head) {
		return 0, fmt.Errorf("%w: Ogg stream without OpusHead", ErrUnsupportedFormat)
	}
	channels := int(head[i+9])
	if channels == 0 {
		return 0, fmt.Errorf("%w: OpusHead declares no channels", ErrUnsupportedFormat)
	}
	return channels, nil
}

// Format returns the decoded stream format
func (d *OpusDecoder) Format() audio.Format {
	return d.format
}

// Read decodes into samples. libopusfile reports frames per channel.
func (d *OpusDecoder) Read(samples []int32) (int, error) {
	ch := d.format.Channels
	want := len(samples) - len(samples)%ch
	if want == 0 {
		return 0, nil
	}
	if cap(d.pcm) < want {
		d.pcm = make([]int16, want)
	}

	frames, err := d.stream.Read(d.pcm[:want])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("opus decode error: %w", err)
	}

	n := frames * ch
	for i := 0; i < n; i++ {
		samples[i] = audio.SampleFromInt16(d.pcm[i])
	}
	return n, nil
}

// Close frees the libopusfile handle and the underlying reader
func (d *OpusDecoder) Close() error {
	return errors.Join(d.stream.Close(), d.src.Close())
}
