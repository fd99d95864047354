// ABOUTME: Source selection for files, HTTP streams and the test tone
// ABOUTME: Picks a decoder from the path extension or URL scheme
package decode

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sendspin/pullbridge/pkg/audio"
)

// DefaultPCMFormat describes .pcm and .raw files unless overridden
var DefaultPCMFormat = audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}

// OpenOptions tunes Open. The zero value is usable.
type OpenOptions struct {
	// PCM describes headerless .pcm/.raw input
	PCM audio.Format

	// ToneRate, ToneChannels and ToneFrequency shape the test tone
	ToneRate      int
	ToneChannels  int
	ToneFrequency float64

	// HTTPClient fetches remote streams (default http.DefaultClient)
	HTTPClient *http.Client
}

// Open creates a decoder for a local file (mp3, flac, wav, opus, raw pcm)
// or an HTTP(S) MP3 stream.
// An empty path yields the test tone.
func Open(ctx context.Context, pathOrURL string, opts OpenOptions) (Decoder, error) {
	if pathOrURL == "" {
		rate := opts.ToneRate
		if rate <= 0 {
			rate = DefaultPCMFormat.SampleRate
		}
		channels := opts.ToneChannels
		if channels <= 0 {
			channels = DefaultPCMFormat.Channels
		}
		freq := opts.ToneFrequency
		if freq <= 0 {
			freq = DefaultToneFrequency
		}
		return NewTone(rate, channels, freq), nil
	}

	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return openHTTP(ctx, pathOrURL, opts.HTTPClient)
	}

	if _, err := os.Stat(pathOrURL); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", pathOrURL)
	}

	ext := strings.ToLower(filepath.Ext(pathOrURL))
	switch ext {
	case ".mp3", ".flac", ".wav", ".opus", ".pcm", ".raw":
	default:
		return nil, fmt.Errorf("%w: %q (supported: .mp3, .flac, .wav, .opus, .pcm, .raw)", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	switch ext {
	case ".mp3":
		return NewMP3(f)
	case ".flac":
		return NewFLAC(f)
	case ".wav":
		return NewWAV(f)
	case ".opus":
		return NewOpus(f)
	default:
		format := opts.PCM
		if format.SampleRate == 0 {
			format = DefaultPCMFormat
		}
		return NewPCM(f, format)
	}
}

// openHTTP streams an MP3 over HTTP. Remote streams are never looped.
func openHTTP(ctx context.Context, url string, client *http.Client) (Decoder, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	return NewMP3(resp.Body)
}

// Seekable reports whether a decoder can be reopened from the start,
// which the player needs for looping
func Seekable(pathOrURL string) bool {
	return pathOrURL != "" && !strings.HasPrefix(pathOrURL, "http://") && !strings.HasPrefix(pathOrURL, "https://")
}
