// ABOUTME: Tests for decoder selection
// ABOUTME: Tone default, extension dispatch, raw PCM and HTTP failures
package decode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEmptyIsTone(t *testing.T) {
	d, err := Open(context.Background(), "", OpenOptions{ToneRate: 8000, ToneChannels: 1})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "tone", d.Format().Codec)
	assert.Equal(t, 8000, d.Format().SampleRate)
	assert.Equal(t, 1, d.Format().Channels)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), OpenOptions{})
	assert.ErrorContains(t, err, "audio file not found")
}

func TestOpenUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS"), 0o644))

	_, err := Open(context.Background(), path, OpenOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpenRawPCM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.raw")
	require.NoError(t, os.WriteFile(path, []byte{0x01, 0x00, 0xff, 0xff}, 0o644))

	d, err := Open(context.Background(), path, OpenOptions{
		PCM: audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16},
	})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, 16000, d.Format().SampleRate)
	assert.Equal(t, []int32{1 << 8, -1 << 8}, readAll(t, d))
}

func TestOpenHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), srv.URL+"/stream.mp3", OpenOptions{HTTPClient: srv.Client()})
	assert.ErrorContains(t, err, "HTTP error")
}

func TestSeekable(t *testing.T) {
	assert.True(t, Seekable("/music/a.flac"))
	assert.False(t, Seekable("https://radio.example/stream"))
	assert.False(t, Seekable(""))
}
