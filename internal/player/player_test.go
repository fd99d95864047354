// ABOUTME: Tests for the player feed loop
// ABOUTME: Uses the null driver with manual ticks as the device
package player

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/decode"
	"github.com/Sendspin/pullbridge/pkg/audio/output"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var deviceFormat = audio.Format{SampleRate: 1000, Channels: 2, Sample: audio.SampleS16}

// rig is an adapter on a null driver whose periods are captured
type rig struct {
	adapter *pull.Adapter
	drv     *output.Null

	mu   sync.Mutex
	last []byte
	got  []byte
}

func newRig(t *testing.T, bufferFrames int) *rig {
	t.Helper()
	r := &rig{}
	r.drv = output.NewNull(output.Options{
		PeriodFrames: 10,
		Latency:      time.Millisecond,
		Sink: func(planes [][]byte, frames int) {
			r.last = append(r.last[:0], planes[0][:frames*deviceFormat.Stride()]...)
		},
	})
	a, err := pull.New(pull.ConfigFor(deviceFormat, bufferFrames), r.drv)
	require.NoError(t, err)
	r.adapter = a
	t.Cleanup(func() { _ = a.Uninit() })
	return r
}

// tick pulls one period and keeps only the real frames
func (r *rig) tick() {
	n := r.drv.Tick()
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > 0 {
		r.got = append(r.got, r.last[:n*deviceFormat.Stride()]...)
	}
}

func (r *rig) played() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.got...)
}

// tickUntil runs the device until done closes
func (r *rig) tickUntil(t *testing.T, done <-chan struct{}) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("player did not finish")
		default:
			r.tick()
			time.Sleep(time.Millisecond)
		}
	}
}

func pcmSource(t *testing.T, frames int) (decode.Decoder, []byte) {
	t.Helper()
	raw := make([]byte, frames*4)
	for i := 0; i < frames*2; i++ {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(i*37-9000)))
	}
	dec, err := decode.NewPCM(io.NopCloser(bytes.NewReader(raw)),
		audio.Format{SampleRate: 1000, Channels: 2, BitDepth: 16})
	require.NoError(t, err)
	return dec, raw
}

func start(ctx context.Context, p *Player) (<-chan struct{}, *error) {
	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		runErr = p.Run(ctx)
	}()
	return done, &runErr
}

func TestRunPlaysSourceThenDrains(t *testing.T) {
	r := newRig(t, 50)
	dec, raw := pcmSource(t, 1000)

	p, err := New(r.adapter, dec, Config{ChunkMs: 20, PollInterval: time.Millisecond})
	require.NoError(t, err)

	done, runErr := start(context.Background(), p)
	r.tickUntil(t, done)

	require.NoError(t, *runErr)
	assert.Equal(t, raw, r.played())

	s := p.Stats()
	assert.Equal(t, uint64(1000), s.DecodedFrames)
	assert.Equal(t, uint64(1000), s.Adapter.FramesRead)
	assert.Equal(t, 0, s.Adapter.BufferedFrames)
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, "pcm", s.Source.Codec)
}

func TestNewRejectsFormatMismatch(t *testing.T) {
	r := newRig(t, 50)
	_, err := New(r.adapter, decode.NewTone(44100, 2, 440), Config{})
	assert.ErrorContains(t, err, "device expects")
}

func TestPauseStopsFeeding(t *testing.T) {
	r := newRig(t, 40)
	p, err := New(r.adapter, decode.NewTone(1000, 2, 100), Config{PollInterval: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done, runErr := start(ctx, p)

	require.Eventually(t, func() bool { return r.adapter.Space() == 0 }, 2*time.Second, time.Millisecond)

	assert.True(t, p.TogglePause())
	assert.Equal(t, pull.StatePaused, r.adapter.State())
	written := r.adapter.Stats().FramesWritten

	r.tick()
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.played(), "paused device delivers nothing")
	assert.Equal(t, written, r.adapter.Stats().FramesWritten, "paused player does not write")

	p.Reset()
	assert.Equal(t, pull.StateIdle, r.adapter.State())
	assert.Equal(t, 0, r.adapter.Stats().BufferedFrames)

	assert.False(t, p.TogglePause())
	require.Eventually(t, func() bool { return r.adapter.Stats().BufferedFrames > 0 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, pull.StatePlaying, r.adapter.State())

	cancel()
	<-done
	assert.NoError(t, *runErr)
}

func TestLoopReopensSource(t *testing.T) {
	r := newRig(t, 50)
	dec, _ := pcmSource(t, 30)

	reopen := func(context.Context) (decode.Decoder, error) {
		d, _ := pcmSource(t, 30)
		return d, nil
	}
	p, err := New(r.adapter, dec, Config{PollInterval: time.Millisecond, Reopen: reopen})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done, runErr := start(ctx, p)

	go func() {
		for p.Stats().Loops < 3 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	r.tickUntil(t, done)

	assert.NoError(t, *runErr)
	assert.GreaterOrEqual(t, p.Stats().DecodedFrames, uint64(90))
}

// hookDecoder runs onRead before every read of the wrapped decoder
type hookDecoder struct {
	decode.Decoder
	onRead func()
}

func (d *hookDecoder) Read(samples []int32) (int, error) {
	if d.onRead != nil {
		d.onRead()
	}
	return d.Decoder.Read(samples)
}

func TestResetDropsOnlyStaleChunks(t *testing.T) {
	r := newRig(t, 200)
	src, _ := pcmSource(t, 100)
	dec := &hookDecoder{Decoder: src}

	p, err := New(r.adapter, dec, Config{ChunkMs: 20})
	require.NoError(t, err)
	ctx := context.Background()

	// decoded before the reset: dropped
	_, err = p.decodeChunk(ctx)
	require.NoError(t, err)
	p.Reset()
	assert.Equal(t, 0, p.writePending())
	assert.Equal(t, uint64(0), r.adapter.Stats().FramesWritten)

	// decoded after the reset: kept
	_, err = p.decodeChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, p.writePending())
	assert.Equal(t, uint64(20), r.adapter.Stats().FramesWritten)

	// reset while the chunk is being decoded: that chunk is stale too
	dec.onRead = p.Reset
	_, err = p.decodeChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, p.writePending())
	assert.Equal(t, 0, r.adapter.Stats().BufferedFrames)

	// and the one after it plays
	dec.onRead = nil
	_, err = p.decodeChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, p.writePending())
	assert.Equal(t, 20, r.adapter.Stats().BufferedFrames)
}

type failingDecoder struct{ *decode.ToneDecoder }

func (failingDecoder) Read([]int32) (int, error) { return 0, errors.New("corrupt frame") }

func TestRunReturnsDecodeError(t *testing.T) {
	r := newRig(t, 50)
	p, err := New(r.adapter, failingDecoder{decode.NewTone(1000, 2, 440)}, Config{})
	require.NoError(t, err)

	err = p.Run(context.Background())
	assert.ErrorContains(t, err, "corrupt frame")
}

func TestVolumeControls(t *testing.T) {
	r := newRig(t, 50)
	p, err := New(r.adapter, decode.NewTone(1000, 2, 440), Config{})
	require.NoError(t, err)

	require.NoError(t, p.SetVolume(35))
	require.NoError(t, p.SetMuted(true))

	s := p.Stats()
	assert.Equal(t, pull.Volume{Left: 35, Right: 35}, s.Volume)
	assert.True(t, s.Muted)
}

type plainDriver struct{}

func (plainDriver) Uninit() error { return nil }

func TestVolumeWithoutDriverSupport(t *testing.T) {
	a, err := pull.New(pull.ConfigFor(deviceFormat, 50), plainDriver{})
	require.NoError(t, err)
	p, err := New(a, decode.NewTone(1000, 2, 440), Config{})
	require.NoError(t, err)

	assert.Error(t, p.SetVolume(50))
	assert.Error(t, p.SetMuted(true))
}
