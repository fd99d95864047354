// ABOUTME: Tests for the pull adapter state machine and delay estimate
// ABOUTME: Pause/resume/reset semantics, hook ordering and end time accounting
package pull

import (
	"testing"
	"time"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "paused", StatePaused.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestPauseKeepsBufferedAudio(t *testing.T) {
	a := newAdapter(t, monoConfig(100), &fakeDriver{})

	data := seq(1, 30, 2)
	a.Write([][]byte{data}, 30)
	a.Pause()

	out := [][]byte{seq(200, 50, 2)}
	assert.Equal(t, 0, a.Read(out, 50, 0))
	assert.True(t, allEqual(out[0], 0))

	a.Resume()
	out = planesOf(1, 50, 2)
	assert.Equal(t, 30, a.Read(out, 50, 0))
	assert.Equal(t, data, out[0][:60])
	assert.True(t, allEqual(out[0][60:], 0))
}

func TestWriteResumesFromPause(t *testing.T) {
	drv := &fakeDriver{}
	a := newAdapter(t, monoConfig(100), drv)

	a.Write([][]byte{seq(0, 5, 2)}, 5)
	a.Pause()
	require.Equal(t, StatePaused, a.State())

	a.Write([][]byte{seq(0, 5, 2)}, 5)
	assert.Equal(t, StatePlaying, a.State())
	assert.Equal(t, []string{"init", "resume", "pause", "resume"}, drv.Calls())
}

func TestWriteWhilePlayingDoesNotResumeAgain(t *testing.T) {
	drv := &fakeDriver{}
	a := newAdapter(t, monoConfig(100), drv)

	for i := 0; i < 3; i++ {
		a.Write([][]byte{seq(0, 5, 2)}, 5)
	}
	assert.Equal(t, []string{"init", "resume"}, drv.Calls())
}

func TestHookOrdering(t *testing.T) {
	drv := &fakeDriver{}
	a := newAdapter(t, monoConfig(100), drv)
	drv.observe = a.State

	a.Write([][]byte{seq(0, 5, 2)}, 5) // resume hook sees Playing
	a.Pause()                          // pause hook runs before the state flips
	a.Resume()                         // resume hook runs after the state flips
	a.Reset()                          // reset hook runs before the state flips

	assert.Equal(t, []string{"init", "resume", "pause", "resume", "reset"}, drv.Calls())
	assert.Equal(t, []State{StatePlaying, StatePlaying, StatePlaying, StatePlaying}, drv.observed)
	assert.Equal(t, StateIdle, a.State())
}

func TestMissingHooksAreNoops(t *testing.T) {
	drv := &bareDriver{}
	a := newAdapter(t, monoConfig(100), drv)

	a.Write([][]byte{seq(0, 5, 2)}, 5)
	a.Pause()
	a.Resume()
	a.Reset()
	assert.Equal(t, ControlUnknown, a.Control(CmdGetVolume, nil))
	require.NoError(t, a.Uninit())
	assert.Equal(t, 1, drv.uninits)
}

func TestResetEmptiesBuffers(t *testing.T) {
	a, _, clk := newManualAdapter(t, monoConfig(100))

	a.Write([][]byte{seq(1, 80, 2)}, 80)
	a.Read(planesOf(1, 10, 2), 10, clk.NowMicros()+200_000)
	require.Greater(t, a.Delay(), 0.2)

	a.Reset()
	assert.Equal(t, StateIdle, a.State())
	assert.Equal(t, 100, a.Space())
	assert.Equal(t, 0.0, a.Delay())
	assert.True(t, a.ready.Load())

	out := [][]byte{seq(9, 10, 2)}
	assert.Equal(t, 0, a.Read(out, 10, 0))
	assert.True(t, allEqual(out[0], 0))
}

func TestAdapterIsReusableAfterReset(t *testing.T) {
	drv := &fakeDriver{}
	a := newAdapter(t, monoConfig(20), drv)

	a.Write([][]byte{seq(1, 20, 2)}, 20)
	a.Reset()

	data := seq(50, 10, 2)
	assert.Equal(t, 10, a.Write([][]byte{data}, 10))
	out := planesOf(1, 10, 2)
	assert.Equal(t, 10, a.Read(out, 10, 0))
	assert.Equal(t, data, out[0])
	assert.Equal(t, []string{"init", "resume", "reset", "resume"}, drv.Calls())
}

func TestDelayQueuedOnly(t *testing.T) {
	a, _, _ := newManualAdapter(t, monoConfig(1000))

	assert.Equal(t, 0.0, a.Delay())
	a.Write([][]byte{seq(0, 250, 2)}, 250)
	// 500 bytes at 2000 bytes per second
	assert.InDelta(t, 0.25, a.Delay(), 1e-9)
}

func TestDelayCountsDeviceLatency(t *testing.T) {
	a, _, clk := newManualAdapter(t, monoConfig(1000))

	a.Write([][]byte{seq(0, 100, 2)}, 100)
	a.Read(planesOf(1, 50, 2), 50, clk.NowMicros()+20_000)

	// 50 frames queued (0.05s) plus 20ms still in the device
	assert.InDelta(t, 0.07, a.Delay(), 1e-9)

	clk.Advance(10 * time.Millisecond)
	assert.InDelta(t, 0.06, a.Delay(), 1e-9)

	prev := a.Delay()
	clk.Advance(5 * time.Millisecond)
	assert.Less(t, a.Delay(), prev, "delay falls as time approaches the end time")

	clk.Advance(time.Second)
	assert.InDelta(t, 0.05, a.Delay(), 1e-9, "floored at the queued amount")
}

func TestDelayNotRecordedForEmptyRead(t *testing.T) {
	a, _, clk := newManualAdapter(t, monoConfig(100))

	a.Read(planesOf(1, 10, 2), 10, clk.NowMicros()+500_000)
	assert.Equal(t, 0.0, a.Delay())
}

func TestWriteAfterIdleClearsEndTime(t *testing.T) {
	a, _, clk := newManualAdapter(t, monoConfig(100))

	a.Write([][]byte{seq(0, 10, 2)}, 10)
	a.Read(planesOf(1, 10, 2), 10, clk.NowMicros()+300_000)
	require.InDelta(t, 0.3, a.Delay(), 1e-9)

	a.Pause()
	a.Write([][]byte{seq(0, 10, 2)}, 10)
	assert.InDelta(t, 10.0/1000, a.Delay(), 1e-9, "restart forgets device latency")
}

// Reading while paused still records the caller's end time when audio is
// buffered, even though nothing is delivered. The delay estimate follows
// what would have been played.
func TestPausedReadStillRecordsEndTime(t *testing.T) {
	a, _, clk := newManualAdapter(t, monoConfig(100))

	a.Write([][]byte{seq(1, 30, 2)}, 30)
	a.Pause()
	require.InDelta(t, 0.03, a.Delay(), 1e-9)

	out := planesOf(1, 50, 2)
	assert.Equal(t, 0, a.Read(out, 50, clk.NowMicros()+500_000))
	assert.Equal(t, 30, a.Stats().BufferedFrames)
	assert.InDelta(t, 0.53, a.Delay(), 1e-9)
}

func TestPlanarDelayUsesPerPlaneRate(t *testing.T) {
	cfg := ConfigFor(stereoS16P(48000), 4800)
	a, _, _ := newManualAdapter(t, cfg)

	a.Write(planesOf(2, 2400, 2), 2400)
	assert.InDelta(t, 0.05, a.Delay(), 1e-9)
}

func stereoS16P(rate int) audio.Format {
	return audio.Format{SampleRate: rate, Channels: 2, Sample: audio.SampleS16P}
}
