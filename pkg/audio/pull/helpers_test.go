// ABOUTME: Shared fixtures for pull adapter tests
// ABOUTME: Recording fake driver, sequence data helpers and instrumented rings
package pull

import (
	"sync"
	"testing"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/ring"
	"github.com/Sendspin/pullbridge/pkg/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDriver implements every optional hook and records the calls
type fakeDriver struct {
	mu     sync.Mutex
	calls  []string
	host   Host
	initFn func(Host) error

	// observe, when set, is sampled on every hook call
	observe  func() State
	observed []State

	result   ControlResult
	lastCmd  Command
	lastArg  any
	uninitFn func() error
}

func (d *fakeDriver) record(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
	if d.observe != nil {
		d.observed = append(d.observed, d.observe())
	}
}

func (d *fakeDriver) Init(host Host) error {
	d.host = host
	d.record("init")
	if d.initFn != nil {
		return d.initFn(host)
	}
	return nil
}

func (d *fakeDriver) Resume() { d.record("resume") }
func (d *fakeDriver) Pause()  { d.record("pause") }
func (d *fakeDriver) Reset()  { d.record("reset") }

func (d *fakeDriver) Control(cmd Command, arg any) ControlResult {
	d.record("control")
	d.lastCmd, d.lastArg = cmd, arg
	return d.result
}

func (d *fakeDriver) Uninit() error {
	d.record("uninit")
	if d.uninitFn != nil {
		return d.uninitFn()
	}
	return nil
}

func (d *fakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// bareDriver has no optional hooks
type bareDriver struct{ uninits int }

func (d *bareDriver) Uninit() error {
	d.uninits++
	return nil
}

// monoConfig is 1 plane of s16 mono: stride 2, 1000 Hz so 2000 bytes per second
func monoConfig(frames int) Config {
	return Config{
		Planes:       1,
		Stride:       2,
		BufferFrames: frames,
		Format:       audio.SampleS16,
		SampleRate:   1000,
	}
}

func newAdapter(t *testing.T, cfg Config, drv Driver) *Adapter {
	t.Helper()
	a, err := New(cfg, drv)
	require.NoError(t, err)
	return a
}

func newManualAdapter(t *testing.T, cfg Config) (*Adapter, *fakeDriver, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(1_000_000)
	cfg.Clock = clk
	drv := &fakeDriver{}
	return newAdapter(t, cfg, drv), drv, clk
}

// seq returns frames*stride bytes counting up from start
func seq(start byte, frames, stride int) []byte {
	b := make([]byte, frames*stride)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

// planesOf allocates n output planes of frames*stride bytes each
func planesOf(n, frames, stride int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = make([]byte, frames*stride)
	}
	return out
}

func allEqual(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

// tracedRing wraps a ring and logs the plane index of every transfer
type tracedRing struct {
	ring.Buffer
	idx   int
	trace *[]string
}

func (r *tracedRing) Write(p []byte) int {
	*r.trace = append(*r.trace, "w"+string(rune('0'+r.idx)))
	return r.Buffer.Write(p)
}

func (r *tracedRing) Read(p []byte) int {
	*r.trace = append(*r.trace, "r"+string(rune('0'+r.idx)))
	return r.Buffer.Read(p)
}

// leakyRing drops the last byte of every write, breaking capacity accounting
type leakyRing struct {
	ring.Buffer
}

func (r *leakyRing) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	return r.Buffer.Write(p[:len(p)-1])
}
