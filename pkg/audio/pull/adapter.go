// ABOUTME: Pull-mode output adapter between a producer and a device callback
// ABOUTME: Non-blocking write/read over per-plane rings with a delay estimate
package pull

import (
	"fmt"
	"sync/atomic"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/ring"
	"go.uber.org/zap"
)

// Adapter buffers audio written by a producer until a device callback pulls it.
//
// Be careful with the plane order. Write fills planes from last to first and
// Read drains them from first to last, so plane 0 always holds the least
// data and the last plane the most. Free space is therefore taken from the
// last plane and buffered data from plane 0, and both are safe bounds
// without looking at every plane.
type Adapter struct {
	cfg    Config
	driver Driver
	hooks  hooks
	log    *zap.Logger

	planes []ring.Buffer

	state   atomic.Int32 // State
	ready   atomic.Bool  // planes may be touched by Read
	endTime atomic.Int64 // when the last delivered sample reaches the speaker, 0 if unknown
	closed  atomic.Bool

	written   atomic.Uint64
	read      atomic.Uint64
	underruns atomic.Uint64
}

// New allocates the plane buffers and then runs the driver's Init hook, if any
func New(cfg Config, drv Driver) (*Adapter, error) {
	if drv == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		cfg:    cfg,
		driver: drv,
		hooks:  hooksOf(drv),
		log:    cfg.Logger.Named("pull"),
		planes: make([]ring.Buffer, cfg.Planes),
	}
	for n := range a.planes {
		rb, err := ring.New(cfg.Ring, cfg.BufferFrames*cfg.Stride)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate plane %d: %w", n, err)
		}
		a.planes[n] = rb
	}
	a.ready.Store(true)

	if init, ok := drv.(Initializer); ok {
		if err := init.Init(a); err != nil {
			return nil, fmt.Errorf("driver init failed: %w", err)
		}
	}

	a.log.Debug("adapter initialized",
		zap.Int("planes", cfg.Planes),
		zap.Int("stride", cfg.Stride),
		zap.Int("buffer_frames", cfg.BufferFrames),
		zap.Stringer("format", cfg.Format),
		zap.String("ring", string(cfg.Ring)))

	return a, nil
}

// Config returns the adapter configuration with defaults applied
func (a *Adapter) Config() Config {
	return a.cfg
}

// Now returns the adapter clock in microseconds
func (a *Adapter) Now() int64 {
	return a.cfg.Clock.NowMicros()
}

// Space returns how many frames Write would accept right now
func (a *Adapter) Space() int {
	if a.closed.Load() {
		return 0
	}
	return a.planes[len(a.planes)-1].Available() / a.cfg.Stride
}

// Write queues up to frames frames from data (one slice per plane) and
// returns how many were taken. It never blocks; the caller keeps or drops
// the remainder. The first write after Idle or Paused starts playback.
func (a *Adapter) Write(data [][]byte, frames int) int {
	if a.closed.Load() {
		return 0
	}
	a.checkPlanes("write", data, frames)

	n := min(a.Space(), frames)
	nbytes := n * a.cfg.Stride
	for i := len(a.planes) - 1; i >= 0; i-- {
		if w := a.planes[i].Write(data[i][:nbytes]); w != nbytes {
			panic(fmt.Sprintf("pull: plane %d took %d of %d reserved bytes", i, w, nbytes))
		}
	}
	a.written.Add(uint64(n))

	if State(a.state.Load()) != StatePlaying {
		a.transitionToPlaying()
	}
	return n
}

// Read is called from the device callback. It copies up to frames frames
// into out (one slice per plane), pads the rest of each slice with silence
// and returns the number of real frames. endTime is the caller's estimate,
// on the adapter clock, of when the last sample of this read will be heard.
//
// Paused playback returns 0 and leaves the buffered audio in place. Note
// that endTime is still recorded when data was available, even if the
// pause check then suppresses delivery.
func (a *Adapter) Read(out [][]byte, frames int, endTime int64) int {
	a.checkPlanes("read", out, frames)
	full := frames * a.cfg.Stride

	if !a.ready.Load() {
		for n := 0; n < a.cfg.Planes; n++ {
			audio.FillSilence(out[n][:full], a.cfg.Format)
		}
		return 0
	}

	buffered := min(a.planes[0].Buffered()/a.cfg.Stride, frames)
	if buffered > 0 {
		a.endTime.Store(endTime)
	}

	state := State(a.state.Load())
	if state == StatePaused {
		buffered = 0
	}

	nbytes := buffered * a.cfg.Stride
	for n, p := range a.planes {
		if r := p.Read(out[n][:nbytes]); r != nbytes {
			panic(fmt.Sprintf("pull: plane %d gave %d of %d buffered bytes", n, r, nbytes))
		}
		if nbytes < full {
			audio.FillSilence(out[n][nbytes:full], a.cfg.Format)
		}
	}

	a.read.Add(uint64(buffered))
	if state == StatePlaying && buffered < frames {
		a.underruns.Add(1)
	}
	return buffered
}

// Delay returns, in seconds, how long until the last queued sample is heard:
// the audio still queued here plus whatever the device reported as still
// in flight on the last read.
func (a *Adapter) Delay() float64 {
	if a.closed.Load() {
		return 0
	}
	end := a.endTime.Load()
	now := a.cfg.Clock.NowMicros()
	device := max(0, float64(end-now)/1e6)
	return float64(a.planes[0].Buffered())/float64(a.cfg.BytesPerSecond()) + device
}

// Control forwards a command to the driver. After Uninit it returns ControlNA.
func (a *Adapter) Control(cmd Command, arg any) ControlResult {
	if a.closed.Load() {
		return ControlNA
	}
	if a.hooks.control == nil {
		return ControlUnknown
	}
	return a.hooks.control.Control(cmd, arg)
}

// Uninit tears the driver down. The adapter accepts no more writes and
// reports zero space and delay afterwards.
func (a *Adapter) Uninit() error {
	if a.closed.Swap(true) {
		return nil
	}
	err := a.driver.Uninit()
	a.ready.Store(false)
	a.state.Store(int32(StateIdle))
	if err != nil {
		return fmt.Errorf("driver uninit failed: %w", err)
	}
	a.log.Debug("adapter uninitialized")
	return nil
}

func (a *Adapter) checkPlanes(op string, bufs [][]byte, frames int) {
	if frames < 0 {
		panic(fmt.Sprintf("pull: %s of %d frames", op, frames))
	}
	if len(bufs) != a.cfg.Planes {
		panic(fmt.Sprintf("pull: %s with %d planes, adapter has %d", op, len(bufs), a.cfg.Planes))
	}
	need := frames * a.cfg.Stride
	for n, b := range bufs {
		if len(b) < need {
			panic(fmt.Sprintf("pull: %s plane %d holds %d bytes, need %d", op, n, len(b), need))
		}
	}
}
