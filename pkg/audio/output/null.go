// ABOUTME: Simulated playback device that pulls on a schedule and discards audio
// ABOUTME: Drives the adapter without hardware for tests, benchmarks and headless runs
package output

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"go.uber.org/zap"
)

const defaultNullLatency = 20 * time.Millisecond

// Null pulls PeriodFrames from the adapter once per period. With Realtime
// set a ticker goroutine does the pulling while playback runs; otherwise
// each call to Tick pulls one period.
type Null struct {
	opts    Options
	log     *zap.Logger
	host    pull.Host
	cfg     pull.Config
	period  int
	every   time.Duration
	latency time.Duration
	planes  [][]byte
	vol     *softVolume

	// mu is held for the whole of a pull, so taking it waits out the callback
	mu      sync.Mutex
	running bool

	// lifecycle of the realtime loop, producer side only
	loopMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}

	rendered atomic.Uint64
	periods  atomic.Uint64
}

// NewNull creates an unopened null driver
func NewNull(opts Options) *Null {
	return &Null{
		opts: opts,
		log:  opts.logger().Named("null"),
		vol:  newSoftVolume(),
	}
}

// Init sizes the period buffers from the adapter configuration
func (d *Null) Init(host pull.Host) error {
	d.host = host
	d.cfg = host.Config()

	d.period = d.opts.PeriodFrames
	if d.period <= 0 {
		d.period = max(1, d.cfg.SampleRate/100)
	}
	d.every = periodDuration(d.period, d.cfg.SampleRate)
	d.latency = d.opts.Latency
	if d.latency <= 0 {
		d.latency = defaultNullLatency
	}

	d.planes = make([][]byte, d.cfg.Planes)
	for i := range d.planes {
		d.planes[i] = make([]byte, d.period*d.cfg.Stride)
	}

	d.log.Info("null output opened",
		zap.Int("period_frames", d.period),
		zap.Duration("period", d.every),
		zap.Duration("latency", d.latency),
		zap.Bool("realtime", d.opts.Realtime))
	return nil
}

// Tick pulls one period if the device is running and returns the number of
// real frames delivered
func (d *Null) Tick() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return 0
	}

	end := d.host.Now() + (d.latency + d.every).Microseconds()
	n := d.host.Read(d.planes, d.period, end)
	d.vol.apply(d.planes, d.period, d.cfg.Channels, d.cfg.Format)
	if d.opts.Sink != nil {
		d.opts.Sink(d.planes, d.period)
	}
	d.rendered.Add(uint64(n))
	d.periods.Add(1)
	return n
}

// Resume starts pulling
func (d *Null) Resume() {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()

	if d.opts.Realtime {
		d.startLoop()
	}
}

// Pause stops pulling and returns once no pull is in flight
func (d *Null) Pause() {
	d.halt()
}

// Reset halts the device ahead of the adapter emptying its buffers
func (d *Null) Reset() {
	d.halt()
}

func (d *Null) halt() {
	d.stopLoop()
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Control handles software volume and mute
func (d *Null) Control(cmd pull.Command, arg any) pull.ControlResult {
	return d.vol.control(cmd, arg)
}

// Uninit stops the device
func (d *Null) Uninit() error {
	d.halt()
	d.log.Info("null output closed",
		zap.Uint64("rendered_frames", d.rendered.Load()),
		zap.Uint64("periods", d.periods.Load()))
	return nil
}

// Rendered returns the number of real frames pulled so far
func (d *Null) Rendered() uint64 {
	return d.rendered.Load()
}

// Periods returns the number of callbacks run so far
func (d *Null) Periods() uint64 {
	return d.periods.Load()
}

func (d *Null) startLoop() {
	d.loopMu.Lock()
	defer d.loopMu.Unlock()
	if d.stop != nil {
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.loop(d.stop, d.done)
}

func (d *Null) stopLoop() {
	d.loopMu.Lock()
	defer d.loopMu.Unlock()
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop, d.done = nil, nil
}

func (d *Null) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.Tick()
		}
	}
}
