// ABOUTME: Feeds decoded audio into a pull adapter without blocking on the device
// ABOUTME: Chunked pack-and-write loop with pause, reset, volume and looping
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/decode"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultChunkMs      = 20
	DefaultPollInterval = 5 * time.Millisecond
)

// Config controls how the player feeds the adapter
type Config struct {
	// ChunkMs is how much audio is decoded per write attempt
	ChunkMs int

	// PollInterval is how long to wait while the adapter is full or paused
	PollInterval time.Duration

	// Reopen, when set, restarts the source at EOF instead of draining
	Reopen func(ctx context.Context) (decode.Decoder, error)

	Logger *zap.Logger
}

// Stats is a snapshot of the player and its adapter
type Stats struct {
	SessionID     string
	Source        audio.Format
	Device        audio.Format
	DecodedFrames uint64
	Loops         uint64
	Paused        bool
	Volume        pull.Volume
	Muted         bool
	Adapter       pull.Stats
}

// Player is the producer side of a pull adapter
type Player struct {
	cfg     Config
	adapter *pull.Adapter
	device  audio.Format
	id      uuid.UUID
	log     *zap.Logger

	// mu serialises adapter producer calls between Run and the controls
	mu       sync.Mutex
	dec      decode.Decoder
	paused   bool
	resetGen uint64 // bumped by Reset

	chunkFrames int
	samples     []int32
	chunk       [][]byte
	view        [][]byte
	pending     int    // packed frames not yet accepted by the adapter, Run only
	offset      int    // frames of the chunk already written, Run only
	chunkGen    uint64 // resetGen when the chunk started decoding, Run only

	decoded atomic.Uint64
	loops   atomic.Uint64
}

// New creates a player. The decoder must produce the adapter's sample rate
// and channel count; the player takes ownership of it.
func New(adapter *pull.Adapter, dec decode.Decoder, cfg Config) (*Player, error) {
	device := adapter.Config().AudioFormat()
	src := dec.Format()
	if src.SampleRate != device.SampleRate || src.Channels != device.Channels {
		return nil, fmt.Errorf("decoder produces %dHz %dch but device expects %dHz %dch",
			src.SampleRate, src.Channels, device.SampleRate, device.Channels)
	}

	if cfg.ChunkMs <= 0 {
		cfg.ChunkMs = DefaultChunkMs
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	id := uuid.New()
	p := &Player{
		cfg:     cfg,
		adapter: adapter,
		device:  device,
		id:      id,
		log:     cfg.Logger.Named("player").With(zap.String("session", id.String())),
		dec:     dec,
	}

	p.chunkFrames = max(1, device.FramesForDuration(time.Duration(cfg.ChunkMs)*time.Millisecond))
	p.samples = make([]int32, p.chunkFrames*device.Channels)
	p.chunk = make([][]byte, device.Planes())
	p.view = make([][]byte, device.Planes())
	for i := range p.chunk {
		p.chunk[i] = make([]byte, p.chunkFrames*device.Stride())
	}

	p.log.Info("player created",
		zap.String("codec", src.Codec),
		zap.Stringer("device_format", device),
		zap.Int("chunk_frames", p.chunkFrames))
	return p, nil
}

// ID returns the session id used in log lines
func (p *Player) ID() string {
	return p.id.String()
}

// Run feeds the adapter until the source ends and the device has played
// everything, the context is cancelled, or decoding fails
func (p *Player) Run(ctx context.Context) error {
	defer p.closeDecoder()

	for {
		if ctx.Err() != nil {
			return nil
		}

		p.mu.Lock()
		paused := p.paused
		p.mu.Unlock()
		if paused {
			if !p.wait(ctx) {
				return nil
			}
			continue
		}

		if p.pending == 0 {
			done, err := p.decodeChunk(ctx)
			if err != nil {
				return err
			}
			if done {
				return p.drain(ctx)
			}
			continue
		}

		if p.writePending() > 0 && !p.wait(ctx) {
			return nil
		}
	}
}

// decodeChunk refills the chunk buffer. done reports a finished source.
func (p *Player) decodeChunk(ctx context.Context) (done bool, err error) {
	p.mu.Lock()
	gen := p.resetGen
	p.mu.Unlock()

	n, err := p.dec.Read(p.samples)
	frames := n / p.device.Channels
	if frames > 0 {
		audio.Pack(p.samples[:frames*p.device.Channels], p.device.Channels, p.chunk, p.device.Sample)
		p.pending, p.offset, p.chunkGen = frames, 0, gen
		p.decoded.Add(uint64(frames))
	}

	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, io.EOF):
		return false, fmt.Errorf("decode failed: %w", err)
	case frames > 0:
		// play what came with the EOF first; the next read reports it again
		return false, nil
	case p.cfg.Reopen == nil:
		p.log.Info("source finished, draining", zap.Uint64("decoded_frames", p.decoded.Load()))
		return true, nil
	}

	next, err := p.cfg.Reopen(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reopen source: %w", err)
	}
	p.mu.Lock()
	p.dec.Close()
	p.dec = next
	p.mu.Unlock()
	p.loops.Add(1)
	p.log.Debug("source looped", zap.Uint64("loops", p.loops.Load()))
	return false, nil
}

// writePending offers the rest of the chunk and returns what is still left
func (p *Player) writePending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	// a chunk that started decoding before the last Reset is stale
	if p.chunkGen != p.resetGen {
		p.pending, p.offset = 0, 0
	}
	if p.paused || p.pending == 0 {
		return p.pending
	}
	stride := p.device.Stride()
	for i, plane := range p.chunk {
		p.view[i] = plane[p.offset*stride:]
	}
	n := p.adapter.Write(p.view, p.pending)
	p.offset += n
	p.pending -= n
	return p.pending
}

// drain waits for the device to play out the adapter
func (p *Player) drain(ctx context.Context) error {
	for p.adapter.Delay() > 0 {
		if !p.wait(ctx) {
			return nil
		}
	}
	p.log.Info("playback finished")
	return nil
}

func (p *Player) wait(ctx context.Context) bool {
	t := time.NewTimer(p.cfg.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *Player) closeDecoder() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.dec.Close(); err != nil {
		p.log.Warn("failed to close decoder", zap.Error(err))
	}
}

// Pause stops feeding and pauses the adapter
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	p.adapter.Pause()
	p.log.Info("paused")
}

// Resume restarts feeding and playback
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	p.adapter.Resume()
	p.log.Info("resumed")
}

// TogglePause flips between paused and playing and returns the new paused state
func (p *Player) TogglePause() bool {
	p.mu.Lock()
	paused := p.paused
	p.mu.Unlock()
	if paused {
		p.Resume()
	} else {
		p.Pause()
	}
	return !paused
}

// Reset drops everything buffered, including any chunk that began decoding
// before the call. Playback resumes with the next decoded chunk.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adapter.Reset()
	p.resetGen++
	p.log.Info("reset")
}

// SetVolume sets both sides to percent (0-100)
func (p *Player) SetVolume(percent float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	vol := pull.Volume{Left: percent, Right: percent}
	if res := p.adapter.Control(pull.CmdSetVolume, &vol); res != pull.ControlOK {
		return fmt.Errorf("set volume: driver returned %s", res)
	}
	return nil
}

// SetMuted mutes or unmutes output
func (p *Player) SetMuted(muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if res := p.adapter.Control(pull.CmdSetMute, &muted); res != pull.ControlOK {
		return fmt.Errorf("set mute: driver returned %s", res)
	}
	return nil
}

// Stats returns the current player and adapter counters
func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		SessionID:     p.id.String(),
		Source:        p.dec.Format(),
		Device:        p.device,
		DecodedFrames: p.decoded.Load(),
		Loops:         p.loops.Load(),
		Paused:        p.paused,
		Adapter:       p.adapter.Stats(),
	}
	var vol pull.Volume
	if p.adapter.Control(pull.CmdGetVolume, &vol) == pull.ControlOK {
		s.Volume = vol
	}
	var muted bool
	if p.adapter.Control(pull.CmdGetMute, &muted) == pull.ControlOK {
		s.Muted = muted
	}
	return s
}
