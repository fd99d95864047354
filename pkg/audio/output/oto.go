// ABOUTME: Oto-based playback driver
// ABOUTME: A persistent oto player reads from the adapter through an io.Reader
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

const defaultOtoBuffer = 100 * time.Millisecond

// oto allows one context per process, so every Oto driver shares it
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// otoPlayer is the part of *oto.Player the driver uses
type otoPlayer interface {
	Play()
	Pause()
	SetVolume(volume float64)
	Close() error
}

// Oto plays through the oto library. Only packed u8, s16 and f32 work.
type Oto struct {
	opts   Options
	log    *zap.Logger
	cfg    pull.Config
	vol    *softVolume
	player otoPlayer
	reader *hostReader

	// newPlayer creates a player pulling from reader
	newPlayer func() otoPlayer

	mu      sync.Mutex
	playing bool
}

// NewOto creates an unopened oto driver
func NewOto(opts Options) *Oto {
	return &Oto{
		opts: opts,
		log:  opts.logger().Named("oto"),
		vol:  newSoftVolume(),
	}
}

func otoSampleFormat(f audio.SampleFormat) (oto.Format, bool) {
	switch f {
	case audio.SampleU8:
		return oto.FormatUnsignedInt8, true
	case audio.SampleS16:
		return oto.FormatSignedInt16LE, true
	case audio.SampleF32:
		return oto.FormatFloat32LE, true
	}
	return 0, false
}

// sharedContext returns the process oto context, creating it for f on first use
func sharedContext(f audio.Format, buffer time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoFormat != f {
			return nil, fmt.Errorf("%w: oto context already open as %v, cannot reopen as %v",
				ErrUnsupportedFormat, otoFormat, f)
		}
		return otoCtx, nil
	}

	format, ok := otoSampleFormat(f.Sample)
	if !ok {
		return nil, fmt.Errorf("%w: oto plays packed u8/s16/f32, got %v", ErrUnsupportedFormat, f.Sample)
	}

	ctx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       format,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoFormat = f
	return ctx, nil
}

// hostReader adapts Host.Read to io.Reader. It always fills p, with
// silence where the adapter runs dry, so the player never sees EOF.
type hostReader struct {
	host    pull.Host
	cfg     pull.Config
	latency int64
	planes  [][]byte
}

func (r *hostReader) Read(p []byte) (int, error) {
	frames := len(p) / r.cfg.Stride
	if frames == 0 {
		return 0, nil
	}
	r.planes[0] = p
	end := r.host.Now() + r.latency + periodDuration(frames, r.cfg.SampleRate).Microseconds()
	r.host.Read(r.planes, frames, end)
	return frames * r.cfg.Stride, nil
}

// Init opens the shared context and creates a paused player
func (o *Oto) Init(host pull.Host) error {
	o.cfg = host.Config()
	if o.cfg.Planes != 1 {
		return fmt.Errorf("%w: oto needs a packed format, got %v", ErrUnsupportedFormat, o.cfg.Format)
	}

	buffer := o.opts.Latency
	if buffer <= 0 {
		buffer = defaultOtoBuffer
	}

	ctx, err := sharedContext(o.cfg.AudioFormat(), buffer)
	if err != nil {
		return err
	}

	o.reader = &hostReader{
		host:    host,
		cfg:     o.cfg,
		latency: buffer.Microseconds(),
		planes:  make([][]byte, 1),
	}
	o.newPlayer = func() otoPlayer { return ctx.NewPlayer(o.reader) }
	o.player = o.newPlayer()

	o.log.Info("audio output initialized",
		zap.Int("sample_rate", o.cfg.SampleRate),
		zap.Int("channels", o.cfg.Channels),
		zap.Stringer("format", o.cfg.Format),
		zap.Duration("buffer", buffer))
	return nil
}

// Resume starts the player
func (o *Oto) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil || o.playing {
		return
	}
	o.player.Play()
	o.playing = true
}

// Pause pauses the player
func (o *Oto) Pause() {
	o.halt()
}

// Reset swaps in a fresh paused player. oto buffers up to one context
// buffer ahead of the device, and a paused player would replay it.
func (o *Oto) Reset() {
	o.halt()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return
	}
	if err := o.player.Close(); err != nil {
		o.log.Warn("failed to close oto player on reset", zap.Error(err))
	}
	o.player = o.newPlayer()
	o.applyVolume()
}

func (o *Oto) halt() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil || !o.playing {
		return
	}
	o.player.Pause()
	o.playing = false
}

// Control keeps the volume state in softVolume but leaves the gain to the player
func (o *Oto) Control(cmd pull.Command, arg any) pull.ControlResult {
	res := o.vol.control(cmd, arg)
	if res == pull.ControlOK && (cmd == pull.CmdSetVolume || cmd == pull.CmdSetMute) {
		o.mu.Lock()
		o.applyVolume()
		o.mu.Unlock()
	}
	return res
}

// applyVolume pushes the volume state to the player. Callers hold o.mu.
func (o *Oto) applyVolume() {
	if o.player == nil {
		return
	}
	level := o.vol.get().Level() / 100
	if o.vol.muted.Load() {
		level = 0
	}
	o.player.SetVolume(level)
}

// Uninit closes the player. The shared context stays open for reuse.
func (o *Oto) Uninit() error {
	o.halt()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}
