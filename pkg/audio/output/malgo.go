// ABOUTME: Malgo-based playback driver with 24-bit support
// ABOUTME: Uses miniaudio via malgo; the device callback pulls from the adapter
package output

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// Malgo plays through the system's default (or a named) playback device
type Malgo struct {
	opts Options
	log  *zap.Logger
	host pull.Host
	cfg  pull.Config
	vol  *softVolume

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	latency  int64 // microseconds from callback to speaker

	// out wraps the callback buffer without allocating
	out [][]byte

	mu      sync.Mutex
	started bool
}

// DeviceInfo describes a playback device
type DeviceInfo struct {
	Name      string
	ID        string
	IsDefault bool
}

// NewMalgo creates an unopened malgo driver
func NewMalgo(opts Options) *Malgo {
	return &Malgo{
		opts: opts,
		log:  opts.logger().Named("malgo"),
		vol:  newSoftVolume(),
		out:  make([][]byte, 1),
	}
}

// ListDevices enumerates playback devices
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to get playback devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			Name:      info.Name(),
			ID:        info.ID.String(),
			IsDefault: info.IsDefault == 1,
		})
	}
	return devices, nil
}

// malgoFormat maps a packed sample format to miniaudio's
func malgoFormat(f audio.SampleFormat) (malgo.FormatType, bool) {
	switch f {
	case audio.SampleU8:
		return malgo.FormatU8, true
	case audio.SampleS16:
		return malgo.FormatS16, true
	case audio.SampleS24:
		return malgo.FormatS24, true
	case audio.SampleS32:
		return malgo.FormatS32, true
	case audio.SampleF32:
		return malgo.FormatF32, true
	}
	return malgo.FormatUnknown, false
}

// Init opens the playback device. It is started on the first Resume.
func (m *Malgo) Init(host pull.Host) error {
	m.host = host
	m.cfg = host.Config()

	format, ok := malgoFormat(m.cfg.Format)
	if !ok || m.cfg.Planes != 1 {
		return fmt.Errorf("%w: malgo plays packed u8/s16/s24/s32/f32, got %v", ErrUnsupportedFormat, m.cfg.Format)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.log.Debug("miniaudio", zap.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(m.cfg.Channels)
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if m.opts.PeriodFrames > 0 {
		deviceConfig.PeriodSizeInFrames = uint32(m.opts.PeriodFrames)
	}

	deviceName := "default"
	if m.opts.Device != "" {
		info, err := m.findDevice(m.opts.Device)
		if err != nil {
			m.freeContext()
			return err
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
		deviceName = info.Name()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			m.dataCallback(pOutput, int(frameCount))
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		m.freeContext()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	m.device = device

	period := m.opts.PeriodFrames
	if period <= 0 {
		period = max(1, m.cfg.SampleRate/100)
	}
	m.latency = periodDuration(period, m.cfg.SampleRate).Microseconds()
	if m.opts.Latency > 0 {
		m.latency = m.opts.Latency.Microseconds()
	}

	m.log.Info("audio output initialized",
		zap.String("device", deviceName),
		zap.Int("sample_rate", m.cfg.SampleRate),
		zap.Int("channels", m.cfg.Channels),
		zap.String("format", formatName(format)),
		zap.Int64("latency_us", m.latency))
	return nil
}

func (m *Malgo) findDevice(want string) (malgo.DeviceInfo, error) {
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("failed to get playback devices: %w", err)
	}
	for _, info := range infos {
		if info.ID.String() == want || strings.Contains(info.Name(), want) {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("playback device %q not found", want)
}

// dataCallback runs on miniaudio's audio thread
func (m *Malgo) dataCallback(pOutput []byte, frames int) {
	m.out[0] = pOutput
	end := m.host.Now() + m.latency + periodDuration(frames, m.cfg.SampleRate).Microseconds()
	m.host.Read(m.out, frames, end)
	m.vol.apply(m.out, frames, m.cfg.Channels, m.cfg.Format)
}

// Resume starts the device
func (m *Malgo) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil || m.started {
		return
	}
	if err := m.device.Start(); err != nil {
		m.log.Error("failed to start device", zap.Error(err))
		return
	}
	m.started = true
}

// Pause stops the device. miniaudio returns once the callback has finished.
func (m *Malgo) Pause() {
	m.stopDevice()
}

// Reset stops the device so the adapter can empty its buffers
func (m *Malgo) Reset() {
	m.stopDevice()
}

func (m *Malgo) stopDevice() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil || !m.started {
		return
	}
	if err := m.device.Stop(); err != nil {
		m.log.Warn("device stop error", zap.Error(err))
	}
	m.started = false
}

// Control handles software volume and mute
func (m *Malgo) Control(cmd pull.Command, arg any) pull.ControlResult {
	return m.vol.control(cmd, arg)
}

// Uninit releases the device and context
func (m *Malgo) Uninit() error {
	m.stopDevice()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	m.freeContext()
	return nil
}

func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		m.log.Warn("malgo context uninit error", zap.Error(err))
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
