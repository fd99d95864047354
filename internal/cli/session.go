// ABOUTME: Wires config, logger, driver, adapter, player, TUI and metrics for one playback
// ABOUTME: Runs until the source drains, the user quits or a signal arrives
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/Sendspin/pullbridge/internal/config"
	"github.com/Sendspin/pullbridge/internal/logger"
	"github.com/Sendspin/pullbridge/internal/metrics"
	"github.com/Sendspin/pullbridge/internal/player"
	"github.com/Sendspin/pullbridge/internal/ui"
	"github.com/Sendspin/pullbridge/internal/version"
	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/decode"
	"github.com/Sendspin/pullbridge/pkg/audio/output"
	"github.com/Sendspin/pullbridge/pkg/audio/pull"
	"github.com/Sendspin/pullbridge/pkg/audio/resample"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const (
	statusInterval  = 250 * time.Millisecond
	runtimeInterval = 2 * time.Second
)

// deviceFormat picks the device layout. Rate and channels follow the source
// unless pinned in config, in which case the source is converted.
func deviceFormat(src audio.Format, oc config.OutputConfig) audio.Format {
	f := audio.Format{
		Codec:      "pcm",
		SampleRate: src.SampleRate,
		Channels:   src.Channels,
		Sample:     oc.SampleFormat(),
	}
	if oc.SampleRate > 0 {
		f.SampleRate = oc.SampleRate
	}
	if oc.Channels > 0 {
		f.Channels = oc.Channels
	}
	f.BitDepth = f.Sample.BytesPerSample() * 8
	return f
}

func sourceName(source string) string {
	if source == "" {
		return "test tone"
	}
	return source
}

func runSession(ctx context.Context, cfg config.Config, source string, opts decode.OpenOptions) error {
	if cfg.TUI {
		// the alternate screen owns stdout
		cfg.Log.Stdout = false
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting",
		zap.String("product", version.Product),
		zap.String("version", version.Version),
		zap.String("source", sourceName(source)),
		zap.String("driver", cfg.Output.Driver))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dec, err := decode.Open(ctx, source, opts)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	device := deviceFormat(dec.Format(), cfg.Output)
	dec = resample.Wrap(dec, device.SampleRate, device.Channels)
	drv, err := output.New(cfg.Output.Driver, output.Options{
		Device:       cfg.Output.Device,
		PeriodFrames: device.FramesForDuration(cfg.Output.Period()),
		Latency:      cfg.Output.Latency(),
		Realtime:     true,
		Logger:       log,
	})
	if err != nil {
		_ = dec.Close()
		return err
	}

	pcfg := pull.ConfigFor(device, device.FramesForDuration(cfg.Output.Buffer()))
	pcfg.Ring = cfg.Output.RingKind()
	pcfg.Logger = log
	adapter, err := pull.New(pcfg, drv)
	if err != nil {
		_ = dec.Close()
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer func() {
		if err := adapter.Uninit(); err != nil {
			log.Warn("failed to close output", zap.Error(err))
		}
	}()

	var reopen func(context.Context) (decode.Decoder, error)
	if cfg.Player.Loop && decode.Seekable(source) {
		reopen = func(ctx context.Context) (decode.Decoder, error) {
			next, err := decode.Open(ctx, source, opts)
			if err != nil {
				return nil, err
			}
			return resample.Wrap(next, device.SampleRate, device.Channels), nil
		}
	}

	pl, err := player.New(adapter, dec, player.Config{
		ChunkMs:      cfg.Player.ChunkMs,
		PollInterval: cfg.Player.Poll(),
		Reopen:       reopen,
		Logger:       log,
	})
	if err != nil {
		_ = dec.Close()
		return err
	}
	if cfg.Player.Volume != 100 {
		if err := pl.SetVolume(cfg.Player.Volume); err != nil {
			log.Warn("initial volume not applied", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if cfg.Metrics.Addr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		if _, err := metrics.NewAdapterCollector(adapter, registry); err != nil {
			_ = dec.Close()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, registry, log); err != nil {
				log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	if cfg.TUI {
		startTUI(ctx, cancel, &wg, pl, sourceName(source), cfg.Output.Driver, log)
	}

	err = pl.Run(ctx)
	cancel()
	wg.Wait()

	if err != nil {
		log.Error("playback failed", zap.Error(err))
		return err
	}
	log.Info("stopped", zap.Any("stats", pl.Stats().Adapter))
	return nil
}

// startTUI runs the bubbletea program and its control and status loops.
// All goroutines finish once ctx is cancelled.
func startTUI(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, pl *player.Player, source, driver string, log *zap.Logger) {
	ctrl := ui.NewControls()
	prog, err := ui.Run(ctrl, source)
	if err != nil {
		log.Warn("failed to start TUI", zap.Error(err))
		return
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		defer cancel()
		if _, err := prog.Run(); err != nil {
			log.Error("TUI exited", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		prog.Quit()
	}()
	go func() {
		defer wg.Done()
		handleControls(ctx, cancel, pl, ctrl, log)
	}()
	go func() {
		defer wg.Done()
		statusLoop(ctx, pl, driver, prog.Send)
	}()
}

// handleControls applies TUI actions to the player
func handleControls(ctx context.Context, cancel context.CancelFunc, pl *player.Player, ctrl *ui.Controls, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ctrl.Quit:
			log.Info("quit requested from TUI")
			cancel()
			return
		case a := <-ctrl.Actions:
			switch a {
			case ui.ActionTogglePause:
				pl.TogglePause()
			case ui.ActionReset:
				pl.Reset()
			}
		case vol := <-ctrl.Volume:
			log.Debug("volume change", zap.Int("volume", vol.Volume), zap.Bool("muted", vol.Muted))
			if err := pl.SetVolume(float64(vol.Volume)); err != nil {
				log.Warn("volume change rejected", zap.Error(err))
			}
			if err := pl.SetMuted(vol.Muted); err != nil {
				log.Warn("mute change rejected", zap.Error(err))
			}
		}
	}
}

// statusLoop pushes player stats to the TUI
func statusLoop(ctx context.Context, pl *player.Player, driver string, send func(tea.Msg)) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	// runtime.ReadMemStats stops the world, so it runs on a slower ticker
	runtimeTicker := time.NewTicker(runtimeInterval)
	defer runtimeTicker.Stop()

	var goroutines int
	var memAlloc, memSys uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-runtimeTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			goroutines = runtime.NumGoroutine()
			memAlloc, memSys = m.Alloc, m.Sys
		case <-ticker.C:
			msg := ui.StatusFromStats(pl.Stats())
			msg.Driver = driver
			msg.Goroutines = goroutines
			msg.MemAlloc = memAlloc
			msg.MemSys = memSys
			send(msg)
		}
	}
}
