// ABOUTME: Application configuration loaded through viper
// ABOUTME: Defaults, optional YAML file, PULLBRIDGE_ environment overrides and validation
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sendspin/pullbridge/internal/logger"
	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/output"
	"github.com/Sendspin/pullbridge/pkg/audio/ring"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "PULLBRIDGE"

// OutputConfig describes the device side
type OutputConfig struct {
	Driver     string `mapstructure:"driver"`
	Device     string `mapstructure:"device"`
	Format     string `mapstructure:"format"`
	SampleRate int    `mapstructure:"sample_rate"` // 0 follows the source
	Channels   int    `mapstructure:"channels"`    // 0 follows the source
	BufferMs   int    `mapstructure:"buffer_ms"`
	PeriodMs   int    `mapstructure:"period_ms"`
	LatencyMs  int    `mapstructure:"latency_ms"`
	Ring       string `mapstructure:"ring"`
}

// PlayerConfig describes the producer side
type PlayerConfig struct {
	ChunkMs int     `mapstructure:"chunk_ms"`
	PollMs  int     `mapstructure:"poll_ms"`
	Volume  float64 `mapstructure:"volume"`
	Loop    bool    `mapstructure:"loop"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the full application configuration
type Config struct {
	Output  OutputConfig  `mapstructure:"output"`
	Player  PlayerConfig  `mapstructure:"player"`
	Log     logger.Config `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	TUI     bool          `mapstructure:"tui"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output.driver", "malgo")
	v.SetDefault("output.device", "")
	v.SetDefault("output.format", "s16")
	v.SetDefault("output.sample_rate", 0)
	v.SetDefault("output.channels", 0)
	v.SetDefault("output.buffer_ms", 200)
	v.SetDefault("output.period_ms", 10)
	v.SetDefault("output.latency_ms", 0)
	v.SetDefault("output.ring", string(ring.KindSPSC))
	v.SetDefault("player.chunk_ms", 20)
	v.SetDefault("player.poll_ms", 5)
	v.SetDefault("player.volume", 100)
	v.SetDefault("player.loop", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.stdout", false)
	v.SetDefault("log.file.enabled", true)
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.name", "pullbridge.log")
	v.SetDefault("log.file.max_size_mb", 50)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age_days", 14)
	v.SetDefault("log.file.compress", true)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tui", true)
}

// NewViper returns a viper instance with defaults and environment binding.
// Flags may be bound to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v and decodes the result
func Load(v *viper.Viper, path string) (Config, error) {
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pullbridge")
		v.AddConfigPath(".")
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks names and ranges
func (c Config) Validate() error {
	var errs []error

	if _, err := output.New(c.Output.Driver, output.Options{}); err != nil {
		errs = append(errs, err)
	}
	if _, err := audio.ParseSampleFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := ring.ParseKind(c.Output.Ring); err != nil {
		errs = append(errs, err)
	}
	if c.Output.SampleRate < 0 || c.Output.SampleRate > 768000 {
		errs = append(errs, fmt.Errorf("output.sample_rate out of range: %d", c.Output.SampleRate))
	}
	if c.Output.Channels < 0 || c.Output.Channels > 32 {
		errs = append(errs, fmt.Errorf("output.channels out of range: %d", c.Output.Channels))
	}
	if c.Output.BufferMs <= 0 {
		errs = append(errs, fmt.Errorf("output.buffer_ms must be positive, got %d", c.Output.BufferMs))
	}
	if c.Output.PeriodMs <= 0 || c.Output.PeriodMs > c.Output.BufferMs {
		errs = append(errs, fmt.Errorf("output.period_ms must be in 1..buffer_ms, got %d", c.Output.PeriodMs))
	}
	if c.Output.LatencyMs < 0 {
		errs = append(errs, fmt.Errorf("output.latency_ms must not be negative, got %d", c.Output.LatencyMs))
	}
	if c.Player.ChunkMs <= 0 {
		errs = append(errs, fmt.Errorf("player.chunk_ms must be positive, got %d", c.Player.ChunkMs))
	}
	if c.Player.PollMs <= 0 {
		errs = append(errs, fmt.Errorf("player.poll_ms must be positive, got %d", c.Player.PollMs))
	}
	if c.Player.Volume < 0 || c.Player.Volume > 100 {
		errs = append(errs, fmt.Errorf("player.volume must be in 0..100, got %v", c.Player.Volume))
	}

	return errors.Join(errs...)
}

// SampleFormat returns the parsed output format
func (c OutputConfig) SampleFormat() audio.SampleFormat {
	f, _ := audio.ParseSampleFormat(c.Format)
	return f
}

// RingKind returns the parsed ring kind
func (c OutputConfig) RingKind() ring.Kind {
	k, _ := ring.ParseKind(c.Ring)
	return k
}

// Buffer is the adapter capacity as a duration
func (c OutputConfig) Buffer() time.Duration { return time.Duration(c.BufferMs) * time.Millisecond }

// Period is the device callback size as a duration
func (c OutputConfig) Period() time.Duration { return time.Duration(c.PeriodMs) * time.Millisecond }

// Latency is the configured device latency, 0 meaning driver default
func (c OutputConfig) Latency() time.Duration { return time.Duration(c.LatencyMs) * time.Millisecond }

// Poll converts the player poll interval
func (c PlayerConfig) Poll() time.Duration { return time.Duration(c.PollMs) * time.Millisecond }
