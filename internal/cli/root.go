// ABOUTME: Cobra command tree for the pullbridge binary
// ABOUTME: Global flags are bound into viper so files, env and flags share one config
package cli

import (
	"context"
	"fmt"

	"github.com/Sendspin/pullbridge/internal/config"
	"github.com/Sendspin/pullbridge/internal/version"
	"github.com/Sendspin/pullbridge/pkg/audio/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// loader resolves the effective configuration once flags are parsed
type loader func() (config.Config, error)

// flagBindings maps persistent flags onto config keys
var flagBindings = map[string]string{
	"driver":       "output.driver",
	"device":       "output.device",
	"format":       "output.format",
	"rate":         "output.sample_rate",
	"channels":     "output.channels",
	"buffer-ms":    "output.buffer_ms",
	"period-ms":    "output.period_ms",
	"latency-ms":   "output.latency_ms",
	"ring":         "output.ring",
	"volume":       "player.volume",
	"chunk-ms":     "player.chunk_ms",
	"tui":          "tui",
	"metrics-addr": "metrics.addr",
	"log-level":    "log.level",
	"log-stdout":   "log.stdout",
}

// NewRootCommand builds the command tree with a fresh viper instance
func NewRootCommand() *cobra.Command {
	v := config.NewViper()
	var cfgPath string
	var noTUI bool

	rootCmd := &cobra.Command{
		Use:           version.Product,
		Short:         "Play audio through a non-blocking pull adapter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file (default ./pullbridge.yaml if present)")
	pf.String("driver", "", fmt.Sprintf("Output driver %v", output.Names()))
	pf.String("device", "", "Playback device name or ID (malgo)")
	pf.String("format", "", "Device sample format (u8, s16, s24, s32, f32, s16p, ...)")
	pf.Int("rate", 0, "Device sample rate, 0 follows the source")
	pf.Int("channels", 0, "Device channel count, 0 follows the source")
	pf.Int("buffer-ms", 0, "Adapter buffer size in milliseconds")
	pf.Int("period-ms", 0, "Device callback period in milliseconds")
	pf.Int("latency-ms", 0, "Device latency hint in milliseconds")
	pf.String("ring", "", "Plane buffer implementation (spsc, locked)")
	pf.Float64("volume", 0, "Initial volume 0-100")
	pf.Int("chunk-ms", 0, "Decode chunk size in milliseconds")
	pf.Bool("tui", true, "Show the terminal UI")
	pf.BoolVar(&noTUI, "no-tui", false, "Disable the terminal UI")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Bool("log-stdout", false, "Also log to stdout")

	if err := bindFlags(v, pf); err != nil {
		panic(err)
	}

	load := func() (config.Config, error) {
		if noTUI {
			v.Set("tui", false)
		}
		return config.Load(v, cfgPath)
	}

	rootCmd.AddCommand(
		newPlayCommand(v, load),
		newToneCommand(load),
		newDevicesCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// Execute runs the command tree
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
