// ABOUTME: play, tone, devices and version subcommands
// ABOUTME: Thin cobra wrappers around the session runner and driver listing
package cli

import (
	"fmt"

	"github.com/Sendspin/pullbridge/internal/version"
	"github.com/Sendspin/pullbridge/pkg/audio"
	"github.com/Sendspin/pullbridge/pkg/audio/decode"
	"github.com/Sendspin/pullbridge/pkg/audio/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPlayCommand(v *viper.Viper, load loader) *cobra.Command {
	var pcmRate, pcmChannels, pcmBits int

	cmd := &cobra.Command{
		Use:   "play <file|url>",
		Short: "Play a file (mp3, flac, wav, opus, pcm) or an HTTP MP3 stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts := decode.OpenOptions{
				PCM: audio.Format{SampleRate: pcmRate, Channels: pcmChannels, BitDepth: pcmBits},
			}
			return runSession(cmd.Context(), cfg, args[0], opts)
		},
	}

	cmd.Flags().Bool("loop", false, "Restart the source when it ends (local files only)")
	cmd.Flags().IntVar(&pcmRate, "pcm-rate", decode.DefaultPCMFormat.SampleRate, "Sample rate of headerless .pcm/.raw input")
	cmd.Flags().IntVar(&pcmChannels, "pcm-channels", decode.DefaultPCMFormat.Channels, "Channels of headerless .pcm/.raw input")
	cmd.Flags().IntVar(&pcmBits, "pcm-bits", decode.DefaultPCMFormat.BitDepth, "Bit depth of headerless .pcm/.raw input (16 or 24)")

	if err := v.BindPFlag("player.loop", cmd.Flags().Lookup("loop")); err != nil {
		panic(err)
	}

	return cmd
}

func newToneCommand(load loader) *cobra.Command {
	var frequency float64

	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Play a sine test tone until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts := decode.OpenOptions{
				ToneRate:      cfg.Output.SampleRate,
				ToneChannels:  cfg.Output.Channels,
				ToneFrequency: frequency,
			}
			return runSession(cmd.Context(), cfg, "", opts)
		},
	}

	cmd.Flags().Float64Var(&frequency, "frequency", decode.DefaultToneFrequency, "Tone frequency in Hz")
	return cmd
}

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List output drivers and playback devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Drivers: %v\n", output.Names())

			devices, err := output.ListDevices()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Playback devices:")
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Fprintf(out, " %s %s (%s)\n", marker, d.Name, d.ID)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
