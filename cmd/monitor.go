// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shaderfx/internal/analysis"
	"shaderfx/internal/fft"
	"shaderfx/internal/log"
	"shaderfx/internal/tui"
)

type monitorOptions struct {
	mix     uint
	channel uint
	window  string
	attack  float64
	release float64
	replay  string
}

func newMonitorCommand(opts *globalOptions) *cobra.Command {
	o := &monitorOptions{}
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show live band energies of one analysis pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("replay") {
				cfg.Audio.ReplayFile = o.replay
			}
			if !cmd.Flags().Changed("window") {
				o.window = cfg.FFT.Window
			}
			if o.mix == 0 || o.channel == 0 {
				return errors.New("mix and channel start at 1")
			}
			if int(o.mix) > len(cfg.Audio.Mixes) && cfg.Audio.ReplayFile == "" {
				return fmt.Errorf("mix %d is not configured, %d mix(es) available", o.mix, len(cfg.Audio.Mixes))
			}
			window, err := analysis.ParseWindowKind(o.window)
			if err != nil {
				return err
			}

			host, err := openHost(cfg)
			if err != nil {
				return err
			}
			defer host.Close()

			registry := fft.NewRegistry(host, host.registryOptions(nil)...)
			handle := registry.Request(fft.NewDescriptor(o.mix-1, o.channel-1, o.attack, o.release, window))
			defer handle.Release()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- host.run(ctx) }()

			// Log lines would tear the alternate screen.
			log.SetOutput(io.Discard)
			defer log.SetOutput(os.Stderr)

			err = tui.RunMonitor(handle, host.SampleRate(), cfg.FrequencyBands(), frameInterval(cfg.Video.FPS))
			cancel()
			return errors.Join(err, <-done)
		},
	}

	flags := cmd.Flags()
	flags.UintVar(&o.mix, "mix", 1, "Audio mix, starting at 1")
	flags.UintVar(&o.channel, "channel", 1, "Channel of the mix, starting at 1")
	flags.StringVar(&o.window, "window", "", "Window function (default: fft.window)")
	flags.Float64Var(&o.attack, "attack", 0, "Attack dampening in percent")
	flags.Float64Var(&o.release, "release", 0, "Release dampening in percent")
	flags.StringVar(&o.replay, "replay", "", "Replay this WAV file instead of capturing")
	return cmd
}
