// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shaderfx/internal/audio"
	"shaderfx/internal/config"
	"shaderfx/internal/tui"
)

func newListCommand() *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer func() { err = errors.Join(err, audio.Terminate()) }()

			if !interactive {
				return audio.ListDevices(cmd.OutOrStdout())
			}
			sel, err := tui.PickDevice()
			if err != nil || sel == nil {
				return err
			}
			return printMixSnippet(cmd.OutOrStdout(), sel)
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Pick a device and print the matching configuration")
	return cmd
}

// printMixSnippet writes the audio.mixes entry for sel as YAML.
func printMixSnippet(w io.Writer, sel *tui.Selection) error {
	snippet := struct {
		Audio struct {
			SampleRate float64            `yaml:"sample_rate"`
			Mixes      []config.MixConfig `yaml:"mixes"`
		} `yaml:"audio"`
	}{}
	snippet.Audio.SampleRate = sel.Device.DefaultSampleRate
	snippet.Audio.Mixes = []config.MixConfig{{Device: sel.Device.ID, Channels: sel.Channels}}

	data, err := yaml.Marshal(snippet)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %s\n%s", sel.Device.Name, data)
	return nil
}
