// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"shaderfx/internal/audio"
	"shaderfx/internal/effect"
	"shaderfx/internal/fft"
)

func newInspectCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <shader>",
		Short: "Compile a shader and print its properties and FFT pipelines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return inspectShader(cmd.OutOrStdout(), args[0], effect.Environment{
				Settings:      cfg.Effect.Settings,
				DefaultWindow: cfg.Window(),
			}, cfg.Audio.SampleRate, cfg.Video.FPS)
		},
	}
}

// inspectShader compiles the shader against a silent host so FFT bindings
// resolve without touching audio devices.
func inspectShader(w io.Writer, path string, env effect.Environment, sampleRate, fps float64) error {
	silent := audio.NewReplay(nil, sampleRate, fps, 0, false)
	env.Registry = fft.NewRegistry(silent)

	e, err := effect.Load(path, env)
	if err != nil {
		return err
	}
	defer e.Close()

	t := table.New().Headers("property", "kind", "value", "default", "range", "description")
	for _, p := range e.Properties() {
		t.Row(p.Name, p.Kind.String(), p.Value, p.Default, formatRange(p), p.Description)
	}
	fmt.Fprintln(w, t.Render())

	for _, d := range e.Descriptors() {
		fmt.Fprintf(w, "fft pipeline %s\n", d)
	}
	return nil
}

func formatRange(p effect.Property) string {
	switch p.Kind {
	case effect.PropertyInt, effect.PropertyFloat:
		r := p.Range
		s := strconv.FormatFloat(r.Min, 'g', 6, 64) + ".." + strconv.FormatFloat(r.Max, 'g', 6, 64) +
			" step " + strconv.FormatFloat(r.Step, 'g', 6, 64)
		if r.Slider {
			s += " (slider)"
		}
		return s
	default:
		return ""
	}
}
