// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"shaderfx/internal/config"
	"shaderfx/internal/log"
	"shaderfx/pkg/build"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	debug      bool
}

// Execute parses args and runs the selected command until it finishes or
// ctx is cancelled.
func Execute(ctx context.Context, args []string, stdout io.Writer) error {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	return root.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	info := build.Get()
	opts := &globalOptions{}
	run := &runOptions{}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		// Without a subcommand the effect host runs.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEffect(cmd, opts, run)
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Configuration file (default: ./config.yaml or ./shaderfx.yaml when present)")
	flags.StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides the configuration)")
	flags.BoolVarP(&opts.debug, "debug", "v", false,
		"Shorthand for --log-level debug")

	run.bind(rootCmd)
	rootCmd.AddCommand(
		newRunCommand(opts),
		newListCommand(),
		newMonitorCommand(opts),
		newAnalyzeCommand(opts),
		newInspectCommand(opts),
	)
	return rootCmd
}

// loadConfig reads the configuration and applies the global flags, including
// the log level.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.debug {
		cfg.Debug = true
	}

	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("%w: unknown log level %q", config.ErrInvalid, cfg.LogLevel)
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
	return cfg, nil
}
