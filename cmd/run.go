// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shaderfx/internal/config"
	"shaderfx/internal/fft"
	"shaderfx/internal/filter"
	"shaderfx/internal/log"
	"shaderfx/internal/render"
	"shaderfx/internal/transport"
	"shaderfx/internal/transport/udp"
)

// runOptions override the configuration for the effect host.
type runOptions struct {
	shader  string
	replay  string
	record  string
	fps     float64
	noWatch bool
	udp     bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.shader, "shader", "s", "", "Shader file to host (overrides effect.shader)")
	flags.StringVar(&o.replay, "replay", "", "Replay this WAV file instead of capturing")
	flags.StringVarP(&o.record, "record", "r", "", "Record mix 0 to this WAV file")
	flags.Float64Var(&o.fps, "fps", 0, "Video frame rate (overrides video.fps)")
	flags.BoolVar(&o.noWatch, "no-watch", false, "Do not reload the shader when it changes")
	flags.BoolVar(&o.udp, "udp", false, "Publish spectra over UDP (overrides transport.udp_enabled)")
}

// apply copies the flags that were set onto cfg and revalidates it.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("shader") {
		cfg.Effect.Shader = o.shader
	}
	if flags.Changed("replay") {
		cfg.Audio.ReplayFile = o.replay
	}
	if flags.Changed("record") {
		cfg.Audio.RecordFile = o.record
	}
	if flags.Changed("fps") {
		cfg.Video.FPS = o.fps
	}
	if flags.Changed("no-watch") {
		cfg.Effect.Watch = !o.noWatch
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = o.udp
	}
	if cfg.Effect.Shader == "" {
		return fmt.Errorf("%w: no shader configured, set effect.shader or pass --shader", config.ErrInvalid)
	}
	return cfg.Validate()
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	run := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Host a shader effect and stream its uniforms (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEffect(cmd, opts, run)
		},
	}
	run.bind(cmd)
	return cmd
}

func runEffect(cmd *cobra.Command, opts *globalOptions, run *runOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := run.apply(cmd, cfg); err != nil {
		return err
	}
	return serve(cmd.Context(), cfg)
}

// serve wires the pipeline and blocks until ctx is cancelled:
// audio host -> registry -> filter -> frame renderer -> transports.
func serve(ctx context.Context, cfg *config.Config) (err error) {
	reg := prometheus.NewRegistry()
	var metrics *fft.Metrics
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if metrics, err = fft.NewMetrics(reg); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	host, err := openHost(cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, host.Close()) }()

	registry := fft.NewRegistry(host, host.registryOptions(metrics)...)

	out, err := openTransports(cfg, reg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, out.Close()) }()

	renderer := render.NewFrameRenderer(out)

	f, err := filter.New(filter.Options{
		ShaderPath:    cfg.Effect.Shader,
		Settings:      cfg.Effect.Settings,
		DefaultWindow: cfg.Window(),
		FPS:           cfg.Video.FPS,
		Width:         cfg.Video.Width,
		Height:        cfg.Video.Height,
	}, registry, renderer)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	if cfg.Effect.Watch {
		w, err := filter.NewWatcher(cfg.Effect.Shader, f.Reload)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()
		publisher, err := udp.NewUDPPublisher(frameInterval(cfg.Video.FPS), sender, renderer)
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Close()
	}

	if err := host.startRecording(cfg.Audio.RecordFile); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return host.run(gctx) })
	g.Go(func() error { return f.Run(gctx) })
	runErr := g.Wait()

	stats := f.Stats()
	log.Infof("shaderfx: rendered %d frame(s), %d reload(s), %d failed", stats.Frames, stats.Reloads, stats.FailedReloads)
	return runErr
}

// openTransports starts the configured frame transports. The metrics
// endpoint shares the WebSocket server.
func openTransports(cfg *config.Config, reg *prometheus.Registry) (transport.Transport, error) {
	var out transport.Multi
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if cfg.Metrics.Enabled {
			ws.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		}
		if err := ws.Start(); err != nil {
			return nil, err
		}
		out = append(out, ws)
	} else if cfg.Metrics.Enabled {
		log.Warnf("shaderfx: metrics are served by the WebSocket server, which is disabled")
	}
	if len(out) == 0 || cfg.Debug {
		out = append(out, transport.NewLoggingTransport())
	}
	return out, nil
}
