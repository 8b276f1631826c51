// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"time"

	"shaderfx/internal/audio"
	"shaderfx/internal/config"
	"shaderfx/internal/fft"
	"shaderfx/internal/log"
)

// audioHost is the fft.Host a command analyzes: the PortAudio engine, or a
// WAV replay when audio.replay_file is set.
type audioHost struct {
	fft.Host
	engine *audio.Engine
	replay *audio.Replay
}

func openHost(cfg *config.Config) (*audioHost, error) {
	if cfg.Audio.ReplayFile != "" {
		replay, err := audio.OpenReplay(cfg.Audio.ReplayFile, cfg.Video.FPS, cfg.Audio.FramesPerBuffer, cfg.Audio.ReplayLoop)
		if err != nil {
			return nil, err
		}
		return &audioHost{Host: replay, replay: replay}, nil
	}

	if err := audio.Initialize(); err != nil {
		return nil, err
	}
	engine := audio.NewEngine(cfg)
	log.Infof("audio: capturing %d mix(es) at %.0f Hz", len(cfg.Audio.Mixes), cfg.Audio.SampleRate)
	return &audioHost{Host: engine, engine: engine}, nil
}

// registryOptions follow the replay's sample clock when replaying.
func (h *audioHost) registryOptions(metrics *fft.Metrics) []fft.Option {
	opts := []fft.Option{fft.WithMetrics(metrics)}
	if h.replay != nil {
		opts = append(opts, fft.WithClock(h.replay.Now))
	}
	return opts
}

// run feeds audio until ctx is done. Live capture is driven by PortAudio, so
// only a replay needs pacing.
func (h *audioHost) run(ctx context.Context) error {
	if h.replay == nil {
		<-ctx.Done()
		return nil
	}
	if err := h.replay.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// startRecording records mix 0 of a live capture to path.
func (h *audioHost) startRecording(path string) error {
	if h.engine == nil || path == "" {
		return nil
	}
	if err := h.engine.StartRecording(path, 0); err != nil {
		return err
	}
	log.Infof("audio: recording mix 0 to %s", path)
	return nil
}

// Close stops recording and capture and releases PortAudio.
func (h *audioHost) Close() error {
	if h.engine == nil {
		return nil
	}
	var errs []error
	if h.engine.Recording() {
		errs = append(errs, h.engine.StopRecording())
	}
	errs = append(errs, h.engine.Close(), audio.Terminate())
	return errors.Join(errs...)
}

func frameInterval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}
