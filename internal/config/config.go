// SPDX-License-Identifier: MIT
package config

import "errors"

// Boundaries and defaults for the audio and video pipeline.
const (
	DefaultSampleRate      = 48000
	DefaultFramesPerBuffer = 512
	DefaultChannels        = 2
	DefaultFPS             = 60
	DefaultWidth           = 1920
	DefaultHeight          = 1080
	DefaultWindow          = "hanning"
	DefaultWebSocketAddr   = ":8080"
	DefaultUDPTargetAddr   = "127.0.0.1:9090"
	DefaultMetricsPath     = "/metrics"

	MinDeviceID      = -1     // -1 represents the system default device
	MinSampleRate    = 8000   // Hz
	MaxSampleRate    = 192000 // Hz
	MaxBufferFrames  = 8192
	MaxAudioMixes    = 6
	MaxAudioChannels = 8
	MaxFPS           = 1000
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Default returns the built-in configuration: one stereo mix captured from
// the default input device and a 60 fps video clock.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Mixes:           []MixConfig{{Device: MinDeviceID, Channels: DefaultChannels}},
		},
		Video: VideoConfig{
			FPS:    DefaultFPS,
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		FFT: FFTConfig{
			Window: DefaultWindow,
		},
		Effect: EffectConfig{
			Watch:    true,
			Settings: map[string]string{},
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTargetAddr,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}
