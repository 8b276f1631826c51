// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"shaderfx/internal/analysis"
	"shaderfx/internal/log"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn" or "error".
	Audio     AudioConfig     `yaml:"audio"`
	Video     VideoConfig     `yaml:"video"`
	FFT       FFTConfig       `yaml:"fft"`
	Effect    EffectConfig    `yaml:"effect"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	SampleRate      float64     `yaml:"sample_rate"`       // Sample rate in Hz shared by every mix.
	FramesPerBuffer int         `yaml:"frames_per_buffer"` // PortAudio callback size.
	LowLatency      bool        `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	Mixes           []MixConfig `yaml:"mixes"`             // Mix index i captures from Mixes[i].
	GateThreshold   float64     `yaml:"gate_threshold"`    // Peak level below which input is squelched, 0 disables.
	RecordFile      string      `yaml:"record_file"`       // Record mix 0 to this WAV file when set.
	ReplayFile      string      `yaml:"replay_file"`       // Replay this WAV file instead of capturing.
	ReplayLoop      bool        `yaml:"replay_loop"`       // Restart the replay at end of file.
}

// MixConfig binds an audio mix to a capture device.
type MixConfig struct {
	Device   int `yaml:"device"`   // PortAudio device index, -1 for the default input.
	Channels int `yaml:"channels"` // Channels to capture.
}

// VideoConfig describes the video clock that drives rendering.
type VideoConfig struct {
	FPS    float64 `yaml:"fps"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

// FFTConfig holds analysis defaults for shader FFT bindings.
type FFTConfig struct {
	Window string       `yaml:"window"` // Window used when a shader does not pick one.
	Bands  []BandConfig `yaml:"bands"`  // Band layout for the monitor and analyze tools.
}

// BandConfig is one named frequency band. A zero high edge extends to Nyquist.
type BandConfig struct {
	Name string  `yaml:"name"`
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// EffectConfig selects the shader and its property values.
type EffectConfig struct {
	Shader   string            `yaml:"shader"`   // Path to the shader source.
	Watch    bool              `yaml:"watch"`    // Reload the shader when the file changes.
	Settings map[string]string `yaml:"settings"` // Property values by property name.
}

// TransportConfig holds settings related to sending rendered frames over the network.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address, e.g. ":8080".
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send FFT textures over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090".
}

// MetricsConfig controls the Prometheus endpoint served next to the WebSocket.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"config.yaml", "shaderfx.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and returns the first problem found,
// wrapping ErrInvalid.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q is not a known level", c.LogLevel)
	}

	// Audio
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate %.0f outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return invalid("audio.frames_per_buffer %d outside [1, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if len(c.Audio.Mixes) == 0 || len(c.Audio.Mixes) > MaxAudioMixes {
		return invalid("audio.mixes must list between 1 and %d mixes, got %d", MaxAudioMixes, len(c.Audio.Mixes))
	}
	for i, mix := range c.Audio.Mixes {
		if mix.Device < MinDeviceID {
			return invalid("audio.mixes[%d].device %d is not a device index", i, mix.Device)
		}
		if mix.Channels < 1 || mix.Channels > MaxAudioChannels {
			return invalid("audio.mixes[%d].channels %d outside [1, %d]", i, mix.Channels, MaxAudioChannels)
		}
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold >= 1 {
		return invalid("audio.gate_threshold %g outside [0, 1)", c.Audio.GateThreshold)
	}

	// Video
	if c.Video.FPS <= 0 || c.Video.FPS > MaxFPS {
		return invalid("video.fps %g outside (0, %d]", c.Video.FPS, MaxFPS)
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return invalid("video size %dx%d must be positive", c.Video.Width, c.Video.Height)
	}

	// FFT
	if _, err := analysis.ParseWindowKind(c.FFT.Window); err != nil {
		return invalid("fft.window: %v", err)
	}

	for i, band := range c.FFT.Bands {
		if band.Name == "" {
			return invalid("fft.bands[%d] needs a name", i)
		}
		if band.Low < 0 || (band.High != 0 && band.High <= band.Low) {
			return invalid("fft.bands[%d] (%s) has an empty range [%g, %g)", i, band.Name, band.Low, band.High)
		}
	}

	// Transport
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return invalid("transport.websocket_address must be set when the WebSocket is enabled")
	}
	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		return invalid("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
	}

	// Metrics
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path %q must start with '/'", c.Metrics.Path)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// applyEnvOverrides applies ENV_* variables on top of the loaded file.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			log.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Debugf("configuration: Overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_SHADER"); ok {
		c.Effect.Shader = val
		log.Debugf("configuration: Overriding effect.shader from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_VIDEO_FPS"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			c.Video.FPS = fVal
			log.Debugf("configuration: Overriding video.fps from env: %g", fVal)
		}
	}

	// ENV_WS_{...} and ENV_UDP_{...} are specific to the transport layer.
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		log.Debugf("configuration: Overriding transport.websocket_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			log.Debugf("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
}

// Window returns the parsed default FFT window. Validate guarantees it parses.
func (c *Config) Window() analysis.WindowKind {
	kind, _ := analysis.ParseWindowKind(c.FFT.Window)
	return kind
}

// FrequencyBands returns the configured bands, or analysis.DefaultBands when
// none are configured.
func (c *Config) FrequencyBands() []analysis.FrequencyBand {
	if len(c.FFT.Bands) == 0 {
		return analysis.DefaultBands
	}
	bands := make([]analysis.FrequencyBand, len(c.FFT.Bands))
	for i, b := range c.FFT.Bands {
		high := b.High
		if high == 0 {
			high = math.Inf(1)
		}
		bands[i] = analysis.FrequencyBand{Name: b.Name, LowHz: b.Low, HighHz: high}
	}
	return bands
}
