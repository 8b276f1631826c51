// SPDX-License-Identifier: MIT
package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"shaderfx/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "failed to write temp config")
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, cfg, "expected default config")
	assert.Equal(t, float64(DefaultSampleRate), cfg.Audio.SampleRate)
	assert.Len(t, cfg.Audio.Mixes, 1)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
	assert.Nil(t, cfg)
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 44100
  mixes:
    - device: 3
      channels: 1
    - device: -1
      channels: 2
video:
  fps: 30
fft:
  window: blackman
effect:
  shader: shaders/bars.shader
  settings:
    fft__mix: "2"
transport:
  udp_enabled: true
  udp_target_address: "10.0.0.2:9000"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 44100.0, cfg.Audio.SampleRate)
	assert.Equal(t, DefaultFramesPerBuffer, cfg.Audio.FramesPerBuffer, "unset keys keep defaults")
	assert.Equal(t, []MixConfig{{Device: 3, Channels: 1}, {Device: -1, Channels: 2}}, cfg.Audio.Mixes)
	assert.Equal(t, 30.0, cfg.Video.FPS)
	assert.Equal(t, DefaultWidth, cfg.Video.Width)
	assert.Equal(t, analysis.Blackman, cfg.Window())
	assert.Equal(t, "shaders/bars.shader", cfg.Effect.Shader)
	assert.Equal(t, "2", cfg.Effect.Settings["fft__mix"])
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "10.0.0.2:9000", cfg.Transport.UDPTargetAddress)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_LOG_LEVEL", "warn")
	t.Setenv("ENV_SHADER", "/tmp/fx.shader")
	t.Setenv("ENV_VIDEO_FPS", "59.94")
	t.Setenv("ENV_WS_ADDRESS", ":9999")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "localhost:7000")

	path := writeTempConfig(t, "video:\n  fps: 30\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/fx.shader", cfg.Effect.Shader)
	assert.Equal(t, 59.94, cfg.Video.FPS)
	assert.Equal(t, ":9999", cfg.Transport.WebSocketAddress)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "localhost:7000", cfg.Transport.UDPTargetAddress)
}

func TestLoadConfig_InvalidIsRejected(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "video:\n  fps: 0\n")
	cfg, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 100 }, false},
		{"sample rate too high", func(c *Config) { c.Audio.SampleRate = 384000 }, false},
		{"zero frames per buffer", func(c *Config) { c.Audio.FramesPerBuffer = 0 }, false},
		{"no mixes", func(c *Config) { c.Audio.Mixes = nil }, false},
		{"too many mixes", func(c *Config) { c.Audio.Mixes = make([]MixConfig, MaxAudioMixes+1) }, false},
		{"bad device", func(c *Config) { c.Audio.Mixes[0].Device = -2 }, false},
		{"zero channels", func(c *Config) { c.Audio.Mixes[0].Channels = 0 }, false},
		{"gate of one", func(c *Config) { c.Audio.GateThreshold = 1 }, false},
		{"gate enabled", func(c *Config) { c.Audio.GateThreshold = 0.01 }, true},
		{"negative fps", func(c *Config) { c.Video.FPS = -1 }, false},
		{"fractional fps", func(c *Config) { c.Video.FPS = 29.97 }, true},
		{"zero width", func(c *Config) { c.Video.Width = 0 }, false},
		{"unknown window", func(c *Config) { c.FFT.Window = "kaiser" }, false},
		{"cosine window", func(c *Config) { c.FFT.Window = "cosine(0.5,0.5,0,0)" }, true},
		{"websocket without address", func(c *Config) { c.Transport.WebSocketAddress = "" }, false},
		{"websocket disabled without address", func(c *Config) {
			c.Transport.WebSocketEnabled = false
			c.Transport.WebSocketAddress = ""
		}, true},
		{"udp without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, false},
		{"band without name", func(c *Config) { c.FFT.Bands = []BandConfig{{Low: 10, High: 20}} }, false},
		{"inverted band", func(c *Config) { c.FFT.Bands = []BandConfig{{Name: "x", Low: 20, High: 10}} }, false},
		{"open band", func(c *Config) { c.FFT.Bands = []BandConfig{{Name: "x", Low: 20}} }, true},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestFrequencyBands(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, analysis.DefaultBands, cfg.FrequencyBands())

	cfg.FFT.Bands = []BandConfig{{Name: "low", Low: 0, High: 200}, {Name: "rest", Low: 200}}
	bands := cfg.FrequencyBands()
	require.Len(t, bands, 2)
	assert.Equal(t, analysis.FrequencyBand{Name: "low", LowHz: 0, HighHz: 200}, bands[0])
	assert.True(t, math.IsInf(bands[1].HighHz, 1))
}
