// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"shaderfx/internal/analysis"
	"shaderfx/internal/audio"
	"shaderfx/internal/config"
	"shaderfx/internal/effect"
	"shaderfx/internal/tui"
	"shaderfx/pkg/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testShader = `
#pragma shaderfilter set gain__description Output gain
#pragma shaderfilter set gain__min 0
#pragma shaderfilter set gain__max 2
uniform float gain = 0.5;
uniform texture2d builtin_texture_fft_bass;

float4 render(VertData v_in) : TARGET
{
    return image.Sample(textureSampler, v_in.uv) * gain;
}
`

// writeTone writes half a second of a 1200 Hz mono tone at 48 kHz.
func writeTone(t *testing.T) string {
	t.Helper()
	const sampleRate = 48000
	samples := utils.GenerateSineWave(sampleRate/2, sampleRate, 1200, 0.5)

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s * math.MaxInt16)
	}
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func writeTestShader(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "effect.shader")
	require.NoError(t, os.WriteFile(path, []byte(testShader), 0o644))
	return path
}

func defaultAnalyzeOptions() *analyzeOptions {
	return &analyzeOptions{
		fps:      60,
		channel:  1,
		window:   "hanning",
		every:    1,
		onset:    0.02,
		onsetMin: 1.5,
	}
}

func TestAnalyzeFile(t *testing.T) {
	path := writeTone(t)
	bands := config.Default().FrequencyBands()

	var out bytes.Buffer
	summary, err := analyzeFile(&out, path, bands, defaultAnalyzeOptions())
	require.NoError(t, err)

	assert.Equal(t, 30, summary.Frames)
	assert.InDelta(t, 1200.0, summary.DominantHz, 1e-9)
	assert.Equal(t, 1, summary.Onsets, "only the start of the tone is an onset")
	assert.Zero(t, summary.Dropped)
	assert.InDelta(t, 0.5, summary.DurationSec, 1e-9)
	assert.Len(t, summary.MeanBands, len(bands))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 31, "header plus one row per frame")
	assert.Contains(t, lines[0], "peak Hz")
	assert.Contains(t, lines[1], "1200")

	var table bytes.Buffer
	printSummary(&table, summary)
	assert.Contains(t, table.String(), "30 frame(s)")
	assert.Contains(t, table.String(), "dominant 1200 Hz")
}

func TestAnalyzeFileJSON(t *testing.T) {
	path := writeTone(t)
	o := defaultAnalyzeOptions()
	o.asJSON = true
	o.every = 10

	var out bytes.Buffer
	_, err := analyzeFile(&out, path, config.Default().FrequencyBands(), o)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var first FrameReport
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Zero(t, first.Batch)
	assert.True(t, first.Onset)
	assert.InDelta(t, 1200.0, first.PeakHz, 1e-9)
	assert.Equal(t, 400, first.Spectrum)
	assert.NotEmpty(t, first.Bands)
}

func TestAnalyzeFileErrors(t *testing.T) {
	path := writeTone(t)
	bands := config.Default().FrequencyBands()

	o := defaultAnalyzeOptions()
	o.channel = 0
	_, err := analyzeFile(&bytes.Buffer{}, path, bands, o)
	assert.Error(t, err)

	o = defaultAnalyzeOptions()
	o.fps = 0
	_, err = analyzeFile(&bytes.Buffer{}, path, bands, o)
	assert.Error(t, err)

	o = defaultAnalyzeOptions()
	o.window = "triangle"
	_, err = analyzeFile(&bytes.Buffer{}, path, bands, o)
	assert.Error(t, err)

	_, err = analyzeFile(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.wav"), bands, defaultAnalyzeOptions())
	assert.Error(t, err)

	o = defaultAnalyzeOptions()
	o.channel = 2
	summary, err := analyzeFile(&bytes.Buffer{}, path, bands, o)
	require.NoError(t, err)
	assert.Zero(t, summary.Frames, "a missing channel yields no analysis")
}

func TestInspectShader(t *testing.T) {
	var out bytes.Buffer
	err := inspectShader(&out, writeTestShader(t), effect.Environment{
		DefaultWindow: analysis.Hanning,
	}, 48000, 60)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "gain")
	assert.Contains(t, text, "Output gain")
	assert.Contains(t, text, "0..2 step 0.1")
	assert.Contains(t, text, "fft pipeline")
}

func TestInspectShaderMissing(t *testing.T) {
	err := inspectShader(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.shader"), effect.Environment{}, 48000, 60)
	assert.Error(t, err)
}

func TestExecuteVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Execute(context.Background(), []string{"--version"}, &out))
	assert.Contains(t, out.String(), "shaderfx")
}

func TestExecuteAnalyze(t *testing.T) {
	var out bytes.Buffer
	err := Execute(context.Background(), []string{"analyze", "--json", "--every", "10", writeTone(t)}, &out)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), 3)
}

func TestExecuteRejectsUnknownLogLevel(t *testing.T) {
	err := Execute(context.Background(), []string{"--log-level", "chatty", "inspect", writeTestShader(t)}, &bytes.Buffer{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRunRequiresShader(t *testing.T) {
	err := Execute(context.Background(), []string{"run", "--replay", writeTone(t)}, &bytes.Buffer{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestServeReplay(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.ReplayFile = writeTone(t)
	cfg.Audio.ReplayLoop = true
	cfg.Effect.Shader = writeTestShader(t)
	cfg.Effect.Watch = false
	cfg.Transport.WebSocketEnabled = false
	cfg.Metrics.Enabled = false
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, serve(ctx, cfg))
}

func TestPrintMixSnippet(t *testing.T) {
	var out bytes.Buffer
	err := printMixSnippet(&out, &tui.Selection{
		Device:   audio.Device{ID: 3, Name: "USB Interface", DefaultSampleRate: 44100},
		Channels: 2,
	})
	require.NoError(t, err)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "# USB Interface\n"))
	assert.Contains(t, text, "sample_rate: 44100")
	assert.Contains(t, text, "device: 3")
	assert.Contains(t, text, "channels: 2")
}
