// SPDX-License-Identifier: MIT
package tui

import (
	"math"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shaderfx/internal/analysis"
	"shaderfx/internal/audio"
	"shaderfx/internal/fft"
)

type fakeSource struct {
	results []analysis.Result
	polls   int
}

func (s *fakeSource) RetrieveResult() (analysis.Result, bool) {
	s.polls++
	if len(s.results) == 0 {
		return analysis.Result{}, false
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r, true
}

func (s *fakeSource) Descriptor() fft.Descriptor {
	return fft.NewDescriptor(0, 0, 0, 0, analysis.Hanning)
}

func (s *fakeSource) Stats() fft.Stats {
	return fft.Stats{FrameSize: 8, DroppedFrames: 2}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

var testBands = []analysis.FrequencyBand{
	{Name: "low", LowHz: 0, HighHz: 2000},
	{Name: "high", LowHz: 2000, HighHz: 4000},
}

func TestMonitorWaitsForAudio(t *testing.T) {
	m := NewMonitorModel(&fakeSource{}, 8000, testBands, time.Millisecond)
	updated, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd, "ticks keep polling")
	assert.Contains(t, updated.View(), "Waiting for audio")
}

func TestMonitorShowsBands(t *testing.T) {
	// 8 samples at 8 kHz: 1 kHz per bin, low covers bins 0-1, high bins 2-3.
	src := &fakeSource{results: []analysis.Result{
		{BatchNumber: 1, Spectrum: []float32{0, 1, 0, 0}},
	}}
	var model tea.Model = NewMonitorModel(src, 8000, testBands, time.Millisecond)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	model, _ = model.Update(tickMsg(time.Now()))

	m := model.(MonitorModel)
	require.True(t, m.have)
	assert.InDelta(t, 1/math.Sqrt2, m.energies[0], 1e-9)
	assert.Zero(t, m.energies[1])
	assert.InDelta(t, 1/math.Sqrt2, m.peak, 1e-9)

	view := m.View()
	assert.Contains(t, view, "low")
	assert.Contains(t, view, "high")
	assert.Contains(t, view, "batch 1")
	assert.Contains(t, view, "dropped 2")
	assert.Contains(t, view, "peak 1000 Hz")
}

func TestMonitorIgnoresRepeatedBatch(t *testing.T) {
	src := &fakeSource{results: []analysis.Result{{BatchNumber: 4, Spectrum: []float32{1, 1, 1, 1}}}}
	var model tea.Model = NewMonitorModel(src, 8000, testBands, time.Millisecond)
	model, _ = model.Update(tickMsg(time.Now()))
	peak := model.(MonitorModel).peak

	model, _ = model.Update(tickMsg(time.Now()))
	assert.Equal(t, peak, model.(MonitorModel).peak, "same batch must not decay the scale")
	assert.Equal(t, 2, src.polls)
}

func TestMonitorPauseAndQuit(t *testing.T) {
	src := &fakeSource{}
	var model tea.Model = NewMonitorModel(src, 8000, nil, time.Millisecond)
	assert.Len(t, model.(MonitorModel).bands, len(analysis.DefaultBands))

	model, _ = model.Update(keyMsg("p"))
	assert.True(t, model.(MonitorModel).paused)
	model, _ = model.Update(tickMsg(time.Now()))
	assert.Zero(t, src.polls, "paused monitor must not poll")
	assert.Contains(t, model.View(), "paused")

	_, cmd := model.Update(keyMsg("q"))
	assert.True(t, isQuit(cmd))
}

func testDevices() []audio.Device {
	return []audio.Device{
		{ID: 0, Name: "Built-in Microphone", HostAPI: "Core Audio", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{ID: 3, Name: "Interface", HostAPI: "Core Audio", MaxInputChannels: 4, MaxOutputChannels: 4, DefaultSampleRate: 96000},
	}
}

func TestDevicePickerSelection(t *testing.T) {
	var model tea.Model = NewDeviceListModel()
	assert.Equal(t, "Initializing...", model.View())

	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	model, _ = model.Update(devicesMsg{testDevices()})
	assert.Contains(t, model.View(), "Built-in Microphone")

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m := model.(DeviceListModel)
	assert.Equal(t, ChannelScreen, m.activeScreen)
	assert.Equal(t, 2, m.channels)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 4, model.(DeviceListModel).channels, "clamped to the device")

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
	sel := model.(DeviceListModel).Selected()
	require.NotNil(t, sel)
	assert.Equal(t, 3, sel.Device.ID)
	assert.Equal(t, 4, sel.Channels)
}

func TestDevicePickerBackAndQuit(t *testing.T) {
	var model tea.Model = NewDeviceListModel()
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	model, _ = model.Update(devicesMsg{testDevices()})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, model.(DeviceListModel).channels, "mono device")

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ListScreen, model.(DeviceListModel).activeScreen)

	model, cmd := model.Update(keyMsg("q"))
	assert.True(t, isQuit(cmd))
	assert.Nil(t, model.(DeviceListModel).Selected())
}

func TestDevicePickerError(t *testing.T) {
	var model tea.Model = NewDeviceListModel()
	model, _ = model.Update(errMsg{assert.AnError})
	assert.Contains(t, model.View(), "Error:")
}
