// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"shaderfx/internal/analysis"
	"shaderfx/internal/fft"
)

const (
	labelWidth = 10
	// peakDecay lowers the normalization ceiling each batch so the bars
	// recover after a loud passage.
	peakDecay = 0.995
	minPeak   = 1e-6
)

// Source is one analysis pipeline, typically an *fft.Handle.
type Source interface {
	analysis.ResultProvider
	Descriptor() fft.Descriptor
	Stats() fft.Stats
}

type tickMsg time.Time

var monitorKeys = struct {
	quit, pause, reset key.Binding
}{
	quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
	pause: key.NewBinding(key.WithKeys(" ", "p")),
	reset: key.NewBinding(key.WithKeys("r")),
}

// MonitorModel shows live band energies of one analysis pipeline.
type MonitorModel struct {
	source     Source
	sampleRate float64
	bands      []analysis.FrequencyBand
	interval   time.Duration

	bars     []progress.Model
	energies []float64
	peak     float64
	result   analysis.Result
	have     bool
	paused   bool
	width    int
}

// NewMonitorModel polls source every interval. Each poll retrieves a result
// and so requests the next batch, which keeps the pipeline running.
func NewMonitorModel(source Source, sampleRate float64, bands []analysis.FrequencyBand, interval time.Duration) MonitorModel {
	if len(bands) == 0 {
		bands = analysis.DefaultBands
	}
	bars := make([]progress.Model, len(bands))
	for i := range bars {
		bars[i] = progress.New(progress.WithGradient("#25A065", "#E8F55D"), progress.WithoutPercentage())
	}
	return MonitorModel{
		source:     source,
		sampleRate: sampleRate,
		bands:      bands,
		interval:   interval,
		bars:       bars,
		energies:   make([]float64, len(bands)),
		peak:       minPeak,
	}
}

func (m MonitorModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m MonitorModel) Init() tea.Cmd {
	return m.tick()
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.bars {
			m.bars[i].Width = max(10, msg.Width-labelWidth-4)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, monitorKeys.quit):
			return m, tea.Quit
		case key.Matches(msg, monitorKeys.pause):
			m.paused = !m.paused
		case key.Matches(msg, monitorKeys.reset):
			m.peak = minPeak
		}

	case tickMsg:
		if !m.paused {
			m.poll()
		}
		return m, m.tick()
	}
	return m, nil
}

// poll pulls the latest result and updates the normalized band energies.
func (m *MonitorModel) poll() {
	res, ok := m.source.RetrieveResult()
	if !ok || (m.have && res.BatchNumber == m.result.BatchNumber) {
		return
	}
	m.result, m.have = res, true

	m.energies = analysis.BandEnergies(res.Spectrum, 2*len(res.Spectrum), m.sampleRate, m.bands)
	m.peak = max(minPeak, m.peak*peakDecay)
	for _, e := range m.energies {
		m.peak = max(m.peak, e)
	}
}

func (m MonitorModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Spectrum Monitor " + m.source.Descriptor().String()))
	sb.WriteString("\n\n")

	if !m.have {
		sb.WriteString(infoStyle.Render("Waiting for audio..."))
		sb.WriteString("\n")
	} else {
		stats := m.source.Stats()
		peakBin, _ := analysis.PeakBin(m.result.Spectrum)
		fmt.Fprintf(&sb, "batch %d  frame %d samples  dropped %d  peak %.0f Hz\n\n",
			m.result.BatchNumber, stats.FrameSize, stats.DroppedFrames,
			analysis.BinFrequency(peakBin, 2*len(m.result.Spectrum), m.sampleRate))
	}

	for i, band := range m.bands {
		fmt.Fprintf(&sb, "%-*s %s\n", labelWidth, band.Name, m.bars[i].ViewAs(min(1, m.energies[i]/m.peak)))
	}

	help := "space: pause • r: reset scale • q: quit"
	if m.paused {
		help = highlightStyle.Render("paused") + "  " + help
	}
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(help))
	return sb.String()
}

// RunMonitor shows the monitor until the user quits.
func RunMonitor(source Source, sampleRate float64, bands []analysis.FrequencyBand, interval time.Duration) error {
	_, err := tea.NewProgram(NewMonitorModel(source, sampleRate, bands, interval), tea.WithAltScreen()).Run()
	return err
}
