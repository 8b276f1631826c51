// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shaderfx/internal/audio"
	"shaderfx/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// ScreenType defines which screen is currently active.
type ScreenType int

const (
	ListScreen ScreenType = iota
	ChannelScreen
)

var deviceKeys = struct {
	quit, up, down, enter, back key.Binding
}{
	quit:  key.NewBinding(key.WithKeys("q", "ctrl+c")),
	up:    key.NewBinding(key.WithKeys("up", "k")),
	down:  key.NewBinding(key.WithKeys("down", "j")),
	enter: key.NewBinding(key.WithKeys("enter")),
	back:  key.NewBinding(key.WithKeys("esc")),
}

// Selection is the mix chosen in the device picker.
type Selection struct {
	Device   audio.Device
	Channels int
}

// DeviceListModel lets the user pick an input device and a channel count for
// a mix. Only devices with input channels are selectable.
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	channels      int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType
	selection     *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// fetchDevices lists the input capable devices.
func fetchDevices() tea.Msg {
	devices, err := audio.InputDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{activeScreen: ListScreen}
}

func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

// Selected returns the confirmed selection, or nil if the user quit.
func (m DeviceListModel) Selected() *Selection {
	return m.selection
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, deviceKeys.quit) {
			return m, tea.Quit
		}
		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, deviceKeys.up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, deviceKeys.down):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, deviceKeys.enter):
				if len(m.devices) > 0 {
					m.activeScreen = ChannelScreen
					m.channels = min(2, m.devices[m.selectedIndex].MaxInputChannels)
				}
			}
		} else {
			maxChannels := m.maxChannels()
			switch {
			case key.Matches(msg, deviceKeys.back):
				m.activeScreen = ListScreen
			case key.Matches(msg, deviceKeys.up):
				m.channels = max(1, m.channels-1)
			case key.Matches(msg, deviceKeys.down):
				m.channels = min(maxChannels, m.channels+1)
			case key.Matches(msg, deviceKeys.enter):
				m.selection = &Selection{Device: m.devices[m.selectedIndex], Channels: m.channels}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ListScreen {
		m.viewport.SetContent(m.renderDevices())
	} else {
		m.viewport.SetContent(m.renderChannels())
	}
}

func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	} else {
		title = titleStyle.Render("Mix Channels")
		help = infoStyle.Render("↑/↓: Change • Enter: Confirm • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		entry := fmt.Sprintf("[%d] %s (%s)\n", d.ID, d.Name, d.Kind())
		entry += fmt.Sprintf("    %s, %d input channel(s), %.0f Hz\n", d.HostAPI, d.MaxInputChannels, d.DefaultSampleRate)
		entry += dimStyle.Render(fmt.Sprintf("    latency %v low / %v high", d.LowInputLatency, d.HighInputLatency)) + "\n"
		if i == m.selectedIndex {
			entry = highlightStyle.Render(entry)
		}
		sb.WriteString(entry)
		sb.WriteString("\n")
	}
	return sb.String()
}

// maxChannels caps the selected device at what a mix may capture.
func (m DeviceListModel) maxChannels() int {
	return min(m.devices[m.selectedIndex].MaxInputChannels, config.MaxAudioChannels)
}

func (m DeviceListModel) renderChannels() string {
	d := m.devices[m.selectedIndex]

	var sb strings.Builder
	fmt.Fprintf(&sb, "Device: %s\n\n", d.Name)
	for c := 1; c <= m.maxChannels(); c++ {
		line := fmt.Sprintf("    %d channel(s)\n", c)
		if c == m.channels {
			line = highlightStyle.Render(fmt.Sprintf("  ▶ %d channel(s)\n", c))
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickDevice runs the device picker and returns the confirmed selection, or
// nil if the user quit without choosing.
func PickDevice() (*Selection, error) {
	final, err := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(DeviceListModel).Selected(), nil
}
