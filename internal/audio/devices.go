// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/gordonklaus/portaudio"

	"shaderfx/internal/config"
)

// PortAudio entry points, swapped out in tests.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice
	paDevicesFunc               = paDevices
)

// ErrNoInput is returned when a mix names a device that cannot capture the
// requested channels.
var ErrNoInput = errors.New("device cannot capture")

// Initialize sets up PortAudio. Every successful call must be paired with
// Terminate.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice resolves the capture device of a mix. config.MinDeviceID
// selects the system default input.
func InputDevice(mix config.MixConfig) (*portaudio.DeviceInfo, error) {
	var device *portaudio.DeviceInfo
	if mix.Device == config.MinDeviceID {
		d, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		device = d
	} else {
		devices, err := paDevicesFunc()
		if err != nil {
			return nil, err
		}
		if mix.Device < 0 || mix.Device >= len(devices) {
			return nil, fmt.Errorf("invalid device ID: %d", mix.Device)
		}
		device = devices[mix.Device]
	}

	if device.MaxInputChannels < mix.Channels {
		return nil, fmt.Errorf("%w %d channel(s): %s has %d input(s)",
			ErrNoInput, mix.Channels, device.Name, device.MaxInputChannels)
	}
	return device, nil
}

// InputDevices returns the devices with at least one input channel.
func InputDevices() ([]Device, error) {
	devices, err := HostDevices()
	if err != nil {
		return nil, err
	}
	inputs := devices[:0]
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return inputs, nil
}

// ListDevices writes a table of every PortAudio device to w. The ID column
// is the value audio.mixes[].device expects.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	t := table.New().Headers("id", "name", "kind", "host api", "in", "out", "rate", "latency")
	for _, d := range devices {
		t.Row(
			strconv.Itoa(d.ID),
			d.Name,
			d.Kind(),
			d.HostAPI,
			strconv.Itoa(d.MaxInputChannels),
			strconv.Itoa(d.MaxOutputChannels),
			strconv.FormatFloat(d.DefaultSampleRate, 'f', 0, 64)+" Hz",
			fmt.Sprintf("%.2f-%.2f ms", d.LowInputLatency.Seconds()*1000, d.HighInputLatency.Seconds()*1000),
		)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}

// paDevices returns all PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
