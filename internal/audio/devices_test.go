// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shaderfx/internal/config"
)

var (
	testMic      = &portaudio.DeviceInfo{Name: "Mic", MaxInputChannels: 2, DefaultSampleRate: 48000, DefaultLowInputLatency: 5 * time.Millisecond, DefaultHighInputLatency: 20 * time.Millisecond}
	testSpeakers = &portaudio.DeviceInfo{Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100, HostApi: &portaudio.HostApiInfo{Name: "ALSA"}}
	testDuplex   = &portaudio.DeviceInfo{Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000}
)

// fakeDevices replaces the PortAudio device queries for one test.
func fakeDevices(t *testing.T, devices []*portaudio.DeviceInfo, err error) {
	t.Helper()
	origDevices, origDefault := paLibDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc, paLibDefaultInputDeviceFunc = origDevices, origDefault
	})

	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, err }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if err != nil {
			return nil, err
		}
		for _, d := range devices {
			if d.MaxInputChannels > 0 {
				return d, nil
			}
		}
		return nil, errors.New("no input")
	}
}

func TestHostDevices(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic, testSpeakers}, nil)

	devices, err := HostDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, Device{
		ID:                0,
		Name:              "Mic",
		MaxInputChannels:  2,
		DefaultSampleRate: 48000,
		LowInputLatency:   5 * time.Millisecond,
		HighInputLatency:  20 * time.Millisecond,
	}, devices[0])
	assert.Equal(t, 1, devices[1].ID)
	assert.Equal(t, "ALSA", devices[1].HostAPI)
}

func TestHostDevicesEmpty(t *testing.T) {
	fakeDevices(t, nil, nil)

	devices, err := HostDevices()
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestHostDevicesError(t *testing.T) {
	fakeDevices(t, nil, errors.New("PortAudio not initialized"))

	devices, err := HostDevices()
	assert.ErrorContains(t, err, "PortAudio not initialized")
	assert.Nil(t, devices)
}

func TestInputDevices(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic, testSpeakers, testDuplex}, nil)

	inputs, err := InputDevices()
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, 0, inputs[0].ID)
	assert.Equal(t, 2, inputs[1].ID, "IDs stay PortAudio indices")
}

func TestInputDevice(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic, testSpeakers, testDuplex}, nil)

	tests := []struct {
		name    string
		mix     config.MixConfig
		want    string
		wantErr error
		errText string
	}{
		{"default input", config.MixConfig{Device: config.MinDeviceID, Channels: 2}, "Mic", nil, ""},
		{"by index", config.MixConfig{Device: 2, Channels: 6}, "Interface", nil, ""},
		{"too many channels", config.MixConfig{Device: 0, Channels: 4}, "", ErrNoInput, "Mic has 2 input(s)"},
		{"output only", config.MixConfig{Device: 1, Channels: 1}, "", ErrNoInput, "Speakers"},
		{"negative index", config.MixConfig{Device: -2, Channels: 1}, "", nil, "invalid device ID: -2"},
		{"index out of range", config.MixConfig{Device: 3, Channels: 1}, "", nil, "invalid device ID: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, err := InputDevice(tt.mix)
			if tt.errText != "" {
				assert.ErrorContains(t, err, tt.errText)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, device.Name)
		})
	}
}

func TestInputDeviceErrors(t *testing.T) {
	fakeDevices(t, nil, errors.New("host error"))

	_, err := InputDevice(config.MixConfig{Device: config.MinDeviceID, Channels: 1})
	assert.ErrorContains(t, err, "no default input device: host error")

	_, err = InputDevice(config.MixConfig{Device: 0, Channels: 1})
	assert.ErrorContains(t, err, "host error")
}

func TestInitializeTerminate(t *testing.T) {
	origInit, origTerm := paLibInitialize, paLibTerminate
	t.Cleanup(func() { paLibInitialize, paLibTerminate = origInit, origTerm })

	paLibInitialize = func() error { return nil }
	paLibTerminate = func() error { return nil }
	assert.NoError(t, Initialize())
	assert.NoError(t, Terminate())

	paLibInitialize = func() error { return errors.New("no backend") }
	paLibTerminate = func() error { return errors.New("busy") }
	assert.ErrorContains(t, Initialize(), "failed to initialize PortAudio: no backend")
	assert.ErrorContains(t, Terminate(), "failed to terminate PortAudio: busy")
}

func TestListDevices(t *testing.T) {
	fakeDevices(t, []*portaudio.DeviceInfo{testMic, testSpeakers}, nil)

	var buf bytes.Buffer
	require.NoError(t, ListDevices(&buf))
	out := buf.String()
	assert.Contains(t, out, "Mic")
	assert.Contains(t, out, "Speakers")
	assert.Contains(t, out, "48000 Hz")
	assert.Contains(t, out, "5.00-20.00 ms")
	assert.Contains(t, out, "ALSA")
}

func TestListDevicesError(t *testing.T) {
	fakeDevices(t, nil, errors.New("host error"))
	assert.Error(t, ListDevices(&bytes.Buffer{}))
}

func TestDeviceKind(t *testing.T) {
	assert.Equal(t, "Input/Output", Device{MaxInputChannels: 1, MaxOutputChannels: 1}.Kind())
	assert.Equal(t, "Input", Device{MaxInputChannels: 1}.Kind())
	assert.Equal(t, "Output", Device{MaxOutputChannels: 1}.Kind())
	assert.Equal(t, "Unavailable", Device{}.Kind())
}
