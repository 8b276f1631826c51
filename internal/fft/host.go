// SPDX-License-Identifier: MIT
package fft

import "math"

// SampleFormat describes how a chunk of audio is laid out.
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatPlanarF32
	FormatInterleavedF32
	FormatPlanarS16
	FormatInterleavedS16
)

func (f SampleFormat) String() string {
	switch f {
	case FormatPlanarF32:
		return "planar f32"
	case FormatInterleavedF32:
		return "interleaved f32"
	case FormatPlanarS16:
		return "planar s16"
	case FormatInterleavedS16:
		return "interleaved s16"
	default:
		return "unknown"
	}
}

// AudioData is one chunk delivered by the host. For FormatPlanarF32, Planes
// holds one slice per channel with samples normalized to [-1, 1]. The slices
// are only valid for the duration of the callback.
type AudioData struct {
	Format SampleFormat
	Planes [][]float32
}

// Channel returns the samples of channel i, or false if the chunk does not
// carry that channel.
func (d AudioData) Channel(i uint) ([]float32, bool) {
	if i >= uint(len(d.Planes)) {
		return nil, false
	}
	return d.Planes[i], true
}

// AudioCallback receives audio chunks on the host's audio thread.
type AudioCallback func(AudioData)

// Output is a live subscription to one audio mix.
type Output interface {
	// Disconnect stops delivery. No callback runs after it returns.
	Disconnect() error
}

// Host is the audio and video environment analysis runs in.
type Host interface {
	// ConnectOutput subscribes cb to the audio of mix.
	ConnectOutput(mix uint, cb AudioCallback) (Output, error)
	// SampleRate returns the current audio sample rate in Hz.
	SampleRate() float64
	// FrameRate returns the current video frame rate in frames per second.
	FrameRate() float64
}

// FrameSampleCount returns the number of audio samples per video frame, or 0
// if either rate is not positive.
func FrameSampleCount(sampleRate, frameRate float64) int {
	if sampleRate <= 0 || frameRate <= 0 || math.IsInf(frameRate, 0) {
		return 0
	}
	return int(math.Round(sampleRate / frameRate))
}
