// SPDX-License-Identifier: MIT

// Package utils holds signal generators and fakes shared by tests across the
// module.
package utils

import (
	"math"
	"sync"
)

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// GenerateBinSine returns a sine that lands exactly on FFT bin k of a size
// point transform, which avoids spectral leakage in amplitude checks.
func GenerateBinSine(size, k int, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*float64(k)*float64(i)/float64(size)))
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float32, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(magnitudes)-1)

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}

// MockTransport records everything sent through it instead of transmitting.
// Send returns Err after recording the payload.
type MockTransport struct {
	Err error

	mu     sync.Mutex
	sent   []any
	closed bool
}

func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return m.Err
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of every payload sent so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.sent...)
}

func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
