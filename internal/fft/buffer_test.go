// SPDX-License-Identifier: MIT
package fft

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(from, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(from + i)
	}
	return s
}

func TestSampleBufferFIFO(t *testing.T) {
	var b SampleBuffer
	b.Append(seq(0, 5))
	b.Append(seq(5, 5))
	assert.Equal(t, 10, b.Len())

	got := b.Drain(4, nil)
	assert.Equal(t, seq(0, 4), got)
	assert.Equal(t, 6, b.Len())

	b.Discard(2)
	assert.Equal(t, seq(6, 4), b.Drain(4, got))
	assert.Zero(t, b.Len())
}

func TestSampleBufferDiscardClamps(t *testing.T) {
	var b SampleBuffer
	b.Append(seq(0, 3))
	b.Discard(-1)
	assert.Equal(t, 3, b.Len())
	b.Discard(10)
	assert.Zero(t, b.Len())
}

func TestSampleBufferCompaction(t *testing.T) {
	var b SampleBuffer
	next := 0
	for range 100 {
		b.Append(seq(next, 300))
		next += 300
		b.Discard(250)
	}
	assert.Equal(t, 100*50, b.Len())
	assert.Equal(t, seq(next-b.Len(), 10), b.Drain(10, nil))
}

func TestSampleBufferDrainPanics(t *testing.T) {
	var b SampleBuffer
	b.Append(seq(0, 2))
	assert.Panics(t, func() { b.Drain(3, nil) })
}

func TestSampleBufferSteadyStateAllocs(t *testing.T) {
	var b SampleBuffer
	chunk := seq(0, 256)
	dst := make([]float32, 800)
	for range 8 {
		b.Append(chunk)
	}

	allocs := testing.AllocsPerRun(100, func() {
		b.Append(chunk)
		b.Append(chunk)
		b.Append(chunk)
		dst = b.Drain(768, dst)
	})
	if allocs > 0 {
		t.Errorf("SampleBuffer allocated in steady state: got %.1f allocs, want 0", allocs)
	}
}
