// SPDX-License-Identifier: MIT
package fft

import "shaderfx/pkg/bitint"

// SampleBuffer is a FIFO of mono samples. Appends go to the tail, reads and
// discards come from the head. Storage is compacted lazily so steady-state
// operation does not allocate.
type SampleBuffer struct {
	data []float32
	head int
}

// Len returns the number of buffered samples.
func (b *SampleBuffer) Len() int {
	return len(b.data) - b.head
}

// Append copies samples to the tail.
func (b *SampleBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	need := b.Len() + len(samples)
	if b.head > 0 && len(b.data)+len(samples) > cap(b.data) {
		b.compact()
	}
	if len(b.data)+len(samples) > cap(b.data) {
		grown := make([]float32, len(b.data), bitint.NextPowerOfTwo(need))
		copy(grown, b.data)
		b.data = grown
	}
	b.data = append(b.data, samples...)
}

// Discard drops up to n samples from the head.
func (b *SampleBuffer) Discard(n int) {
	b.head += min(max(n, 0), b.Len())
	if b.head == len(b.data) {
		b.data = b.data[:0]
		b.head = 0
	}
}

// Drain moves n samples from the head into dst, which is grown if needed,
// and returns it. Drain panics if fewer than n samples are buffered.
func (b *SampleBuffer) Drain(n int, dst []float32) []float32 {
	if n > b.Len() {
		panic("fft: drain beyond buffered samples")
	}
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	copy(dst, b.data[b.head:b.head+n])
	b.Discard(n)
	return dst
}

// Reset empties the buffer and releases its storage.
func (b *SampleBuffer) Reset() {
	b.data = nil
	b.head = 0
}

func (b *SampleBuffer) compact() {
	n := copy(b.data, b.data[b.head:])
	b.data = b.data[:n]
	b.head = 0
}
