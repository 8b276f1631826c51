// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

const signMask = 1 << 31

// gate squelches chunks whose peak stays at or below the threshold. It is
// read on the audio thread and configured from anywhere else.
type gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint32 // math.Float32bits of the peak threshold
}

// open reports whether samples should pass. A disabled gate always passes.
func (g *gate) open(samples []float32) bool {
	if !g.enabled.Load() {
		return true
	}
	limit := g.threshold.Load()
	for _, s := range samples {
		// Clearing the sign bit gives |s|, and for non-negative floats the
		// bit patterns order the same way as the values.
		if math.Float32bits(s)&^signMask > limit {
			return true
		}
	}
	return false
}

func (e *Engine) EnableGate() {
	e.gate.enabled.Store(true)
}

func (e *Engine) DisableGate() {
	e.gate.enabled.Store(false)
}

// GateEnabled reports whether the noise gate is active.
func (e *Engine) GateEnabled() bool {
	return e.gate.enabled.Load()
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	e.gate.threshold.Store(math.Float32bits(float32(threshold)))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) GetGateThreshold() float64 {
	return float64(math.Float32frombits(e.gate.threshold.Load()))
}
