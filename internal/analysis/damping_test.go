// SPDX-License-Identifier: MIT
package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func prevResult(spectrum ...float32) *Result {
	return &Result{BatchNumber: 3, Spectrum: spectrum, Timestamp: time.Unix(0, 0)}
}

func TestDampenPassThrough(t *testing.T) {
	tests := []struct {
		name            string
		prev            *Result
		attack, release float64
	}{
		{"zero factors", prevResult(9, 9, 9), 0, 0},
		{"no previous result", nil, 0.5, 0.5},
		{"length changed", prevResult(9, 9), 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []float32{1, 2, 3}
			out := Dampen(raw, tt.prev, 1, tt.attack, tt.release)
			assert.Equal(t, []float32{1, 2, 3}, out)
		})
	}
}

func TestDampenFullRetention(t *testing.T) {
	prev := prevResult(0.25, 4, 1)
	for _, elapsed := range []float64{0.5, 1, 7.3} {
		out := Dampen([]float32{1, 2, 3}, prev, elapsed, 1, 1)
		assert.Equal(t, prev.Spectrum, out, "elapsed=%v", elapsed)
	}
}

func TestDampenAttackRelease(t *testing.T) {
	prev := prevResult(1, 1)
	// Bin 0 rises, bin 1 falls.
	raw := []float32{3, 0}

	out := Dampen(raw, prev, 1, 0, 0.5)
	assert.InDelta(t, 3, out[0], 1e-6, "attack of 0 follows instantly")
	assert.InDelta(t, 0.5, out[1], 1e-6, "release of 0.5 keeps half")

	out = Dampen([]float32{3, 0}, prev, 1, 0.5, 0)
	assert.InDelta(t, 2, out[0], 1e-6)
	assert.InDelta(t, 0, out[1], 1e-6)
}

func TestDampenFrameRateIndependent(t *testing.T) {
	prev := prevResult(1)
	// Two frames at factor f equal one step at f^2.
	out := Dampen([]float32{0}, prev, 2, 0.5, 0.5)
	assert.InDelta(t, 0.25, out[0], 1e-6)

	step := Dampen([]float32{0}, prev, 1, 0.5, 0.5)
	twice := Dampen([]float32{0}, &Result{Spectrum: step}, 1, 0.5, 0.5)
	assert.InDelta(t, out[0], twice[0], 1e-6)
}

func TestDampenEqualValuesUseRelease(t *testing.T) {
	prev := prevResult(2)
	out := Dampen([]float32{2}, prev, 1, 0.9, 0.1)
	assert.InDelta(t, 2, out[0], 1e-6)
}
