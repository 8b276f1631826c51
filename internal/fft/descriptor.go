// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"

	"shaderfx/internal/analysis"
)

// Descriptor identifies one shared analysis pipeline. Two descriptors are the
// same pipeline iff every field is equal; dampening factors compare by exact
// value, so 0.3 and 0.30000000000000004 are different pipelines.
type Descriptor struct {
	Mix     uint // 0-based audio mix index.
	Channel uint // 0-based channel within the mix.
	Attack  float64
	Release float64
	Window  analysis.WindowKind
}

// NewDescriptor builds a descriptor from attack/release percentages in
// [0, 100], the form used by shader directives and settings.
func NewDescriptor(mix, channel uint, attackPercent, releasePercent float64, window analysis.WindowKind) Descriptor {
	return Descriptor{
		Mix:     mix,
		Channel: channel,
		Attack:  PercentToFactor(attackPercent),
		Release: PercentToFactor(releasePercent),
		Window:  window,
	}
}

// PercentToFactor converts a percentage to a dampening factor in [0, 1].
func PercentToFactor(percent float64) float64 {
	if math.IsNaN(percent) {
		return 0
	}
	return math.Min(1, math.Max(0, percent/100))
}

func (d Descriptor) String() string {
	return fmt.Sprintf("mix=%d channel=%d attack=%g release=%g window=%s",
		d.Mix, d.Channel, d.Attack, d.Release, d.Window)
}

// descriptorKey is the registry map key. Floats are stored as bit patterns so
// the key stays comparable even for NaN; -0 is folded into +0.
type descriptorKey struct {
	mix, channel    uint
	attack, release uint64
	window          windowKey
}

type windowKey struct {
	typ        analysis.WindowType
	a, b, c, d uint64
}

func (d Descriptor) key() descriptorKey {
	return descriptorKey{
		mix:     d.Mix,
		channel: d.Channel,
		attack:  floatBits(d.Attack),
		release: floatBits(d.Release),
		window: windowKey{
			typ: d.Window.Type,
			a:   floatBits(d.Window.A),
			b:   floatBits(d.Window.B),
			c:   floatBits(d.Window.C),
			d:   floatBits(d.Window.D),
		},
	}
}

func floatBits(f float64) uint64 {
	if f == 0 {
		f = 0 // folds -0
	}
	return math.Float64bits(f)
}
