// SPDX-License-Identifier: MIT
package analysis

import "math"

// Dampen smooths raw against the spectrum of prev, bin by bin. The blend
// weight is attack^elapsedFrames when the raw value rises above the previous
// one and release^elapsedFrames otherwise, clamped to [0, 1]:
//
//	out = mult*previous + (1-mult)*raw
//
// raw is returned untouched when both factors are zero, when there is no
// previous result or when the spectrum length changed. Otherwise raw is
// overwritten in place and returned.
func Dampen(raw []float32, prev *Result, elapsedFrames, attack, release float64) []float32 {
	if attack == 0 && release == 0 {
		return raw
	}
	if prev == nil || len(prev.Spectrum) != len(raw) {
		return raw
	}

	attackMult := clamp01(math.Pow(attack, elapsedFrames))
	releaseMult := clamp01(math.Pow(release, elapsedFrames))

	for i, v := range raw {
		old := float64(prev.Spectrum[i])
		mult := releaseMult
		if float64(v) > old {
			mult = attackMult
		}
		raw[i] = float32(mult*old + (1-mult)*float64(v))
	}
	return raw
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
