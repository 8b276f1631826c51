// SPDX-License-Identifier: MIT
package analysis

import "math"

// OnsetDetector flags sudden energy increases such as kick drum hits. It
// compares the RMS energy of each frame against the previous frame.
type OnsetDetector struct {
	threshold      float64 // Minimum RMS energy for an onset.
	minEnergyRatio float64 // Minimum increase over the previous frame.
	lastEnergy     float64
}

func NewOnsetDetector(threshold, minEnergyRatio float64) *OnsetDetector {
	return &OnsetDetector{threshold: threshold, minEnergyRatio: minEnergyRatio}
}

// Detect consumes one frame and reports whether it starts an onset.
func (d *OnsetDetector) Detect(frame []float32) bool {
	energy := RMS(frame)
	onset := energy > d.threshold &&
		(d.lastEnergy == 0 || energy/d.lastEnergy > d.minEnergyRatio)
	d.lastEnergy = energy
	return onset
}

// RMS returns the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquare float64
	for _, s := range samples {
		sumSquare += float64(s) * float64(s)
	}
	return math.Sqrt(sumSquare / float64(len(samples)))
}
