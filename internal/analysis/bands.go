// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FrequencyBand names a frequency range of the spectrum.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range the way mixing engineers usually do.
// The treble band is open-ended and extends to Nyquist.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
}

// BandEnergies reduces spectrum to the RMS magnitude of every band. frameSize
// is the number of samples the spectrum was computed from. Bands that cover
// no bin report zero.
func BandEnergies(spectrum []float32, frameSize int, sampleRate float64, bands []FrequencyBand) []float64 {
	energies := make([]float64, len(bands))
	if len(spectrum) == 0 || frameSize <= 0 || sampleRate <= 0 {
		return energies
	}

	mags := toFloat64(spectrum)
	binWidth := sampleRate / float64(frameSize)

	for i, band := range bands {
		lo := max(0, int(math.Ceil(band.LowHz/binWidth)))
		hi := len(mags)
		if !math.IsInf(band.HighHz, 1) {
			hi = min(len(mags), int(math.Ceil(band.HighHz/binWidth)))
		}
		if lo >= hi {
			continue
		}
		seg := mags[lo:hi]
		energies[i] = math.Sqrt(floats.Dot(seg, seg) / float64(len(seg)))
	}
	return energies
}

// PeakBin returns the index and value of the strongest bin, or -1 for an
// empty spectrum.
func PeakBin(spectrum []float32) (int, float32) {
	if len(spectrum) == 0 {
		return -1, 0
	}
	idx := floats.MaxIdx(toFloat64(spectrum))
	return idx, spectrum[idx]
}

func toFloat64(s []float32) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}
