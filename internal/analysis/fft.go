// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer performs windowed FFT analysis of fixed-size sample batches.
// It caches one FFT plan and its work buffers for the most recent length,
// so it must not be shared between goroutines without external locking.
type Analyzer struct {
	plan  *fourier.FFT
	input []float64    // Windowed input signal.
	coeff []complex128 // N/2+1 FFT coefficients.
}

// Analyze multiplies samples by window, transforms them and returns the
// normalized half spectrum of length len(samples)/2. Each bin is
// sqrt(|X_k| * 4 / N). The returned slice is freshly allocated and owned by
// the caller.
//
// Analyze panics if len(samples) != len(window).
func (a *Analyzer) Analyze(samples []float32, window []float64) []float32 {
	n := len(samples)
	if n != len(window) {
		panic(fmt.Sprintf("analysis: %d samples do not match window of length %d", n, len(window)))
	}

	spectrum := make([]float32, n/2)
	if len(spectrum) == 0 {
		return spectrum
	}

	a.reset(n)

	// --- 1. Windowing ---
	for i, s := range samples {
		a.input[i] = float64(s) * window[i]
	}

	// --- 2. Forward transform ---
	a.plan.Coefficients(a.coeff, a.input)

	// --- 3. Nyquist truncation and normalization ---
	scale := 4 / float64(n)
	for k := range spectrum {
		spectrum[k] = float32(math.Sqrt(cmplx.Abs(a.coeff[k]) * scale))
	}

	return spectrum
}

// Size returns the length of the cached plan, or 0 before the first analysis.
func (a *Analyzer) Size() int {
	if a.plan == nil {
		return 0
	}
	return a.plan.Len()
}

func (a *Analyzer) reset(n int) {
	if a.plan != nil && a.plan.Len() == n {
		return
	}
	a.plan = fourier.NewFFT(n)
	a.input = make([]float64, n)
	a.coeff = make([]complex128, n/2+1)
}

// BinFrequency returns the center frequency (Hz) of spectrum bin k for a
// frame of frameSize samples captured at sampleRate.
func BinFrequency(k, frameSize int, sampleRate float64) float64 {
	if frameSize <= 0 {
		return 0
	}
	return float64(k) * sampleRate / float64(frameSize)
}
