// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowType selects an apodization function applied before the FFT.
type WindowType int

const (
	WindowNone WindowType = iota
	WindowBlackman
	WindowCosine
	WindowHamming
	WindowHanning
	WindowNuttall
	WindowTriangular
)

// WindowKind is a window type together with the coefficients used by
// WindowCosine. The coefficients are ignored by every other type.
// WindowKind is comparable and may be used as part of a map key.
type WindowKind struct {
	Type       WindowType
	A, B, C, D float64
}

var (
	None       = WindowKind{Type: WindowNone}
	Blackman   = WindowKind{Type: WindowBlackman}
	Hamming    = WindowKind{Type: WindowHamming}
	Hanning    = WindowKind{Type: WindowHanning}
	Nuttall    = WindowKind{Type: WindowNuttall}
	Triangular = WindowKind{Type: WindowTriangular}
)

// Cosine returns a generalized cosine window
// w(n) = a - b*cos(2πn/(N-1)) + c*cos(4πn/(N-1)) - d*cos(6πn/(N-1)).
func Cosine(a, b, c, d float64) WindowKind {
	return WindowKind{Type: WindowCosine, A: a, B: b, C: c, D: d}
}

func (k WindowKind) String() string {
	switch k.Type {
	case WindowNone:
		return "none"
	case WindowBlackman:
		return "blackman"
	case WindowCosine:
		return fmt.Sprintf("cosine(%g,%g,%g,%g)", k.A, k.B, k.C, k.D)
	case WindowHamming:
		return "hamming"
	case WindowHanning:
		return "hanning"
	case WindowNuttall:
		return "nuttall"
	case WindowTriangular:
		return "triangular"
	default:
		return fmt.Sprintf("window(%d)", int(k.Type))
	}
}

// ParseWindowKind converts a name (case-insensitive) to a WindowKind.
// The cosine window takes its four coefficients inline: "cosine(0.5,0.5,0,0)".
// Returns Hanning and an error if the name is unknown.
func ParseWindowKind(name string) (WindowKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "none", "rectangular":
		return None, nil
	case "blackman":
		return Blackman, nil
	case "hamming":
		return Hamming, nil
	case "hann", "hanning":
		return Hanning, nil
	case "nuttall":
		return Nuttall, nil
	case "triangular", "bartlett":
		return Triangular, nil
	}

	if args, ok := strings.CutPrefix(name, "cosine("); ok && strings.HasSuffix(args, ")") {
		fields := strings.Split(strings.TrimSuffix(args, ")"), ",")
		if len(fields) != 4 {
			return Hanning, fmt.Errorf("cosine window needs 4 coefficients, got %d", len(fields))
		}
		var c [4]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return Hanning, fmt.Errorf("invalid cosine window coefficient %q: %w", f, err)
			}
			c[i] = v
		}
		return Cosine(c[0], c[1], c[2], c[3]), nil
	}

	return Hanning, fmt.Errorf("unknown FFT window function name: '%s'", name)
}

// Generate returns n window coefficients for kind. A length of zero yields an
// empty slice and a length of one yields [1]. Coefficients of the named
// standard windows lie in [0, 1].
func Generate(kind WindowKind, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}

	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	// The closed forms divide by N-1.
	if n == 1 || kind.Type == WindowNone {
		return coeffs
	}

	switch kind.Type {
	case WindowBlackman:
		window.Blackman(coeffs)
	case WindowHamming:
		window.Hamming(coeffs)
	case WindowHanning:
		window.Hann(coeffs)
	case WindowNuttall:
		window.Nuttall(coeffs)
	case WindowTriangular:
		window.Triangular(coeffs)
	case WindowCosine:
		generalizedCosine(coeffs, kind.A, kind.B, kind.C, kind.D)
		return coeffs
	}

	// Blackman evaluates to about -1.4e-17 at the edges.
	for i, c := range coeffs {
		coeffs[i] = math.Min(1, math.Max(0, c))
	}
	return coeffs
}

func generalizedCosine(coeffs []float64, a, b, c, d float64) {
	k := 2 * math.Pi / float64(len(coeffs)-1)
	for i := range coeffs {
		x := k * float64(i)
		coeffs[i] = a - b*math.Cos(x) + c*math.Cos(2*x) - d*math.Cos(3*x)
	}
}
