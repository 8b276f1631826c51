// SPDX-License-Identifier: MIT
package analysis

import "time"

// Result is one completed spectral analysis. Results are shared between
// consumers and must be treated as read-only, Spectrum included.
type Result struct {
	BatchNumber uint64
	Spectrum    []float32 // len = frame size / 2
	Timestamp   time.Time
}
