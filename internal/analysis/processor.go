// SPDX-License-Identifier: MIT
package analysis

// ResultProvider serves the latest analysis result on demand. Retrieving a
// result also requests the next one, so callers should poll at most once per
// video frame. ok is false until the first analysis completes.
type ResultProvider interface {
	RetrieveResult() (result Result, ok bool)
}
