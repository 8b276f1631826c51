// SPDX-License-Identifier: MIT
package effect

// Renderer receives uniform values for one rendered frame. Implementations
// decide what a frame is: a GPU draw, a network message or a test recorder.
type Renderer interface {
	SetBool(name string, v bool)
	SetInt(name string, v int32)
	SetFloat(name string, v float32)
	SetIVec2(name string, v [2]int32)
	SetColor(name string, v Color)
	SetTexture(name string, t *Texture)
}

// slot holds a value through its prepare, stage and assign steps. Prepare
// may run many times between renders; only the last prepared value is staged.
type slot[T any] struct {
	prepared    T
	hasPrepared bool
	staged      T
	hasStaged   bool
}

func (s *slot[T]) prepare(v T) {
	s.prepared = v
	s.hasPrepared = true
}

// stage promotes the prepared value. It reports whether the staged value changed.
func (s *slot[T]) stage() bool {
	if !s.hasPrepared {
		return false
	}
	s.staged = s.prepared
	s.hasStaged = true
	var zero T
	s.prepared = zero
	s.hasPrepared = false
	return true
}

// value returns the staged value, if any.
func (s *slot[T]) value() (T, bool) {
	return s.staged, s.hasStaged
}

func (s *slot[T]) reset() {
	*s = slot[T]{}
}
