// SPDX-License-Identifier: MIT

// Package render turns the uniform assignments of an effect into frames for
// the transports. It stands in for the GPU: nothing is rasterized.
package render

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"shaderfx/internal/effect"
	"shaderfx/internal/transport"
	"shaderfx/internal/transport/udp"
)

// FrameRenderer collects the uniforms assigned between Begin and End into a
// Frame and sends it to a transport. The most recent spectra are kept for
// the UDP publisher, which reads them from its own goroutine.
type FrameRenderer struct {
	out transport.Transport

	current *Frame // Only touched by the video tick.

	mu      sync.RWMutex
	latest  *Frame
	spectra []udp.Spectrum

	frames atomic.Uint64
}

// NewFrameRenderer sends finished frames to out. A nil out only keeps the
// latest frame.
func NewFrameRenderer(out transport.Transport) *FrameRenderer {
	return &FrameRenderer{out: out}
}

// Begin starts frame n.
func (r *FrameRenderer) Begin(n uint64, now time.Time) {
	r.current = newFrame(n, now)
}

// frame returns the frame being built, starting one if Begin was skipped.
func (r *FrameRenderer) frame() *Frame {
	if r.current == nil {
		r.current = newFrame(r.frames.Load(), time.Now())
	}
	return r.current
}

func (r *FrameRenderer) SetBool(name string, v bool) {
	r.frame().Uniforms[name] = v
}

func (r *FrameRenderer) SetInt(name string, v int32) {
	r.frame().Uniforms[name] = v
}

func (r *FrameRenderer) SetFloat(name string, v float32) {
	r.frame().Uniforms[name] = finite(v)
}

func (r *FrameRenderer) SetIVec2(name string, v [2]int32) {
	r.frame().Uniforms[name] = v
}

func (r *FrameRenderer) SetColor(name string, v effect.Color) {
	for i := range v {
		v[i] = finite(v[i])
	}
	r.frame().Uniforms[name] = v
}

func (r *FrameRenderer) SetTexture(name string, t *effect.Texture) {
	if t == nil {
		return
	}
	r.frame().Textures[name] = textureData(t)
}

// End publishes the frame built since Begin. The transport's error is
// returned; the frame is kept as latest either way.
func (r *FrameRenderer) End() error {
	f := r.frame()
	r.current = nil
	r.frames.Add(1)

	spectra := make([]udp.Spectrum, 0, len(f.Textures))
	for name, td := range f.Textures {
		if td.Values != nil {
			spectra = append(spectra, udp.Spectrum{Name: name, Values: td.Values})
		}
	}
	slices.SortFunc(spectra, func(a, b udp.Spectrum) int { return strings.Compare(a.Name, b.Name) })

	r.mu.Lock()
	r.latest = f
	r.spectra = spectra
	r.mu.Unlock()

	if r.out == nil {
		return nil
	}
	return r.out.Send(f)
}

// Latest returns the last finished frame, or nil before the first End. The
// frame must not be modified.
func (r *FrameRenderer) Latest() *Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Frames returns the number of finished frames.
func (r *FrameRenderer) Frames() uint64 {
	return r.frames.Load()
}

// Spectra returns the FFT textures of the last finished frame.
func (r *FrameRenderer) Spectra() []udp.Spectrum {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.spectra
}

var (
	_ effect.Renderer = (*FrameRenderer)(nil)
	_ udp.Source      = (*FrameRenderer)(nil)
)
