// SPDX-License-Identifier: MIT

// Package filter hosts one shader effect: it drives the video tick, feeds
// the builtin uniforms, renders into a Sink and rebuilds the effect when the
// shader changes.
package filter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"shaderfx/internal/analysis"
	"shaderfx/internal/effect"
	"shaderfx/internal/fft"
	"shaderfx/internal/log"
)

// Sink receives the uniforms of each frame between Begin and End.
type Sink interface {
	effect.Renderer
	Begin(frame uint64, now time.Time)
	End() error
}

// Options configure a Filter.
type Options struct {
	ShaderPath    string
	Settings      effect.Settings
	DefaultWindow analysis.WindowKind
	FPS           float64
	Width         int
	Height        int
}

// Stats is a snapshot of the filter's counters.
type Stats struct {
	Frames         uint64
	Reloads        uint64
	FailedReloads  uint64
	SinkErrors     uint64
	LastReloadErr  error
	Bindings       int
	FFTDescriptors []fft.Descriptor
}

// Filter owns the current effect. Tick is called from a single goroutine,
// normally Run; Reload may be called from anywhere.
type Filter struct {
	opts     Options
	registry *fft.Registry
	sink     Sink

	reload atomic.Bool

	mu            sync.Mutex
	effect        *effect.Effect
	start         time.Time
	started       bool
	lastElapsed   float32
	frame         uint64
	reloads       uint64
	failedReloads uint64
	sinkErrors    uint64
	lastReloadErr error
}

// New loads the shader at opts.ShaderPath. Unlike a reload, a failing
// initial load is an error.
func New(opts Options, registry *fft.Registry, sink Sink) (*Filter, error) {
	if registry == nil {
		return nil, errors.New("filter: registry cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("filter: sink cannot be nil")
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("filter: invalid frame rate %v", opts.FPS)
	}

	f := &Filter{opts: opts, registry: registry, sink: sink}
	e, err := f.load()
	if err != nil {
		return nil, err
	}
	f.effect = e
	log.Infof("Filter: loaded %s with %d binding(s)", opts.ShaderPath, len(e.Bindings()))
	return f, nil
}

func (f *Filter) load() (*effect.Effect, error) {
	return effect.Load(f.opts.ShaderPath, effect.Environment{
		Registry:      f.registry,
		Settings:      f.opts.Settings,
		DefaultWindow: f.opts.DefaultWindow,
	})
}

// Reload asks for the shader to be rebuilt on the next tick.
func (f *Filter) Reload() {
	f.reload.Store(true)
}

// rebuild swaps in a freshly loaded effect. The new effect acquires its
// analysis components before the old one releases them, so unchanged FFT
// bindings keep their history. On failure the old effect stays.
func (f *Filter) rebuild() {
	e, err := f.load()
	f.reloads++
	if err != nil {
		f.failedReloads++
		f.lastReloadErr = err
		log.Errorf("Filter: reload of %s failed, keeping previous effect: %v", f.opts.ShaderPath, err)
		return
	}
	old := f.effect
	f.effect = e
	f.lastReloadErr = nil
	if old != nil {
		old.Close()
	}
	log.Infof("Filter: reloaded %s with %d binding(s)", f.opts.ShaderPath, len(e.Bindings()))
}

// Tick renders one video frame at now.
func (f *Filter) Tick(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reload.CompareAndSwap(true, false) {
		f.rebuild()
	}
	if f.effect == nil {
		return
	}
	if !f.started {
		f.start = now
		f.started = true
	}

	elapsed := float32(now.Sub(f.start).Seconds())
	f.effect.Tick(effect.Builtins{
		ElapsedTime:         elapsed,
		ElapsedTimePrevious: f.lastElapsed,
		Frame:               int32(f.frame),
		Framerate:           float32(f.opts.FPS),
		UVSize:              [2]int32{int32(f.opts.Width), int32(f.opts.Height)},
	})

	f.sink.Begin(f.frame, now)
	f.effect.Render(f.sink)
	if err := f.sink.End(); err != nil {
		f.sinkErrors++
		if f.sinkErrors == 1 {
			log.Warnf("Filter: frame %d not delivered: %v", f.frame, err)
		}
	}

	f.lastElapsed = elapsed
	f.frame++
}

// Run ticks at the configured frame rate until ctx is done.
func (f *Filter) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / f.opts.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("Filter: running at %.2f fps", f.opts.FPS)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			f.Tick(now)
		}
	}
}

// Properties returns the properties of the current effect.
func (f *Filter) Properties() []effect.Property {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.effect == nil {
		return nil
	}
	return f.effect.Properties()
}

func (f *Filter) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Stats{
		Frames:        f.frame,
		Reloads:       f.reloads,
		FailedReloads: f.failedReloads,
		SinkErrors:    f.sinkErrors,
		LastReloadErr: f.lastReloadErr,
	}
	if f.effect != nil {
		s.Bindings = len(f.effect.Bindings())
		s.FFTDescriptors = f.effect.Descriptors()
	}
	return s
}

// Close releases the effect and with it every analysis it holds.
func (f *Filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.effect != nil {
		f.effect.Close()
		f.effect = nil
	}
	return nil
}
