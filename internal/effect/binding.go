// SPDX-License-Identifier: MIT
package effect

import (
	"shaderfx/internal/analysis"
	"shaderfx/internal/fft"
	"shaderfx/internal/log"
)

// Kind enumerates the closed set of uniform bindings.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
	KindColor
	KindFFT
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindColor:
		return "color"
	case KindFFT:
		return "fft"
	default:
		return "unknown"
	}
}

// Binding connects one uniform to its properties. Each video tick calls
// Prepare, each render calls Stage then Assign, and Release tears it down.
// The set of implementations is closed to this package.
type Binding interface {
	Kind() Kind
	Name() string
	Properties() []Property
	Prepare()
	Stage()
	Assign(r Renderer)
	Release()

	sealed()
}

// valueBinding is a uniform whose value is fixed once properties are loaded.
type valueBinding[T any] struct {
	kind   Kind
	name   string
	props  []Property
	value  slot[T]
	assign func(r Renderer, name string, v T)
}

func newValueBinding[T any](kind Kind, name string, prop *Property, v T, assign func(Renderer, string, T)) *valueBinding[T] {
	b := &valueBinding[T]{kind: kind, name: name, assign: assign}
	if prop != nil {
		b.props = []Property{*prop}
	}
	b.value.prepare(v)
	return b
}

func (b *valueBinding[T]) Kind() Kind             { return b.kind }
func (b *valueBinding[T]) Name() string           { return b.name }
func (b *valueBinding[T]) Properties() []Property { return b.props }
func (b *valueBinding[T]) Prepare()               {}
func (b *valueBinding[T]) Stage()                 { b.value.stage() }
func (b *valueBinding[T]) Release()               { b.value.reset() }
func (b *valueBinding[T]) sealed()                {}

func (b *valueBinding[T]) Assign(r Renderer) {
	if v, ok := b.value.value(); ok {
		b.assign(r, b.name, v)
	}
}

// Value returns the loaded value.
func (b *valueBinding[T]) Value() T {
	if v, ok := b.value.value(); ok {
		return v
	}
	return b.value.prepared
}

func newBoolBinding(u Uniform, dirs Directives, settings Settings) (Binding, error) {
	def := false
	if u.HasDefault() {
		if v, err := boolCodec.parse(u.Default); err == nil {
			def = v
		}
	}
	v, prop, err := loadProperty(u.Name, boolCodec, propertyArgs[bool]{allowSource: true, defaultValue: def}, dirs, settings)
	if err != nil {
		return nil, err
	}
	return newValueBinding(KindBool, u.Name, prop, v, Renderer.SetBool), nil
}

func newIntBinding(u Uniform, dirs Directives, settings Settings) (Binding, error) {
	var def int32
	if u.HasDefault() {
		if v, err := intCodec.parse(u.Default); err == nil {
			def = v
		}
	}
	v, prop, err := loadProperty(u.Name, intCodec, propertyArgs[int32]{allowSource: true, defaultValue: def, valueRange: intRange}, dirs, settings)
	if err != nil {
		return nil, err
	}
	return newValueBinding(KindInt, u.Name, prop, v, Renderer.SetInt), nil
}

func newFloatBinding(u Uniform, dirs Directives, settings Settings) (Binding, error) {
	var def float64
	if u.HasDefault() {
		if v, err := floatCodec.parse(u.Default); err == nil {
			def = v
		}
	}
	v, prop, err := loadProperty(u.Name, floatCodec, propertyArgs[float64]{allowSource: true, defaultValue: def, valueRange: floatRange}, dirs, settings)
	if err != nil {
		return nil, err
	}
	return newValueBinding(KindFloat, u.Name, prop, float32(v), Renderer.SetFloat), nil
}

func newColorBinding(u Uniform, dirs Directives, settings Settings) (Binding, error) {
	var def Color
	if u.HasDefault() {
		if v, err := ParseColor(u.Default); err == nil {
			def = v
		}
	}
	v, prop, err := loadProperty(u.Name, colorCodec, propertyArgs[Color]{allowSource: true, defaultValue: def}, dirs, settings)
	if err != nil {
		return nil, err
	}
	return newValueBinding(KindColor, u.Name, prop, v, Renderer.SetColor), nil
}

const (
	maxFFTMix     = 6
	maxFFTChannel = 2
)

// fftBinding feeds a spectrum texture, and optionally the one before it, to
// builtin_texture_fft_<field> uniforms.
type fftBinding struct {
	name         string
	previousName string // empty when the shader does not declare it
	field        string
	props        []Property
	handle       *fft.Handle

	current  slot[*Texture]
	previous slot[*Texture]
	latest   *Texture
	batch    uint64
	hasBatch bool
}

func newFFTBinding(main Uniform, previous *Uniform, field string, env Environment, dirs Directives) (*fftBinding, error) {
	id := main.Name
	var props []Property
	collect := func(p *Property) {
		if p != nil {
			props = append(props, *p)
		}
	}

	mix, prop, err := loadProperty(id+"__mix", intCodec, propertyArgs[int32]{
		defaultValue: 1,
		valueRange:   PropertyRange{Min: 1, Max: maxFFTMix, Step: 1},
	}, dirs, env.Settings)
	if err != nil {
		return nil, err
	}
	collect(prop)

	channel, prop, err := loadProperty(id+"__channel", intCodec, propertyArgs[int32]{
		defaultValue: 1,
		valueRange:   PropertyRange{Min: 1, Max: maxFFTChannel, Step: 1},
	}, dirs, env.Settings)
	if err != nil {
		return nil, err
	}
	collect(prop)

	percent := PropertyRange{Min: 0, Max: 100, Step: 0.1}
	attack, prop, err := loadProperty(id+"__dampening_factor_attack", floatCodec, propertyArgs[float64]{
		allowSource: true,
		valueRange:  percent,
	}, dirs, env.Settings)
	if err != nil {
		return nil, err
	}
	collect(prop)

	release, prop, err := loadProperty(id+"__dampening_factor_release", floatCodec, propertyArgs[float64]{
		allowSource: true,
		valueRange:  percent,
	}, dirs, env.Settings)
	if err != nil {
		return nil, err
	}
	collect(prop)

	window, prop, err := loadProperty(id+"__window", windowCodec, propertyArgs[analysis.WindowKind]{
		allowSource:  true,
		defaultValue: env.DefaultWindow,
	}, dirs, env.Settings)
	if err != nil {
		return nil, err
	}
	collect(prop)

	d := fft.NewDescriptor(uint(mix-1), uint(channel-1), attack, release, window)
	b := &fftBinding{
		name:   id,
		field:  field,
		props:  props,
		handle: env.Registry.Request(d),
	}
	if previous != nil {
		b.previousName = previous.Name
		b.previous.prepare(emptyTexture())
	}
	b.current.prepare(emptyTexture())
	log.Debugf("effect: bound %s to %s", id, d)
	return b, nil
}

func (b *fftBinding) Kind() Kind             { return KindFFT }
func (b *fftBinding) Name() string           { return b.name }
func (b *fftBinding) Properties() []Property { return b.props }
func (b *fftBinding) sealed()                {}

// Descriptor returns the analysis pipeline this binding reads.
func (b *fftBinding) Descriptor() fft.Descriptor {
	return b.handle.Descriptor()
}

// Prepare pulls the latest analysis. A new batch moves the current texture
// to the previous slot.
func (b *fftBinding) Prepare() {
	res, ok := b.handle.RetrieveResult()
	if !ok || (b.hasBatch && res.BatchNumber == b.batch) {
		return
	}
	b.batch, b.hasBatch = res.BatchNumber, true

	texture := NewSpectrumTexture(res.Spectrum)
	if b.previousName != "" && b.latest != nil {
		b.previous.prepare(b.latest)
	}
	b.latest = texture
	b.current.prepare(texture)
}

func (b *fftBinding) Stage() {
	b.current.stage()
	b.previous.stage()
}

func (b *fftBinding) Assign(r Renderer) {
	if t, ok := b.current.value(); ok {
		r.SetTexture(b.name, t)
	}
	if b.previousName == "" {
		return
	}
	if t, ok := b.previous.value(); ok {
		r.SetTexture(b.previousName, t)
	}
}

func (b *fftBinding) Release() {
	b.handle.Release()
	b.current.reset()
	b.previous.reset()
	b.latest = nil
}
