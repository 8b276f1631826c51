// SPDX-License-Identifier: MIT
package effect

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"shaderfx/internal/analysis"
	"shaderfx/internal/fft"
	"shaderfx/internal/log"
)

//go:embed template.effect
var effectTemplate string

const shaderPlaceholder = "__SHADER__"

// Builtin uniform names driven by the filter rather than by properties.
const (
	BuiltinViewProj            = "ViewProj"
	BuiltinImage               = "image"
	BuiltinElapsedTime         = "elapsed_time"
	BuiltinElapsedTimePrevious = "elapsed_time_previous"
	BuiltinFrame               = "frame"
	BuiltinFramerate           = "framerate"
	BuiltinUVSize              = "uv_size"
)

var builtinNames = []string{
	BuiltinViewProj,
	BuiltinImage,
	BuiltinElapsedTime,
	BuiltinElapsedTimePrevious,
	BuiltinFrame,
	BuiltinFramerate,
	BuiltinUVSize,
}

var (
	fftPattern      = regexp.MustCompile(`^builtin_texture_fft_(?P<field>\w+)$`)
	previousPattern = regexp.MustCompile(`^.*_previous$`)
)

// Environment is what an effect needs from the filter hosting it.
type Environment struct {
	Registry      *fft.Registry
	Settings      Settings
	DefaultWindow analysis.WindowKind
}

// Builtins are the per-tick values of the builtin uniforms.
type Builtins struct {
	ElapsedTime         float32
	ElapsedTimePrevious float32
	Frame               int32
	Framerate           float32
	UVSize              [2]int32
}

// Effect is a compiled shader with its uniform bindings.
type Effect struct {
	source     string
	directives Directives
	declared   map[string]bool
	bindings   []Binding

	elapsedTime         slot[float32]
	elapsedTimePrevious slot[float32]
	frame               slot[int32]
	framerate           slot[float32]
	uvSize              slot[[2]int32]
}

// Load reads the shader at path and compiles it.
func Load(path string, env Environment) (*Effect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader not found at %q: %w", path, err)
	}
	return Compile(string(data), env)
}

// Compose inserts shader into the effect template.
func Compose(shader string) string {
	return strings.Replace(effectTemplate, shaderPlaceholder, shader, 1)
}

// Compile builds the bindings of shader. On error every binding created so
// far is released.
func Compile(shader string, env Environment) (*Effect, error) {
	if env.Registry == nil {
		return nil, errors.New("effect: environment has no FFT registry")
	}
	source, directives := Preprocess(Compose(shader))

	e := &Effect{
		source:     source,
		directives: directives,
		declared:   make(map[string]bool),
	}

	uniforms := DiscoverUniforms(source)
	custom := make(map[string]Uniform, len(uniforms))
	for _, u := range uniforms {
		if slices.Contains(builtinNames, u.Name) {
			e.declared[u.Name] = true
			continue
		}
		custom[u.Name] = u
	}

	type indexed struct {
		index   int
		binding Binding
	}
	var bound []indexed
	fail := func(err error) (*Effect, error) {
		for _, b := range bound {
			b.binding.Release()
		}
		return nil, err
	}

	for _, u := range uniforms {
		m := fftPattern.FindStringSubmatch(u.Name)
		if m == nil {
			continue
		}
		field := m[fftPattern.SubexpIndex("field")]
		if previousPattern.MatchString(field) {
			continue
		}
		if _, ok := custom[u.Name]; !ok {
			continue
		}
		delete(custom, u.Name)

		var previous *Uniform
		if p, ok := custom[u.Name+"_previous"]; ok {
			delete(custom, p.Name)
			previous = &p
		}

		if u.Type != TypeTexture || (previous != nil && previous.Type != TypeTexture) {
			return fail(fmt.Errorf("binding effect uniform: builtin field `%s` must be of type `%s`", field, "texture2d"))
		}

		b, err := newFFTBinding(u, previous, field, env, directives)
		if err != nil {
			return fail(fmt.Errorf("binding effect uniform: %w", err))
		}
		bound = append(bound, indexed{u.Index, b})
	}

	for _, u := range uniforms {
		if _, ok := custom[u.Name]; !ok {
			continue
		}
		b, err := newCustomBinding(u, directives, env.Settings)
		if err != nil {
			return fail(fmt.Errorf("binding effect uniform `%s`: %w", u.Name, err))
		}
		bound = append(bound, indexed{u.Index, b})
	}

	// Properties keep their declaration order.
	slices.SortFunc(bound, func(a, b indexed) int { return a.index - b.index })
	e.bindings = make([]Binding, len(bound))
	for i, b := range bound {
		e.bindings[i] = b.binding
	}

	log.Debugf("effect: compiled with %d binding(s) and %d directive(s)", len(e.bindings), len(directives))
	return e, nil
}

func newCustomBinding(u Uniform, dirs Directives, settings Settings) (Binding, error) {
	switch u.Type {
	case TypeBool:
		return newBoolBinding(u, dirs, settings)
	case TypeInt:
		return newIntBinding(u, dirs, settings)
	case TypeFloat:
		return newFloatBinding(u, dirs, settings)
	case TypeVec4:
		return newColorBinding(u, dirs, settings)
	case TypeVec2, TypeVec3, TypeIVec2, TypeIVec3, TypeIVec4, TypeMat4:
		return nil, fmt.Errorf("%w: multi-component types are not supported as effect params", ErrUnsupportedType)
	case TypeString:
		return nil, fmt.Errorf("%w: strings are not supported as effect params", ErrUnsupportedType)
	case TypeTexture:
		return nil, fmt.Errorf("%w: textures are not supported as effect params", ErrUnsupportedType)
	default:
		return nil, fmt.Errorf("%w: unknown uniform type, effect params need HLSL type names", ErrUnsupportedType)
	}
}

// Source returns the composed effect source with pragmas removed.
func (e *Effect) Source() string { return e.source }

// Directives returns the pragmas found in the shader.
func (e *Effect) Directives() Directives { return e.directives }

// Bindings returns the custom bindings in declaration order.
func (e *Effect) Bindings() []Binding { return e.bindings }

// Properties lists every user editable property in declaration order.
func (e *Effect) Properties() []Property {
	var props []Property
	for _, b := range e.bindings {
		props = append(props, b.Properties()...)
	}
	return props
}

// Descriptors lists the analysis pipelines the effect reads.
func (e *Effect) Descriptors() []fft.Descriptor {
	var ds []fft.Descriptor
	for _, b := range e.bindings {
		if f, ok := b.(*fftBinding); ok {
			ds = append(ds, f.Descriptor())
		}
	}
	return ds
}

// Tick prepares the values of one video tick.
func (e *Effect) Tick(b Builtins) {
	e.elapsedTime.prepare(b.ElapsedTime)
	e.elapsedTimePrevious.prepare(b.ElapsedTimePrevious)
	e.frame.prepare(b.Frame)
	e.framerate.prepare(b.Framerate)
	e.uvSize.prepare(b.UVSize)

	for _, binding := range e.bindings {
		binding.Prepare()
	}
}

// Render stages prepared values and assigns everything staged to r.
func (e *Effect) Render(r Renderer) {
	e.elapsedTime.stage()
	e.elapsedTimePrevious.stage()
	e.frame.stage()
	e.framerate.stage()
	e.uvSize.stage()
	for _, b := range e.bindings {
		b.Stage()
	}

	assignBuiltin(e, r, BuiltinElapsedTime, &e.elapsedTime, Renderer.SetFloat)
	assignBuiltin(e, r, BuiltinElapsedTimePrevious, &e.elapsedTimePrevious, Renderer.SetFloat)
	assignBuiltin(e, r, BuiltinFrame, &e.frame, Renderer.SetInt)
	assignBuiltin(e, r, BuiltinFramerate, &e.framerate, Renderer.SetFloat)
	assignBuiltin(e, r, BuiltinUVSize, &e.uvSize, Renderer.SetIVec2)
	for _, b := range e.bindings {
		b.Assign(r)
	}
}

func assignBuiltin[T any](e *Effect, r Renderer, name string, s *slot[T], set func(Renderer, string, T)) {
	if !e.declared[name] {
		return
	}
	if v, ok := s.value(); ok {
		set(r, name, v)
	}
}

// Close releases every binding. The effect must not be used afterwards.
func (e *Effect) Close() {
	for _, b := range e.bindings {
		b.Release()
	}
	e.bindings = nil
}
