// SPDX-License-Identifier: MIT
package effect

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"shaderfx/internal/analysis"
)

var (
	// ErrHardcodedProperty is wrapped when a pragma sets a property that must
	// come from the settings.
	ErrHardcodedProperty = errors.New("property may not be hardcoded")
	// ErrUnsupportedType is wrapped when a uniform has no binding.
	ErrUnsupportedType = errors.New("unsupported uniform type")
)

// Settings are user supplied property values keyed by property name.
type Settings map[string]string

// PropertyKind selects the editor a property needs.
type PropertyKind int

const (
	PropertyBool PropertyKind = iota + 1
	PropertyInt
	PropertyFloat
	PropertyColor
	PropertyWindow
)

func (k PropertyKind) String() string {
	switch k {
	case PropertyBool:
		return "bool"
	case PropertyInt:
		return "int"
	case PropertyFloat:
		return "float"
	case PropertyColor:
		return "color"
	case PropertyWindow:
		return "window"
	default:
		return "unknown"
	}
}

// PropertyRange bounds numeric properties.
type PropertyRange struct {
	Min, Max, Step float64
	Slider         bool
}

// Property describes a user editable value and the value it was loaded with.
type Property struct {
	Name        string
	Description string
	Kind        PropertyKind
	Range       PropertyRange // numeric kinds only
	Default     string
	Value       string
}

var (
	intRange   = PropertyRange{Min: math.MinInt32, Max: math.MaxInt32, Step: 1}
	floatRange = PropertyRange{Min: -math.MaxFloat64, Max: math.MaxFloat64, Step: 0.1}
)

// codec converts one property value type to and from text.
type codec[T any] struct {
	kind     PropertyKind
	typeName string
	parse    func(string) (T, error)
	format   func(T) string
	clamp    func(T, PropertyRange) T // nil for non-numeric kinds
}

var (
	boolCodec = codec[bool]{
		kind:     PropertyBool,
		typeName: "bool",
		parse:    strconv.ParseBool,
		format:   strconv.FormatBool,
	}
	intCodec = codec[int32]{
		kind:     PropertyInt,
		typeName: "i32",
		parse: func(s string) (int32, error) {
			v, err := strconv.ParseInt(s, 10, 32)
			return int32(v), err
		},
		format: func(v int32) string { return strconv.FormatInt(int64(v), 10) },
		clamp: func(v int32, r PropertyRange) int32 {
			return int32(min(max(float64(v), r.Min), r.Max))
		},
	}
	floatCodec = codec[float64]{
		kind:     PropertyFloat,
		typeName: "f64",
		parse:    parseFloat,
		format:   func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
		clamp: func(v float64, r PropertyRange) float64 {
			return min(max(v, r.Min), r.Max)
		},
	}
	colorCodec = codec[Color]{
		kind:     PropertyColor,
		typeName: "color",
		parse:    ParseColor,
		format:   Color.String,
	}
	windowCodec = codec[analysis.WindowKind]{
		kind:     PropertyWindow,
		typeName: "window",
		parse:    analysis.ParseWindowKind,
		format:   analysis.WindowKind.String,
	}
	stringCodec = codec[string]{
		typeName: "string",
		parse:    func(s string) (string, error) { return s, nil },
		format:   func(s string) string { return s },
	}
)

// propertyArgs configures loadProperty.
type propertyArgs[T any] struct {
	allowSource  bool // pragmas may set the value or its default
	defaultValue T
	valueRange   PropertyRange
}

// loadProperty resolves the value of property id. In order of precedence:
//  1. a pragma setting id itself, which removes the property from the UI
//  2. the settings value
//  3. a pragma setting id__default
//  4. args.defaultValue
//
// The returned Property is nil for hardcoded values.
func loadProperty[T any](id string, c codec[T], args propertyArgs[T], dirs Directives, settings Settings) (T, *Property, error) {
	var zero T

	if v, ok, err := lookupParsed(dirs, id, c); ok {
		if !args.allowSource {
			return zero, nil, fmt.Errorf("%w: the value of property `%s` may not be hardcoded in the shader source", ErrHardcodedProperty, id)
		}
		return v, nil, err
	}

	defaultValue := args.defaultValue
	defaultID := id + "__default"
	if args.allowSource {
		v, ok, err := lookupParsed(dirs, defaultID, c)
		if err != nil {
			return zero, nil, err
		}
		if ok {
			defaultValue = v
		}
	} else if _, ok := dirs.Lookup(defaultID); ok {
		return zero, nil, fmt.Errorf("%w: the default value of property `%s` may not be hardcoded in the shader source", ErrHardcodedProperty, id)
	}

	prop, err := loadDescriptor(id, c, args.valueRange, dirs)
	if err != nil {
		return zero, nil, err
	}

	value := defaultValue
	if raw, ok := settings[id]; ok {
		v, err := c.parse(raw)
		if err != nil {
			return zero, nil, fmt.Errorf("invalid setting %q for property `%s`: %w", raw, id, err)
		}
		value = v
	}
	if c.clamp != nil {
		value = c.clamp(value, prop.Range)
	}

	prop.Default = c.format(defaultValue)
	prop.Value = c.format(value)
	return value, prop, nil
}

// loadDescriptor reads the id__description, id__min, id__max, id__step and
// id__slider pragmas.
func loadDescriptor[T any](id string, c codec[T], r PropertyRange, dirs Directives) (*Property, error) {
	prop := &Property{Name: id, Description: id, Kind: c.kind}

	if v, ok, _ := lookupParsed(dirs, id+"__description", stringCodec); ok {
		prop.Description = v
	}
	if c.kind != PropertyInt && c.kind != PropertyFloat {
		return prop, nil
	}

	number := floatCodec
	if c.kind == PropertyInt {
		number = codec[float64]{
			typeName: intCodec.typeName,
			parse: func(s string) (float64, error) {
				v, err := intCodec.parse(s)
				return float64(v), err
			},
		}
	}
	for _, field := range []struct {
		suffix string
		dst    *float64
	}{
		{"__min", &r.Min},
		{"__max", &r.Max},
		{"__step", &r.Step},
	} {
		v, ok, err := lookupParsed(dirs, id+field.suffix, number)
		if err != nil {
			return nil, err
		}
		if ok {
			*field.dst = v
		}
	}
	slider, ok, err := lookupParsed(dirs, id+"__slider", boolCodec)
	if err != nil {
		return nil, err
	}
	if ok {
		r.Slider = slider
	}

	prop.Range = r
	return prop, nil
}
