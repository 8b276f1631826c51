// SPDX-License-Identifier: MIT
package effect

import (
	"regexp"
	"strings"
)

// UniformType is the declared type of a shader uniform.
type UniformType int

const (
	TypeUnknown UniformType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeVec2
	TypeVec3
	TypeVec4
	TypeIVec2
	TypeIVec3
	TypeIVec4
	TypeMat4
	TypeString
	TypeTexture
)

var uniformTypes = map[string]UniformType{
	"bool":         TypeBool,
	"int":          TypeInt,
	"float":        TypeFloat,
	"float2":       TypeVec2,
	"vec2":         TypeVec2,
	"float3":       TypeVec3,
	"vec3":         TypeVec3,
	"float4":       TypeVec4,
	"vec4":         TypeVec4,
	"int2":         TypeIVec2,
	"ivec2":        TypeIVec2,
	"int3":         TypeIVec3,
	"ivec3":        TypeIVec3,
	"int4":         TypeIVec4,
	"ivec4":        TypeIVec4,
	"float4x4":     TypeMat4,
	"mat4":         TypeMat4,
	"string":       TypeString,
	"texture2d":    TypeTexture,
	"texture3d":    TypeTexture,
	"texture_cube": TypeTexture,
	"texture_rect": TypeTexture,
}

var uniformTypeNames = [...]string{
	TypeUnknown: "unknown",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeVec2:    "float2",
	TypeVec3:    "float3",
	TypeVec4:    "float4",
	TypeIVec2:   "int2",
	TypeIVec3:   "int3",
	TypeIVec4:   "int4",
	TypeMat4:    "float4x4",
	TypeString:  "string",
	TypeTexture: "texture2d",
}

func (t UniformType) String() string {
	if t < 0 || int(t) >= len(uniformTypeNames) {
		return "unknown"
	}
	return uniformTypeNames[t]
}

// Uniform is one `uniform` declaration found in effect source.
type Uniform struct {
	Index    int // declaration order
	Name     string
	Type     UniformType
	TypeName string // as written
	Default  string // initializer as written, empty if none
}

// HasDefault reports whether the declaration carries an initializer.
func (u Uniform) HasDefault() bool {
	return u.Default != ""
}

var uniformPattern = regexp.MustCompile(
	`(?m)^[ \t]*uniform\s+(?P<type>\w+)\s+(?P<name>\w+)\s*(?:<[^>]*>\s*)?(?:=\s*(?P<default>[^;]*?)\s*)?;`)

// DiscoverUniforms lists the uniforms declared in source, in source order.
// Declarations inside line comments are ignored.
func DiscoverUniforms(source string) []Uniform {
	typIdx := uniformPattern.SubexpIndex("type")
	nameIdx := uniformPattern.SubexpIndex("name")
	defIdx := uniformPattern.SubexpIndex("default")

	matches := uniformPattern.FindAllStringSubmatch(source, -1)
	uniforms := make([]Uniform, 0, len(matches))
	for i, m := range matches {
		typeName := m[typIdx]
		uniforms = append(uniforms, Uniform{
			Index:    i,
			Name:     m[nameIdx],
			Type:     uniformTypes[strings.ToLower(typeName)],
			TypeName: typeName,
			Default:  m[defIdx],
		})
	}
	return uniforms
}
