// SPDX-License-Identifier: MIT
package effect

import (
	"encoding/binary"
	"math"
)

// TextureFormat is the pixel layout of a Texture.
type TextureFormat int

const (
	FormatR32F TextureFormat = iota + 1 // one little-endian float32 per texel
)

func (f TextureFormat) String() string {
	if f == FormatR32F {
		return "R32F"
	}
	return "unknown"
}

// Texture is CPU side texture data ready for upload.
type Texture struct {
	Width  int
	Height int
	Format TextureFormat
	Data   []byte
}

// NewSpectrumTexture encodes spectrum as a single row R32F texture.
func NewSpectrumTexture(spectrum []float32) *Texture {
	data := make([]byte, 4*len(spectrum))
	for i, v := range spectrum {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return &Texture{Width: len(spectrum), Height: 1, Format: FormatR32F, Data: data}
}

// emptyTexture is bound until the first spectrum arrives.
func emptyTexture() *Texture {
	return NewSpectrumTexture([]float32{0})
}

// Floats decodes an R32F texture. It returns nil for other formats.
func (t *Texture) Floats() []float32 {
	if t == nil || t.Format != FormatR32F {
		return nil
	}
	out := make([]float32, len(t.Data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.Data[4*i:]))
	}
	return out
}
