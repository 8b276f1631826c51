// SPDX-License-Identifier: MIT
package render

import (
	"math"
	"time"

	"shaderfx/internal/effect"
)

// Frame is the wire form of one rendered frame: every uniform assigned during
// the frame, keyed by uniform name.
type Frame struct {
	Frame    uint64                 `json:"frame"`
	Time     time.Time              `json:"time"`
	Uniforms map[string]any         `json:"uniforms"`
	Textures map[string]TextureData `json:"textures"`
}

// TextureData describes a texture in a frame. R32F textures carry their
// decoded values; other formats carry the raw bytes.
type TextureData struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Format string    `json:"format"`
	Values []float32 `json:"values,omitempty"`
	Data   []byte    `json:"data,omitempty"`
}

func newFrame(n uint64, now time.Time) *Frame {
	return &Frame{
		Frame:    n,
		Time:     now,
		Uniforms: make(map[string]any),
		Textures: make(map[string]TextureData),
	}
}

func textureData(t *effect.Texture) TextureData {
	td := TextureData{Width: t.Width, Height: t.Height, Format: t.Format.String()}
	if t.Format == effect.FormatR32F {
		td.Values = t.Floats()
		for i, v := range td.Values {
			td.Values[i] = finite(v)
		}
	} else {
		td.Data = t.Data
	}
	return td
}

// finite maps NaN and infinities to zero; JSON has no encoding for them.
func finite(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}
