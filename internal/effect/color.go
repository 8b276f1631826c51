// SPDX-License-Identifier: MIT
package effect

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is a linear RGBA color with components in [0, 1].
type Color [4]float32

// ParseColor accepts `#RRGGBB`, `#RRGGBBAA` or four comma separated
// components `r,g,b,a`. A vector literal such as `{1, 0, 0, 1}` or
// `float4(1, 0, 0, 1)` is accepted too so uniform defaults parse.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}

	parts := vectorComponents(s)
	if len(parts) != 4 {
		return Color{}, fmt.Errorf("color %q needs 4 components, got %d", s, len(parts))
	}
	var c Color
	for i, p := range parts {
		v, err := parseFloat(p)
		if err != nil {
			return Color{}, fmt.Errorf("color %q: %w", s, err)
		}
		c[i] = float32(v)
	}
	return c, nil
}

func parseHexColor(hex string) (Color, error) {
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("hex color #%s must have 6 or 8 digits", hex)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("hex color #%s: %w", hex, err)
	}
	if len(hex) == 6 {
		n = n<<8 | 0xff
	}
	return Color{
		float32(n>>24&0xff) / 255,
		float32(n>>16&0xff) / 255,
		float32(n>>8&0xff) / 255,
		float32(n&0xff) / 255,
	}, nil
}

// String formats c as `#RRGGBBAA`.
func (c Color) String() string {
	var b [4]uint8
	for i, v := range c {
		b[i] = uint8(math.Round(float64(min(max(v, 0), 1)) * 255))
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", b[0], b[1], b[2], b[3])
}

// vectorComponents splits `{a, b}`, `float2(a, b)` or `a,b` into trimmed parts.
func vectorComponents(s string) []string {
	s = strings.TrimSpace(s)
	if open := strings.IndexByte(s, '('); open >= 0 && strings.HasSuffix(s, ")") {
		s = s[open+1 : len(s)-1]
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseFloat accepts shader style literals such as `1.0f`.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "f"), "F")
	return strconv.ParseFloat(s, 64)
}
