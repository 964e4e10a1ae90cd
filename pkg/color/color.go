// Package color parses CSS-like color strings into FFmpeg color tokens and
// resolves font references to a usable file path.
package color

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	reHex3     = regexp.MustCompile(`^#([0-9a-fA-F]{3})$`)
	reHex4     = regexp.MustCompile(`^#([0-9a-fA-F]{4})$`)
	reHex6     = regexp.MustCompile(`^#([0-9a-fA-F]{6})$`)
	reHex8     = regexp.MustCompile(`^#([0-9a-fA-F]{8})$`)
	reRGB      = regexp.MustCompile(`^rgb\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*\)$`)
	reRGBA     = regexp.MustCompile(`^rgba\(\s*(\d+)\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*([0-9.]+)\s*\)$`)
	reToken    = regexp.MustCompile(`^0x([0-9a-fA-F]{6})(?:@([0-9.]+))?$`)
	namedColor = map[string]struct{ r, g, b int }{
		"white": {255, 255, 255}, "black": {0, 0, 0}, "red": {255, 0, 0},
		"green": {0, 128, 0}, "blue": {0, 0, 255}, "yellow": {255, 255, 0},
		"orange": {255, 165, 0}, "gray": {128, 128, 128}, "grey": {128, 128, 128},
		"transparent": {0, 0, 0},
	}
)

// RGBA is a parsed color: 8-bit channels plus alpha in [0,1].
type RGBA struct {
	R, G, B uint8
	A       float64
}

// Parse interprets s as a CSS-like color string, or as a "0xRRGGBB[@alpha]"
// token as produced by Token. Unparseable input falls back to opaque white,
// per spec.md §4.1.
func Parse(s string) RGBA {
	s = strings.TrimSpace(s)

	if m := reHex8.FindStringSubmatch(s); m != nil {
		r, g, b, a := hexByte(m[1][0:2]), hexByte(m[1][2:4]), hexByte(m[1][4:6]), hexByte(m[1][6:8])
		return RGBA{r, g, b, float64(a) / 255}
	}
	if m := reHex6.FindStringSubmatch(s); m != nil {
		return RGBA{hexByte(m[1][0:2]), hexByte(m[1][2:4]), hexByte(m[1][4:6]), 1}
	}
	if m := reHex4.FindStringSubmatch(s); m != nil {
		r, g, b, a := doubleHex(m[1][0]), doubleHex(m[1][1]), doubleHex(m[1][2]), doubleHex(m[1][3])
		return RGBA{r, g, b, float64(a) / 255}
	}
	if m := reHex3.FindStringSubmatch(s); m != nil {
		r, g, b := doubleHex(m[1][0]), doubleHex(m[1][1]), doubleHex(m[1][2])
		return RGBA{r, g, b, 1}
	}
	if m := reToken.FindStringSubmatch(s); m != nil {
		a := 1.0
		if m[2] != "" {
			a, _ = strconv.ParseFloat(m[2], 64)
		}
		return RGBA{hexByte(m[1][0:2]), hexByte(m[1][2:4]), hexByte(m[1][4:6]), clampUnit(a)}
	}
	if m := reRGBA.FindStringSubmatch(s); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		a, _ := strconv.ParseFloat(m[4], 64)
		return RGBA{clampByte(r), clampByte(g), clampByte(b), clampUnit(a)}
	}
	if m := reRGB.FindStringSubmatch(s); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		return RGBA{clampByte(r), clampByte(g), clampByte(b), 1}
	}
	if named, ok := namedColor[strings.ToLower(s)]; ok {
		a := 1.0
		if strings.ToLower(s) == "transparent" {
			a = 0
		}
		return RGBA{uint8(named.r), uint8(named.g), uint8(named.b), a}
	}

	return RGBA{255, 255, 255, 1}
}

// Token returns the canonical FFmpeg drawing token for c, e.g. "0xRRGGBB" or
// "0xRRGGBB@0.500". alphaOverride, if non-nil, replaces the parsed alpha.
func Token(c RGBA, alphaOverride *float64) string {
	a := c.A
	if alphaOverride != nil {
		a = clampUnit(*alphaOverride)
	}
	hex := fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
	if a >= 1 {
		return hex
	}
	return fmt.Sprintf("%s@%.3f", hex, a)
}

// ParseToken parses s (a color string, with optional alpha_override) directly
// into its canonical FFmpeg token.
func ParseToken(s string, alphaOverride *float64) string {
	return Token(Parse(s), alphaOverride)
}

func hexByte(s string) uint8 {
	v, _ := strconv.ParseUint(s, 16, 8)
	return uint8(v)
}

func doubleHex(b byte) uint8 {
	v, _ := strconv.ParseUint(string(b)+string(b), 16, 8)
	return uint8(v)
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// Font chooses a font file path for a track, probing in order: an explicit
// path if it exists, a platform-conventional system font, a well-known sans
// fallback, then the family name itself as a last-resort hint to the engine.
func Font(fontPath, fontFamily string) string {
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err == nil {
			return fontPath
		}
	}
	for _, candidate := range systemFontCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if fontFamily != "" {
		return fontFamily
	}
	return "sans"
}

func systemFontCandidates() []string {
	return []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/System/Library/Fonts/Supplemental/Arial.ttf",
		"C:\\Windows\\Fonts\\arial.ttf",
	}
}
