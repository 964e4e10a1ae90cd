// Package mask synthesizes vector-primitive masks (circle, ellipse, rounded
// rectangle, triangle, line) as independent RGBA clips built from per-pixel
// alpha expressions, per spec.md §4.2.
//
// Each Build* function returns the filter-graph lines needed to produce a
// clip labeled out, plus its pixel dimensions. The caller (the graph
// assembler) splices these lines into the full program and overlays out at
// the primitive's anchor point.
package mask

import (
	"fmt"
)

// Style describes the fill/outline appearance of a primitive.
type Style struct {
	Fill         string // canonical color token, empty if unfilled
	Outline      string // canonical color token, empty if no outline
	OutlineWidth int
	Opacity      float64 // panel-wide alpha multiplier, 1 if unset
}

func (s Style) alpha() float64 {
	if s.Opacity <= 0 {
		return 1
	}
	return s.Opacity
}

func (s Style) innerOffset() int {
	if s.OutlineWidth < 1 {
		return 1
	}
	return s.OutlineWidth
}

// clip renders one RGBA source filled with color, masked by alphaExpr,
// named out, of size w x h.
func clip(out, color string, w, h int, alphaExpr string) []string {
	src := out + "_src"
	return []string{
		fmt.Sprintf("color=c=%s:s=%dx%d[%s]", color, w, h, src),
		fmt.Sprintf("[%s]format=rgba,geq=r='r(X,Y)':g='g(X,Y)':b='b(X,Y)':a='%s'[%s]", src, alphaExpr, out),
	}
}

// overlayOnto stacks top over bottom (same size) into out.
func overlayOnto(out, bottom, top string) string {
	return fmt.Sprintf("[%s][%s]overlay=0:0[%s]", bottom, top, out)
}

func opacityMul(expr string, opacity float64) string {
	if opacity >= 1 {
		return expr
	}
	return fmt.Sprintf("(%s)*%.3f", expr, opacity)
}

// BuildCircle returns the filter lines for a filled/outlined circle of
// radius r, plus its canvas size (2r x 2r).
func BuildCircle(out string, r int, s Style) ([]string, int, int) {
	size := r * 2
	outerExpr := fmt.Sprintf("if(lte(pow(X-%d,2)+pow(Y-%d,2),%d),255,0)", r, r, r*r)
	return buildBordered(out, size, size, outerExpr, func(off int) string {
		ir := r - off
		if ir < 0 {
			ir = 0
		}
		return fmt.Sprintf("if(lte(pow((X-%d)-%d,2)+pow((Y-%d)-%d,2),%d),255,0)", off, ir, off, ir, ir*ir)
	}, s), size, size
}

// BuildEllipse returns the filter lines for a filled/outlined ellipse
// inscribed in a w x h box.
func BuildEllipse(out string, w, h int, s Style) ([]string, int, int) {
	outerExpr := ellipseExpr(w, h, 0)
	return buildBordered(out, w, h, outerExpr, func(off int) string {
		return ellipseExpr(w, h, off)
	}, s), w, h
}

func ellipseExpr(w, h, off int) string {
	a := float64(w-2*off) / 2
	b := float64(h-2*off) / 2
	return fmt.Sprintf(
		"if(lte(pow((X-%d)-%.3f,2)*pow(%.3f,2)+pow((Y-%d)-%.3f,2)*pow(%.3f,2),pow(%.3f,2)*pow(%.3f,2)),255,0)",
		off, a, b, off, b, a, a, b)
}

// BuildRoundedRect returns the filter lines for a w x h rounded rectangle
// with corner radius r (clamped to min(w,h)/2), unioning a middle
// horizontal band, a middle vertical band, and four corner disks.
func BuildRoundedRect(out string, w, h, r int, s Style) ([]string, int, int) {
	maxR := w
	if h < maxR {
		maxR = h
	}
	maxR /= 2
	if r > maxR {
		r = maxR
	}
	if r < 0 {
		r = 0
	}
	outerExpr := roundedRectExpr(w, h, r, 0)
	return buildBordered(out, w, h, outerExpr, func(off int) string {
		ri := r - off
		if ri < 0 {
			ri = 0
		}
		return roundedRectExpr(w-2*off, h-2*off, ri, off)
	}, s), w, h
}

func roundedRectExpr(w, h, r, off int) string {
	// Encoded as a sum of 0/1 band/corner terms being > 0, per spec.md §4.2.
	hBand := fmt.Sprintf("between((X-%d),%d,%d)*between((Y-%d),0,%d)", off, r, w-r-1, off, h-1)
	vBand := fmt.Sprintf("between((X-%d),0,%d)*between((Y-%d),%d,%d)", off, w-1, off, r, h-r-1)
	corners := []struct{ cx, cy int }{
		{r, r}, {w - r, r}, {r, h - r}, {w - r, h - r},
	}
	var cornerTerms string
	for _, c := range corners {
		cornerTerms += fmt.Sprintf("+if(lte(pow((X-%d)-%d,2)+pow((Y-%d)-%d,2),%d),1,0)", off, c.cx, off, c.cy, r*r)
	}
	return fmt.Sprintf("if(gt(%s+%s%s,0),255,0)", hBand, vBand, cornerTerms)
}

// BuildTriangle returns the filter lines for a triangle inscribed in a w x h
// box, pointing in direction ("up", "down", "left", "right"), using the
// same-sign barycentric inside test.
func BuildTriangle(out string, w, h int, direction string, s Style) ([]string, int, int) {
	v := triangleVertices(w, h, direction)
	outerExpr := triangleExpr(v, 0, 0)
	return buildBordered(out, w, h, outerExpr, func(off int) string {
		return triangleExpr(triangleVertices(w-2*off, h-2*off, direction), off, off)
	}, s), w, h
}

type point struct{ x, y float64 }

func triangleVertices(w, h int, direction string) [3]point {
	fw, fh := float64(w), float64(h)
	switch direction {
	case "down":
		return [3]point{{0, 0}, {fw, 0}, {fw / 2, fh}}
	case "left":
		return [3]point{{fw, 0}, {fw, fh}, {0, fh / 2}}
	case "right":
		return [3]point{{0, 0}, {0, fh}, {fw, fh / 2}}
	default: // up
		return [3]point{{0, fh}, {fw, fh}, {fw / 2, 0}}
	}
}

func sign(ax, ay, bx, by, px, py float64) string {
	return fmt.Sprintf("((%.3f-(%s))*(%.3f-(%s))-(%.3f-(%s))*(%.3f-(%s)))",
		ax, px, by, py, bx, px, ay, py)
}

func triangleExpr(v [3]point, offX, offY int) string {
	px := fmt.Sprintf("(X-%d)", offX)
	py := fmt.Sprintf("(Y-%d)", offY)
	s1 := fmt.Sprintf("(((%.3f)-%s)*((%.3f)-%s)-((%.3f)-%s)*((%.3f)-%s))", v[1].x, px, v[0].y, py, v[1].y, px, v[0].x, py)
	s2 := fmt.Sprintf("(((%.3f)-%s)*((%.3f)-%s)-((%.3f)-%s)*((%.3f)-%s))", v[2].x, px, v[1].y, py, v[2].y, px, v[1].x, py)
	s3 := fmt.Sprintf("(((%.3f)-%s)*((%.3f)-%s)-((%.3f)-%s)*((%.3f)-%s))", v[0].x, px, v[2].y, py, v[0].y, px, v[2].x, py)
	pos := fmt.Sprintf("((gte(%s,0))*(gte(%s,0))*(gte(%s,0)))", s1, s2, s3)
	neg := fmt.Sprintf("((lte(%s,0))*(lte(%s,0))*(lte(%s,0)))", s1, s2, s3)
	return fmt.Sprintf("if(gt(%s+%s,0),255,0)", pos, neg)
}

// BuildLine returns the filter lines for a solid length x thickness bar,
// rotated by rotationDeg about its left-midpoint, which lands at the
// canvas center of a 2*length x 2*length clip. The caller overlays the
// result at (x-length, y-length) so the start anchor (x,y) lands where
// specified, per spec.md §4.2.
func BuildLine(out string, length, thickness int, rotationDeg float64, color string, opacity float64) ([]string, int, int) {
	canvas := length * 2
	if canvas < 1 {
		canvas = 1
	}
	barLeft := length
	barTop := length - thickness/2
	barExpr := fmt.Sprintf("between(X,%d,%d)*between(Y,%d,%d)", barLeft, barLeft+length, barTop, barTop+thickness)
	alphaExpr := fmt.Sprintf("if(gt(%s,0),255,0)", barExpr)

	lines := clip(out+"_bar", color, canvas, canvas, opacityMul(alphaExpr, opacity))
	lines = append(lines, fmt.Sprintf(
		"[%s_bar]rotate=%.4f*PI/180:c=none:ow=%d:oh=%d[%s]",
		out, rotationDeg, canvas, canvas, out))
	return lines, canvas, canvas
}

// buildBordered composes the outer/inner mask pair into a single clip named
// out: stroke drawn first (outer minus shifted-inner), fill drawn above it
// shrunk by the inner offset, matching spec.md §4.2's border composition.
func buildBordered(out string, w, h int, outerExpr string, innerExpr func(off int) string, s Style) []string {
	off := s.innerOffset()
	var lines []string

	hasFill := s.Fill != ""
	hasOutline := s.Outline != ""

	switch {
	case hasOutline && hasFill:
		strokeAlpha := opacityMul(fmt.Sprintf("if(gt(%s-%s,0),255,0)", outerExpr, innerExpr(off)), s.alpha())
		fillAlpha := opacityMul(innerExpr(off), s.alpha())
		lines = append(lines, clip(out+"_stroke", s.Outline, w, h, strokeAlpha)...)
		lines = append(lines, clip(out+"_fill", s.Fill, w, h, fillAlpha)...)
		lines = append(lines, overlayOnto(out, out+"_stroke", out+"_fill"))
	case hasOutline:
		strokeAlpha := opacityMul(fmt.Sprintf("if(gt(%s-%s,0),255,0)", outerExpr, innerExpr(off)), s.alpha())
		lines = append(lines, clip(out, s.Outline, w, h, strokeAlpha)...)
	default:
		color := s.Fill
		if color == "" {
			color = "#000000"
		}
		fillAlpha := opacityMul(outerExpr, s.alpha())
		lines = append(lines, clip(out, color, w, h, fillAlpha)...)
	}
	return lines
}

// RoundedRectEqualsEllipseAtHalf exists purely to document the testable
// relationship in spec.md §8 invariant 5: at r = min(w,h)/2 the rounded-rect
// expression and the ellipse expression agree within one boundary pixel.
func RoundedRectEqualsEllipseAtHalf(w, h int) (rounded, ellipse string) {
	r := w
	if h < r {
		r = h
	}
	r /= 2
	return roundedRectExpr(w, h, r, 0), ellipseExpr(w, h, 0)
}
