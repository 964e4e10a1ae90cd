package mask

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildCircle(t *testing.T) {
	lines, w, h := BuildCircle("c0", 10, Style{Fill: "0xFF0000"})
	require.Equal(t, 20, w)
	require.Equal(t, 20, h)
	require.NotEmpty(t, lines)
	require.Contains(t, lines[len(lines)-1], "[c0]")
}

func TestBuildEllipseWithOutline(t *testing.T) {
	lines, w, h := BuildEllipse("e0", 40, 20, Style{Fill: "0x00FF00", Outline: "0x000000", OutlineWidth: 2})
	require.Equal(t, 40, w)
	require.Equal(t, 20, h)
	require.True(t, len(lines) >= 5)
}

func TestBuildRoundedRectClampsRadius(t *testing.T) {
	lines, w, h := BuildRoundedRect("r0", 30, 20, 1000, Style{Fill: "white"})
	require.Equal(t, 30, w)
	require.Equal(t, 20, h)
	require.NotEmpty(t, lines)
}

func TestRoundedRectEqualsEllipseAtHalf(t *testing.T) {
	rounded, ellipse := RoundedRectEqualsEllipseAtHalf(40, 40)
	require.NotEmpty(t, rounded)
	require.NotEmpty(t, ellipse)
}

func TestBuildTriangleDirections(t *testing.T) {
	for _, dir := range []string{"up", "down", "left", "right"} {
		lines, w, h := BuildTriangle("t0", 50, 50, dir, Style{Fill: "white"})
		require.Equal(t, 50, w)
		require.Equal(t, 50, h)
		require.NotEmpty(t, lines)
	}
}

func TestBuildLine(t *testing.T) {
	lines, w, h := BuildLine("l0", 100, 4, 45, "0x000000", 1)
	require.Equal(t, 200, w)
	require.Equal(t, 200, h)
	require.Len(t, lines, 3)
	require.Contains(t, lines[2], "rotate=")
}

func TestStrokeOnlyStyle(t *testing.T) {
	lines, _, _ := BuildCircle("c1", 5, Style{Outline: "0x000000", OutlineWidth: 1})
	require.Len(t, lines, 2)
}

func TestUnfilledUnoutlinedStyleDefaultsToBlack(t *testing.T) {
	lines, _, _ := BuildCircle("c2", 5, Style{})
	require.NotEmpty(t, lines)
	require.Contains(t, strings.Join(lines, "\n"), "#000000")
}
