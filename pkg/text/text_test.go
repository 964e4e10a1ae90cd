package text

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLiteral(t *testing.T) {
	out := Build("0:v", "txt0", Spec{
		FontFile: "/fonts/a.ttf",
		FontSize: 48,
		Color:    "0xFF0000",
		Start:    0,
		End:      1,
		Text:     "hello",
	})
	require.Contains(t, out, "text='hello'")
	require.Contains(t, out, "enable='between(t,0,1)'")
	require.Contains(t, out, "[0:v]drawtext=")
	require.Contains(t, out, "[txt0]")
}

func TestBuildEscapesSpecialChars(t *testing.T) {
	out := Build("in", "out", Spec{Text: `a:b\c'd`, FontFile: "f"})
	require.Contains(t, out, `a\:b\\c\'d`)
}

func TestBuildDatetime(t *testing.T) {
	out := Build("in", "out", Spec{DateFormat: "%H:%M:%S", UseLocalTime: true, FontFile: "f"})
	require.Contains(t, out, "%{localtime")
	require.NotContains(t, out, "tz=UTC")
}

func TestBuildDatetimeUTC(t *testing.T) {
	out := Build("in", "out", Spec{DateFormat: "%H:%M:%S", UseLocalTime: false, FontFile: "f"})
	require.Contains(t, out, "tz=UTC")
}

func TestBuildWithStrokeAndBox(t *testing.T) {
	out := Build("in", "out", Spec{
		FontFile: "f", Text: "x",
		StrokeColor: "0x000000", StrokeWidth: 2,
		BoxColor: "0x00000080", Padding: 4,
	})
	require.Contains(t, out, "bordercolor=0x000000")
	require.Contains(t, out, "boxborderw=4")
}
