package color

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndToken(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"#f00", "0xFF0000"},
		{"#ff0000", "0xFF0000"},
		{"#ff000080", "0xFF0000@0.502"},
		{"rgb(0,255,0)", "0x00FF00"},
		{"rgba(0,255,0,0.25)", "0x00FF00@0.250"},
		{"red", "0xFF0000"},
		{"not-a-color", "0xFFFFFF"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.expected, ParseToken(tc.in, nil))
		})
	}
}

func TestAlphaOverride(t *testing.T) {
	half := 0.5
	require.Equal(t, "0xFF0000@0.500", ParseToken("#ff0000", &half))
}

func TestRoundTrip(t *testing.T) {
	cases := []string{"#112233", "#11223344", "rgba(10,20,30,0.8)"}
	for _, in := range cases {
		c1 := Parse(in)
		token := Token(c1, nil)
		c2 := Parse(ParseToken(in, nil))
		require.Equal(t, c1.R, c2.R)
		require.Equal(t, c1.G, c2.G)
		require.Equal(t, c1.B, c2.B)
		require.InDelta(t, c1.A, c2.A, 0.01)
		require.NotEmpty(t, token)
	}
}

func TestFontFallback(t *testing.T) {
	got := Font("/no/such/font.ttf", "Helvetica")
	require.NotEmpty(t, got)
}
