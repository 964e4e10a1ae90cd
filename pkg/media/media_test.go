package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildVisualVideo(t *testing.T) {
	lines := BuildVisual("base0", "base1", VisualSpec{
		InputIndex: 1, X: 10, Y: 20, W: 100, H: 50, Start: 0, End: 2,
	})
	require.NotEmpty(t, lines)
	require.Contains(t, lines[len(lines)-1], "[base1]")
	require.Contains(t, lines[len(lines)-1], "between(t,0,2)")
}

func TestBuildVisualImageLoops(t *testing.T) {
	lines := BuildVisual("base0", "base1", VisualSpec{
		InputIndex: 0, X: 0, Y: 0, W: 10, H: 10, Start: 0, End: 1, IsImage: true, LoopSecs: 5,
	})
	require.Contains(t, lines[0], "loop=loop=-1")
	require.Contains(t, lines[0], "duration=5")
}

func TestBuildVisualWithTrim(t *testing.T) {
	lines := BuildVisual("b0", "b1", VisualSpec{
		InputIndex: 2, X: 0, Y: 0, W: 10, H: 10, Start: 0, End: 1,
		HasTrim: true, SrcIn: 1, SrcOut: 3,
	})
	require.Contains(t, lines[0], "trim=start=1:end=3")
}

func TestBuildAudioTap(t *testing.T) {
	lines, label := BuildAudioTap(AudioSpec{InputIndex: 1, Start: 1.5, Volume: 0.4})
	require.Equal(t, "a1_tap", label)
	require.Contains(t, lines[0], "adelay=1500|1500")
	require.Contains(t, lines[0], "volume=0.400")
}

func TestBuildAudioTapMuted(t *testing.T) {
	lines, _ := BuildAudioTap(AudioSpec{InputIndex: 0, Muted: true, Volume: 1})
	require.Contains(t, lines[0], "volume=0.000")
}

func TestMixAudioNoTaps(t *testing.T) {
	lines, label := MixAudio(nil, 4)
	require.Equal(t, "aout", label)
	require.Contains(t, lines[0], "anullsrc")
	require.Contains(t, lines[0], "duration=4")
}

func TestMixAudioOneTap(t *testing.T) {
	lines, _ := MixAudio([]string{"a0_tap"}, 1)
	require.Contains(t, lines[0], "[a0_tap]acopy[aout]")
}

func TestMixAudioMultipleTaps(t *testing.T) {
	lines, _ := MixAudio([]string{"a0_tap", "a1_tap"}, 1)
	require.Contains(t, lines[0], "amix=inputs=2:normalize=1")
}
