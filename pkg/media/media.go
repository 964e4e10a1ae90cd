// Package media builds the scale/trim/overlay chains for video and image
// tracks, and the delay/gain chains for audio taps, per spec.md §4.4.
package media

import (
	"fmt"
	"math"
)

// VisualSpec describes one video or image track's overlay chain.
type VisualSpec struct {
	InputIndex int
	X, Y, W, H int
	Start, End float64
	IsImage    bool
	LoopSecs   float64 // total duration to loop an image for; ignored for video
	SrcIn      float64
	HasTrim    bool
	SrcOut     float64
}

// BuildVisual returns the filter lines that scale, optionally trim, and
// overlay one media input onto base, producing next.
func BuildVisual(base, next string, s VisualSpec) []string {
	scaled := fmt.Sprintf("v%d_scaled", s.InputIndex)
	var lines []string

	src := fmt.Sprintf("%d:v", s.InputIndex)
	chain := fmt.Sprintf("[%s]", src)

	if s.IsImage {
		loop := s.LoopSecs
		if loop <= 0 {
			loop = 1.0 / 30 // one-frame minimum, per spec.md §4.4.
		}
		lines = append(lines, fmt.Sprintf("%sloop=loop=-1:size=1,trim=duration=%s,setpts=PTS-STARTPTS[%s_looped]",
			chain, trimFloat(loop), scaled))
		chain = fmt.Sprintf("[%s_looped]", scaled)
	} else if s.HasTrim {
		lines = append(lines, fmt.Sprintf("%strim=start=%s:end=%s,setpts=PTS-STARTPTS[%s_trimmed]",
			chain, trimFloat(s.SrcIn), trimFloat(s.SrcOut), scaled))
		chain = fmt.Sprintf("[%s_trimmed]", scaled)
	}

	lines = append(lines, fmt.Sprintf("%sscale=%d:%d[%s]", chain, s.W, s.H, scaled))

	lines = append(lines, fmt.Sprintf(
		"[%s][%s]overlay=%d:%d:enable='between(t,%s,%s)'[%s]",
		base, scaled, s.X, s.Y, trimFloat(s.Start), trimFloat(s.End), next))

	return lines
}

// AudioSpec describes one audio tap (from a video or audio track).
type AudioSpec struct {
	InputIndex int
	Start      float64
	Volume     float64
	Muted      bool
	HasTrim    bool
	SrcIn      float64
	SrcOut     float64
}

// BuildAudioTap returns the filter lines producing a labeled audio stream
// for one track, and the label itself. Only called for tracks whose input
// actually carries an audio stream (probed by C7/ffmpeg.Engine.Probe ahead
// of graph assembly, per spec.md §4.4 and invariant 3 in §8).
func BuildAudioTap(s AudioSpec) ([]string, string) {
	out := fmt.Sprintf("a%d_tap", s.InputIndex)
	chain := fmt.Sprintf("[%d:a]", s.InputIndex)
	var lines []string

	if s.HasTrim {
		trimmed := out + "_trimmed"
		lines = append(lines, fmt.Sprintf("%satrim=start=%s:end=%s,asetpts=PTS-STARTPTS[%s]",
			chain, trimFloat(s.SrcIn), trimFloat(s.SrcOut), trimmed))
		chain = fmt.Sprintf("[%s]", trimmed)
	}

	delayMs := int(math.Round(s.Start * 1000))
	volume := s.Volume
	if s.Muted {
		volume = 0
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	lines = append(lines, fmt.Sprintf(
		"%sadelay=%d|%d,volume=%.3f[%s]", chain, delayMs, delayMs, volume, out))

	return lines, out
}

// MixAudio mixes the given tap labels into a single "aout" stream. With no
// taps it synthesizes a silent stereo source of durationSecs, with one tap
// it maps it directly, and with two or more it normalizes an amix, per
// spec.md §4.6.
func MixAudio(taps []string, durationSecs float64) ([]string, string) {
	switch len(taps) {
	case 0:
		return []string{
			fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=48000,atrim=duration=%s[aout]",
				trimFloat(durationSecs)),
		}, "aout"
	case 1:
		return []string{fmt.Sprintf("[%s]acopy[aout]", taps[0])}, "aout"
	default:
		var in string
		for _, t := range taps {
			in += fmt.Sprintf("[%s]", t)
		}
		return []string{fmt.Sprintf("%samix=inputs=%d:normalize=1[aout]", in, len(taps))}, "aout"
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "" {
		s = "0"
	}
	return s
}
