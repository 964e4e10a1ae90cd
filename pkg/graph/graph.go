// Package graph assembles a validated timeline into a deterministic FFmpeg
// filter-graph program: a pure function from timeline to program, per
// spec.md §4.6. Localization and audio probing happen in earlier phases
// (pkg/asset, pkg/ffmpeg) — by the time Build runs, every media track's
// resolved path and audio presence is already known.
package graph

import (
	"fmt"
	"sort"

	"compositor/pkg/color"
	"compositor/pkg/composite"
	"compositor/pkg/mask"
	"compositor/pkg/media"
	"compositor/pkg/text"
	"compositor/pkg/timeline"
)

// ResolvedMedia is a localized, probed media track input.
type ResolvedMedia struct {
	Path     string
	HasAudio bool
}

// Options configures font/icon resolution, both of which depend on the
// filesystem and so are resolved by the caller ahead of assembly.
type Options struct {
	// Media holds each video/audio/image track's resolved input, keyed by
	// track ID.
	Media map[string]ResolvedMedia
	// WeatherIcons holds each weather track's resolved icon file path
	// (already downloaded or rendered as a fallback circle), keyed by
	// track ID. Empty means draw no icon.
	WeatherIcons map[string]string
	// BackgroundImage is the resolved path for Timeline.BackgroundImage,
	// empty if none was set.
	BackgroundImage string
}

// Program is the finished filter-graph program plus its ordered engine
// inputs.
type Program struct {
	Inputs        []string // -i arguments, in assigned input-index order
	FilterComplex string   // joined filter_complex script
	VideoOut      string   // final video label, e.g. "vfinal"
	AudioOut      string   // final audio label; always set, only mapped when HasAudio
	HasAudio      bool
}

// BuildError reports an internal inconsistency during assembly: a
// programmer error surfaced as a 500 with diagnostic, per spec.md §7.
type BuildError struct {
	Msg string
}

func (e *BuildError) Error() string { return e.Msg }

// Build assembles tl into a Program following the strict phase order of
// spec.md §4.6: base color, background image, media, text/datetime,
// shapes, composites, then the audio mix.
func Build(tl timeline.Timeline, opts Options) (Program, error) {
	b := &builder{tl: tl, opts: opts}
	return b.build()
}

type builder struct {
	tl      timeline.Timeline
	opts    Options
	inputs  []string
	filters []string
	labelN  int
	audioTaps []string
}

func (b *builder) build() (Program, error) {
	duration := b.tl.EffectiveDuration()

	base := b.newLabel("base")
	b.filters = append(b.filters, fmt.Sprintf(
		"color=c=%s:s=%dx%d:d=%s[%s]",
		color.ParseToken(b.tl.Background, nil), b.tl.Width, b.tl.Height, trimFloat(duration), base))

	var err error
	base, err = b.emitBackgroundImage(base, duration)
	if err != nil {
		return Program{}, err
	}

	base, err = b.emitMedia(base, duration)
	if err != nil {
		return Program{}, err
	}

	base, err = b.emitTextAndDatetime(base)
	if err != nil {
		return Program{}, err
	}

	base, err = b.emitShapes(base)
	if err != nil {
		return Program{}, err
	}

	base, err = b.emitComposites(base)
	if err != nil {
		return Program{}, err
	}

	finalVideo := b.newLabel("vfinal")
	b.filters = append(b.filters, fmt.Sprintf("[%s]null[%s]", base, finalVideo))

	audioLines, audioLabel := media.MixAudio(b.audioTaps, duration)
	b.filters = append(b.filters, audioLines...)

	return Program{
		Inputs:        b.inputs,
		FilterComplex: joinFilters(b.filters),
		VideoOut:      finalVideo,
		AudioOut:      audioLabel,
		HasAudio:      len(b.audioTaps) > 0,
	}, nil
}

func (b *builder) newLabel(prefix string) string {
	b.labelN++
	return fmt.Sprintf("%s%d", prefix, b.labelN)
}

func (b *builder) addInput(path string) int {
	b.inputs = append(b.inputs, path)
	return len(b.inputs) - 1
}

func (b *builder) emitBackgroundImage(base string, duration float64) (string, error) {
	if b.tl.BackgroundImage == "" {
		return base, nil
	}
	if b.opts.BackgroundImage == "" {
		return "", &BuildError{Msg: "backgroundImage set but not resolved by the localizer"}
	}
	idx := b.addInput(b.opts.BackgroundImage)

	scaled := b.newLabel("bgimg")
	fit := b.tl.BackgroundFit
	var scaleExpr string
	switch fit {
	case "contain":
		scaleExpr = fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			b.tl.Width, b.tl.Height, b.tl.Width, b.tl.Height)
	case "stretch":
		scaleExpr = fmt.Sprintf("scale=%d:%d", b.tl.Width, b.tl.Height)
	default: // cover
		scaleExpr = fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			b.tl.Width, b.tl.Height, b.tl.Width, b.tl.Height)
	}
	b.filters = append(b.filters, fmt.Sprintf(
		"[%d:v]loop=loop=-1:size=1,trim=duration=%s,setpts=PTS-STARTPTS,%s,format=rgba,colorchannelmixer=aa=%.3f[%s]",
		idx, trimFloat(duration), scaleExpr, b.tl.BackgroundOpacity, scaled))

	next := b.newLabel("base")
	b.filters = append(b.filters, fmt.Sprintf("[%s][%s]overlay=0:0[%s]", base, scaled, next))
	return next, nil
}

func (b *builder) emitMedia(base string, duration float64) (string, error) {
	type entry struct {
		z   int
		idx int
		tr  timeline.Track
	}
	var entries []entry
	inputs := map[int]int{} // track position -> input index, assigned in timeline order
	for i, tr := range b.tl.Tracks {
		switch tr.(type) {
		case timeline.Video, timeline.Image, timeline.Audio:
			entries = append(entries, entry{z: trackZ(tr), idx: i, tr: tr})
			if resolved, ok := b.opts.Media[trackID(tr)]; ok {
				if _, isAudio := tr.(timeline.Audio); !isAudio || resolved.HasAudio {
					inputs[i] = b.addInput(resolved.Path)
				}
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].z < entries[j].z })

	for _, e := range entries {
		switch tr := e.tr.(type) {
		case timeline.Video:
			resolved, ok := b.opts.Media[tr.ID]
			if !ok {
				return "", &BuildError{Msg: fmt.Sprintf("video track %q has no resolved media", tr.ID)}
			}
			idx := inputs[e.idx]
			next := b.newLabel("base")
			b.filters = append(b.filters, media.BuildVisual(base, next, media.VisualSpec{
				InputIndex: idx, X: tr.X, Y: tr.Y, W: tr.W, H: tr.H,
				Start: tr.Base.Start, End: tr.Base.End,
				HasTrim: tr.HasTrim(), SrcIn: tr.SrcIn, SrcOut: tr.SrcOut,
			})...)
			base = next

			if resolved.HasAudio {
				lines, label := media.BuildAudioTap(media.AudioSpec{
					InputIndex: idx, Start: tr.Base.Start, Volume: tr.Volume, Muted: tr.Muted,
					HasTrim: tr.HasTrim(), SrcIn: tr.SrcIn, SrcOut: tr.SrcOut,
				})
				b.filters = append(b.filters, lines...)
				b.audioTaps = append(b.audioTaps, label)
			}
		case timeline.Image:
			_, ok := b.opts.Media[tr.ID]
			if !ok {
				return "", &BuildError{Msg: fmt.Sprintf("image track %q has no resolved media", tr.ID)}
			}
			idx := inputs[e.idx]
			next := b.newLabel("base")
			b.filters = append(b.filters, media.BuildVisual(base, next, media.VisualSpec{
				InputIndex: idx, X: tr.X, Y: tr.Y, W: tr.W, H: tr.H,
				Start: tr.Base.Start, End: tr.Base.End,
				IsImage: true, LoopSecs: duration,
			})...)
			base = next
		case timeline.Audio:
			resolved, ok := b.opts.Media[tr.ID]
			if !ok {
				return "", &BuildError{Msg: fmt.Sprintf("audio track %q has no resolved media", tr.ID)}
			}
			if !resolved.HasAudio {
				continue
			}
			idx := inputs[e.idx]
			lines, label := media.BuildAudioTap(media.AudioSpec{
				InputIndex: idx, Start: tr.Base.Start, Volume: tr.Volume, Muted: tr.Muted,
				HasTrim: tr.HasTrim(), SrcIn: tr.SrcIn, SrcOut: tr.SrcOut,
			})
			b.filters = append(b.filters, lines...)
			b.audioTaps = append(b.audioTaps, label)
		}
	}
	return base, nil
}

func (b *builder) emitTextAndDatetime(base string) (string, error) {
	type entry struct {
		z  int
		i  int
		tr timeline.Track
	}
	var entries []entry
	for i, tr := range b.tl.Tracks {
		switch tr.(type) {
		case timeline.Text, timeline.DateTime:
			entries = append(entries, entry{z: trackZ(tr), i: i, tr: tr})
		}
	}
	sort.SliceStable(entries, func(a, c int) bool { return entries[a].z < entries[c].z })

	for _, e := range entries {
		next := b.newLabel("base")
		switch tr := e.tr.(type) {
		case timeline.Text:
			fontFile := color.Font(tr.FontPath, tr.FontFamily)
			b.filters = append(b.filters, text.Build(base, next, text.Spec{
				FontFile: fontFile, FontSize: tr.FontSize, Color: color.ParseToken(tr.Color, nil),
				StrokeColor: optColor(tr.StrokeColor), StrokeWidth: tr.StrokeWidth,
				BoxColor: optColor(tr.BgColor), Padding: tr.Padding,
				X: tr.X, Y: tr.Y, Start: tr.Base.Start, End: tr.Base.End, Text: tr.Text,
			}))
		case timeline.DateTime:
			fontFile := color.Font(tr.FontPath, tr.FontFamily)
			useLocal := true
			if tr.TimezoneExplicit() {
				useLocal = tr.UseLocalTime
			}
			b.filters = append(b.filters, text.Build(base, next, text.Spec{
				FontFile: fontFile, FontSize: tr.FontSize, Color: color.ParseToken(tr.Color, nil),
				StrokeColor: optColor(tr.StrokeColor), StrokeWidth: tr.StrokeWidth,
				BoxColor: optColor(tr.BgColor), Padding: tr.Padding,
				X: tr.X, Y: tr.Y, Start: tr.Base.Start, End: tr.Base.End,
				DateFormat: tr.Format, UseLocalTime: useLocal,
			}))
		}
		base = next
	}
	return base, nil
}

func (b *builder) emitShapes(base string) (string, error) {
	type entry struct {
		z  int
		i  int
		tr timeline.Track
	}
	var entries []entry
	for i, tr := range b.tl.Tracks {
		switch tr.(type) {
		case timeline.Circle, timeline.Triangle, timeline.Rectangle, timeline.Line, timeline.Ellipse:
			entries = append(entries, entry{z: trackZ(tr), i: i, tr: tr})
		}
	}
	sort.SliceStable(entries, func(a, c int) bool { return entries[a].z < entries[c].z })

	for _, e := range entries {
		clipLabel := trackID(e.tr) + "_shape"
		var w, h, x, y int
		var lines []string
		var start, end float64

		switch tr := e.tr.(type) {
		case timeline.Circle:
			style := mask.Style{Fill: optColor(tr.Fill), Outline: optColor(tr.Outline), OutlineWidth: tr.OutlineWidth, Opacity: tr.Opacity}
			lines, w, h = mask.BuildCircle(clipLabel, tr.Radius, style)
			x, y = tr.X-tr.Radius, tr.Y-tr.Radius
			start, end = tr.Base.Start, tr.Base.End
		case timeline.Triangle:
			style := mask.Style{Fill: optColor(tr.Fill), Outline: optColor(tr.Outline), OutlineWidth: tr.OutlineWidth, Opacity: tr.Opacity}
			lines, w, h = mask.BuildTriangle(clipLabel, tr.W, tr.H, tr.Direction, style)
			x, y = tr.X, tr.Y
			start, end = tr.Base.Start, tr.Base.End
		case timeline.Rectangle:
			style := mask.Style{Fill: optColor(tr.Fill), Outline: optColor(tr.Outline), OutlineWidth: tr.OutlineWidth, Opacity: tr.Opacity}
			lines, w, h = mask.BuildRoundedRect(clipLabel, tr.W, tr.H, tr.BorderRadius, style)
			x, y = tr.X, tr.Y
			start, end = tr.Base.Start, tr.Base.End
		case timeline.Line:
			lines, w, h = mask.BuildLine(clipLabel, tr.Length, tr.Thickness, tr.Rotation, color.ParseToken(tr.Color, nil), orOne(tr.Opacity))
			x, y = tr.X-tr.Length, tr.Y-tr.Length
			start, end = tr.Base.Start, tr.Base.End
		case timeline.Ellipse:
			style := mask.Style{Fill: optColor(tr.Fill), Outline: optColor(tr.Outline), OutlineWidth: tr.OutlineWidth, Opacity: tr.Opacity}
			lines, w, h = mask.BuildEllipse(clipLabel, tr.W, tr.H, style)
			x, y = tr.X, tr.Y
			start, end = tr.Base.Start, tr.Base.End
		}
		_ = w
		_ = h
		b.filters = append(b.filters, lines...)

		next := b.newLabel("base")
		b.filters = append(b.filters, fmt.Sprintf(
			"[%s][%s]overlay=%d:%d:enable='between(t,%s,%s)'[%s]",
			base, clipLabel, x, y, trimFloat(start), trimFloat(end), next))
		base = next
	}
	return base, nil
}

func (b *builder) emitComposites(base string) (string, error) {
	type entry struct {
		z  int
		i  int
		tr timeline.Track
	}
	var entries []entry
	for i, tr := range b.tl.Tracks {
		switch tr.(type) {
		case timeline.Sign, timeline.Weather:
			entries = append(entries, entry{z: trackZ(tr), i: i, tr: tr})
		}
	}
	sort.SliceStable(entries, func(a, c int) bool { return entries[a].z < entries[c].z })

	for _, e := range entries {
		next := b.newLabel("base")
		switch tr := e.tr.(type) {
		case timeline.Sign:
			fontFile := color.Font("", "")
			b.filters = append(b.filters, composite.Sign(base, next, tr, fontFile)...)
		case timeline.Weather:
			fontFile := color.Font("", "")
			icon := b.opts.WeatherIcons[tr.ID]
			b.filters = append(b.filters, composite.Weather(base, next, tr, fontFile, icon)...)
		}
		base = next
	}
	return base, nil
}

func trackZ(tr timeline.Track) int {
	switch v := tr.(type) {
	case timeline.Video:
		return v.Z
	case timeline.Audio:
		return v.Z
	case timeline.Image:
		return v.Z
	case timeline.Text:
		return v.Z
	case timeline.DateTime:
		return v.Z
	case timeline.Circle:
		return v.Z
	case timeline.Triangle:
		return v.Z
	case timeline.Rectangle:
		return v.Z
	case timeline.Line:
		return v.Z
	case timeline.Ellipse:
		return v.Z
	case timeline.Sign:
		return v.Z
	case timeline.Weather:
		return v.Z
	default:
		return 0
	}
}

func trackID(tr timeline.Track) string {
	switch v := tr.(type) {
	case timeline.Video:
		return v.ID
	case timeline.Audio:
		return v.ID
	case timeline.Image:
		return v.ID
	case timeline.Text:
		return v.ID
	case timeline.DateTime:
		return v.ID
	case timeline.Circle:
		return v.ID
	case timeline.Triangle:
		return v.ID
	case timeline.Rectangle:
		return v.ID
	case timeline.Line:
		return v.ID
	case timeline.Ellipse:
		return v.ID
	case timeline.Sign:
		return v.ID
	case timeline.Weather:
		return v.ID
	default:
		return ""
	}
}

func optColor(s string) string {
	if s == "" {
		return ""
	}
	return color.ParseToken(s, nil)
}

func orOne(f float64) float64 {
	if f <= 0 {
		return 1
	}
	return f
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func joinFilters(filters []string) string {
	out := ""
	for i, f := range filters {
		if i > 0 {
			out += ";\n"
		}
		out += f
	}
	return out
}
