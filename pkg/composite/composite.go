// Package composite builds the Sign and Weather panel overlays by composing
// mask and text primitives, per spec.md §4.5.
package composite

import (
	"fmt"

	"compositor/pkg/color"
	"compositor/pkg/mask"
	"compositor/pkg/text"
	"compositor/pkg/timeline"
)

// Sign builds the filter lines for a sign track, overlaying the finished
// panel onto base so its center lands at (x+w/2, y+h/2) after rotation.
func Sign(base, next string, s timeline.Sign, fontFile string) []string {
	panel := s.ID + "_panel"
	var lines []string

	bg := colorOr(s.Colors["background"], "#00000080")
	if !s.Show.Background {
		bg = colorOr("transparent", "")
	}
	lines = append(lines, rectClip(panel+"_bg", s.W, s.H, 0, bg, "", 0, s.Opacity)...)
	current := panel + "_bg"

	if s.Show.Border {
		borderColor := colorOr(s.Colors["border"], "white")
		lines = append(lines, rectClip(panel+"_border", s.W, s.H, 0, "", borderColor, 2, s.Opacity)...)
		lines = append(lines, overlay(panel+"_1", current, panel+"_border"))
		current = panel + "_1"
	}

	if s.Show.Icon && s.IconSize > 0 {
		iconColor := colorOr(s.Colors["icon"], "white")
		circleLines, _, _ := mask.BuildCircle(panel+"_icon", s.IconSize/2, mask.Style{Fill: iconColor, Opacity: s.Opacity})
		lines = append(lines, circleLines...)
		lines = append(lines, fmt.Sprintf("[%s][%s]overlay=%d:%d[%s]", current, panel+"_icon", 8, (s.H-s.IconSize)/2, panel+"_2"))
		current = panel + "_2"
	}

	if s.Show.Arrow {
		arrowColor := colorOr(s.Colors["arrow"], "white")
		w := 20
		arrowLines, _, _ := mask.BuildTriangle(panel+"_arrow", w, w, "right", mask.Style{Fill: arrowColor, Opacity: s.Opacity})
		lines = append(lines, arrowLines...)
		lines = append(lines, fmt.Sprintf("[%s][%s]overlay=%d:%d[%s]", current, panel+"_arrow", s.W-w-8, (s.H-w)/2, panel+"_3"))
		current = panel + "_3"
	}

	if s.Show.Text && s.Text != "" {
		textColor := colorOr(s.Colors["text"], "white")
		size := s.FontSizes["text"]
		if size == 0 {
			size = 24
		}
		lines = append(lines, text.Build(current, panel+"_4", text.Spec{
			FontFile: fontFile, FontSize: size, Color: textColor,
			X: s.W / 2, Y: s.H / 2, Start: s.Base.Start, End: s.Base.End, Text: s.Text,
		}))
		current = panel + "_4"
	}

	cx := s.X + s.W/2
	cy := s.Y + s.H/2
	lines = append(lines, rotateAndOverlay(base, current, next, s.W, s.H, cx, cy, s.Rotation, s.Base.Start, s.Base.End))
	return lines
}

// Weather builds the filter lines for a weather panel, rendering the
// pieces that are present and toggled, with optional per-part layout
// overrides (screen-space boxes are converted to panel-local), per
// spec.md §4.5.
func Weather(base, next string, w timeline.Weather, fontFile string, iconPath string) []string {
	panel := w.ID + "_panel"
	var lines []string

	if len(w.Layout) > 0 {
		local := make(map[string]timeline.LayoutBox, len(w.Layout))
		for k, l := range w.Layout {
			if l.Screen {
				l.X, l.Y = l.X-w.X, l.Y-w.Y
			}
			local[k] = l
		}
		w.Layout = local
	}

	bg := colorOr(w.Colors["background"], "#00000080")
	lines = append(lines, rectClip(panel+"_bg", w.W, w.H, 8, bg, "", 0, w.Opacity)...)
	current := panel + "_bg"
	step := 0

	partOut := func(name string) string { return panel + "_" + name }

	if show(w.ShowComponents, "icon") && iconPath != "" {
		box := layoutBox(w.Layout, "icon", 8, 8, w.IconSize, w.IconSize)
		lines = append(lines, fmt.Sprintf("movie='%s'[%s_icon_src]", iconPath, panel))
		lines = append(lines, fmt.Sprintf("[%s_icon_src]scale=%d:%d[%s]", panel, box.W, box.H, partOut("icon")))
		step++
		lines = append(lines, fmt.Sprintf("[%s][%s]overlay=%d:%d[%s_%d]", current, partOut("icon"), box.X, box.Y, panel, step))
		current = fmt.Sprintf("%s_%d", panel, step)
	}

	textColor := colorOr(w.Colors["text"], "white")
	sizeOf := func(key string, def int) int {
		if v, ok := w.FontSizes[key]; ok && v > 0 {
			return v
		}
		return def
	}

	addText := func(key, literal string, x, y, size int) {
		step++
		out := fmt.Sprintf("%s_%d", panel, step)
		lines = append(lines, text.Build(current, out, text.Spec{
			FontFile: fontFile, FontSize: size, Color: textColor,
			X: x, Y: y, Start: w.Base.Start, End: w.Base.End, Text: literal,
		}))
		current = out
	}

	if show(w.ShowComponents, "summary") && w.Data.Summary != "" {
		box := layoutBox(w.Layout, "summary", w.IconSize+16, 8, 0, 0)
		addText("summary", w.Data.Summary, box.X, box.Y, sizeOf("summary", 20))
	}
	if show(w.ShowComponents, "temperature") {
		box := layoutBox(w.Layout, "temperature", w.IconSize+16, 32, 0, 0)
		addText("temperature", fmt.Sprintf("%.0f°", w.Data.Temperature), box.X, box.Y, sizeOf("temperature", 36))
	}
	if show(w.ShowComponents, "maxMin") {
		box := layoutBox(w.Layout, "maxMin", w.IconSize+16, 72, 0, 0)
		addText("maxMin", fmt.Sprintf("%.0f° / %.0f°", w.Data.TempMax, w.Data.TempMin), box.X, box.Y, sizeOf("maxMin", 16))
	}
	if show(w.ShowComponents, "humidity") {
		box := layoutBox(w.Layout, "humidity", 8, w.H-48, 0, 0)
		addText("humidity", fmt.Sprintf("%.0f%% humidity", w.Data.Humidity), box.X, box.Y, sizeOf("humidity", 14))
	}
	if show(w.ShowComponents, "wind") {
		box := layoutBox(w.Layout, "wind", 8, w.H-28, 0, 0)
		addText("wind", fmt.Sprintf("%.0f km/h", w.Data.WindSpeed), box.X, box.Y, sizeOf("wind", 14))
	}
	if show(w.ShowComponents, "date") && w.Data.DateText != "" {
		box := layoutBox(w.Layout, "date", w.W-100, 8, 0, 0)
		addText("date", w.Data.DateText, box.X, box.Y, sizeOf("date", 14))
	}
	if show(w.ShowComponents, "attribution") && w.Data.AttributionText != "" {
		box := layoutBox(w.Layout, "attribution", w.W-140, w.H-16, 0, 0)
		addText("attribution", w.Data.AttributionText, box.X, box.Y, sizeOf("attribution", 10))
	}

	cx := w.X + w.W/2
	cy := w.Y + w.H/2
	lines = append(lines, rotateAndOverlay(base, current, next, w.W, w.H, cx, cy, w.Rotation, w.Base.Start, w.Base.End))
	return lines
}

func colorOr(s, def string) string {
	if s == "" {
		s = def
	}
	return color.ParseToken(s, nil)
}

func rectClip(out string, w, h, radius int, fill, outline string, outlineWidth int, opacity float64) []string {
	lines, _, _ := mask.BuildRoundedRect(out, w, h, radius, mask.Style{
		Fill: fill, Outline: outline, OutlineWidth: outlineWidth, Opacity: opacity,
	})
	return lines
}

func overlay(out, bottom, top string) string {
	return fmt.Sprintf("[%s][%s]overlay=0:0[%s]", bottom, top, out)
}

func show(m map[string]bool, key string) bool {
	if m == nil {
		return true
	}
	v, ok := m[key]
	if !ok {
		return true
	}
	return v
}

type box struct{ X, Y, W, H int }

func layoutBox(layout map[string]timeline.LayoutBox, key string, defX, defY, defW, defH int) box {
	if layout != nil {
		if l, ok := layout[key]; ok {
			return box{l.X, l.Y, l.W, l.H}
		}
	}
	return box{defX, defY, defW, defH}
}

// rotateAndOverlay rotates a w x h panel about its center by rotationDeg,
// then overlays it so that center lands at (cx, cy), gated by the track's
// enable window.
func rotateAndOverlay(base, panel, out string, w, h, cx, cy int, rotationDeg, start, end float64) string {
	rotated := panel + "_rot"
	rotate := fmt.Sprintf("[%s]rotate=%.4f*PI/180:c=none[%s];", panel, rotationDeg, rotated)
	x := cx - w/2
	y := cy - h/2
	return fmt.Sprintf("%s[%s][%s]overlay=%d:%d:enable='between(t,%.3f,%.3f)'[%s]",
		rotate, base, rotated, x, y, start, end, out)
}
