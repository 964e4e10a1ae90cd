// Package text emits drawtext filter nodes for literal text tracks and
// live per-frame clock tracks (datetime), per spec.md §4.3.
package text

import (
	"fmt"
	"strings"
)

// Spec describes one text-draw operation.
type Spec struct {
	FontFile     string
	FontSize     int
	Color        string // canonical engine color token
	StrokeColor  string // empty if no stroke
	StrokeWidth  int
	BoxColor     string // empty if no background box
	Padding      int
	X, Y         int
	Start, End   float64
	Text         string // literal text; empty when DateFormat is set
	DateFormat   string // strftime-style format; evaluated per frame when set
	UseLocalTime bool
}

// escape guards the literal characters drawtext treats specially.
func escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return r.Replace(s)
}

// Build returns the complete drawtext filter node "[in]drawtext=...[out]"
// for the given input/output labels.
func Build(in, out string, s Spec) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("fontfile='%s'", escape(s.FontFile)))

	if s.DateFormat != "" {
		tz := ""
		if !s.UseLocalTime {
			tz = ":tz=UTC"
		}
		parts = append(parts, fmt.Sprintf("text='%%{localtime\\:%s}'%s", escape(s.DateFormat), tz))
	} else {
		parts = append(parts, fmt.Sprintf("text='%s'", escape(s.Text)))
	}

	parts = append(parts,
		fmt.Sprintf("fontsize=%d", s.FontSize),
		fmt.Sprintf("fontcolor=%s", s.Color),
		fmt.Sprintf("x=%d", s.X),
		fmt.Sprintf("y=%d", s.Y),
	)

	if s.StrokeColor != "" && s.StrokeWidth > 0 {
		parts = append(parts,
			fmt.Sprintf("bordercolor=%s", s.StrokeColor),
			fmt.Sprintf("borderw=%d", s.StrokeWidth),
		)
	}
	if s.BoxColor != "" {
		parts = append(parts,
			"box=1",
			fmt.Sprintf("boxcolor=%s", s.BoxColor),
			fmt.Sprintf("boxborderw=%d", s.Padding),
		)
	}

	parts = append(parts, fmt.Sprintf("enable='between(t,%s,%s)'", trimFloat(s.Start), trimFloat(s.End)))

	return fmt.Sprintf("[%s]drawtext=%s[%s]", in, strings.Join(parts, ":"), out)
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.3f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}
