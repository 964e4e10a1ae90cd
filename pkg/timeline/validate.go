package timeline

import "fmt"

// Validate checks in/tracks against the invariants in spec.md §3 and
// returns a normalized Timeline. Validation happens once, on the abstract
// timeline, before any asset localization (spec.md §9): no phase here
// depends on a later one.
func Validate(in Input, tracks []Track) (Timeline, error) {
	if in.Width < minCanvasDim || in.Height < minCanvasDim {
		return Timeline{}, &ValidationError{Field: "width/height", Msg: "canvas must be positive"}
	}

	fps := in.FPS
	if fps <= 0 {
		fps = defaultFPS
	}

	if in.Duration < 0 {
		return Timeline{}, &ValidationError{Field: "duration", Msg: "must not be negative"}
	}

	opacity := defaultOpacity
	if in.BackgroundOpacity != nil {
		opacity = *in.BackgroundOpacity
		if opacity < 0 || opacity > 1 {
			return Timeline{}, &ValidationError{Field: "backgroundOpacity", Msg: "must be within [0,1]"}
		}
	}

	fit := in.BackgroundFit
	switch fit {
	case "":
		fit = "cover"
	case "cover", "contain", "stretch":
	default:
		return Timeline{}, &ValidationError{Field: "backgroundFit", Msg: "must be cover, contain, or stretch"}
	}

	for i, tr := range tracks {
		if err := validateTrack(i, tr, in.Duration); err != nil {
			return Timeline{}, err
		}
	}

	return Timeline{
		Width:             in.Width,
		Height:            in.Height,
		FPS:               fps,
		Duration:          in.Duration,
		Background:        orDefault(in.Background, "black"),
		BackgroundImage:   in.BackgroundImage,
		BackgroundOpacity: opacity,
		BackgroundFit:     fit,
		Tracks:            tracks,
		Name:              in.Name,
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func validateTrack(idx int, tr Track, duration float64) error {
	field := func(suffix string) string { return fmt.Sprintf("tracks[%d].%s", idx, suffix) }
	b := tr.base()

	if b.Start < 0 {
		return &ValidationError{Field: field("start"), Msg: "must be >= 0"}
	}
	if b.End < b.Start {
		return &ValidationError{Field: field("end"), Msg: "must be >= start"}
	}
	if duration > 0 && b.End > duration {
		return &ValidationError{Field: field("end"), Msg: "must be <= timeline duration"}
	}

	switch v := tr.(type) {
	case Video:
		if v.Src == "" {
			return &ValidationError{Field: field("src"), Msg: "required"}
		}
		if v.W <= 0 || v.H <= 0 {
			return &ValidationError{Field: field("w/h"), Msg: "must be positive"}
		}
		if v.Volume < 0 || v.Volume > 1 {
			return &ValidationError{Field: field("volume"), Msg: "must be within [0,1]"}
		}
		if v.HasTrim() && v.SrcOut <= v.SrcIn {
			return &ValidationError{Field: field("srcOut"), Msg: "must be > srcIn"}
		}
	case Audio:
		if v.Src == "" {
			return &ValidationError{Field: field("src"), Msg: "required"}
		}
		if v.Volume < 0 || v.Volume > 1 {
			return &ValidationError{Field: field("volume"), Msg: "must be within [0,1]"}
		}
		if v.HasTrim() && v.SrcOut <= v.SrcIn {
			return &ValidationError{Field: field("srcOut"), Msg: "must be > srcIn"}
		}
	case Image:
		if v.Src == "" {
			return &ValidationError{Field: field("src"), Msg: "required"}
		}
		if v.W <= 0 || v.H <= 0 {
			return &ValidationError{Field: field("w/h"), Msg: "must be positive"}
		}
	case Text:
		if v.FontSize <= 0 {
			return &ValidationError{Field: field("fontSize"), Msg: "must be positive"}
		}
	case DateTime:
		if v.FontSize <= 0 {
			return &ValidationError{Field: field("fontSize"), Msg: "must be positive"}
		}
		if v.Format == "" {
			return &ValidationError{Field: field("format"), Msg: "required for datetime tracks"}
		}
	case Circle:
		if v.Radius <= 0 {
			return &ValidationError{Field: field("radius"), Msg: "must be positive"}
		}
	case Triangle:
		if v.W <= 0 || v.H <= 0 {
			return &ValidationError{Field: field("width/height"), Msg: "must be positive"}
		}
		switch v.Direction {
		case "up", "down", "left", "right":
		default:
			return &ValidationError{Field: field("direction"), Msg: "must be up, down, left, or right"}
		}
	case Rectangle:
		if v.W <= 0 || v.H <= 0 {
			return &ValidationError{Field: field("width/height"), Msg: "must be positive"}
		}
	case Line:
		if v.Length <= 0 || v.Thickness <= 0 {
			return &ValidationError{Field: field("length/thickness"), Msg: "must be positive"}
		}
	case Ellipse:
		if v.W <= 0 || v.H <= 0 {
			return &ValidationError{Field: field("width/height"), Msg: "must be positive"}
		}
	case Sign:
		if v.W <= 0 || v.H <= 0 {
			return &ValidationError{Field: field("width/height"), Msg: "must be positive"}
		}
	case Weather:
		if v.W <= 0 || v.H <= 0 {
			return &ValidationError{Field: field("width/height"), Msg: "must be positive"}
		}
	default:
		return &ValidationError{Field: field("type"), Msg: "unsupported track variant"}
	}
	return nil
}
