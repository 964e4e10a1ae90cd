package timeline

// Timeline is the validated, normalized timeline consumed by the graph
// assembler (C6). Its tracks have already had invariants enforced and
// optional fields defaulted.
type Timeline struct {
	Width             int
	Height            int
	FPS               int
	Duration          float64 // as given, may be 0; see EffectiveDuration
	Background        string  // color string as given, default "black"
	BackgroundImage   string
	BackgroundOpacity float64
	BackgroundFit     string
	Tracks            []Track
	Name              string
}

const (
	minCanvasDim   = 1
	defaultFPS     = 30
	defaultOpacity = 1.0
)

// FrameDuration returns the duration of a single frame at the timeline's fps.
func (t Timeline) FrameDuration() float64 {
	return 1.0 / float64(t.FPS)
}

// EffectiveDuration returns Duration, clamped to at least one frame, per
// spec.md §3 and the boundary case in §8 ("duration=0 -> still mode must
// succeed; video mode produces a one-frame MP4").
func (t Timeline) EffectiveDuration() float64 {
	if t.Duration > 0 {
		return t.Duration
	}
	return t.FrameDuration()
}
