// Package timeline defines the declarative Timeline input and validates it
// into a typed, normalized value safe for the graph assembler, per
// spec.md §3 and §4.8.
package timeline

// Base holds the fields common to every track variant.
type Base struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Z     int     `json:"z"`
}

// Track is a tagged-union member: one concrete type per track variant.
// Concrete types are value types (Timeline owns its tracks by value).
type Track interface {
	base() Base
}

// Video is a video media track.
type Video struct {
	Base
	Src    string  `json:"src"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	W      int     `json:"w"`
	H      int     `json:"h"`
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
	SrcIn  float64 `json:"srcIn"`
	SrcOut float64 `json:"srcOut"`
	hasOut bool
}

func (v Video) base() Base { return v.Base }

// HasTrim reports whether a source-time cut window was specified.
func (v Video) HasTrim() bool { return v.hasOut }

// Audio is an audio-only media track.
type Audio struct {
	Base
	Src    string  `json:"src"`
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
	SrcIn  float64 `json:"srcIn"`
	SrcOut float64 `json:"srcOut"`
	hasOut bool
}

func (a Audio) base() Base { return a.Base }

// HasTrim reports whether a source-time cut window was specified.
func (a Audio) HasTrim() bool { return a.hasOut }

// Image is a still-image media track, looped for the whole timeline
// duration and shown during its start/end window.
type Image struct {
	Base
	Src string `json:"src"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
	W   int    `json:"w"`
	H   int    `json:"h"`
}

func (i Image) base() Base { return i.Base }

// Text is a literal text overlay.
type Text struct {
	Base
	Text        string  `json:"text"`
	FontFamily  string  `json:"fontFamily"`
	FontPath    string  `json:"fontPath"`
	FontSize    int     `json:"fontSize"`
	Color       string  `json:"color"`
	StrokeColor string  `json:"strokeColor"`
	StrokeWidth int     `json:"strokeWidth"`
	BgColor     string  `json:"bgColor"`
	Padding     int     `json:"padding"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
}

func (t Text) base() Base { return t.Base }

// DateTime is a live per-frame clock overlay, sharing Text's field group
// plus a format string (composition over inheritance, per spec.md §9).
type DateTime struct {
	Text
	Format       string `json:"format"`
	UseLocalTime bool   `json:"useLocalTime"`
	utcExplicit  bool
}

func (d DateTime) base() Base { return d.Base }

// TimezoneExplicit reports whether UseLocalTime was set on the wire rather
// than defaulted. The default (server local) decision is documented in
// DESIGN.md's Open Question resolution.
func (d DateTime) TimezoneExplicit() bool { return d.utcExplicit }

// Circle is a filled/outlined circle primitive.
type Circle struct {
	Base
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Radius       int     `json:"radius"`
	Fill         string  `json:"fill"`
	Outline      string  `json:"outline"`
	OutlineWidth int     `json:"outlineWidth"`
	Opacity      float64 `json:"opacity"`
}

func (c Circle) base() Base { return c.Base }

// Triangle is a directional triangle primitive.
type Triangle struct {
	Base
	X            int     `json:"x"`
	Y            int     `json:"y"`
	W            int     `json:"width"`
	H            int     `json:"height"`
	Direction    string  `json:"direction"`
	Fill         string  `json:"fill"`
	Outline      string  `json:"outline"`
	OutlineWidth int     `json:"outlineWidth"`
	Opacity      float64 `json:"opacity"`
}

func (t Triangle) base() Base { return t.Base }

// Rectangle is a filled/outlined, optionally rounded, rectangle primitive.
type Rectangle struct {
	Base
	X            int     `json:"x"`
	Y            int     `json:"y"`
	W            int     `json:"width"`
	H            int     `json:"height"`
	BorderRadius int     `json:"borderRadius"`
	Fill         string  `json:"fill"`
	Outline      string  `json:"outline"`
	OutlineWidth int     `json:"outlineWidth"`
	Opacity      float64 `json:"opacity"`
}

func (r Rectangle) base() Base { return r.Base }

// Line is a rotated straight-line primitive.
type Line struct {
	Base
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Length    int     `json:"length"`
	Thickness int     `json:"thickness"`
	Rotation  float64 `json:"rotation"`
	Color     string  `json:"color"`
	Opacity   float64 `json:"opacity"`
}

func (l Line) base() Base { return l.Base }

// Ellipse is a filled/outlined ellipse primitive.
type Ellipse struct {
	Base
	X            int     `json:"x"`
	Y            int     `json:"y"`
	W            int     `json:"width"`
	H            int     `json:"height"`
	Fill         string  `json:"fill"`
	Outline      string  `json:"outline"`
	OutlineWidth int     `json:"outlineWidth"`
	Opacity      float64 `json:"opacity"`
}

func (e Ellipse) base() Base { return e.Base }

// SignComponents toggles which parts of a Sign panel are drawn. Symbol is
// not consulted: no symbol is drawn, and Sign's SymbolType, CustomSymbol
// and Image fields are not rendered.
type SignComponents struct {
	Background bool `json:"background"`
	Border     bool `json:"border"`
	Text       bool `json:"text"`
	Symbol     bool `json:"symbol"`
	Icon       bool `json:"icon"`
	Arrow      bool `json:"arrow"`
}

// Sign is a composite panel built from C2/C3 primitives.
type Sign struct {
	Base
	X            int            `json:"x"`
	Y            int            `json:"y"`
	W            int            `json:"width"`
	H            int            `json:"height"`
	Rotation     float64        `json:"rotation"`
	Opacity      float64        `json:"opacity"`
	Show         SignComponents `json:"showComponents"`
	Colors       map[string]string `json:"colors"`
	FontSizes    map[string]int    `json:"fontSizes"`
	IconSize     int            `json:"iconSize"`
	Image        string         `json:"image"`
	SymbolType   string         `json:"symbolType"`
	CustomSymbol string         `json:"customSymbol"`
	Text         string         `json:"text"`
}

func (s Sign) base() Base { return s.Base }

// WeatherData holds the observational fields a Weather panel renders.
type WeatherData struct {
	Summary         string  `json:"summary"`
	IconCode        string  `json:"iconCode"`
	Temperature     float64 `json:"temperature"`
	TempMax         float64 `json:"tempMax"`
	TempMin         float64 `json:"tempMin"`
	Humidity        float64 `json:"humidity"`
	WindSpeed       float64 `json:"windSpeed"`
	WindDirection   float64 `json:"windDirection"`
	DateText        string  `json:"dateText"`
	AttributionText string  `json:"attributionText"`
}

// LayoutBox is an absolute per-part placement override.
type LayoutBox struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	W      int  `json:"width"`
	H      int  `json:"height"`
	Screen bool `json:"screen"` // true = screen-space, false = panel-local
}

// Weather is a composite panel built from C2/C3 primitives plus observation
// data, with optional per-part absolute layout.
type Weather struct {
	Base
	X              int                  `json:"x"`
	Y              int                  `json:"y"`
	W              int                  `json:"width"`
	H              int                  `json:"height"`
	Rotation       float64              `json:"rotation"`
	Opacity        float64              `json:"opacity"`
	Data           WeatherData          `json:"data"`
	ShowComponents map[string]bool      `json:"showComponents"`
	Colors         map[string]string    `json:"colors"`
	FontSizes      map[string]int       `json:"fontSizes"`
	IconSize       int                  `json:"iconSize"`
	Layout         map[string]LayoutBox `json:"layout"`
	Align          string               `json:"align"`
}

func (w Weather) base() Base { return w.Base }
