package timeline

import (
	"encoding/json"
	"fmt"
)

// Input is the raw wire format: a Timeline whose tracks are still untyped
// JSON, peeked and dispatched by "type" during Parse.
type Input struct {
	Width             int             `json:"width"`
	Height            int             `json:"height"`
	FPS               int             `json:"fps"`
	Duration          float64         `json:"duration"`
	Background        string          `json:"background"`
	BackgroundImage   string          `json:"backgroundImage"`
	BackgroundOpacity *float64        `json:"backgroundOpacity"`
	BackgroundFit     string          `json:"backgroundFit"`
	Name              string          `json:"name"`
	Tracks            []json.RawMessage `json:"tracks"`
}

type rawMediaTrim struct {
	SrcIn  float64  `json:"srcIn"`
	SrcOut *float64 `json:"srcOut"`
	Volume *float64 `json:"volume"`
}

// rawFillColor peeks the "color" alias rectangle/triangle/ellipse accept
// for "fill", matching the original shapes/{rectangle,triangle,ellipse}.py
// ("t.get(\"fill\") or t.get(\"color\")").
type rawFillColor struct {
	Color string `json:"color"`
}

// Parse decodes raw track JSON into the tagged-union Track values, peeking
// each element's "type" field. Unknown types are a hard error, per
// spec.md §4.8. Parse does not validate invariants; call Validate next.
func Parse(raw []byte) (Input, []Track, error) {
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return Input{}, nil, &ValidationError{Field: "$", Msg: fmt.Sprintf("malformed timeline json: %v", err)}
	}

	tracks := make([]Track, 0, len(in.Tracks))
	for i, rawTrack := range in.Tracks {
		var peek struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(rawTrack, &peek); err != nil {
			return Input{}, nil, &ValidationError{Field: fmt.Sprintf("tracks[%d]", i), Msg: "malformed track"}
		}

		track, err := parseTrack(peek.Type, rawTrack)
		if err != nil {
			return Input{}, nil, &ValidationError{Field: fmt.Sprintf("tracks[%d]", i), Msg: err.Error()}
		}
		tracks = append(tracks, track)
	}
	return in, tracks, nil
}

func parseTrack(trackType string, raw json.RawMessage) (Track, error) {
	switch trackType {
	case "video":
		var v Video
		var trim rawMediaTrim
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		json.Unmarshal(raw, &trim) //nolint:errcheck
		v.SrcIn = trim.SrcIn
		if trim.SrcOut != nil {
			v.SrcOut = *trim.SrcOut
			v.hasOut = true
		}
		if trim.Volume != nil {
			v.Volume = *trim.Volume
		} else {
			v.Volume = 1
		}
		return v, nil
	case "audio":
		var a Audio
		var trim rawMediaTrim
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		json.Unmarshal(raw, &trim) //nolint:errcheck
		a.SrcIn = trim.SrcIn
		if trim.SrcOut != nil {
			a.SrcOut = *trim.SrcOut
			a.hasOut = true
		}
		if trim.Volume != nil {
			a.Volume = *trim.Volume
		} else {
			a.Volume = 1
		}
		return a, nil
	case "image":
		var v Image
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "text":
		var v Text
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "datetime":
		var v DateTime
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		var tzProbe struct {
			UseLocalTime *bool `json:"useLocalTime"`
		}
		json.Unmarshal(raw, &tzProbe) //nolint:errcheck
		v.utcExplicit = tzProbe.UseLocalTime != nil
		return v, nil
	case "circle":
		var v Circle
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "triangle":
		var v Triangle
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Fill == "" {
			var alias rawFillColor
			json.Unmarshal(raw, &alias) //nolint:errcheck
			v.Fill = alias.Color
		}
		return v, nil
	case "rectangle":
		var v Rectangle
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Fill == "" {
			var alias rawFillColor
			json.Unmarshal(raw, &alias) //nolint:errcheck
			v.Fill = alias.Color
		}
		return v, nil
	case "line":
		var v Line
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "ellipse":
		var v Ellipse
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Fill == "" {
			var alias rawFillColor
			json.Unmarshal(raw, &alias) //nolint:errcheck
			v.Fill = alias.Color
		}
		return v, nil
	case "sign":
		var v Sign
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "weather":
		var v Weather
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown track type %q", trackType)
	}
}
