// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ffmpeg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// StreamInfo is the subset of ffprobe's output the graph assembler needs
// to decide whether a media track gets an audio chain (spec.md §4.4,
// §8 invariant 3: "the audio chain does not reference [idx:a]" when the
// input has none).
type StreamInfo struct {
	HasVideo      bool
	HasAudio      bool
	DurationSecs  float64
	Width, Height int
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// Probe runs ffprobe on path and returns its stream info.
func (e *Engine) Probe(path string) (StreamInfo, error) {
	cmd := e.ProbeCommand(
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe %v: %w: %v", path, err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output for %v: %w", path, err)
	}

	info := StreamInfo{}
	if out.Format.Duration != "" {
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			info.DurationSecs = d
		}
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
			if s.Width > info.Width {
				info.Width = s.Width
			}
			if s.Height > info.Height {
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}
