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
	"image"
	"image/color"
	"image/png"
	"os"
)

// RenderFallbackCircle rasterizes a solid-fill circle of diameter size and
// saves it as a PNG at path. Used by the weather composite emitter (C5)
// when no icon image is available: "icon (PNG from URL or the
// colored-circle fallback)" per spec.md §4.5.
func RenderFallbackCircle(path string, size int, fill color.RGBA) error {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float64(size) / 2

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - r
			dy := float64(y) - r
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, fill)
			}
		}
	}
	return saveImage(path, img)
}

func saveImage(path string, img image.Image) error {
	os.Remove(path) //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return err
	}
	return file.Close()
}
