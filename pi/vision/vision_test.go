//go:build withcv
// +build withcv

/*
DESCRIPTION
  vision_test.go tests marker generation and detection on synthetic frames.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt.  If not, see http://www.gnu.org/licenses.
*/

package vision

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"testing"

	"github.com/ausocean/aroverlay/pi/marker"
)

const side = 80 // Marker side in pixels.

// scene returns a white frame with the given markers drawn at the given
// top-left positions.
func scene(t *testing.T, w, h int, at map[int]image.Point) *image.RGBA {
	t.Helper()
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for id, p := range at {
		m, err := GenerateMarker(DefaultDictionary, id, side)
		if err != nil {
			t.Fatalf("could not generate marker %d: %v", id, err)
		}
		draw.Draw(frame, image.Rectangle{Min: p, Max: p.Add(image.Pt(side, side))}, m, m.Bounds().Min, draw.Src)
	}
	return frame
}

func TestDetect(t *testing.T) {
	at := map[int]image.Point{
		0: image.Pt(40, 40),
		1: image.Pt(500, 40),
		2: image.Pt(500, 340),
		3: image.Pt(40, 340),
	}
	frame := scene(t, 640, 480, at)

	d, err := NewArucoDetector(DefaultDictionary)
	if err != nil {
		t.Fatalf("could not create detector: %v", err)
	}
	defer d.Close()

	o, err := d.Detect(frame)
	if err != nil {
		t.Fatalf("could not detect markers: %v", err)
	}
	for id, p := range at {
		q, ok := o[id]
		if !ok {
			t.Errorf("marker %d not detected", id)
			continue
		}
		want := marker.Point{X: float64(p.X), Y: float64(p.Y)}
		tl := q[marker.TopLeft]
		if math.Hypot(tl.X-want.X, tl.Y-want.Y) > 2 {
			t.Errorf("unexpected top-left corner for marker %d. Got: %v, Want: %v", id, tl, want)
		}
		if math.Abs(q.Width()-side) > 3 {
			t.Errorf("unexpected width for marker %d: %v", id, q.Width())
		}
	}
	if len(o) != len(at) {
		t.Errorf("unexpected marker count. Got: %d, Want: %d", len(o), len(at))
	}
}

func TestDetectEmpty(t *testing.T) {
	d, err := NewArucoDetector("4x4_50")
	if err != nil {
		t.Fatalf("could not create detector: %v", err)
	}
	defer d.Close()

	o, err := d.Detect(scene(t, 320, 240, nil))
	if err != nil {
		t.Fatalf("could not detect markers: %v", err)
	}
	if len(o) != 0 {
		t.Errorf("expected no markers, got %v", o.IDs())
	}
}

func TestUnknownDictionary(t *testing.T) {
	if _, err := NewArucoDetector("3x3_10"); err == nil {
		t.Error("expected error for unknown dictionary")
	}
	if _, err := GenerateMarker("3x3_10", 1, side); err == nil {
		t.Error("expected error for unknown dictionary")
	}
	if _, err := GenerateMarker(DefaultDictionary, 1, 0); err == nil {
		t.Error("expected error for zero side")
	}
}

func TestWriteMarkers(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteMarkers(dir, DefaultDictionary, []int{1, 2, 3}, DefaultMarkerSide)
	if err != nil {
		t.Fatalf("could not write markers: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("unexpected number of markers written: %d", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("marker file missing: %v", err)
		}
	}
}
