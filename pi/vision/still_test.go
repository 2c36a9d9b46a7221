/*
DESCRIPTION
  still_test.go tests the still image source and sink.

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
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/aroverlay/pi/arloop"
	"github.com/ausocean/aroverlay/pi/composite"
	"github.com/ausocean/aroverlay/pi/marker"
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func savePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("could not create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("could not encode %s: %v", path, err)
	}
}

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("could not open %s: %v", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("could not decode %s: %v", path, err)
	}
	return img
}

func TestStillRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	savePNG(t, path, uniform(12, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))

	s, err := OpenStill(path)
	if err != nil {
		t.Fatalf("could not open still: %v", err)
	}
	img, err := s.Read()
	if err != nil {
		t.Fatalf("did not expect error on first read: %v", err)
	}
	if img.Bounds().Size() != image.Pt(12, 8) || s.Size() != image.Pt(12, 8) {
		t.Errorf("unexpected size: %v", img.Bounds())
	}
	if _, err := s.Read(); err != io.EOF {
		t.Errorf("expected io.EOF on second read, got %v", err)
	}

	if _, err := OpenStill(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestImageWriter(t *testing.T) {
	log := (*logging.TestLogger)(t)
	dir := t.TempDir()
	in := composite.ToRGBA(uniform(10, 6, color.NRGBA{R: 200, A: 255}))
	out := composite.ToRGBA(uniform(10, 6, color.NRGBA{G: 200, A: 255}))
	f := &arloop.Frame{Input: in, Output: out, State: arloop.Compositing}

	tests := []struct {
		name       string
		sideBySide bool
		want       image.Point
	}{
		{name: "out.png", want: image.Pt(10, 6)},
		{name: "out.jpg", want: image.Pt(10, 6)},
		{name: "pair.JPEG", sideBySide: true, want: image.Pt(20, 6)},
	}
	for i, test := range tests {
		path := filepath.Join(dir, test.name)
		w, err := NewImageWriter(path, test.sideBySide, log)
		if err != nil {
			t.Fatalf("could not create writer for test %d: %v", i, err)
		}
		if err := w.Emit(f); err != nil {
			t.Fatalf("could not emit for test %d: %v", i, err)
		}
		got := decode(t, path).Bounds().Size()
		if got != test.want {
			t.Errorf("did not get expected result from test: %d. Got: %v, Want: %v", i, got, test.want)
		}
	}

	if _, err := NewImageWriter(filepath.Join(dir, "out.avi"), false, log); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

// TestStillComposite runs a still image through the loop with fixed marker
// positions and checks the written image holds the composite.
func TestStillComposite(t *testing.T) {
	log := (*logging.TestLogger)(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "scene.png")
	savePNG(t, in, uniform(120, 100, color.NRGBA{A: 255}))

	src, err := OpenStill(in)
	if err != nil {
		t.Fatalf("could not open still: %v", err)
	}
	quad := func(x, y float64) marker.Quad {
		return marker.Quad{{X: x, Y: y}, {X: x + 5, Y: y}, {X: x + 5, Y: y + 5}, {X: x, Y: y + 5}}
	}
	det := marker.DetectorFunc(func(*image.RGBA) (marker.Observation, error) {
		return marker.Observation{0: quad(20, 20), 1: quad(100, 20), 2: quad(100, 80), 3: quad(20, 80)}, nil
	})
	comp, err := composite.NewQuad(uniform(8, 6, color.NRGBA{B: 240, A: 255}), composite.DefaultQuadConfig())
	if err != nil {
		t.Fatalf("could not create compositor: %v", err)
	}
	outPath := filepath.Join(dir, "scene_ar_out.jpg")
	sink, err := NewImageWriter(outPath, false, log)
	if err != nil {
		t.Fatalf("could not create writer: %v", err)
	}

	l, err := arloop.New(src, det, comp, sink, log)
	if err != nil {
		t.Fatalf("could not create loop: %v", err)
	}
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("did not expect error from run: %v", err)
	}
	if st := l.Stats(); st.Frames != 1 || st.Composited != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("could not open output: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("could not decode output: %v", err)
	}
	r, _, b, _ := img.At(60, 50).RGBA()
	if b>>8 < 200 || r>>8 > 40 {
		t.Errorf("expected composited blue at centre, got r %d b %d", r>>8, b>>8)
	}
	r, _, b, _ = img.At(5, 5).RGBA()
	if b>>8 > 40 || r>>8 > 40 {
		t.Errorf("expected untouched frame at corner, got r %d b %d", r>>8, b>>8)
	}
}
