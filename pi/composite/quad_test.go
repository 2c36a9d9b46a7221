/*
DESCRIPTION
  quad_test.go tests the quad compositor and blending.

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

package composite

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ausocean/aroverlay/pi/homography"
	"github.com/ausocean/aroverlay/pi/marker"
)

func uniformRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// pattern returns an opaque image with position dependent colours.
func pattern(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(2 * x), G: uint8(2 * y), B: 200, A: 255})
		}
	}
	return img
}

func squareMarker(x, y, s float64) marker.Quad {
	return marker.Quad{{x, y}, {x + s, y}, {x + s, y + s}, {x, y + s}}
}

// squareObservation places anchors 0 to 3 with their top-left corners at the
// corners of the square (x0,y0)-(x1,y1).
func squareObservation(x0, y0, x1, y1 float64) marker.Observation {
	return marker.Observation{
		0: squareMarker(x0, y0, 10),
		1: squareMarker(x1, y0, 10),
		2: squareMarker(x1, y1, 10),
		3: squareMarker(x0, y1, 10),
	}
}

func TestBlendMaskExtremes(t *testing.T) {
	const w, h = 16, 12
	frame := uniformRGBA(w, h, color.RGBA{10, 20, 30, 255})
	warped := pattern(w, h)
	r := image.Rect(0, 0, w, h)

	zero := image.NewGray(r)
	out := image.NewRGBA(r)
	Blend(out, frame, warped, zero)
	if !bytes.Equal(out.Pix, frame.Pix) {
		t.Error("zero mask did not reproduce the frame")
	}

	full := image.NewGray(r)
	for i := range full.Pix {
		full.Pix[i] = 255
	}
	Blend(out, frame, warped, full)
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			if out.Pix[i+c] != warped.Pix[i+c] {
				t.Fatalf("full mask did not reproduce warped image at byte %d: got %d, want %d", i+c, out.Pix[i+c], warped.Pix[i+c])
			}
		}
	}

	half := image.NewGray(r)
	for i := range half.Pix {
		half.Pix[i] = 128
	}
	src := image.NewNRGBA(r)
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	black := uniformRGBA(w, h, color.RGBA{A: 255})
	Blend(out, black, src, half)
	if got := out.Pix[0]; got != 128 {
		t.Errorf("unexpected half blend: got %d, want 128", got)
	}
}

// TestQuadSquareRegion places the four anchors on a square and checks the
// source fills it while the rest of the frame is untouched.
func TestQuadSquareRegion(t *testing.T) {
	const (
		srcW, srcH = 100, 100
		x0, y0     = 50, 50
		erosion    = DefaultErodeIterations
	)
	frame := uniformRGBA(200, 200, color.RGBA{50, 50, 50, 255})
	src := pattern(srcW, srcH)

	q, err := NewQuad(src, DefaultQuadConfig())
	if err != nil {
		t.Fatalf("could not create compositor: %v", err)
	}
	obs := squareObservation(x0, y0, x0+srcW, y0+srcH)
	if !q.Accepts(obs) {
		t.Fatal("expected compositor to accept all four anchors")
	}
	out, err := q.Composite(frame, obs)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			got := out.RGBAAt(x, y)
			inside := x >= x0+erosion && x < x0+srcW-erosion && y >= y0+erosion && y < y0+srcH-erosion
			outside := x < x0 || x >= x0+srcW || y < y0 || y >= y0+srcH
			switch {
			case inside:
				want := src.NRGBAAt(x-x0, y-y0)
				if diff(got.R, want.R) > 1 || diff(got.G, want.G) > 1 || diff(got.B, want.B) > 1 {
					t.Fatalf("unexpected source pixel at (%d,%d): got %v, want %v", x, y, got, want)
				}
			case outside:
				if got != frame.RGBAAt(x, y) {
					t.Fatalf("frame changed outside region at (%d,%d): got %v", x, y, got)
				}
			}
		}
	}
}

// TestQuadUpscaled fills a square ten times the size of the source. With no
// erosion the warped content and the mask must cover exactly the same pixels.
func TestQuadUpscaled(t *testing.T) {
	const x0, y0, side = 50, 50, 100
	grey := color.NRGBA{200, 200, 200, 255}
	frame := uniformRGBA(200, 200, color.RGBA{A: 255})
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = grey.R, grey.G, grey.B, grey.A
	}

	for _, erosion := range []int{0, DefaultErodeIterations} {
		cfg := DefaultQuadConfig()
		cfg.ErodeIterations = erosion
		q, err := NewQuad(src, cfg)
		if err != nil {
			t.Fatalf("could not create compositor: %v", err)
		}
		out, err := q.Composite(frame, squareObservation(x0, y0, x0+side, y0+side))
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}

		for y := y0 + erosion; y < y0+side-erosion; y++ {
			for x := x0 + erosion; x < x0+side-erosion; x++ {
				got := out.RGBAAt(x, y)
				if got.R != grey.R || got.G != grey.G || got.B != grey.B {
					t.Fatalf("unexpected pixel at (%d,%d) with erosion %d: got %v, want %v", x, y, erosion, got, grey)
				}
			}
		}
		if erosion == 0 {
			for _, p := range []image.Point{{x0 - 1, y0}, {x0 + side, y0}, {x0, y0 - 1}, {x0, y0 + side}} {
				if got := out.RGBAAt(p.X, p.Y); got != frame.RGBAAt(p.X, p.Y) {
					t.Errorf("frame changed outside region at %v: got %v", p, got)
				}
			}
		}
	}
}

func TestQuadOuterCorners(t *testing.T) {
	frame := uniformRGBA(120, 120, color.RGBA{A: 255})
	src := pattern(20, 20)
	cfg := DefaultQuadConfig()
	cfg.Corners = marker.Outer
	cfg.ErodeIterations = 0

	q, err := NewQuad(src, cfg)
	if err != nil {
		t.Fatalf("could not create compositor: %v", err)
	}

	// Markers of side 10 at the corners of (10,10)-(110,110); the outer
	// corners span exactly that square.
	obs := marker.Observation{
		0: squareMarker(10, 10, 10),
		1: squareMarker(100, 10, 10),
		2: squareMarker(100, 100, 10),
		3: squareMarker(10, 100, 10),
	}
	out, err := q.Composite(frame, obs)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got := out.RGBAAt(12, 12); got.B != 200 {
		t.Errorf("expected source near outer top-left corner, got %v", got)
	}
	if got := out.RGBAAt(5, 5); got != frame.RGBAAt(5, 5) {
		t.Errorf("expected frame outside the region, got %v", got)
	}
}

func TestQuadMissingMarkers(t *testing.T) {
	frame := uniformRGBA(64, 64, color.RGBA{1, 2, 3, 255})
	q, err := NewQuad(pattern(8, 8), DefaultQuadConfig())
	if err != nil {
		t.Fatalf("could not create compositor: %v", err)
	}

	obs := marker.Observation{0: squareMarker(5, 5, 4), 2: squareMarker(40, 40, 4), 9: squareMarker(20, 20, 4)}
	if q.Accepts(obs) {
		t.Error("did not expect compositor to accept 2 of 4 anchors")
	}
	_, err = q.Composite(frame, obs)
	if !errors.Is(err, ErrMissingMarker) {
		t.Errorf("expected ErrMissingMarker, got %v", err)
	}
}

func TestQuadDegenerate(t *testing.T) {
	frame := uniformRGBA(64, 64, color.RGBA{A: 255})
	q, err := NewQuad(pattern(8, 8), DefaultQuadConfig())
	if err != nil {
		t.Fatalf("could not create compositor: %v", err)
	}
	obs := marker.Observation{
		0: squareMarker(10, 10, 4),
		1: squareMarker(20, 20, 4),
		2: squareMarker(30, 30, 4),
		3: squareMarker(40, 40, 4),
	}
	_, err = q.Composite(frame, obs)
	if !errors.Is(err, homography.ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
}

func TestNewQuadInvalid(t *testing.T) {
	cfg := DefaultQuadConfig()
	cfg.Anchors = [4]int{0, 1, 1, 3}
	if _, err := NewQuad(pattern(4, 4), cfg); err == nil {
		t.Error("expected error for duplicate anchors")
	}
	if _, err := NewQuad(nil, DefaultQuadConfig()); !errors.Is(err, ErrAssetLoad) {
		t.Errorf("expected ErrAssetLoad for missing source, got %v", err)
	}
	cfg = DefaultQuadConfig()
	cfg.ErodeSize = 0
	if _, err := NewQuad(pattern(4, 4), cfg); err == nil {
		t.Error("expected error for zero structuring element")
	}
}

func TestSideBySide(t *testing.T) {
	a := uniformRGBA(4, 3, color.RGBA{255, 0, 0, 255})
	b := uniformRGBA(4, 3, color.RGBA{0, 255, 0, 255})
	out := SideBySide(a, b)
	if got, want := out.Bounds(), image.Rect(0, 0, 8, 3); got != want {
		t.Fatalf("unexpected bounds: got %v, want %v", got, want)
	}
	if out.RGBAAt(3, 1) != a.RGBAAt(0, 0) || out.RGBAAt(4, 1) != b.RGBAAt(0, 0) {
		t.Error("images not placed side by side")
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
