/*
DESCRIPTION
  quad.go provides the quad compositor, which warps a source image onto
  the region spanned by four anchor markers and blends it into the frame.

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

// Package composite blends warped or scaled images into video frames using
// marker observations.
package composite

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/ausocean/aroverlay/pi/homography"
	"github.com/ausocean/aroverlay/pi/marker"
	"github.com/ausocean/aroverlay/pi/warp"
)

// Recoverable compositing errors. A frame that fails with any of these is
// shown unmodified. Degenerate transforms are reported with
// homography.ErrDegenerate.
var (
	ErrMissingMarker = errors.New("required marker not visible")
	ErrAssetLoad     = errors.New("could not load image asset")
	ErrOutOfBounds   = errors.New("overlay placement outside frame")
)

// Quad compositor defaults.
const (
	DefaultErodeIterations = 3
	DefaultErodeSize       = 3
)

// QuadConfig holds the quad compositor settings.
type QuadConfig struct {
	// Anchors are the marker ids at the top-left, top-right, bottom-right
	// and bottom-left of the target region.
	Anchors [4]int

	// Corners selects which corner of each anchor marker is used.
	Corners marker.CornerPolicy

	ErodeIterations int
	ErodeSize       int // Side of the square structuring element.
}

// DefaultQuadConfig returns the configuration used for markers 0 to 3.
func DefaultQuadConfig() QuadConfig {
	return QuadConfig{
		Anchors:         [4]int{0, 1, 2, 3},
		Corners:         marker.First,
		ErodeIterations: DefaultErodeIterations,
		ErodeSize:       DefaultErodeSize,
	}
}

// Quad composites a single source image onto the quadrilateral formed by
// four anchor markers. The source is never modified, so a Quad may be used
// from several goroutines.
type Quad struct {
	src     *image.NRGBA
	corners []homography.Point
	cfg     QuadConfig
}

// NewQuad returns a Quad compositor for src.
func NewQuad(src *image.NRGBA, cfg QuadConfig) (*Quad, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty source image", ErrAssetLoad)
	}
	if cfg.ErodeSize < 1 {
		return nil, fmt.Errorf("invalid structuring element size: %d", cfg.ErodeSize)
	}
	if cfg.ErodeIterations < 0 {
		return nil, fmt.Errorf("invalid erosion iteration count: %d", cfg.ErodeIterations)
	}
	seen := make(map[int]bool, 4)
	for _, id := range cfg.Anchors {
		if seen[id] {
			return nil, fmt.Errorf("duplicate anchor id: %d", id)
		}
		seen[id] = true
	}
	b := src.Bounds()
	return &Quad{src: src, corners: homography.RectCorners(b.Dx(), b.Dy()), cfg: cfg}, nil
}

// Accepts reports whether all four anchors are visible in o.
func (q *Quad) Accepts(o marker.Observation) bool {
	return o.Has(q.cfg.Anchors[:]...)
}

// Composite returns a copy of frame with the source warped onto the anchor
// region. If any anchor is missing ErrMissingMarker is returned and frame
// should be shown unchanged.
func (q *Quad) Composite(frame *image.RGBA, o marker.Observation) (*image.RGBA, error) {
	dst, ok := q.cfg.Corners.Anchors(o, q.cfg.Anchors)
	if !ok {
		return nil, fmt.Errorf("%w: missing anchors %v", ErrMissingMarker, o.Missing(q.cfg.Anchors[:]...))
	}

	h, err := homography.Solve(q.corners, dst)
	if err != nil {
		return nil, fmt.Errorf("could not solve homography: %w", err)
	}
	w, err := warp.New(h)
	if err != nil {
		return nil, err
	}

	r := image.Rectangle{Max: frame.Bounds().Size()}
	warped := image.NewNRGBA(r)
	w.Warp(warped, q.src)

	mask := image.NewGray(r)
	FillQuad(mask, dst, 255)
	Erode(mask, q.cfg.ErodeSize, q.cfg.ErodeIterations)

	out := image.NewRGBA(frame.Bounds())
	Blend(out, frame, warped, mask)
	return out, nil
}

// Blend writes warped·(m/255) + frame·(1−m/255) into dst for each colour
// channel, where m is the mask value. The sum is computed in floating point
// and rounded. All images must have the same size; the frame's alpha is
// kept.
func Blend(dst, frame *image.RGBA, warped *image.NRGBA, mask *image.Gray) {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		d := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		f := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		s := warped.Pix[y*warped.Stride : y*warped.Stride+w*4]
		m := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x := 0; x < w; x++ {
			a := float64(m[x]) / 255
			i := x * 4
			for c := 0; c < 3; c++ {
				d[i+c] = quantize(float64(s[i+c])*a + float64(f[i+c])*(1-a))
			}
			d[i+3] = f[i+3]
		}
	}
}

// SideBySide returns a canvas holding left and right next to each other,
// top aligned.
func SideBySide(left, right *image.RGBA) *image.RGBA {
	lb, rb := left.Bounds(), right.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, lb.Dx()+rb.Dx(), max(lb.Dy(), rb.Dy())))
	draw.Draw(out, image.Rect(0, 0, lb.Dx(), lb.Dy()), left, lb.Min, draw.Src)
	draw.Draw(out, image.Rect(lb.Dx(), 0, lb.Dx()+rb.Dx(), rb.Dy()), right, rb.Min, draw.Src)
	return out
}

func quantize(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
