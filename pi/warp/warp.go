/*
DESCRIPTION
  warp.go resamples a source image into the pixel space of a destination
  canvas through a projective transform.

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

// Package warp provides a bilinear perspective warper.
package warp

import (
	"fmt"
	"image"
	"math"

	"github.com/ausocean/aroverlay/pi/homography"
)

// Warper maps source pixels into a destination canvas. The inverse of the
// transform is computed once, when the Warper is created.
type Warper struct {
	h   homography.Matrix
	inv homography.Matrix
}

// New returns a Warper for the transform h, which maps source coordinates to
// destination coordinates.
func New(h homography.Matrix) (*Warper, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, fmt.Errorf("could not invert transform: %w", err)
	}
	return &Warper{h: h, inv: inv}, nil
}

// Transform returns the forward transform of the Warper.
func (w *Warper) Transform() homography.Matrix { return w.h }

// Warp fills dst so that each pixel holds the bilinear sample of src at
// H⁻¹ applied to the pixel's centre. Pixel (x, y) covers the unit square
// from (x, y) to (x+1, y+1), so src spans [0,W)×[0,H) and points mapping
// outside it are transparent black. Coordinates are relative to the Min
// point of each image's bounds.
func (w *Warper) Warp(dst, src *image.NRGBA) {
	db, sb := dst.Bounds(), src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	fw, fh := float64(sw), float64(sh)
	m := &w.inv

	for y := 0; y < db.Dy(); y++ {
		fy := float64(y) + 0.5
		// Terms constant along the row.
		bx := m[0][1]*fy + m[0][2]
		by := m[1][1]*fy + m[1][2]
		bw := m[2][1]*fy + m[2][2]

		row := dst.Pix[y*dst.Stride : y*dst.Stride+db.Dx()*4]
		for x := 0; x < db.Dx(); x++ {
			px := row[x*4 : x*4+4 : x*4+4]
			fx := float64(x) + 0.5
			hw := m[2][0]*fx + bw
			if math.Abs(hw) < 1e-12 {
				clear(px)
				continue
			}
			u := (m[0][0]*fx + bx) / hw
			v := (m[1][0]*fx + by) / hw
			if !(u >= 0 && v >= 0 && u < fw && v < fh) {
				clear(px)
				continue
			}
			// Source pixel centres sit at half integers.
			sx := min(max(u-0.5, 0), fw-1)
			sy := min(max(v-0.5, 0), fh-1)
			sampleBilinear(px, src, sx, sy, sw, sh)
		}
	}
}

// Perspective warps src through h onto a new canvas of the given size.
func Perspective(src *image.NRGBA, h homography.Matrix, size image.Point) (*image.NRGBA, error) {
	w, err := New(h)
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rectangle{Max: size})
	w.Warp(dst, src)
	return dst, nil
}
