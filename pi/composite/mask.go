/*
DESCRIPTION
  mask.go provides polygon filling and morphological erosion on single
  channel blend masks.

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
	"image"
	"math"
	"sort"

	"github.com/ausocean/aroverlay/pi/homography"
)

// FillQuad sets every pixel of mask whose centre lies inside the polygon pts
// to v, using the even-odd rule. Points are relative to the mask's Min.
func FillQuad(mask *image.Gray, pts []homography.Point, v uint8) {
	if len(pts) < 3 {
		return
	}
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	y0 := max(0, int(math.Floor(minY)))
	y1 := min(h-1, int(math.Ceil(maxY)))

	xs := make([]float64, 0, len(pts))
	for y := y0; y <= y1; y++ {
		cy := float64(y) + 0.5
		xs = xs[:0]
		for i := range pts {
			a, c := pts[i], pts[(i+1)%len(pts)]
			if (a.Y <= cy && cy < c.Y) || (c.Y <= cy && cy < a.Y) {
				xs = append(xs, a.X+(cy-a.Y)*(c.X-a.X)/(c.Y-a.Y))
			}
		}
		sort.Float64s(xs)

		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for i := 0; i+1 < len(xs); i += 2 {
			// Pixels with centre x+0.5 in [xs[i], xs[i+1]).
			start := max(0, int(math.Ceil(xs[i]-0.5)))
			end := min(w, int(math.Ceil(xs[i+1]-0.5)))
			for x := start; x < end; x++ {
				row[x] = v
			}
		}
	}
}

// Erode applies iterations rounds of greyscale erosion to mask using a
// size by size rectangular structuring element anchored at its centre.
// Pixels outside the mask count as 255, so regions touching the edge are not
// eroded from that side. Because each round is applied in turn,
// eroding by n and then by m is the same as eroding by n+m.
func Erode(mask *image.Gray, size, iterations int) {
	if size <= 1 || iterations <= 0 {
		return
	}
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	lo := size / 2
	hi := size - 1 - lo
	tmp := make([]uint8, w*h)

	for it := 0; it < iterations; it++ {
		// The rectangle is separable, so erode rows then columns.
		for y := 0; y < h; y++ {
			row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
			out := tmp[y*w : y*w+w]
			for x := range row {
				m := uint8(255)
				for k := max(0, x-lo); k <= min(w-1, x+hi); k++ {
					if row[k] < m {
						m = row[k]
					}
				}
				out[x] = m
			}
		}
		for y := 0; y < h; y++ {
			row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
			for x := range row {
				m := uint8(255)
				for k := max(0, y-lo); k <= min(h-1, y+hi); k++ {
					if v := tmp[k*w+x]; v < m {
						m = v
					}
				}
				row[x] = m
			}
		}
	}
}
