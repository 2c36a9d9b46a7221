/*
DESCRIPTION
  annotate.go draws marker outlines and id labels onto frames.

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
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ausocean/aroverlay/pi/marker"
)

// labelRise is how far above the marker's top-left corner the label baseline
// sits.
const labelRise = 10

// Outline draws the axis aligned rectangle from the top-left to the
// bottom-right corner of q with lines t pixels thick.
func Outline(dst *image.RGBA, q marker.Quad, c color.Color, t int) {
	tl, br := q[marker.TopLeft], q[marker.BottomRight]
	x0, y0 := int(min(tl.X, br.X)), int(min(tl.Y, br.Y))
	x1, y1 := int(max(tl.X, br.X)), int(max(tl.Y, br.Y))

	// Lines are centred on the rectangle edges.
	lo := t / 2
	hi := t - lo
	src := image.NewUniform(c)
	for _, r := range []image.Rectangle{
		image.Rect(x0-lo, y0-lo, x1+hi, y0+hi), // Top.
		image.Rect(x0-lo, y1-lo, x1+hi, y1+hi), // Bottom.
		image.Rect(x0-lo, y0-lo, x0+hi, y1+hi), // Left.
		image.Rect(x1-lo, y0-lo, x1+hi, y1+hi), // Right.
	} {
		draw.Draw(dst, r.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

// Label writes the marker id just above its top-left corner. A nil face
// uses basicfont.Face7x13.
func Label(dst *image.RGBA, id int, q marker.Quad, c color.Color, face font.Face) {
	if face == nil {
		face = basicfont.Face7x13
	}
	tl := q[marker.TopLeft]
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(int(tl.X), int(tl.Y)-labelRise),
	}
	d.DrawString(strconv.Itoa(id))
}

// LoadFace parses the TrueType font at path and returns a face of the given
// point size for labels.
func LoadFace(path string, size float64) (font.Face, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetLoad, err)
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%w: could not parse font %s: %v", ErrAssetLoad, path, err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}
