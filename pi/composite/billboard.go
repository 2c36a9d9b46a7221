/*
DESCRIPTION
  billboard.go provides the billboard compositor, which draws a separate
  overlay image over each visible marker, scaled to the marker's size.

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
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/ausocean/aroverlay/pi/marker"
)

// DefaultScale is the overlay size relative to the marker when no per-marker
// scale is configured.
const DefaultScale = 0.5

// Green is the default annotation colour.
var Green = color.RGBA{G: 255, A: 255}

// BillboardConfig holds the billboard compositor settings.
type BillboardConfig struct {
	Scales       map[int]float64 // Per marker overlay scale.
	DefaultScale float64

	Outline   bool // Draw the marker outline.
	Label     bool // Draw the marker id.
	Colour    color.Color
	Thickness int
	Face      font.Face // Label face; basicfont when nil.
}

// DefaultBillboardConfig returns the default billboard settings.
func DefaultBillboardConfig() BillboardConfig {
	return BillboardConfig{
		DefaultScale: DefaultScale,
		Outline:      true,
		Label:        true,
		Colour:       Green,
		Thickness:    2,
	}
}

// Billboard composites one overlay per registered marker. The overlays are
// read only after construction. If a label face is set, a Billboard must not
// be used from more than one goroutine at a time.
type Billboard struct {
	overlays map[int]*image.NRGBA
	cfg      BillboardConfig
}

// NewBillboard returns a Billboard drawing overlays[id] over marker id.
func NewBillboard(overlays map[int]*image.NRGBA, cfg BillboardConfig) (*Billboard, error) {
	if cfg.DefaultScale <= 0 {
		return nil, fmt.Errorf("invalid default scale: %v", cfg.DefaultScale)
	}
	for id, k := range cfg.Scales {
		if k <= 0 {
			return nil, fmt.Errorf("invalid scale for marker %d: %v", id, k)
		}
	}
	if cfg.Colour == nil {
		cfg.Colour = Green
	}
	if cfg.Thickness < 1 {
		cfg.Thickness = 1
	}
	o := make(map[int]*image.NRGBA, len(overlays))
	for id, img := range overlays {
		if img != nil {
			o[id] = img
		}
	}
	return &Billboard{overlays: o, cfg: cfg}, nil
}

// Scale returns the overlay scale used for marker id.
func (b *Billboard) Scale(id int) float64 {
	if k, ok := b.cfg.Scales[id]; ok {
		return k
	}
	return b.cfg.DefaultScale
}

// Accepts reports whether any visible marker has a registered overlay.
func (b *Billboard) Accepts(o marker.Observation) bool {
	for id := range o {
		if _, ok := b.overlays[id]; ok {
			return true
		}
	}
	return false
}

// Composite returns a copy of frame with an overlay drawn over each visible
// registered marker. Markers without an overlay are ignored. Markers that
// cannot be drawn are skipped and reported in the returned error, which
// wraps ErrOutOfBounds or marker validity errors; the returned image is
// still valid in that case.
func (b *Billboard) Composite(frame *image.RGBA, o marker.Observation) (*image.RGBA, error) {
	out := image.NewRGBA(frame.Bounds())
	copy(out.Pix, frame.Pix)

	var errs []error
	for _, id := range o.IDs() {
		ov, ok := b.overlays[id]
		if !ok {
			continue
		}
		q := o[id]
		if !q.Valid() {
			errs = append(errs, fmt.Errorf("marker %d: non-finite corners", id))
			continue
		}

		err := b.draw(out, ov, q, b.Scale(id))
		if err != nil {
			errs = append(errs, fmt.Errorf("marker %d: %w", id, err))
			continue
		}
		if b.cfg.Outline {
			Outline(out, q, b.cfg.Colour, b.cfg.Thickness)
		}
		if b.cfg.Label {
			Label(out, id, q, b.cfg.Colour, b.cfg.Face)
		}
	}
	return out, errors.Join(errs...)
}

// draw scales ov to the placement for q and alpha blends it into dst.
func (b *Billboard) draw(dst *image.RGBA, ov *image.NRGBA, q marker.Quad, k float64) error {
	r := Place(q, k)
	if r.Empty() {
		return fmt.Errorf("%w: empty placement %v", ErrOutOfBounds, r)
	}
	clip := r.Intersect(dst.Bounds())
	if clip.Empty() {
		return fmt.Errorf("%w: placement %v", ErrOutOfBounds, r)
	}

	if ov.Bounds().Size() == r.Size() {
		AlphaBlend(dst, clip, ov, clip.Min.Sub(r.Min).Add(ov.Bounds().Min))
		return nil
	}

	// Only the visible part of the overlay is scaled.
	vis := image.NewNRGBA(image.Rectangle{Max: clip.Size()})
	draw.BiLinear.Scale(vis, r.Sub(clip.Min), ov, ov.Bounds(), draw.Src, nil)
	AlphaBlend(dst, clip, vis, image.Point{})
	return nil
}

// Place returns the unclipped rectangle covered by an overlay scaled by k
// for marker q. The overlay is sized relative to the marker's measured width
// and height and shifted so that it stays centred on the marker whatever k
// is.
func Place(q marker.Quad, k float64) image.Rectangle {
	mw := int(q.Width())
	mh := int(q.Height())
	ow := int(float64(mw) * k)
	oh := int(float64(mh) * k)
	tl := q[marker.TopLeft]
	x := int(tl.X - float64(ow-mw)/2)
	y := int(tl.Y - float64(oh-mh)/2)
	return image.Rect(x, y, x+ow, y+oh)
}

// AlphaBlend blends src into the region r of dst using src's alpha:
// out = α·src + (1−α)·dst per colour channel. sp is the point in src that
// lines up with r.Min. r must lie within dst.
func AlphaBlend(dst *image.RGBA, r image.Rectangle, src *image.NRGBA, sp image.Point) {
	for y := 0; y < r.Dy(); y++ {
		di := dst.PixOffset(r.Min.X, r.Min.Y+y)
		si := src.PixOffset(sp.X, sp.Y+y)
		for x := 0; x < r.Dx(); x++ {
			d := dst.Pix[di : di+4 : di+4]
			s := src.Pix[si : si+4 : si+4]
			a := float64(s[3]) / 255
			for c := 0; c < 3; c++ {
				d[c] = quantize(a*float64(s[c]) + (1-a)*float64(d[c]))
			}
			di += 4
			si += 4
		}
	}
}
