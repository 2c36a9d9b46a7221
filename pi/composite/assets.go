/*
DESCRIPTION
  assets.go loads the source and overlay images used by the compositors.

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
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/ausocean/utils/logging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes the image at path. Images without an alpha channel are
// returned fully opaque.
func LoadImage(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetLoad, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode %s: %v", ErrAssetLoad, path, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns img as an NRGBA image with bounds starting at the origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	n := image.NewNRGBA(image.Rectangle{Max: b.Size()})
	draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
	return n
}

// ToRGBA returns img as an RGBA image with bounds starting at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if r, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return r
	}
	r := image.NewRGBA(image.Rectangle{Max: b.Size()})
	draw.Draw(r, r.Bounds(), img, b.Min, draw.Src)
	return r
}

// LoadOverlays loads the overlay for each marker id. An overlay that cannot
// be loaded is logged and left out, so only that marker goes without one.
func LoadOverlays(paths map[int]string, log logging.Logger) map[int]*image.NRGBA {
	overlays := make(map[int]*image.NRGBA, len(paths))
	for id, path := range paths {
		img, err := LoadImage(path)
		if err != nil {
			log.Warning("skipping marker overlay", "marker", id, "path", path, "error", err)
			continue
		}
		log.Debug("loaded marker overlay", "marker", id, "path", path, "size", img.Bounds().Size().String())
		overlays[id] = img
	}
	return overlays
}
