//go:build withcv
// +build withcv

/*
DESCRIPTION
  convert.go provides conversion between gocv matrices and Go images.

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
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ausocean/aroverlay/pi/composite"
)

// toRGBA converts a BGR or grayscale matrix to an RGBA image.
func toRGBA(m gocv.Mat) (*image.RGBA, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("could not convert mat to image: %w", err)
	}
	return composite.ToRGBA(img), nil
}

// toMat converts img to a BGR matrix. The caller must close the result.
func toMat(img image.Image) (gocv.Mat, error) {
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return m, fmt.Errorf("could not convert image to mat: %w", err)
	}
	return m, nil
}
