//go:build withcv
// +build withcv

/*
DESCRIPTION
  capture.go provides a frame source reading from a camera or video file.

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
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	"gocv.io/x/gocv"
)

// Capture reads frames from a camera or a video file.
type Capture struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// OpenCapture opens input, which is either a camera index or a file path.
func OpenCapture(input string) (*Capture, error) {
	var dev interface{} = input
	if n, err := strconv.Atoi(input); err == nil {
		dev = n
	}
	vc, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open capture %s: %w", input, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("could not open capture %s", input)
	}
	return &Capture{vc: vc, mat: gocv.NewMat()}, nil
}

// Read implements arloop.Source. It returns io.EOF once no more frames can
// be read.
func (c *Capture) Read() (*image.RGBA, error) {
	if !c.vc.Read(&c.mat) || c.mat.Empty() {
		return nil, io.EOF
	}
	return toRGBA(c.mat)
}

// FPS returns the reported frame rate, or zero if unknown.
func (c *Capture) FPS() float64 { return c.vc.Get(gocv.VideoCaptureFPS) }

// FrameCount returns the reported number of frames. Cameras report zero
// or a negative count.
func (c *Capture) FrameCount() int { return int(c.vc.Get(gocv.VideoCaptureFrameCount)) }

// Size returns the frame size.
func (c *Capture) Size() image.Point {
	return image.Pt(int(c.vc.Get(gocv.VideoCaptureFrameWidth)), int(c.vc.Get(gocv.VideoCaptureFrameHeight)))
}

// Close releases the capture device.
func (c *Capture) Close() error {
	return errors.Join(c.mat.Close(), c.vc.Close())
}
