//go:build withcv
// +build withcv

/*
DESCRIPTION
  cv.go opens the OpenCV backed capture, detector and writer.

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

package main

import (
	"fmt"
	"io"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/aroverlay/pi/config"
	"github.com/ausocean/aroverlay/pi/vision"
)

const windowTitle = "aroverlay"

func openDevices(c *config.Config, log logging.Logger) (*devices, error) {
	if c.Still() {
		return openStill(c, log)
	}

	capture, err := vision.OpenCapture(c.Input)
	if err != nil {
		return nil, err
	}
	d := &devices{src: capture, closers: []io.Closer{capture}}

	det, err := vision.NewArucoDetector(c.Dictionary)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create detector: %w", err)
	}
	d.det = det
	d.closers = append(d.closers, det)

	var opts []vision.WriterOption
	if out := c.OutputPath(); out != "" {
		fps := c.FPS
		if _, cam := c.Camera(); !cam && capture.FPS() > 0 {
			fps = capture.FPS()
		}
		opts = append(opts, vision.WithFile(out, c.Codec, fps))
	}
	if c.Display {
		opts = append(opts, vision.WithWindow(windowTitle))
	}
	if c.Mode == config.ModeQuad && c.SideBySide {
		opts = append(opts, vision.WithSideBySide())
	}
	if c.OutputPath() == "" && !c.Display {
		log.Warning("frames are neither written nor displayed")
	}
	w, err := vision.NewWriter(log, opts...)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create writer: %w", err)
	}
	d.sink = w
	// Close the writer first so the video is finalised.
	d.closers = append([]io.Closer{w}, d.closers...)

	if _, cam := c.Camera(); !cam {
		d.frames = capture.FrameCount()
	}
	log.Info("opened input", "input", c.Input, "size", capture.Size().String(), "fps", capture.FPS(), "frames", d.frames)
	return d, nil
}

func writeMarkers(dir, dict string, ids []int, side int) ([]string, error) {
	return vision.WriteMarkers(dir, dict, ids, side)
}

// openStill composites a single image and writes it to an image file.
func openStill(c *config.Config, log logging.Logger) (*devices, error) {
	still, err := vision.OpenStill(c.Input)
	if err != nil {
		return nil, err
	}
	d := &devices{src: still, frames: 1, closers: []io.Closer{still}}

	det, err := vision.NewArucoDetector(c.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("could not create detector: %w", err)
	}
	d.det = det
	d.closers = append(d.closers, det)

	w, err := vision.NewImageWriter(c.OutputPath(), c.Mode == config.ModeQuad && c.SideBySide, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.sink = w
	log.Info("opened still image", "input", c.Input, "size", still.Size().String(), "output", c.OutputPath())
	return d, nil
}
