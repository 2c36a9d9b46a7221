//go:build withcv
// +build withcv

/*
DESCRIPTION
  writer.go provides a frame sink writing to a video file and an optional display window.

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

	"github.com/ausocean/utils/logging"
	"gocv.io/x/gocv"

	"github.com/ausocean/aroverlay/pi/arloop"
	"github.com/ausocean/aroverlay/pi/composite"
)

// Keys that stop display.
const (
	keyEsc = 27
	keyQ   = 'q'
)

// Writer is an arloop.Sink that encodes frames to a video file and shows
// them in a window.
type Writer struct {
	path       string
	codec      string
	fps        float64
	vw         *gocv.VideoWriter
	win        *gocv.Window
	sideBySide bool
	log        logging.Logger
}

// WriterOption is a function that configures a Writer in NewWriter.
type WriterOption func(*Writer) error

// WithFile writes frames to path using the four character codec at fps.
// The file is created when the first frame arrives.
func WithFile(path, codec string, fps float64) WriterOption {
	return func(w *Writer) error {
		if len(codec) != 4 {
			return fmt.Errorf("invalid codec: %s", codec)
		}
		if fps <= 0 {
			return fmt.Errorf("invalid frame rate: %v", fps)
		}
		w.path, w.codec, w.fps = path, codec, fps
		return nil
	}
}

// WithWindow shows frames in a window with the given title. Pressing ESC
// or q in the window stops the loop.
func WithWindow(title string) WriterOption {
	return func(w *Writer) error {
		w.win = gocv.NewWindow(title)
		return nil
	}
}

// WithSideBySide outputs the input frame and the composited frame next to
// each other.
func WithSideBySide() WriterOption {
	return func(w *Writer) error {
		w.sideBySide = true
		return nil
	}
}

// NewWriter returns a new Writer.
func NewWriter(log logging.Logger, opts ...WriterOption) (*Writer, error) {
	w := &Writer{log: log}
	for i, opt := range opts {
		err := opt(w)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}
	return w, nil
}

// Emit implements arloop.Sink.
func (w *Writer) Emit(f *arloop.Frame) error {
	out := f.Output
	if w.sideBySide {
		out = composite.SideBySide(f.Input, f.Output)
	}
	m, err := toMat(out)
	if err != nil {
		return err
	}
	defer m.Close()

	if w.path != "" {
		if w.vw == nil {
			err := w.open(out.Bounds().Size())
			if err != nil {
				return err
			}
		}
		err := w.vw.Write(m)
		if err != nil {
			return fmt.Errorf("could not write frame %d: %w", f.Seq, err)
		}
	}

	if w.win != nil {
		w.win.IMShow(m)
		switch w.win.WaitKey(1) {
		case keyEsc, keyQ:
			w.log.Info("display closed by user", "seq", f.Seq)
			return arloop.ErrStop
		}
	}
	return nil
}

func (w *Writer) open(size image.Point) error {
	vw, err := gocv.VideoWriterFile(w.path, w.codec, w.fps, size.X, size.Y, true)
	if err != nil {
		return fmt.Errorf("could not open video writer %s: %w", w.path, err)
	}
	w.vw = vw
	w.log.Info("writing video", "path", w.path, "codec", w.codec, "fps", w.fps, "size", size.String())
	return nil
}

// Close finalises the video file and closes the window.
func (w *Writer) Close() error {
	var errs []error
	if w.vw != nil {
		errs = append(errs, w.vw.Close())
	}
	if w.win != nil {
		errs = append(errs, w.win.Close())
	}
	return errors.Join(errs...)
}
