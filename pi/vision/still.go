/*
DESCRIPTION
  still.go provides a frame source and sink for still images.

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
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/aroverlay/pi/arloop"
	"github.com/ausocean/aroverlay/pi/composite"
)

// DefaultJPEGQuality is the quality used when writing JPEG output.
const DefaultJPEGQuality = 95

// Still is an arloop.Source providing a single image.
type Still struct {
	img  *image.RGBA
	done bool
}

// OpenStill loads the image at path.
func OpenStill(path string) (*Still, error) {
	img, err := composite.LoadImage(path)
	if err != nil {
		return nil, err
	}
	// NRGBA to RGBA premultiplies; inputs are normally opaque.
	return &Still{img: composite.ToRGBA(img)}, nil
}

// Read implements arloop.Source. The image is returned once, then io.EOF.
func (s *Still) Read() (*image.RGBA, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.img, nil
}

// Size returns the image size.
func (s *Still) Size() image.Point { return s.img.Bounds().Size() }

// Close implements io.Closer.
func (s *Still) Close() error { return nil }

// ImageWriter is an arloop.Sink writing frames to an image file. The
// format follows the file extension; each frame replaces the last.
type ImageWriter struct {
	path       string
	sideBySide bool
	quality    int
	log        logging.Logger
}

// NewImageWriter returns an ImageWriter for path, which must end in .png,
// .jpg or .jpeg.
func NewImageWriter(path string, sideBySide bool, log logging.Logger) (*ImageWriter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
	default:
		return nil, fmt.Errorf("unsupported image output: %s", path)
	}
	return &ImageWriter{path: path, sideBySide: sideBySide, quality: DefaultJPEGQuality, log: log}, nil
}

// Emit implements arloop.Sink.
func (w *ImageWriter) Emit(f *arloop.Frame) (err error) {
	out := f.Output
	if w.sideBySide {
		out = composite.SideBySide(f.Input, f.Output)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", w.path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	if strings.ToLower(filepath.Ext(w.path)) == ".png" {
		err = png.Encode(file, out)
	} else {
		err = jpeg.Encode(file, out, &jpeg.Options{Quality: w.quality})
	}
	if err != nil {
		return fmt.Errorf("could not encode frame %d: %w", f.Seq, err)
	}
	w.log.Info("wrote image", "path", w.path, "state", f.State.String())
	return nil
}

// Close implements io.Closer.
func (w *ImageWriter) Close() error { return nil }
