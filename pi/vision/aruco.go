//go:build withcv
// +build withcv

/*
DESCRIPTION
  aruco.go provides ArUco marker detection and marker image generation.

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
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ausocean/aroverlay/pi/marker"
)

// Marker generation defaults.
const (
	DefaultDictionary = "6x6_250"
	DefaultMarkerSide = 200 // Pixels.
	borderBits        = 1
)

var dictionaries = map[string]gocv.ArucoDictionaryCode{
	"4x4_50":   gocv.ArucoDict4x4_50,
	"4x4_100":  gocv.ArucoDict4x4_100,
	"4x4_250":  gocv.ArucoDict4x4_250,
	"4x4_1000": gocv.ArucoDict4x4_1000,
	"5x5_50":   gocv.ArucoDict5x5_50,
	"5x5_100":  gocv.ArucoDict5x5_100,
	"5x5_250":  gocv.ArucoDict5x5_250,
	"5x5_1000": gocv.ArucoDict5x5_1000,
	"6x6_50":   gocv.ArucoDict6x6_50,
	"6x6_100":  gocv.ArucoDict6x6_100,
	"6x6_250":  gocv.ArucoDict6x6_250,
	"6x6_1000": gocv.ArucoDict6x6_1000,
	"7x7_50":   gocv.ArucoDict7x7_50,
	"7x7_100":  gocv.ArucoDict7x7_100,
	"7x7_250":  gocv.ArucoDict7x7_250,
	"7x7_1000": gocv.ArucoDict7x7_1000,
	"original": gocv.ArucoDictArucoOriginal,
}

func dictionary(name string) (gocv.ArucoDictionaryCode, error) {
	code, ok := dictionaries[name]
	if !ok {
		return 0, fmt.Errorf("unknown marker dictionary: %s", name)
	}
	return code, nil
}

// ArucoDetector is a marker.Detector using OpenCV's ArUco module. It is
// not safe for concurrent use.
type ArucoDetector struct {
	d gocv.ArucoDetector
}

// NewArucoDetector returns a detector for the named dictionary, e.g.
// "6x6_250".
func NewArucoDetector(dict string) (*ArucoDetector, error) {
	code, err := dictionary(dict)
	if err != nil {
		return nil, err
	}
	d := gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(code), gocv.NewArucoDetectorParameters())
	return &ArucoDetector{d: d}, nil
}

// Detect implements marker.Detector. Corners are reported clockwise from
// the marker's own top-left. Should an id be detected twice the first
// detection is kept.
func (a *ArucoDetector) Detect(frame *image.RGBA) (marker.Observation, error) {
	m, err := toMat(frame)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	corners, ids, _ := a.d.DetectMarkers(m)
	o := make(marker.Observation, len(ids))
	for i, id := range ids {
		if _, ok := o[id]; ok || len(corners[i]) != 4 {
			continue
		}
		var q marker.Quad
		for j, c := range corners[i] {
			q[j] = marker.Point{X: float64(c.X), Y: float64(c.Y)}
		}
		o[id] = q
	}
	return o, nil
}

// Close releases the detector.
func (a *ArucoDetector) Close() error {
	a.d.Close()
	return nil
}

// GenerateMarker returns the image of marker id from the named dictionary
// with the given side length in pixels.
func GenerateMarker(dict string, id, side int) (image.Image, error) {
	code, err := dictionary(dict)
	if err != nil {
		return nil, err
	}
	if side <= 0 {
		return nil, fmt.Errorf("invalid marker side: %d", side)
	}
	m := gocv.NewMat()
	defer m.Close()
	gocv.ArucoGenerateImageMarker(code, id, side, m, borderBits)
	if m.Empty() {
		return nil, fmt.Errorf("could not generate marker %d from %s", id, dict)
	}
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("could not convert marker %d: %w", id, err)
	}
	return img, nil
}

// WriteMarkers writes marker<id>.png into dir for each id and returns the
// paths written.
func WriteMarkers(dir, dict string, ids []int, side int) ([]string, error) {
	code, err := dictionary(dict)
	if err != nil {
		return nil, err
	}
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("could not create marker directory: %w", err)
	}

	m := gocv.NewMat()
	defer m.Close()
	var paths []string
	for _, id := range ids {
		gocv.ArucoGenerateImageMarker(code, id, side, m, borderBits)
		path := filepath.Join(dir, fmt.Sprintf("marker%d.png", id))
		if !gocv.IMWrite(path, m) {
			return paths, fmt.Errorf("could not write marker %d to %s", id, path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
