/*
DESCRIPTION
  marker.go defines the per-frame marker observations consumed by the
  compositors, and the policy used to pick anchor corners from them.

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

// Package marker holds fiducial marker observations and detector interfaces.
package marker

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ausocean/aroverlay/pi/homography"
)

// Point is a corner location in frame pixel coordinates.
type Point = homography.Point

// Corner indices of a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Quad holds the four corners of a marker, clockwise from the top-left.
type Quad [4]Point

// Width returns the length of the bottom edge.
func (q Quad) Width() float64 {
	return dist(q[BottomRight], q[BottomLeft])
}

// Height returns the length of the right edge.
func (q Quad) Height() float64 {
	return dist(q[TopRight], q[BottomRight])
}

// Valid reports whether all corners are finite.
func (q Quad) Valid() bool {
	for _, p := range q {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

// Bounds returns the smallest integer rectangle containing the quad.
func (q Quad) Bounds() image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range q {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Observation maps marker ids to their corners for a single frame. It is
// created by a Detector and not modified afterwards.
type Observation map[int]Quad

// IDs returns the observed ids in ascending order.
func (o Observation) IDs() []int {
	ids := make([]int, 0, len(o))
	for id := range o {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Has reports whether every id in ids was observed.
func (o Observation) Has(ids ...int) bool {
	for _, id := range ids {
		if _, ok := o[id]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the ids in ids that were not observed.
func (o Observation) Missing(ids ...int) []int {
	var m []int
	for _, id := range ids {
		if _, ok := o[id]; !ok {
			m = append(m, id)
		}
	}
	return m
}

// Detector finds markers in a frame.
type Detector interface {
	Detect(frame *image.RGBA) (Observation, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(frame *image.RGBA) (Observation, error)

// Detect calls f(frame).
func (f DetectorFunc) Detect(frame *image.RGBA) (Observation, error) { return f(frame) }

// CornerPolicy decides which corner of each anchor marker is used as the
// destination point for the matching corner of the source image.
type CornerPolicy int

const (
	// First uses corner 0 of every anchor marker, whichever corner of the
	// target rectangle that marker marks.
	First CornerPolicy = iota

	// Outer uses corner i of the anchor at position i, so the top-left
	// anchor contributes its top-left corner, the top-right anchor its
	// top-right corner and so on. The source then spans the outer edges
	// of the markers.
	Outer
)

var policyNames = map[CornerPolicy]string{
	First: "first",
	Outer: "outer",
}

// String implements fmt.Stringer.
func (p CornerPolicy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("CornerPolicy(%d)", int(p))
}

// ParseCornerPolicy returns the policy with the given name.
func ParseCornerPolicy(s string) (CornerPolicy, error) {
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown corner policy %q", s)
}

// Corner returns the corner of q used when q is the anchor at position pos
// (0 to 3, clockwise from the top-left).
func (p CornerPolicy) Corner(q Quad, pos int) Point {
	if p == Outer {
		return q[pos%4]
	}
	return q[TopLeft]
}

// Anchors returns the destination points for the given anchor ids, one per
// anchor, in anchor order. The boolean is false if any anchor is missing or
// has non-finite corners.
func (p CornerPolicy) Anchors(o Observation, ids [4]int) ([]Point, bool) {
	pts := make([]Point, 0, 4)
	for pos, id := range ids {
		q, ok := o[id]
		if !ok || !q.Valid() {
			return nil, false
		}
		pts = append(pts, p.Corner(q, pos))
	}
	return pts, true
}
