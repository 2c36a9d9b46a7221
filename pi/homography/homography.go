/*
DESCRIPTION
  homography.go provides a direct linear transform solver for the 3x3
  projective transform relating two planes, along with helpers to apply
  and invert it.

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

// Package homography solves for and applies planar projective transforms.
package homography

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Errors returned by Solve and Inverse.
var (
	ErrDegenerate   = errors.New("degenerate homography")
	ErrTooFewPoints = fmt.Errorf("%w: need at least 4 point correspondences", ErrDegenerate)
)

// Tolerances used to detect degenerate configurations. Both are measured in
// normalised coordinates, so they are independent of image scale.
const (
	collinearTol = 1e-4
	rankTol      = 1e-9
	scaleTol     = 1e-12
)

// Point is a planar point in pixel coordinates.
type Point struct {
	X, Y float64
}

// Matrix is a 3x3 projective transform in row major order. Matrices returned
// by Solve are scaled so that m[2][2] is 1.
type Matrix [3][3]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// RectCorners returns the corners of a w by h image in top-left, top-right,
// bottom-right, bottom-left order.
func RectCorners(w, h int) []Point {
	fw, fh := float64(w), float64(h)
	return []Point{{0, 0}, {fw, 0}, {fw, fh}, {0, fh}}
}

// Solve computes the homography H mapping each src[i] onto dst[i], such that
// H·src[i] ≈ dst[i] in homogeneous coordinates. When more than four pairs are
// given the algebraic error is minimised. The points are normalised before
// solving, and the null vector of the DLT system is found with an SVD.
func Solve(src, dst []Point) (Matrix, error) {
	if len(src) != len(dst) {
		return Matrix{}, fmt.Errorf("%w: %d source points but %d destination points", ErrTooFewPoints, len(src), len(dst))
	}
	n := len(src)
	if n < 4 {
		return Matrix{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}

	ns, ts, err := normalise(src)
	if err != nil {
		return Matrix{}, err
	}
	nd, td, err := normalise(dst)
	if err != nil {
		return Matrix{}, err
	}

	if n == 4 && (hasCollinear(ns) || hasCollinear(nd)) {
		return Matrix{}, fmt.Errorf("%w: three of four points are collinear", ErrDegenerate)
	}

	a := mat.NewDense(2*n, 9, nil)
	for i := range ns {
		x, y := ns[i].X, ns[i].Y
		u, v := nd[i].X, nd[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Matrix{}, fmt.Errorf("%w: SVD did not converge", ErrDegenerate)
	}

	// The solution is unique only if the system has rank 8.
	vals := svd.Values(nil)
	if vals[0] == 0 || vals[7]/vals[0] < rankTol {
		return Matrix{}, fmt.Errorf("%w: rank deficient system", ErrDegenerate)
	}

	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, mat.Col(nil, 8, &v))

	// Undo normalisation: H = Td⁻¹ · Hn · Ts.
	var tdInv mat.Dense
	err = tdInv.Inverse(td)
	if err != nil {
		return Matrix{}, fmt.Errorf("could not invert normalisation: %w", err)
	}
	var h mat.Dense
	h.Product(&tdInv, hn, ts)

	m, err := fromDense(&h).normalised()
	if err != nil {
		return Matrix{}, err
	}

	// A rank 8 system can still yield a singular transform.
	_, err = m.Inverse()
	if err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// normalise translates pts so that their centroid is at the origin and scales
// them so that their mean distance from it is √2. The transform used is
// returned alongside the normalised points.
func normalise(pts []Point) ([]Point, *mat.Dense, error) {
	var cx, cy float64
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, nil, fmt.Errorf("%w: non-finite point %v", ErrDegenerate, p)
		}
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	var d float64
	for _, p := range pts {
		d += math.Hypot(p.X-cx, p.Y-cy)
	}
	d /= float64(len(pts))
	if d < scaleTol {
		return nil, nil, fmt.Errorf("%w: points are coincident", ErrDegenerate)
	}

	s := math.Sqrt2 / d
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: s * (p.X - cx), Y: s * (p.Y - cy)}
	}
	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	})
	return out, t, nil
}

// hasCollinear reports whether any three of pts lie on, or very near, a line.
func hasCollinear(pts []Point) bool {
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				a, b, c := pts[i], pts[j], pts[k]
				cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
				if math.Abs(cross) < collinearTol {
					return true
				}
			}
		}
	}
	return false
}

// Apply maps p through m. The boolean is false when p maps to infinity.
func (m Matrix) Apply(p Point) (Point, bool) {
	w := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]
	if math.Abs(w) < scaleTol {
		return Point{}, false
	}
	return Point{
		X: (m[0][0]*p.X + m[0][1]*p.Y + m[0][2]) / w,
		Y: (m[1][0]*p.X + m[1][1]*p.Y + m[1][2]) / w,
	}, true
}

// Inverse returns the inverse transform, scaled so its bottom-right entry is 1
// where that is possible. A singular or badly conditioned m gives
// ErrDegenerate.
func (m Matrix) Inverse() (Matrix, error) {
	var inv mat.Dense
	err := inv.Inverse(m.dense())
	if err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	r := fromDense(&inv)
	if n, err := r.normalised(); err == nil {
		return n, nil
	}
	return r, nil
}

// Mul returns the product m·o, i.e. o applied first.
func (m Matrix) Mul(o Matrix) Matrix {
	var p mat.Dense
	p.Mul(m.dense(), o.dense())
	return fromDense(&p)
}

// ReprojectionError returns the largest distance between m·src[i] and dst[i].
// Points mapped to infinity give +Inf.
func ReprojectionError(m Matrix, src, dst []Point) float64 {
	var worst float64
	for i := range src {
		if i >= len(dst) {
			break
		}
		p, ok := m.Apply(src[i])
		if !ok {
			return math.Inf(1)
		}
		worst = math.Max(worst, math.Hypot(p.X-dst[i].X, p.Y-dst[i].Y))
	}
	return worst
}

func (m Matrix) normalised() (Matrix, error) {
	s := m[2][2]
	if math.Abs(s) < scaleTol {
		return Matrix{}, fmt.Errorf("%w: cannot normalise scale", ErrDegenerate)
	}
	for i := range m {
		for j := range m[i] {
			m[i][j] /= s
		}
	}
	return m, nil
}

func (m Matrix) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

func fromDense(d mat.Matrix) Matrix {
	var m Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = d.At(i, j)
		}
	}
	return m
}
