/*
DESCRIPTION
  homography_test.go tests the DLT solver against known transforms and
  degenerate inputs.

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

package homography

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

const maxReprojection = 0.5 // pixels

func TestSolveCorrespondences(t *testing.T) {
	tests := []struct {
		src []Point
		dst []Point
	}{
		{
			src: RectCorners(640, 480),
			dst: []Point{{100, 100}, {300, 100}, {300, 300}, {100, 300}},
		},
		{
			src: RectCorners(640, 480),
			dst: []Point{{120, 80}, {510, 130}, {480, 400}, {90, 350}},
		},
		{
			src: RectCorners(100, 100),
			dst: []Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
		},
		{
			src: []Point{{10, 10}, {50, 12}, {48, 60}, {5, 55}},
			dst: []Point{{1000, 1000}, {1900, 1100}, {1800, 2000}, {950, 1900}},
		},
	}

	for i, test := range tests {
		h, err := Solve(test.src, test.dst)
		if err != nil {
			t.Fatalf("did not expect error for test %d: %v", i, err)
		}
		if h[2][2] != 1 {
			t.Errorf("matrix not normalised for test %d: h22 = %v", i, h[2][2])
		}
		got := ReprojectionError(h, test.src, test.dst)
		if got >= maxReprojection {
			t.Errorf("did not get expected result from test: %d. Got: %f, Want: < %f", i, got, maxReprojection)
		}
	}
}

// TestSolveRandom checks the reprojection bound over random convex quads.
func TestSolveRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	src := RectCorners(320, 240)
	for i := 0; i < 200; i++ {
		j := func() float64 { return r.Float64()*60 - 30 }
		dst := []Point{
			{100 + j(), 100 + j()},
			{500 + j(), 100 + j()},
			{500 + j(), 400 + j()},
			{100 + j(), 400 + j()},
		}
		h, err := Solve(src, dst)
		if err != nil {
			t.Fatalf("did not expect error for iteration %d: %v", i, err)
		}
		if got := ReprojectionError(h, src, dst); got >= maxReprojection {
			t.Errorf("reprojection error too large for iteration %d: %f", i, got)
		}
	}
}

func TestSolveKnownMatrix(t *testing.T) {
	want := Matrix{
		{1.2, 0.1, 30},
		{-0.05, 0.9, 12},
		{0.0004, 0.0002, 1},
	}
	src := []Point{{0, 0}, {200, 0}, {200, 150}, {0, 150}, {100, 75}, {20, 140}}
	dst := make([]Point, len(src))
	for i, p := range src {
		q, ok := want.Apply(p)
		if !ok {
			t.Fatalf("point %d mapped to infinity", i)
		}
		dst[i] = q
	}

	got, err := Solve(src, dst)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for i := range got {
		for j := range got[i] {
			if math.Abs(got[i][j]-want[i][j]) > 1e-6*math.Max(1, math.Abs(want[i][j])) {
				t.Errorf("unexpected entry (%d,%d): got %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestSolveDegenerate(t *testing.T) {
	tests := []struct {
		name string
		src  []Point
		dst  []Point
	}{
		{
			name: "too few",
			src:  []Point{{0, 0}, {1, 0}, {1, 1}},
			dst:  []Point{{0, 0}, {1, 0}, {1, 1}},
		},
		{
			name: "mismatched",
			src:  RectCorners(10, 10),
			dst:  []Point{{0, 0}, {1, 0}, {1, 1}},
		},
		{
			name: "collinear destination",
			src:  RectCorners(10, 10),
			dst:  []Point{{0, 0}, {10, 10}, {20, 20}, {0, 30}},
		},
		{
			name: "nearly collinear source",
			src:  []Point{{0, 0}, {100, 0}, {200, 0.00001}, {0, 100}},
			dst:  RectCorners(10, 10),
		},
		{
			name: "coincident",
			src:  []Point{{5, 5}, {5, 5}, {5, 5}, {5, 5}},
			dst:  RectCorners(10, 10),
		},
		{
			name: "not finite",
			src:  []Point{{math.NaN(), 0}, {1, 0}, {1, 1}, {0, 1}},
			dst:  RectCorners(10, 10),
		},
	}

	for _, test := range tests {
		_, err := Solve(test.src, test.dst)
		if !errors.Is(err, ErrDegenerate) {
			t.Errorf("%s: expected ErrDegenerate, got %v", test.name, err)
		}
	}
}

func TestInverse(t *testing.T) {
	src := RectCorners(640, 480)
	dst := []Point{{120, 80}, {510, 130}, {480, 400}, {90, 350}}
	h, err := Solve(src, dst)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	inv, err := h.Inverse()
	if err != nil {
		t.Fatalf("did not expect error from inverse: %v", err)
	}
	if got := ReprojectionError(inv, dst, src); got >= maxReprojection {
		t.Errorf("inverse reprojection error too large: %f", got)
	}

	id := h.Mul(inv)
	for i := range id {
		for j := range id[i] {
			want := 0.0
			if i == j {
				want = id[2][2]
			}
			if math.Abs(id[i][j]-want) > 1e-7 {
				t.Errorf("H·H⁻¹ not identity at (%d,%d): %v", i, j, id[i][j])
			}
		}
	}

	_, err = Matrix{}.Inverse()
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate for zero matrix, got %v", err)
	}
}

func TestApplyInfinity(t *testing.T) {
	m := Matrix{{1, 0, 0}, {0, 1, 0}, {1, 0, 0}}
	_, ok := m.Apply(Point{0, 5})
	if ok {
		t.Error("expected point on the line at infinity to be rejected")
	}
	p, ok := Identity().Apply(Point{3, 4})
	if !ok || p != (Point{3, 4}) {
		t.Errorf("identity moved point: %v", p)
	}
}
