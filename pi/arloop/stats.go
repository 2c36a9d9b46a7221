/*
DESCRIPTION
  stats.go keeps counts of frame outcomes and running statistics of frame
  processing time.

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

package arloop

import (
	"errors"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/aroverlay/pi/composite"
	"github.com/ausocean/aroverlay/pi/homography"
)

const (
	defaultStatsWindow = 100
	maxHistory         = 1 << 16 // Frame durations kept for plotting.
)

// Stats summarises the frames processed by a Loop.
type Stats struct {
	Frames      uint64
	Composited  uint64
	Passthrough uint64

	// Error counts by kind.
	Degenerate    uint64
	MissingMarker uint64
	OutOfBounds   uint64
	AssetLoad     uint64
	Panics        uint64
	Other         uint64

	// Processing time over the most recent window of frames.
	Mean   time.Duration
	StdDev time.Duration
}

// recorder accumulates Stats. It is safe for concurrent use.
type recorder struct {
	mu      sync.Mutex
	s       Stats
	win     []float64
	n, i, l int
	history []float64
}

func newRecorder(n int) *recorder {
	return &recorder{n: n, win: make([]float64, n)}
}

// update records the outcome of f.
func (r *recorder) update(f *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.s.Frames++
	if f.State == Compositing {
		r.s.Composited++
	} else {
		r.s.Passthrough++
	}
	if f.Err != nil {
		r.classify(f.Err)
	}

	secs := f.Elapsed.Seconds()
	if len(r.history) < maxHistory {
		r.history = append(r.history, secs)
	}
	r.win[r.i] = secs
	r.i = (r.i + 1) % r.n
	if r.l != r.n {
		r.l++
	}
	mean, sd := stat.MeanStdDev(r.win[:r.l], nil)
	if r.l == 1 {
		sd = 0
	}
	r.s.Mean = time.Duration(math.Round(mean * float64(time.Second)))
	r.s.StdDev = time.Duration(math.Round(sd * float64(time.Second)))
}

func (r *recorder) classify(err error) {
	switch {
	case errors.Is(err, ErrPanic):
		r.s.Panics++
	case errors.Is(err, homography.ErrDegenerate):
		r.s.Degenerate++
	case errors.Is(err, composite.ErrMissingMarker):
		r.s.MissingMarker++
	case errors.Is(err, composite.ErrOutOfBounds):
		r.s.OutOfBounds++
	case errors.Is(err, composite.ErrAssetLoad):
		r.s.AssetLoad++
	default:
		r.s.Other++
	}
}

func (r *recorder) stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}

// durations returns a copy of the recorded frame durations in seconds.
func (r *recorder) durations() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.history...)
}
