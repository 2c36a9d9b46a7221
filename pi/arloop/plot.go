/*
DESCRIPTION
  plot.go provides plotting of frame processing times.

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
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotTimings saves a plot of per-frame processing times, given in seconds,
// as <dir>/<name>.png. The mean is drawn as a horizontal line.
func PlotTimings(dir, name string, secs []float64) error {
	if len(secs) == 0 {
		return errors.New("no frame timings to plot")
	}

	x := make([]float64, len(secs))
	ms := make([]float64, len(secs))
	for i, s := range secs {
		x[i] = float64(i)
		ms[i] = s * 1000
	}
	mean := stat.Mean(ms, nil)

	return plotToFile(filepath.Join(dir, name+".png"), name, "Frame", "Processing time (ms)", func(p *plot.Plot) error {
		l, err := plotter.NewLine(plotterXY(x, ms))
		if err != nil {
			return fmt.Errorf("could not create timing line: %w", err)
		}
		m, err := plotter.NewLine(plotterXY([]float64{0, x[len(x)-1]}, []float64{mean, mean}))
		if err != nil {
			return fmt.Errorf("could not create mean line: %w", err)
		}
		m.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(l, m)
		p.Legend.Add("frame", l)
		p.Legend.Add(fmt.Sprintf("mean %.2f ms", mean), m)
		return nil
	})
}

// plotToFile creates a plot with the given title and axis titles using the
// provided draw function, and then saves it as a PNG at path.
func plotToFile(path, title, xTitle, yTitle string, draw func(*plot.Plot) error) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xTitle
	p.Y.Label.Text = yTitle
	err := draw(p)
	if err != nil {
		return fmt.Errorf("could not draw plot contents: %w", err)
	}
	if err := p.Save(15*vg.Centimeter, 15*vg.Centimeter, path); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

// plotterXY provides a plotter.XYs type value based on the given x and y data.
func plotterXY(x, y []float64) plotter.XYs {
	xy := make(plotter.XYs, len(x))
	for i := range x {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}
	return xy
}
