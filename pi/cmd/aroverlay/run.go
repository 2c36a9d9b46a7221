/*
DESCRIPTION
  run.go provides the run command, which composites frames from the
  configured input until it ends or the process is interrupted.

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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ausocean/utils/logging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ausocean/aroverlay/pi/arloop"
	"github.com/ausocean/aroverlay/pi/composite"
	"github.com/ausocean/aroverlay/pi/config"
	"github.com/ausocean/aroverlay/pi/marker"
	"github.com/ausocean/aroverlay/pi/sds"
)

var errNoCV = errors.New("built without OpenCV support, rebuild with -tags withcv")

const plotName = "frame_timings"

var runOpts struct {
	sets    []string
	input   string
	mode    string
	display bool
	plotDir string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Composite overlays onto frames from a camera or video file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runOpts.sets, "set", "s", nil, "override a configuration key, e.g. --set Mode=billboard")
	runCmd.Flags().StringVarP(&runOpts.input, "input", "i", "", "camera index or video file, overriding Input")
	runCmd.Flags().StringVarP(&runOpts.mode, "mode", "m", "", "quad or billboard, overriding Mode")
	runCmd.Flags().BoolVarP(&runOpts.display, "display", "d", false, "show frames in a window")
	runCmd.Flags().StringVar(&runOpts.plotDir, "plot", "", "directory to save a plot of frame processing times")
	rootCmd.AddCommand(runCmd)
}

// devices holds the OpenCV backed collaborators of a loop.
type devices struct {
	src     arloop.Source
	det     marker.Detector
	sink    arloop.Sink
	frames  int // Frames in a file input; zero when unknown.
	closers []io.Closer
}

func (d *devices) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func run(ctx context.Context) error {
	err := applyOverrides(cfg, runOpts.sets)
	if err != nil {
		return err
	}
	if runOpts.input != "" {
		cfg.Input = runOpts.input
	}
	if runOpts.mode != "" {
		err := cfg.Set("Mode", runOpts.mode)
		if err != nil {
			return err
		}
	}
	if runOpts.display {
		cfg.Display = true
	}
	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	comp, err := buildCompositor(cfg, log)
	if err != nil {
		return err
	}

	dev, err := openDevices(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		err := dev.Close()
		if err != nil {
			log.Warning("could not close devices", "error", err)
		}
	}()

	logResources(log, "resource usage at start")

	sink := dev.sink
	if dev.frames > 0 {
		bar := progressbar.NewOptions(dev.frames,
			progressbar.OptionSetDescription("Compositing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		defer bar.Finish()
		sink = arloop.SinkFunc(func(f *arloop.Frame) error {
			err := dev.sink.Emit(f)
			bar.Add(1)
			return err
		})
	}

	loop, err := arloop.New(dev.src, dev.det, comp, sink, log, arloop.WithPipeline(cfg.Pipeline))
	if err != nil {
		return fmt.Errorf("could not create frame loop: %w", err)
	}
	runErr := loop.Run(ctx)

	st := loop.Stats()
	log.Info("frame statistics",
		"frames", st.Frames,
		"composited", st.Composited,
		"passthrough", st.Passthrough,
		"degenerate", st.Degenerate,
		"missingMarker", st.MissingMarker,
		"outOfBounds", st.OutOfBounds,
		"panics", st.Panics,
		"meanMS", st.Mean.Seconds()*1000,
	)
	logResources(log, "resource usage at end")

	if runOpts.plotDir != "" {
		err := arloop.PlotTimings(runOpts.plotDir, plotName, loop.Durations())
		if err != nil {
			log.Warning("could not plot frame timings", "error", err)
		}
	}
	return runErr
}

// applyOverrides applies each "Key=value" in sets to c.
func applyOverrides(c *config.Config, sets []string) error {
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("override must be Key=value: %s", s)
		}
		err := c.Set(k, v)
		if err != nil {
			return err
		}
	}
	return nil
}

// buildCompositor returns the compositor for c.Mode with its assets
// loaded.
func buildCompositor(c *config.Config, log logging.Logger) (arloop.Compositor, error) {
	switch c.Mode {
	case config.ModeQuad:
		src, err := composite.LoadImage(c.Source)
		if err != nil {
			return nil, err
		}
		return composite.NewQuad(src, composite.QuadConfig{
			Anchors:         c.Anchors,
			Corners:         c.CornerPolicy,
			ErodeIterations: c.ErodeIterations,
			ErodeSize:       c.ErodeSize,
		})

	case config.ModeBillboard:
		overlays := composite.LoadOverlays(c.Overlays, log)
		if len(overlays) == 0 {
			return nil, fmt.Errorf("%w: no overlays could be loaded", composite.ErrAssetLoad)
		}
		bc := composite.DefaultBillboardConfig()
		bc.Scales = c.Scales
		bc.DefaultScale = c.DefaultScale
		bc.Outline = c.DrawOutline
		bc.Label = c.DrawLabel
		if c.DrawLabel && c.LabelFont != "" {
			face, err := composite.LoadFace(c.LabelFont, c.LabelSize)
			if err != nil {
				log.Warning("using default label font", "error", err)
			} else {
				bc.Face = face
			}
		}
		return composite.NewBillboard(overlays, bc)
	}
	return nil, fmt.Errorf("invalid mode: %s", c.Mode)
}

func logResources(log logging.Logger, msg string) {
	s, err := sds.Snapshot()
	if err != nil {
		log.Debug("could not read resource usage", "error", err)
		return
	}
	log.Info(msg, s.KeyVals()...)
}
