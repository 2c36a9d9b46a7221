/*
DESCRIPTION
  markers.go provides the markers command, which writes printable marker
  images, and the config command, which writes the effective configuration.

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

	"github.com/spf13/cobra"
)

// Marker generation defaults.
const (
	defaultMarkerDir  = "markers"
	defaultMarkerSide = 200
	defaultFirstID    = 1
	defaultLastID     = 20
)

var markerOpts struct {
	dir  string
	dict string
	ids  []int
	side int
}

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Write marker images to print",
	RunE: func(cmd *cobra.Command, args []string) error {
		dict := markerOpts.dict
		if dict == "" {
			dict = cfg.Dictionary
		}
		if markerOpts.side <= 0 {
			return fmt.Errorf("invalid marker side: %d", markerOpts.side)
		}
		paths, err := writeMarkers(markerOpts.dir, dict, markerOpts.ids, markerOpts.side)
		if err != nil {
			return err
		}
		log.Info("wrote marker images", "dir", markerOpts.dir, "dictionary", dict, "count", len(paths))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config <path>",
	Short: "Write the effective configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := applyOverrides(cfg, configSets)
		if err != nil {
			return err
		}
		err = cfg.Save(args[0])
		if err != nil {
			return fmt.Errorf("could not save configuration: %w", err)
		}
		log.Info("wrote configuration", "path", args[0])
		return nil
	},
}

var configSets []string

func init() {
	markersCmd.Flags().StringVar(&markerOpts.dir, "dir", defaultMarkerDir, "output directory")
	markersCmd.Flags().StringVar(&markerOpts.dict, "dict", "", "marker dictionary, defaulting to Dictionary")
	markersCmd.Flags().IntSliceVar(&markerOpts.ids, "ids", defaultIDs(), "marker ids")
	markersCmd.Flags().IntVar(&markerOpts.side, "side", defaultMarkerSide, "marker side in pixels")
	rootCmd.AddCommand(markersCmd)

	configCmd.Flags().StringArrayVarP(&configSets, "set", "s", nil, "override a configuration key, e.g. --set Mode=billboard")
	rootCmd.AddCommand(configCmd)
}

func defaultIDs() []int {
	ids := make([]int, 0, defaultLastID-defaultFirstID+1)
	for id := defaultFirstID; id <= defaultLastID; id++ {
		ids = append(ids, id)
	}
	return ids
}
