//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  nocv.go stands in for cv.go when built without OpenCV.

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
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/aroverlay/pi/config"
)

// openDevices requires OpenCV. To see the release version of this
// function, consult cv.go.
func openDevices(c *config.Config, log logging.Logger) (*devices, error) {
	return nil, errNoCV
}

func writeMarkers(dir, dict string, ids []int, side int) ([]string, error) {
	return nil, errNoCV
}
