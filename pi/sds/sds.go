/*
DESCRIPTION
  sds.go provides snapshots of process and system resource usage, logged
  alongside frame statistics.

LICENSE
  This software is Copyright (C) 2018 the Australian Ocean Lab (AusOcean).

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

// Package sds implements system data readings for the running compositor.
package sds

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Errors specific to the sds package.
var ErrUnavailable = errors.New("resource information unavailable")

// Stats holds a resource snapshot.
type Stats struct {
	RSS      uint64  // Resident set size of this process in bytes.
	CPU      float64 // Process CPU percent since start.
	Threads  int32
	MemUsed  float64 // System memory used percent.
	MemTotal uint64
}

// Snapshot returns the current resource usage.
func Snapshot() (Stats, error) {
	return SnapshotWithContext(context.Background())
}

// SnapshotWithContext is Snapshot with a context for the underlying
// system queries.
func SnapshotWithContext(ctx context.Context) (Stats, error) {
	var s Stats
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return s, fmt.Errorf("%w: could not open process: %w", ErrUnavailable, err)
	}

	mi, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("%w: could not get memory info: %w", ErrUnavailable, err)
	}
	s.RSS = mi.RSS

	s.CPU, err = p.CPUPercentWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("%w: could not get cpu percent: %w", ErrUnavailable, err)
	}

	// Thread counts are not reported on every platform.
	s.Threads, _ = p.NumThreadsWithContext(ctx)

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("%w: could not get system memory: %w", ErrUnavailable, err)
	}
	s.MemUsed = vm.UsedPercent
	s.MemTotal = vm.Total
	return s, nil
}

// KeyVals returns s as logging key/value pairs.
func (s Stats) KeyVals() []interface{} {
	return []interface{}{
		"rssMB", float64(s.RSS) / (1 << 20),
		"cpuPercent", s.CPU,
		"threads", s.Threads,
		"memUsedPercent", s.MemUsed,
	}
}
