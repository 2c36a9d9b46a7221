/*
DESCRIPTION
  pipeline.go provides the pipelined variant of the frame loop, in which
  detection, compositing and emission of successive frames overlap.

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
	"context"
	"errors"
	"io"
	"sync"
)

// runPipelined runs each stage in its own goroutine. Every stage handles
// frames one at a time in sequence order, so frames are emitted in the
// order they were read and no component is called concurrently with
// itself.
func (l *Loop) runPipelined(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	detected := make(chan *Frame, l.depth)
	composed := make(chan *Frame, l.depth)
	var readErr error
	var wg sync.WaitGroup

	// Read and detect.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(detected)
		for seq := uint64(0); ; seq++ {
			if ctx.Err() != nil {
				l.log.Info("stop requested", "seq", seq)
				return
			}
			f, err := l.read(seq)
			if err == io.EOF {
				l.log.Info("end of input", "frames", seq)
				return
			}
			if err != nil {
				readErr = err
				return
			}
			l.detect(f)
			select {
			case detected <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Composite.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(composed)
		for f := range detected {
			l.compose(f)
			select {
			case composed <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Emit on this goroutine.
	var err error
	for f := range composed {
		err = l.emit(f)
		if err != nil {
			break
		}
	}

	// Release the other stages and wait for them before touching readErr.
	cancel()
	for range composed {
	}
	wg.Wait()

	switch {
	case errors.Is(err, ErrStop):
		return nil
	case err != nil:
		return err
	}
	return readErr
}
