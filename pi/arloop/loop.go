/*
DESCRIPTION
  loop.go provides the per-frame compositing loop. Each frame read from a
  source is run through marker detection and either composited or passed
  through unchanged before being emitted to a sink.

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

// Package arloop runs the frame by frame marker compositing state machine.
package arloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync/atomic"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/aroverlay/pi/composite"
	"github.com/ausocean/aroverlay/pi/marker"
)

// State is a state of the frame loop.
type State int32

// Loop states. A frame moves from AwaitingFrame through Detecting to either
// Compositing or Passthrough, then Emitting. Stopped is terminal.
const (
	AwaitingFrame State = iota
	Detecting
	Compositing
	Passthrough
	Emitting
	Stopped
)

func (s State) String() string {
	switch s {
	case AwaitingFrame:
		return "AWAITING_FRAME"
	case Detecting:
		return "DETECTING"
	case Compositing:
		return "COMPOSITING"
	case Passthrough:
		return "PASSTHROUGH"
	case Emitting:
		return "EMITTING"
	case Stopped:
		return "STOPPED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var (
	// ErrStop may be returned by a Sink to stop the loop without error.
	ErrStop = errors.New("stop requested")

	// ErrPanic wraps a panic recovered while processing a frame.
	ErrPanic = errors.New("panic while processing frame")
)

// Source provides frames. Read returns io.EOF at the end of the stream.
type Source interface {
	Read() (*image.RGBA, error)
}

// Sink consumes processed frames, in the order they were read.
type Sink interface {
	Emit(f *Frame) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(f *Frame) error

// Emit calls s(f).
func (s SinkFunc) Emit(f *Frame) error { return s(f) }

// Compositor merges overlay content into a frame.
type Compositor interface {
	// Accepts reports whether the observation meets the compositor's
	// precondition, e.g. all anchors visible.
	Accepts(o marker.Observation) bool

	// Composite returns a new frame. A non-nil image returned with a
	// non-nil error is a usable result with some markers skipped.
	Composite(frame *image.RGBA, o marker.Observation) (*image.RGBA, error)
}

// Frame is a frame moving through the loop.
type Frame struct {
	Seq      uint64
	Input    *image.RGBA
	Output   *image.RGBA // Input itself when passed through.
	Observed marker.Observation
	State    State // Compositing or Passthrough.
	Err      error
	Elapsed  time.Duration // Time spent detecting and compositing.
}

// Option is a function that configures a Loop in New.
type Option func(*Loop) error

// WithPipeline runs reading and detection, compositing and emission in
// separate goroutines connected by queues of the given depth. A depth of 0
// keeps the loop sequential.
func WithPipeline(depth int) Option {
	return func(l *Loop) error {
		if depth < 0 {
			return fmt.Errorf("invalid pipeline depth: %d", depth)
		}
		l.depth = depth
		return nil
	}
}

// WithObserver registers fn to be called on every state transition. When
// pipelined, fn is called from several goroutines.
func WithObserver(fn func(seq uint64, s State)) Option {
	return func(l *Loop) error {
		l.observe = fn
		return nil
	}
}

// WithStatsWindow sets the number of recent frames used for timing
// statistics.
func WithStatsWindow(n int) Option {
	return func(l *Loop) error {
		if n < 1 {
			return fmt.Errorf("invalid stats window: %d", n)
		}
		l.rec = newRecorder(n)
		return nil
	}
}

// Loop reads, composites and emits frames.
type Loop struct {
	src     Source
	det     marker.Detector
	comp    Compositor
	sink    Sink
	log     logging.Logger
	depth   int
	observe func(seq uint64, s State)
	rec     *recorder
	state   atomic.Int32
}

// New returns a Loop reading from src and emitting to sink.
func New(src Source, det marker.Detector, comp Compositor, sink Sink, log logging.Logger, opts ...Option) (*Loop, error) {
	if src == nil || det == nil || comp == nil || sink == nil {
		return nil, errors.New("source, detector, compositor and sink are all required")
	}
	l := &Loop{src: src, det: det, comp: comp, sink: sink, log: log, rec: newRecorder(defaultStatsWindow)}
	for i, opt := range opts {
		err := opt(l)
		if err != nil {
			return nil, fmt.Errorf("could not apply option %d: %w", i, err)
		}
	}
	return l, nil
}

// State returns the most recent state of the loop.
func (l *Loop) State() State { return State(l.state.Load()) }

// Stats returns a snapshot of the loop statistics.
func (l *Loop) Stats() Stats { return l.rec.stats() }

// Durations returns the processing time of each frame so far, in seconds.
func (l *Loop) Durations() []float64 { return l.rec.durations() }

// Run processes frames until the source is exhausted, ctx is cancelled or
// the sink returns ErrStop, all of which return nil. Errors reading the
// source or emitting to the sink are returned. Errors processing a frame
// never stop the loop; that frame is emitted unchanged.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("starting frame loop", "pipeline", l.depth)
	var err error
	if l.depth > 0 {
		err = l.runPipelined(ctx)
	} else {
		err = l.runSequential(ctx)
	}
	l.transition(l.rec.stats().Frames, Stopped)

	s := l.Stats()
	l.log.Info("frame loop stopped", "frames", s.Frames, "composited", s.Composited, "passthrough", s.Passthrough, "mean", s.Mean.String())
	return err
}

func (l *Loop) runSequential(ctx context.Context) error {
	for seq := uint64(0); ; seq++ {
		if ctx.Err() != nil {
			l.log.Info("stop requested", "seq", seq)
			return nil
		}

		f, err := l.read(seq)
		if err == io.EOF {
			l.log.Info("end of input", "frames", seq)
			return nil
		}
		if err != nil {
			return err
		}

		l.detect(f)
		l.compose(f)

		err = l.emit(f)
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// read obtains the next frame. It returns io.EOF unwrapped at the end of the
// stream.
func (l *Loop) read(seq uint64) (*Frame, error) {
	l.transition(seq, AwaitingFrame)
	img, err := l.src.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("could not read frame %d: %w", seq, err)
	}
	if img == nil {
		return nil, fmt.Errorf("source returned no image for frame %d", seq)
	}
	return &Frame{Seq: seq, Input: img, Output: img, State: Passthrough}, nil
}

// detect runs marker detection on f. A failure leaves f to be passed
// through.
func (l *Loop) detect(f *Frame) {
	start := time.Now()
	defer func() { f.Elapsed += time.Since(start) }()
	defer l.recoverFrame(f)

	l.transition(f.Seq, Detecting)
	o, err := l.det.Detect(f.Input)
	if err != nil {
		f.Err = fmt.Errorf("could not detect markers: %w", err)
		return
	}
	f.Observed = o
}

// compose composites f if detection succeeded and the compositor accepts
// the observation, otherwise f is passed through.
func (l *Loop) compose(f *Frame) {
	start := time.Now()
	defer func() { f.Elapsed += time.Since(start) }()
	defer l.recoverFrame(f)

	if f.Err != nil || !l.comp.Accepts(f.Observed) {
		l.transition(f.Seq, Passthrough)
		return
	}

	l.transition(f.Seq, Compositing)
	out, err := l.comp.Composite(f.Input, f.Observed)
	f.Err = err
	if out == nil {
		l.transition(f.Seq, Passthrough)
		return
	}
	f.Output, f.State = out, Compositing
}

// recoverFrame turns a panic during frame processing into a passthrough.
func (l *Loop) recoverFrame(f *Frame) {
	r := recover()
	if r == nil {
		return
	}
	f.Output, f.State = f.Input, Passthrough
	f.Err = fmt.Errorf("%w: %v", ErrPanic, r)
	l.transition(f.Seq, Passthrough)
}

// emit records and logs the outcome of f, then hands it to the sink.
func (l *Loop) emit(f *Frame) error {
	l.transition(f.Seq, Emitting)
	l.rec.update(f)

	switch {
	case f.Err == nil:
	case errors.Is(f.Err, composite.ErrMissingMarker), errors.Is(f.Err, composite.ErrOutOfBounds):
		l.log.Debug("markers skipped", "seq", f.Seq, "state", f.State.String(), "error", f.Err.Error())
	default:
		l.log.Warning("frame processing failed", "seq", f.Seq, "state", f.State.String(), "error", f.Err.Error())
	}

	err := l.sink.Emit(f)
	if err != nil && !errors.Is(err, ErrStop) {
		return fmt.Errorf("could not emit frame %d: %w", f.Seq, err)
	}
	return err
}

func (l *Loop) transition(seq uint64, s State) {
	l.state.Store(int32(s))
	if l.observe != nil {
		l.observe(seq, s)
	}
}
