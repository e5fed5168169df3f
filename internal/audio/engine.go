// SPDX-License-Identifier: MIT
/*
Package audio feeds the pitch estimator from an input source:
- Blocking PortAudio capture, WAV files and synthetic tones
- Explicit pull loop driving the estimator one frame at a time
- Fan-out of estimates to any number of transports
- Optional WAV recording of the analysed input

Thread Safety:
- The engine runs on the caller's goroutine and owns the frame buffer
- Cancelling the context aborts a blocked device read
- Transports that do their own I/O must be safe for concurrent use
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	applog "tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/internal/transport"
)

type Engine struct {
	source     Source
	estimator  *pitch.Estimator
	transports []transport.Transport
	recorder   *Recorder

	frame   []int16 // reused for every read
	frames  uint64
	reports uint64
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithTransports adds report sinks.
func WithTransports(ts ...transport.Transport) EngineOption {
	return func(e *Engine) { e.transports = append(e.transports, ts...) }
}

// WithRecorder tees every frame into r before analysis.
func WithRecorder(r *Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

func NewEngine(source Source, estimator *pitch.Estimator, opts ...EngineOption) *Engine {
	e := &Engine{
		source:    source,
		estimator: estimator,
		frame:     make([]int16, estimator.Config().SamplesPerFrame),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run pulls frames until the source is drained or ctx is cancelled, both of
// which return nil. A failing read ends the loop with an error; failing
// transports and recorder writes are logged and skipped.
func (e *Engine) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if a, ok := e.source.(aborter); ok {
			if err := a.Abort(); err != nil {
				applog.Warnf("Audio: Failed to abort input: %v", err)
			}
		}
	})
	defer stop()

	for {
		if ctx.Err() != nil {
			applog.Debugf("Audio: Engine stopped after %d frames", e.frames)
			return nil
		}

		if err := e.source.ReadFrame(e.frame); err != nil {
			if errors.Is(err, io.EOF) {
				applog.Infof("Audio: Input finished after %d frames, %d reports", e.frames, e.reports)
				return nil
			}
			if ctx.Err() != nil {
				applog.Debugf("Audio: Engine stopped after %d frames", e.frames)
				return nil
			}
			return fmt.Errorf("audio frame %d: %w", e.frames+1, err)
		}
		e.frames++

		if e.recorder != nil {
			if err := e.recorder.Write(e.frame); err != nil {
				applog.Errorf("Audio: %v", err)
			}
		}

		est, ok := e.estimator.OnFrame(e.frame)
		if !ok {
			continue
		}
		e.reports++
		for _, t := range e.transports {
			if err := t.Send(est); err != nil {
				applog.Errorf("Audio: Transport %T failed: %v", t, err)
			}
		}
	}
}

// Frames counts frames read so far.
func (e *Engine) Frames() uint64 { return e.frames }

// Reports counts estimates forwarded to the transports.
func (e *Engine) Reports() uint64 { return e.reports }

// Close stops the recorder, then closes the source and every transport.
func (e *Engine) Close() error {
	var errs []error
	if e.recorder != nil {
		errs = append(errs, e.recorder.Stop())
	}
	if c, ok := e.source.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	for _, t := range e.transports {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}
