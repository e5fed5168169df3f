// SPDX-License-Identifier: MIT
/*
Package pitch estimates the note of a monophonic signal from a stream of
fixed-size frames.

Every frame is pushed into a rolling window of SamplesPerFFT samples, the
window is tapered, transformed, and the loudest bin inside the configured
note range is taken as the fundamental. An estimate is emitted only once the
window has seen FramesPerFFT frames and only when the peak frequency differs
from the last emitted one.
*/
package pitch

import (
	"fmt"
	"time"

	"tuner/internal/analysis"
	"tuner/internal/buffer"
	"tuner/internal/config"
	applog "tuner/internal/log"
	"tuner/internal/notes"
)

// noFrequency is the initial lastFrequency; no peak can equal it.
const noFrequency = -1.0

// Estimator is the per-stream tuner state. It is not safe for concurrent
// use; the engine drives it from a single goroutine.
type Estimator struct {
	cfg        config.TunerConfig
	fftSize    int
	resolution float64
	bins       notes.BinRange

	window   []float64 // coefficients, immutable
	samples  *buffer.Rolling
	analyzer analysis.SpectralAnalyzer

	// Workspace reused on every frame.
	snapshot   []float64
	windowed   []float64
	magnitudes []float64

	framesSeen    uint64
	lastFrequency float64
	emitted       uint64

	now func() time.Time
}

// Option customises an Estimator.
type Option func(*Estimator)

// WithAnalyzer replaces the backend chosen by cfg.Backend. The analyzer must
// have Size() == cfg.SamplesPerFFT().
func WithAnalyzer(a analysis.SpectralAnalyzer) Option {
	return func(e *Estimator) { e.analyzer = a }
}

// WithClock sets the time source stamped on estimates.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// New validates cfg and builds an Estimator.
func New(cfg config.TunerConfig, opts ...Option) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	windowFunc, err := analysis.ParseWindowFunc(cfg.Window)
	if err != nil {
		return nil, err
	}

	fftSize := cfg.SamplesPerFFT()
	e := &Estimator{
		cfg:           cfg,
		fftSize:       fftSize,
		resolution:    cfg.Resolution(),
		window:        analysis.NewWindow(fftSize, windowFunc),
		samples:       buffer.New(fftSize),
		snapshot:      make([]float64, fftSize),
		windowed:      make([]float64, fftSize),
		magnitudes:    make([]float64, analysis.Bins(fftSize)),
		lastFrequency: noFrequency,
		now:           time.Now,
	}
	e.bins = notes.NewBinRange(cfg.MinNote, cfg.MaxNote, fftSize, e.resolution).Clamp(analysis.Bins(fftSize))

	for _, opt := range opts {
		opt(e)
	}

	if e.analyzer == nil {
		if e.analyzer, err = analysis.NewAnalyzer(cfg.Backend, fftSize); err != nil {
			return nil, err
		}
	}
	if e.analyzer.Size() != fftSize {
		return nil, fmt.Errorf("analyzer size %d does not match samples per FFT %d", e.analyzer.Size(), fftSize)
	}

	applog.Debugf("Pitch: Estimator ready (FFT: %d, Resolution: %.4f Hz, Bins: %v, Window: %v)",
		fftSize, e.resolution, e.bins, windowFunc)
	return e, nil
}

// OnFrame ingests one frame of 16-bit samples and returns an estimate when
// the emission rules allow one. Frames must be SamplesPerFrame long.
func (e *Estimator) OnFrame(frame []int16) (Estimate, bool) {
	e.checkFrame(len(frame))
	e.samples.PushInt16(frame)
	return e.analyze()
}

// OnFrameFloat is OnFrame for samples already in float form.
func (e *Estimator) OnFrameFloat(frame []float64) (Estimate, bool) {
	e.checkFrame(len(frame))
	e.samples.Push(frame)
	return e.analyze()
}

func (e *Estimator) checkFrame(n int) {
	if n != e.cfg.SamplesPerFrame {
		panic(fmt.Sprintf("pitch: frame has %d samples, want %d", n, e.cfg.SamplesPerFrame))
	}
}

func (e *Estimator) analyze() (Estimate, bool) {
	e.samples.SnapshotInto(e.snapshot)
	analysis.ApplyWindow(e.windowed, e.snapshot, e.window)
	copy(e.magnitudes, e.analyzer.Analyze(e.windowed))

	peak, peakMag := analysis.PeakBin(e.magnitudes, e.bins.Min, e.bins.Max)
	frequency := float64(peak) * e.resolution

	e.framesSeen++

	// Silence, DC or an empty bin range: nothing to report and no log2 of
	// a non-positive frequency.
	if e.bins.Empty() || peakMag == 0 || frequency <= 0 {
		return Estimate{}, false
	}

	if e.framesSeen < uint64(e.cfg.FramesPerFFT) || frequency == e.lastFrequency {
		return Estimate{}, false
	}
	e.lastFrequency = frequency
	e.emitted++

	number := notes.FrequencyToNumber(frequency)
	nearest := notes.Nearest(number)
	return Estimate{
		Seq:       e.emitted,
		Time:      e.now(),
		Frequency: frequency,
		Number:    number,
		Nearest:   nearest,
		Note:      notes.NumberToName(nearest),
		Cents:     notes.Cents(number, nearest),
	}, true
}

// Reset forgets all pushed samples and the emission history.
func (e *Estimator) Reset() {
	e.samples.Reset()
	e.framesSeen = 0
	e.lastFrequency = noFrequency
}

// Config returns the configuration the estimator was built with.
func (e *Estimator) Config() config.TunerConfig { return e.cfg }

// Resolution is the bin width in Hz.
func (e *Estimator) Resolution() float64 { return e.resolution }

// BinRange is the searched bin interval.
func (e *Estimator) BinRange() notes.BinRange { return e.bins }

// SamplesPerFFT is the analysis window length.
func (e *Estimator) SamplesPerFFT() int { return e.fftSize }

// FramesSeen counts frames since creation or Reset.
func (e *Estimator) FramesSeen() uint64 { return e.framesSeen }

// Magnitudes returns a copy of the most recent spectrum.
func (e *Estimator) Magnitudes() []float64 {
	return append([]float64(nil), e.magnitudes...)
}
