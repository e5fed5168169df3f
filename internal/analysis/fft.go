// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"

	"tuner/pkg/bitint"

	godspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// GonumAnalyzer computes magnitudes with gonum's real FFT. All buffers are
// allocated up front so Analyze does not allocate.
type GonumAnalyzer struct {
	fftSize   int
	fft       *fourier.FFT
	fftOutput []complex128 // N/2+1 complex coefficients
	magnitude []float64    // N/2+1 magnitudes, returned by Analyze
}

// GoDSPAnalyzer computes magnitudes with github.com/mjibson/go-dsp. It
// allocates on every call and is kept as a cross-check of the gonum path.
type GoDSPAnalyzer struct {
	fftSize   int
	magnitude []float64
}

var (
	_ SpectralAnalyzer = (*GonumAnalyzer)(nil)
	_ SpectralAnalyzer = (*GoDSPAnalyzer)(nil)
)

// NewGonumAnalyzer builds the default analyzer for power-of-two fftSize.
func NewGonumAnalyzer(fftSize int) (*GonumAnalyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	return &GonumAnalyzer{
		fftSize:   fftSize,
		fft:       fourier.NewFFT(fftSize),
		fftOutput: make([]complex128, Bins(fftSize)),
		magnitude: make([]float64, Bins(fftSize)),
	}, nil
}

// Analyze implements SpectralAnalyzer.
func (a *GonumAnalyzer) Analyze(windowed []float64) []float64 {
	a.fft.Coefficients(a.fftOutput, windowed)
	for i, c := range a.fftOutput {
		a.magnitude[i] = cmplx.Abs(c)
	}
	return a.magnitude
}

// Size implements SpectralAnalyzer.
func (a *GonumAnalyzer) Size() int { return a.fftSize }

// NewGoDSPAnalyzer builds the go-dsp backed analyzer.
func NewGoDSPAnalyzer(fftSize int) (*GoDSPAnalyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	return &GoDSPAnalyzer{
		fftSize:   fftSize,
		magnitude: make([]float64, Bins(fftSize)),
	}, nil
}

// Analyze implements SpectralAnalyzer. go-dsp returns the full two-sided
// spectrum; only the non-negative frequencies are kept.
func (a *GoDSPAnalyzer) Analyze(windowed []float64) []float64 {
	spectrum := godspfft.FFTReal(windowed)
	for i := range a.magnitude {
		a.magnitude[i] = cmplx.Abs(spectrum[i])
	}
	return a.magnitude
}

// Size implements SpectralAnalyzer.
func (a *GoDSPAnalyzer) Size() int { return a.fftSize }

// NewAnalyzer returns the analyzer for backend ("gonum" or "godsp"; empty
// means gonum).
func NewAnalyzer(backend string, fftSize int) (SpectralAnalyzer, error) {
	switch strings.ToLower(backend) {
	case "gonum", "":
		return NewGonumAnalyzer(fftSize)
	case "godsp":
		return NewGoDSPAnalyzer(fftSize)
	default:
		return nil, fmt.Errorf("unknown spectral backend %q", backend)
	}
}

// PeakBin returns the index and magnitude of the largest value in
// magnitudes[lo:hi]. The first maximum wins on ties. An empty range
// returns (lo, 0).
func PeakBin(magnitudes []float64, lo, hi int) (int, float64) {
	if lo < 0 {
		lo = 0
	}
	if hi > len(magnitudes) {
		hi = len(magnitudes)
	}
	peak, peakMag := lo, 0.0
	for i := lo; i < hi; i++ {
		if magnitudes[i] > peakMag {
			peak, peakMag = i, magnitudes[i]
		}
	}
	return peak, peakMag
}
