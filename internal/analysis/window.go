// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the tapering applied before the FFT.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
	Rectangular
)

var windowNames = map[WindowFunc]string{
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hann:            "hann",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
	Rectangular:     "rectangular",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// Unknown names return Hann together with an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann", "bartlett-hann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall", "blackman-nuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// NewWindow returns length coefficients of fn. The Hann window is the
// symmetric form w[i] = 0.5 - 0.5*cos(2*pi*i/(length-1)).
func NewWindow(length int, fn WindowFunc) []float64 {
	coeffs := make([]float64, length)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	// A single-point window would divide by zero in every taper.
	if length < 2 {
		return coeffs
	}

	switch fn {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Rectangular:
	default:
		window.Hann(coeffs)
	}
	return coeffs
}

// ApplyWindow writes samples[i]*coeffs[i] into dst. All three slices must
// have the same length.
func ApplyWindow(dst, samples, coeffs []float64) {
	for i, c := range coeffs {
		dst[i] = samples[i] * c
	}
}
