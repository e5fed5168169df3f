// SPDX-License-Identifier: MIT
package notes

import (
	"fmt"
	"math"
)

// BinRange is the half-open FFT bin interval [Min, Max) searched for the
// spectral peak. It spans one semitone below the lowest and one above the
// highest configured note so that notes tuned far off still peak inside it.
type BinRange struct {
	Min int
	Max int
}

// NewBinRange derives the bin interval for notes minNote..maxNote, clamped
// to [0, samplesPerFFT].
func NewBinRange(minNote, maxNote, samplesPerFFT int, resolution float64) BinRange {
	lo := math.Floor(FrequencyToIndex(NumberToFrequency(float64(minNote-1)), resolution))
	hi := math.Ceil(FrequencyToIndex(NumberToFrequency(float64(maxNote+1)), resolution))

	r := BinRange{Min: int(lo), Max: int(hi)}
	if r.Min < 0 {
		r.Min = 0
	}
	if r.Max > samplesPerFFT {
		r.Max = samplesPerFFT
	}
	return r
}

// Clamp limits the range to the first n bins, e.g. the N/2+1 bins a real
// FFT produces.
func (r BinRange) Clamp(n int) BinRange {
	if r.Max > n {
		r.Max = n
	}
	if r.Min > r.Max {
		r.Min = r.Max
	}
	return r
}

// Len is the number of bins in the range.
func (r BinRange) Len() int {
	if r.Max <= r.Min {
		return 0
	}
	return r.Max - r.Min
}

// Empty reports whether the range selects no bins.
func (r BinRange) Empty() bool {
	return r.Len() == 0
}

func (r BinRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Min, r.Max)
}
