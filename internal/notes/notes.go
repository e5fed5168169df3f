// SPDX-License-Identifier: MIT
/*
Package notes converts between frequencies, note numbers and FFT bins.

Note numbers follow MIDI: A4 = 69 = 440 Hz, one unit per semitone, octave
number = n/12 - 1 (so C4 = 60). A continuous note number carries the tuning
deviation in its fractional part, 0.01 of a unit being one cent.
*/
package notes

import (
	"math"
	"strconv"
)

const (
	// ReferenceNumber is the note number of the tuning reference (A4).
	ReferenceNumber = 69
	// ReferenceFrequency is the frequency of A4 in Hz.
	ReferenceFrequency = 440.0
)

// Names lists pitch classes starting at C.
var Names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// FrequencyToNumber returns the continuous note number of f.
// It returns NaN for f <= 0; callers must guard against that.
func FrequencyToNumber(f float64) float64 {
	if f <= 0 {
		return math.NaN()
	}
	return 12*math.Log2(f/ReferenceFrequency) + ReferenceNumber
}

// NumberToFrequency returns the frequency of a (possibly fractional) note
// number.
func NumberToFrequency(n float64) float64 {
	return ReferenceFrequency * math.Exp2((n-ReferenceNumber)/12)
}

// Nearest rounds a continuous note number to the closest note, halves away
// from zero.
func Nearest(n float64) int {
	return int(math.Round(n))
}

// PitchClass returns the index into Names for n, also for negative n.
func PitchClass(n int) int {
	return ((n % 12) + 12) % 12
}

// Octave returns the octave of n, rounding toward negative infinity so that
// note -1 is B in octave -2.
func Octave(n int) int {
	q := n / 12
	if n%12 < 0 {
		q--
	}
	return q - 1
}

// NumberToName returns the note name with octave, e.g. 69 -> "A4".
func NumberToName(n int) string {
	return Names[PitchClass(n)] + strconv.Itoa(Octave(n))
}

// Cents returns the deviation of continuous from rounded in cents. The value
// is not clamped; with rounded = Nearest(continuous) it lies in [-50, 50].
func Cents(continuous float64, rounded int) int {
	return int(math.Round((continuous - float64(rounded)) * 100))
}

// FrequencyToIndex returns the fractional FFT bin of f for a bin width of
// resolution Hz.
func FrequencyToIndex(f, resolution float64) float64 {
	return f / resolution
}
