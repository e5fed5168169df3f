// SPDX-License-Identifier: MIT
package analysis

// SpectralAnalyzer turns a windowed block of real samples into its magnitude
// spectrum. Implementations own their FFT state and are not safe for
// concurrent use.
type SpectralAnalyzer interface {
	// Analyze returns len(windowed)/2+1 magnitudes. The returned slice may be
	// reused by the next call; callers that keep it must copy it.
	Analyze(windowed []float64) []float64

	// Size is the FFT length the analyzer was built for.
	Size() int
}

// Bins is the number of magnitudes a real FFT of size n produces.
func Bins(n int) int {
	return n/2 + 1
}
