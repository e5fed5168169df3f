// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

const testFFTSize = 4096

// binTone returns a windowed sine that sits exactly on bin k.
func binTone(n, k int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 1000 * math.Sin(2*math.Pi*float64(k)*float64(i)/float64(n))
	}
	windowed := make([]float64, n)
	ApplyWindow(windowed, samples, NewWindow(n, Hann))
	return windowed
}

func TestNewAnalyzer(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"gonum", false},
		{"", false},
		{"GoDSP", false},
		{"fftw", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			a, err := NewAnalyzer(tt.backend, testFFTSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAnalyzer(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			}
			if err == nil && a.Size() != testFFTSize {
				t.Errorf("Size() = %d, want %d", a.Size(), testFFTSize)
			}
		})
	}
}

func TestAnalyzerRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := NewGonumAnalyzer(3000); err == nil {
		t.Error("NewGonumAnalyzer(3000) should fail")
	}
	if _, err := NewGoDSPAnalyzer(3000); err == nil {
		t.Error("NewGoDSPAnalyzer(3000) should fail")
	}
}

func TestAnalyzersFindTone(t *testing.T) {
	const k = 300
	input := binTone(testFFTSize, k)

	for _, backend := range []string{"gonum", "godsp"} {
		t.Run(backend, func(t *testing.T) {
			a, err := NewAnalyzer(backend, testFFTSize)
			if err != nil {
				t.Fatal(err)
			}
			mags := a.Analyze(input)
			if len(mags) != Bins(testFFTSize) {
				t.Fatalf("len(magnitudes) = %d, want %d", len(mags), Bins(testFFTSize))
			}
			peak, _ := PeakBin(mags, 0, len(mags))
			if peak != k {
				t.Errorf("peak bin = %d, want %d", peak, k)
			}
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	input := binTone(testFFTSize, 163)

	g, _ := NewGonumAnalyzer(testFFTSize)
	d, _ := NewGoDSPAnalyzer(testFFTSize)

	gm := append([]float64(nil), g.Analyze(input)...)
	dm := d.Analyze(input)

	for i := range gm {
		if math.Abs(gm[i]-dm[i]) > 1e-6*(1+gm[i]) {
			t.Fatalf("bin %d: gonum %v, go-dsp %v", i, gm[i], dm[i])
		}
	}
}

func TestGonumAnalyzeZeroAllocs(t *testing.T) {
	a, _ := NewGonumAnalyzer(testFFTSize)
	input := binTone(testFFTSize, 100)

	a.Analyze(input)
	allocs := testing.AllocsPerRun(50, func() {
		a.Analyze(input)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in GonumAnalyzer.Analyze, got %.1f", allocs)
	}
}

func TestPeakBin(t *testing.T) {
	mags := []float64{9, 1, 3, 7, 7, 2, 8}

	tests := []struct {
		name     string
		lo, hi   int
		wantIdx  int
		wantPeak float64
	}{
		{"restricted excludes DC", 1, 6, 3, 7},
		{"first maximum wins", 3, 5, 3, 7},
		{"whole", 0, 7, 0, 9},
		{"clamped hi", 5, 100, 6, 8},
		{"clamped lo", -4, 2, 0, 9},
		{"empty", 4, 4, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, peak := PeakBin(mags, tt.lo, tt.hi)
			if idx != tt.wantIdx || peak != tt.wantPeak {
				t.Errorf("PeakBin(%d, %d) = %d, %v; want %d, %v", tt.lo, tt.hi, idx, peak, tt.wantIdx, tt.wantPeak)
			}
		})
	}
}

func TestPeakBinSilence(t *testing.T) {
	idx, peak := PeakBin(make([]float64, 16), 3, 10)
	if idx != 3 || peak != 0 {
		t.Errorf("PeakBin(silence) = %d, %v; want 3, 0", idx, peak)
	}
}

func BenchmarkGonumAnalyze(b *testing.B) {
	a, _ := NewGonumAnalyzer(32768)
	input := binTone(32768, 164)
	b.ReportAllocs()
	for b.Loop() {
		a.Analyze(input)
	}
}

func BenchmarkGoDSPAnalyze(b *testing.B) {
	a, _ := NewGoDSPAnalyzer(32768)
	input := binTone(32768, 164)
	b.ReportAllocs()
	for b.Loop() {
		a.Analyze(input)
	}
}
