// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestNewWindowHann(t *testing.T) {
	const n = 1024
	w := NewWindow(n, Hann)

	if len(w) != n {
		t.Fatalf("len = %d, want %d", len(w), n)
	}
	for i, got := range w {
		want := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("w[%d] = %v, want %v", i, got, want)
		}
	}
	if w[0] != 0 || math.Abs(w[n-1]) > 1e-12 {
		t.Errorf("Hann endpoints = %v, %v; want 0", w[0], w[n-1])
	}
	for i := range n / 2 {
		if math.Abs(w[i]-w[n-1-i]) > 1e-12 {
			t.Fatalf("window not symmetric at %d", i)
		}
	}
}

func TestNewWindowShortLengths(t *testing.T) {
	if w := NewWindow(0, Hann); len(w) != 0 {
		t.Errorf("NewWindow(0) len = %d", len(w))
	}
	if w := NewWindow(1, Hann); len(w) != 1 || w[0] != 1 {
		t.Errorf("NewWindow(1) = %v, want [1]", w)
	}
}

func TestNewWindowRectangular(t *testing.T) {
	for i, v := range NewWindow(64, Rectangular) {
		if v != 1 {
			t.Fatalf("rectangular w[%d] = %v, want 1", i, v)
		}
	}
}

func TestWindowsTaper(t *testing.T) {
	for _, fn := range []WindowFunc{BartlettHann, Blackman, BlackmanNuttall, Hann, Hamming, Lanczos, Nuttall} {
		t.Run(fn.String(), func(t *testing.T) {
			w := NewWindow(256, fn)
			if w[0] >= w[128] {
				t.Errorf("%v: edge %v not below centre %v", fn, w[0], w[128])
			}
		})
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{"", Hann, false},
		{"HAMMING", Hamming, false},
		{"blackman-nuttall", BlackmanNuttall, false},
		{"none", Rectangular, false},
		{"kaiser", Hann, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			if got != tt.want || (err != nil) != tt.wantErr {
				t.Errorf("ParseWindowFunc(%q) = %v, %v; want %v, err=%v", tt.name, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestApplyWindow(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	coeffs := []float64{0, 0.5, 0.5, 0}
	dst := make([]float64, 4)

	ApplyWindow(dst, samples, coeffs)

	want := []float64{0, 1, 1.5, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}

	allocs := testing.AllocsPerRun(100, func() {
		ApplyWindow(dst, samples, coeffs)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ApplyWindow, got %.1f", allocs)
	}
}
