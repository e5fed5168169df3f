// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the transport interface for tests. It keeps every
// value it was sent.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
	Err    error // returned from Send when set
}

// Send records data and returns m.Err.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return m.Err
}

// Close marks the transport as closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Count returns the number of recorded sends.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// GenerateSineWave returns size int16 samples of a sine at frequency Hz
// with the given peak amplitude (0..1 of full scale), starting at phase 0.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []int16 {
	return GenerateSineWaveAt(0, size, sampleRate, frequency, amplitude)
}

// GenerateSineWaveAt is GenerateSineWave starting at sample offset, so that
// consecutive calls produce a phase-continuous signal.
func GenerateSineWaveAt(offset, size int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(offset+i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * math.MaxInt16 * amplitude)
	}
	return buffer
}

// GenerateComplexWave returns a plucked-string-like tone: the fundamental
// plus its 2nd and 3rd harmonics at decreasing levels.
func GenerateComplexWave(size int, sampleRate, fundamental float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*fundamental*tm)*0.5 +
			math.Sin(2*math.Pi*2*fundamental*tm)*0.3 +
			math.Sin(2*math.Pi*3*fundamental*tm)*0.15
		buffer[i] = int16(signal * math.MaxInt16 * 0.9)
	}
	return buffer
}

// SplitFrames cuts samples into consecutive frames of frameSize. A trailing
// partial frame is dropped.
func SplitFrames(samples []int16, frameSize int) [][]int16 {
	if frameSize <= 0 {
		return nil
	}
	frames := make([][]int16, 0, len(samples)/frameSize)
	for start := 0; start+frameSize <= len(samples); start += frameSize {
		frames = append(frames, samples[start:start+frameSize])
	}
	return frames
}
