// SPDX-License-Identifier: MIT
/*
Package buffer holds the sliding analysis window.

Rolling keeps the most recent Cap() samples in a ring. Push overwrites the
oldest samples in place and advances the write cursor, so an update costs
O(len(frame)) instead of shifting the whole window. Snapshots unroll the ring
so the result is always chronological, oldest sample first, and zero padded
at the front until Cap() samples have been pushed.

Rolling is not safe for concurrent use.
*/
package buffer

import "fmt"

// Rolling is a fixed-capacity sliding window of float64 samples.
type Rolling struct {
	data   []float64
	head   int    // index of the oldest sample, also the next write position
	pushed uint64 // samples ingested since creation or Reset
}

// New allocates a zeroed window of capacity samples.
func New(capacity int) *Rolling {
	if capacity <= 0 {
		panic(fmt.Sprintf("buffer: capacity must be positive, got %d", capacity))
	}
	return &Rolling{data: make([]float64, capacity)}
}

// Cap returns the window length.
func (r *Rolling) Cap() int { return len(r.data) }

// Pushed returns the number of samples ingested so far.
func (r *Rolling) Pushed() uint64 { return r.pushed }

// Full reports whether at least Cap() samples have been pushed.
func (r *Rolling) Full() bool { return r.pushed >= uint64(len(r.data)) }

// Push appends frame, dropping the len(frame) oldest samples. A frame longer
// than the window is a caller bug and panics.
func (r *Rolling) Push(frame []float64) {
	n := len(frame)
	if n > len(r.data) {
		panic(fmt.Sprintf("buffer: frame of %d samples exceeds capacity %d", n, len(r.data)))
	}
	c := copy(r.data[r.head:], frame)
	copy(r.data, frame[c:])
	r.head = (r.head + n) % len(r.data)
	r.pushed += uint64(n)
}

// PushInt16 is Push for 16-bit PCM. Samples keep their integer scale.
func (r *Rolling) PushInt16(frame []int16) {
	n := len(frame)
	if n > len(r.data) {
		panic(fmt.Sprintf("buffer: frame of %d samples exceeds capacity %d", n, len(r.data)))
	}
	pos := r.head
	for _, s := range frame {
		r.data[pos] = float64(s)
		pos++
		if pos == len(r.data) {
			pos = 0
		}
	}
	r.head = pos
	r.pushed += uint64(n)
}

// SnapshotInto copies the window into dst in chronological order. dst must
// be exactly Cap() long.
func (r *Rolling) SnapshotInto(dst []float64) {
	if len(dst) != len(r.data) {
		panic(fmt.Sprintf("buffer: snapshot destination has %d samples, want %d", len(dst), len(r.data)))
	}
	c := copy(dst, r.data[r.head:])
	copy(dst[c:], r.data[:r.head])
}

// Snapshot returns a chronological copy of the window.
func (r *Rolling) Snapshot() []float64 {
	dst := make([]float64, len(r.data))
	r.SnapshotInto(dst)
	return dst
}

// Reset zeroes the window and the push counter.
func (r *Rolling) Reset() {
	clear(r.data)
	r.head = 0
	r.pushed = 0
}
