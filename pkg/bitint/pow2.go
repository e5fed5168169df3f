// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used when sizing FFT
buffers. The tuner's analysis window is samplesPerFrame * framesPerFFT
samples long and both factors must be powers of two, so the configuration
layer validates them here and suggests the nearest usable size when they
are not.

Usage:

	if !bitint.IsPowerOfTwo(samplesPerFFT) {
		hint := bitint.NextPowerOfTwo(samplesPerFFT) // 3000 -> 4096
	}

NextPowerOfTwo works on (size-1) so that exact powers of two are kept:

	size 8: bits.Len(7) = 3, 1<<3 = 8
	size 9: bits.Len(8) = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
// Zero and negative sizes map to 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of two <= size, or 0 when size
// is not positive.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
// (n & (n-1)) clears the lowest set bit, so it is zero only when
// exactly one bit is set.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
