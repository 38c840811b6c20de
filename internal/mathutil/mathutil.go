package mathutil

import (
	"math/bits"
	"unsafe"
)

// WordBits is the number of bits in a uint64.
const WordBits = int(8 * unsafe.Sizeof(uint64(0)))

// BinaryDigits returns the 1-based position of the most significant set bit,
// or 0 for zero.
func BinaryDigits(value uint64) int {
	return WordBits - bits.LeadingZeros64(value)
}

// SatSub returns a-b, clamped to zero.
func SatSub(a, b int) int {
	if a <= b {
		return 0
	}
	return a - b
}

// LowMask returns a mask of n low-order bits.
// n <= 0 yields 0, n >= 64 yields all ones.
func LowMask(n int) uint64 {
	switch {
	case n <= 0:
		return 0
	case n >= WordBits:
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}

// HighBit returns a word with the single bit at 1-based position n set,
// or 0 if n == 0.
func HighBit(n int) uint64 {
	if n <= 0 || n > WordBits {
		return 0
	}
	return 1 << uint(n-1)
}
