// Package common holds the small numeric helpers shared by every codec:
// clamping, integer rounding, fixed-point conversion and bit counting.
package common

import (
	"math"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to the closed range [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp8 saturates an int to the 0..255 range.
func Clamp8(v int) uint8 {
	if uint(v) > 255 {
		if v < 0 {
			return 0
		}
		return 255
	}
	return uint8(v)
}

// DivCeil returns a/b rounded up. b must be positive.
func DivCeil[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// Round rounds half away from zero and converts to int.
func Round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

// FloatToFixed converts f to a fixed-point integer with the given number of
// fractional bits, rounding to nearest.
func FloatToFixed(f float64, fracBits uint) int32 {
	return int32(math.Round(f * float64(int64(1)<<fracBits)))
}

// Mul8x8 multiplies two 0..255 values as if they were fractions in [0,1],
// rounding the 16-bit product back to 8 bits (Jim Blinn's trick).
func Mul8x8(x, y uint8) uint8 {
	t := uint32(x)*uint32(y) + 128
	return uint8((t + (t >> 8)) >> 8)
}

// HighBit returns the index of the most significant set bit of z, or -1 if
// z is zero.
func HighBit(z uint32) int {
	if z == 0 {
		return -1
	}
	return bits.Len32(z) - 1
}

// BitCount returns the number of set bits in z.
func BitCount(z uint32) int {
	return bits.OnesCount32(z)
}

// ShiftSigned extracts a field of width bits at shift from v and scales it
// to 8 bits by replicating the high bits into the low ones. A negative
// shift moves the value left.
func ShiftSigned(v uint32, shift, width int) int {
	if shift < 0 {
		v <<= uint(-shift)
	} else {
		v >>= uint(shift)
	}
	if width <= 0 || width > 8 {
		return 0
	}
	v >>= uint(8 - width)
	v &= (1 << uint(width)) - 1
	// replicate the top bits down until a full byte is filled
	out := uint32(0)
	n := 0
	for n < 8 {
		out = out<<uint(width) | v
		n += width
	}
	return int(out >> uint(n-8))
}

// Abs returns the absolute value of an integer.
func Abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
