package vorbis

import (
	"math"
	"math/bits"
)

// bitReader reads a packet least significant bit first. Reading past the
// end yields zeros and sets eop.
type bitReader struct {
	data []byte
	pos  int
	bit  uint
	eop  bool
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (b *bitReader) read(n int) uint32 {
	var v uint32
	for i := 0; i < n; {
		if b.pos >= len(b.data) {
			b.eop = true
			return 0
		}
		take := min(n-i, int(8-b.bit))
		chunk := uint32(b.data[b.pos]>>b.bit) & (1<<take - 1)
		v |= chunk << i
		i += take
		b.bit += uint(take)
		if b.bit == 8 {
			b.bit = 0
			b.pos++
		}
	}
	return v
}

func (b *bitReader) readBit() bool { return b.read(1) == 1 }

// remaining returns the number of unread bits.
func (b *bitReader) remaining() int {
	return (len(b.data)-b.pos)*8 - int(b.bit)
}

// ilog returns the number of bits needed to represent v.
func ilog(v int) int {
	if v <= 0 {
		return 0
	}
	return bits.Len(uint(v))
}

// float32Unpack decodes the 32-bit packed float used in setup headers.
func float32Unpack(x uint32) float32 {
	mantissa := float64(x & 0x1fffff)
	exp := int((x & 0x7fe00000) >> 21)
	if x&0x80000000 != 0 {
		mantissa = -mantissa
	}
	return float32(math.Ldexp(mantissa, exp-788))
}

// lookup1Values returns the largest r with r^dim <= entries.
func lookup1Values(entries, dim int) int {
	r := int(math.Floor(math.Exp(math.Log(float64(entries)) / float64(dim))))
	// correct for floating point error either way
	for pow(r+1, dim) <= entries {
		r++
	}
	for r > 0 && pow(r, dim) > entries {
		r--
	}
	return r
}

func pow(b, e int) int {
	v := 1
	for i := 0; i < e; i++ {
		v *= b
		if v > 1<<31 {
			return v
		}
	}
	return v
}
