package deflate

import "math/bits"

const (
	fastBits = 9
	fastMask = 1<<fastBits - 1
	maxSyms  = 288
)

// huffman is a canonical decoding table. Codes of up to fastBits bits are
// resolved with a single lookup; longer codes walk maxCode.
type huffman struct {
	fast        [1 << fastBits]uint16 // length<<9 | symbol, 0 when absent
	firstCode   [16]uint16
	maxCode     [17]int // exclusive upper bound, left-aligned to 16 bits
	firstSymbol [16]uint16
	size        [maxSyms]uint8
	value       [maxSyms]uint16
}

func reverse16(v uint32, n int) uint32 {
	return uint32(bits.Reverse16(uint16(v))) >> (16 - n)
}

// build assigns canonical codes from a code-length array. Lengths are in
// 0..15, zero meaning unused.
func (h *huffman) build(lengths []uint8) error {
	*h = huffman{}
	var count [17]int
	for _, l := range lengths {
		count[l]++
	}
	count[0] = 0
	for i := 1; i < 16; i++ {
		if count[i] > 1<<i {
			return ErrBadCodeLengths
		}
	}

	var next [16]int
	code, k := 0, 0
	for i := 1; i < 16; i++ {
		next[i] = code
		h.firstCode[i] = uint16(code)
		h.firstSymbol[i] = uint16(k)
		code += count[i]
		if count[i] != 0 && code-1 >= 1<<i {
			return ErrBadCodeLengths
		}
		h.maxCode[i] = code << (16 - i)
		code <<= 1
		k += count[i]
	}
	h.maxCode[16] = 0x10000

	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		s := int(l)
		c := next[s] - int(h.firstCode[s]) + int(h.firstSymbol[s])
		h.size[c] = l
		h.value[c] = uint16(sym)
		if s <= fastBits {
			fv := uint16(s<<9 | sym)
			for j := reverse16(uint32(next[s]), s); j < 1<<fastBits; j += 1 << s {
				h.fast[j] = fv
			}
		}
		next[s]++
	}
	return nil
}

// codes returns the canonical code assigned to each symbol, for tests and
// for the fixed-table encoder.
func canonicalCodes(lengths []uint8) []uint32 {
	var count [17]int
	for _, l := range lengths {
		count[l]++
	}
	count[0] = 0
	var next [17]uint32
	code := uint32(0)
	for i := 1; i <= 16; i++ {
		code = (code + uint32(count[i-1])) << 1
		next[i] = code
	}
	out := make([]uint32, len(lengths))
	for sym, l := range lengths {
		if l != 0 {
			out[sym] = next[l]
			next[l]++
		}
	}
	return out
}
