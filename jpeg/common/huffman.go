package common

import "fmt"

// FastBits is the width of the direct lookup table for short codes.
const FastBits = 9

const fastMask = 1<<FastBits - 1

// HuffmanTable represents a Huffman coding table
type HuffmanTable struct {
	// Number of codes of each length (1-16 bits)
	Bits [16]int
	// Values for each code, in order of code length
	Values []byte

	fast    [1 << FastBits]uint8 // index into code/size/Values, 255 = slow path
	code    [256]uint16
	size    [257]uint8
	maxCode [18]uint32 // exclusive bound, left-aligned to 16 bits
	delta   [17]int    // symbol index = code + delta[len]

	// fastAC packs run, value and total length for AC codes whose
	// magnitude bits also fit in FastBits. Zero means not accelerated.
	fastAC [1 << FastBits]int16
}

// Build builds lookup tables for fast Huffman decoding
func (h *HuffmanTable) Build() error {
	total := 0
	for _, n := range h.Bits {
		total += n
	}
	if total > 256 || total > len(h.Values) {
		return fmt.Errorf("%w: %d codes", ErrInvalidDHT, total)
	}

	k := 0
	for i := 0; i < 16; i++ {
		for j := 0; j < h.Bits[i]; j++ {
			h.size[k] = uint8(i + 1)
			k++
		}
	}
	h.size[k] = 0

	code := uint32(0)
	k = 0
	var j int
	for j = 1; j <= 16; j++ {
		h.delta[j] = k - int(code)
		if int(h.size[k]) == j {
			for int(h.size[k]) == j {
				h.code[k] = uint16(code)
				code++
				k++
			}
			if code-1 >= 1<<j {
				return fmt.Errorf("%w: bad code lengths", ErrInvalidDHT)
			}
		}
		h.maxCode[j] = code << (16 - j)
		code <<= 1
	}
	h.maxCode[j] = 0xffffffff

	for i := range h.fast {
		h.fast[i] = 255
	}
	for i := 0; i < k; i++ {
		s := int(h.size[i])
		if s <= FastBits {
			c := int(h.code[i]) << (FastBits - s)
			m := 1 << (FastBits - s)
			for j := 0; j < m; j++ {
				h.fast[c+j] = uint8(i)
			}
		}
	}
	h.buildFastAC()
	return nil
}

func (h *HuffmanTable) buildFastAC() {
	for i := range h.fastAC {
		h.fastAC[i] = 0
		f := h.fast[i]
		if f == 255 {
			continue
		}
		rs := int(h.Values[f])
		run := rs >> 4 & 15
		mag := rs & 15
		l := int(h.size[f])
		if mag == 0 || l+mag > FastBits {
			continue
		}
		v := ((i << l) & fastMask) >> (FastBits - mag)
		if v < 1<<(mag-1) {
			v += -1<<mag + 1
		}
		if v >= -128 && v <= 127 {
			h.fastAC[i] = int16(v*256 + run*16 + l + mag)
		}
	}
}

// HuffmanCode represents a Huffman code
type HuffmanCode struct {
	Code uint16 // The Huffman code
	Len  int    // Code length in bits
}

// BuildHuffmanCodes builds the encoder view of a table, indexed by symbol.
func BuildHuffmanCodes(table *HuffmanTable) [256]HuffmanCode {
	var codes [256]HuffmanCode
	code := uint16(0)
	p := 0
	for l := 0; l < 16; l++ {
		for i := 0; i < table.Bits[l] && p < len(table.Values); i++ {
			codes[table.Values[p]] = HuffmanCode{Code: code, Len: l + 1}
			code++
			p++
		}
		code <<= 1
	}
	return codes
}

// Category returns the magnitude class of a coefficient and the bits that
// transmit its value.
func Category(val int) (cat int, bits uint32) {
	if val == 0 {
		return 0, 0
	}
	abs := val
	if abs < 0 {
		abs = -abs
	}
	for 1<<cat <= abs {
		cat++
	}
	if val > 0 {
		return cat, uint32(val)
	}
	return cat, uint32(val+(1<<cat)-1) & (1<<cat - 1)
}
