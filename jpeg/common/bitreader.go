package common

import "github.com/cocosip/go-media-codec/stream"

// BitReader reads entropy-coded segment bits MSB first. It removes 0xFF00
// stuffing and stops at the first real marker, after which it supplies
// zero bits.
type BitReader struct {
	cur    *stream.Cursor
	buf    uint32
	nbits  int
	marker byte
	noMore bool

	// EOBRun counts blocks left in a progressive end-of-band run.
	EOBRun int
}

// NewBitReader returns a reader positioned at the start of scan data.
func NewBitReader(cur *stream.Cursor) *BitReader {
	return &BitReader{cur: cur, marker: MarkerNone}
}

// Reset clears the bit buffer at a scan or restart boundary.
func (r *BitReader) Reset() {
	r.buf = 0
	r.nbits = 0
	r.noMore = false
	r.marker = MarkerNone
	r.EOBRun = 0
}

// Marker returns the marker that terminated the segment, or MarkerNone.
func (r *BitReader) Marker() byte { return r.marker }

// SetMarker records a marker read outside the bit stream.
func (r *BitReader) SetMarker(m byte) { r.marker = m }

// fill tops the buffer up to at least 25 bits.
func (r *BitReader) fill() {
	for r.nbits <= 24 {
		var b uint32
		if !r.noMore {
			b = uint32(r.cur.Byte())
			if b == 0xff {
				c := r.cur.Byte()
				for c == 0xff {
					c = r.cur.Byte()
				}
				if c != 0 {
					r.marker = c
					r.noMore = true
					b = 0
				}
			}
		}
		r.buf |= b << (24 - r.nbits)
		r.nbits += 8
	}
}

// Fill reads ahead so a marker following the remaining padding bits is
// detected.
func (r *BitReader) Fill() {
	r.fill()
}

// Decode reads one Huffman symbol.
func (r *BitReader) Decode(h *HuffmanTable) (int, error) {
	if r.nbits < 16 {
		r.fill()
	}
	c := int(r.buf>>(32-FastBits)) & fastMask
	if k := h.fast[c]; k < 255 {
		s := int(h.size[k])
		r.buf <<= s
		r.nbits -= s
		return int(h.Values[k]), nil
	}

	temp := r.buf >> 16
	k := FastBits + 1
	for temp >= h.maxCode[k] {
		k++
	}
	if k == 17 {
		r.nbits -= 16
		return 0, ErrBadHuffmanCode
	}
	idx := int(r.buf>>(32-k)&(1<<k-1)) + h.delta[k]
	if idx < 0 || idx >= 256 || idx >= len(h.Values) {
		return 0, ErrBadHuffmanCode
	}
	r.buf <<= k
	r.nbits -= k
	return int(h.Values[idx]), nil
}

// DecodeFastAC tries the combined run/value lookup for an AC code. It
// returns ok=false when the code needs the slow path.
func (r *BitReader) DecodeFastAC(h *HuffmanTable) (run, val int, ok bool) {
	if r.nbits < 16 {
		r.fill()
	}
	c := int(r.buf>>(32-FastBits)) & fastMask
	f := h.fastAC[c]
	if f == 0 {
		return 0, 0, false
	}
	s := int(f) & 15
	r.buf <<= s
	r.nbits -= s
	return int(f) >> 4 & 15, int(f) >> 8, true
}

// Receive reads an n-bit magnitude and sign-extends it (EXTEND).
func (r *BitReader) Receive(n int) int {
	if n == 0 {
		return 0
	}
	if r.nbits < n {
		r.fill()
	}
	v := int(r.buf >> (32 - n))
	r.buf <<= n
	r.nbits -= n
	if v < 1<<(n-1) {
		v += -1<<n + 1
	}
	return v
}

// Bits reads n unsigned bits.
func (r *BitReader) Bits(n int) int {
	if n == 0 {
		return 0
	}
	if r.nbits < n {
		r.fill()
	}
	v := int(r.buf >> (32 - n))
	r.buf <<= n
	r.nbits -= n
	return v
}

// Bit reads one bit.
func (r *BitReader) Bit() int {
	return r.Bits(1)
}
