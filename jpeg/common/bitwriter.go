package common

import "github.com/cocosip/go-media-codec/stream"

// BitWriter writes entropy-coded data MSB first with 0xFF byte stuffing.
type BitWriter struct {
	w     *stream.Writer
	bits  uint32 // Bit buffer
	nBits int    // Number of bits in buffer
}

// NewBitWriter creates a new entropy writer
func NewBitWriter(w *stream.Writer) *BitWriter {
	return &BitWriter{w: w}
}

// WriteBits writes the low n bits of bits
func (e *BitWriter) WriteBits(bits uint32, n int) {
	if n == 0 {
		return
	}
	e.nBits += n
	e.bits |= (bits & (1<<n - 1)) << (24 - e.nBits)
	for e.nBits >= 8 {
		c := byte(e.bits >> 16)
		_ = e.w.WriteByte(c)
		if c == 0xFF {
			_ = e.w.WriteByte(0)
		}
		e.bits <<= 8
		e.nBits -= 8
	}
}

// WriteCode writes a Huffman code.
func (e *BitWriter) WriteCode(c HuffmanCode) {
	e.WriteBits(uint32(c.Code), c.Len)
}

// Flush pads the final byte with 1 bits
func (e *BitWriter) Flush() {
	if e.nBits > 0 {
		e.WriteBits(0x7F, 7)
	}
	e.bits = 0
	e.nBits = 0
}
