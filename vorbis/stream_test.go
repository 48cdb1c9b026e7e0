package vorbis

import (
	"encoding/binary"
	"math"
)

// bitWriter packs values least significant bit first.
type bitWriter struct {
	buf []byte
	n   uint
}

func (w *bitWriter) write(v uint64, bits int) {
	for i := 0; i < bits; i++ {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>i&1 == 1 {
			w.buf[len(w.buf)-1] |= 1 << (w.n % 8)
		}
		w.n++
	}
}

func (w *bitWriter) flag(b bool) {
	if b {
		w.write(1, 1)
	} else {
		w.write(0, 1)
	}
}

// code writes a Huffman code most significant bit first.
func (w *bitWriter) code(c uint32, length int) {
	for d := length - 1; d >= 0; d-- {
		w.write(uint64(c>>d&1), 1)
	}
}

// packFloat encodes v in the setup header float format. It handles the
// small integers used here.
func packFloat(v float64) uint32 {
	var sign uint32
	if v < 0 {
		sign, v = 1<<31, -v
	}
	if v == 0 {
		return 0
	}
	m, e := math.Frexp(v) // v = m * 2^e, m in [0.5, 1)
	mant := uint32(m * (1 << 21))
	return sign | uint32(e-21+788)<<21 | mant
}

// testStream describes a small stream that the builder turns into bytes.
// Every packet uses short blocks of 256 samples, a flat floor at full
// amplitude, and a two-bit residue book mapping entries 0..3 to -1..2.
type testStream struct {
	channels int
	floor0   bool // declare floor type 0
	blockExp int  // both block sizes, default 8

	// packets holds the residue entries of each audio packet, 128 per
	// channel; a nil packet has every floor unused.
	packets [][]int
	perPage int
	trim    int // samples cut by the final granule position

	vendor   string
	comments []string
}

func (ts testStream) half() int { return (1 << ts.exp()) / 2 }

func (ts testStream) exp() int {
	if ts.blockExp == 0 {
		return 8
	}
	return ts.blockExp
}

func (ts testStream) identification() []byte {
	b := []byte("\x01vorbis")
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = append(b, byte(ts.channels))
	b = binary.LittleEndian.AppendUint32(b, 8000)
	b = append(b, make([]byte, 12)...)
	e := byte(ts.exp())
	return append(b, e<<4|e, 1)
}

func (ts testStream) commentHeader() []byte {
	b := []byte("\x03vorbis")
	b = binary.LittleEndian.AppendUint32(b, uint32(len(ts.vendor)))
	b = append(b, ts.vendor...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(ts.comments)))
	for _, c := range ts.comments {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(c)))
		b = append(b, c...)
	}
	return append(b, 1)
}

func (ts testStream) setupHeader() []byte {
	w := &bitWriter{}
	w.write(1, 8) // two codebooks

	// classbook: two one-bit entries
	w.write(codebookSync, 24)
	w.write(1, 16)
	w.write(2, 24)
	w.flag(false)
	w.flag(false)
	w.write(0, 5)
	w.write(0, 5)
	w.write(0, 4)

	// value book: four two-bit entries, values multiplicand-1
	w.write(codebookSync, 24)
	w.write(1, 16)
	w.write(4, 24)
	w.flag(false)
	w.flag(false)
	for i := 0; i < 4; i++ {
		w.write(1, 5)
	}
	w.write(1, 4)
	w.write(uint64(packFloat(-1)), 32)
	w.write(uint64(packFloat(1)), 32)
	w.write(1, 4)
	w.flag(false)
	for i := 0; i < 4; i++ {
		w.write(uint64(i), 2)
	}

	w.write(0, 6)
	w.write(0, 16)

	w.write(0, 6)
	if ts.floor0 {
		w.write(0, 16)
		return append([]byte("\x05vorbis"), w.buf...)
	}
	w.write(1, 16)
	w.write(0, 5) // no partitions
	w.write(0, 2) // multiplier 1
	w.write(8, 4) // range bits

	n := ts.half()
	w.write(0, 6)
	if ts.channels == 1 {
		w.write(1, 16)
		w.write(0, 24)
		w.write(uint64(n), 24)
	} else {
		w.write(2, 16)
		w.write(0, 24)
		w.write(uint64(n*ts.channels), 24)
	}
	w.write(uint64(n-1), 24)
	w.write(0, 6)
	w.write(0, 8)
	w.write(1, 3)
	w.flag(false)
	w.write(1, 8)

	w.write(0, 6)
	w.write(0, 16)
	w.flag(false)
	if ts.channels == 2 {
		w.flag(true)
		w.write(0, 8)
		w.write(0, 1)
		w.write(1, 1)
	} else {
		w.flag(false)
	}
	w.write(0, 2)
	w.write(0, 8)
	w.write(0, 8)
	w.write(0, 8)

	w.write(0, 6)
	w.flag(false)
	w.write(0, 16)
	w.write(0, 16)
	w.write(0, 8)
	w.flag(true)
	return append([]byte("\x05vorbis"), w.buf...)
}

func (ts testStream) audioPacket(entries []int) []byte {
	w := &bitWriter{}
	w.flag(false)
	for c := 0; c < ts.channels; c++ {
		if entries == nil {
			w.flag(false)
			continue
		}
		w.flag(true)
		w.write(255, 8)
		w.write(255, 8)
	}
	if entries != nil {
		n := ts.half()
		for p := 0; p < ts.channels; p++ {
			w.write(0, 1) // class 0
			for _, e := range entries[p*n : (p+1)*n] {
				w.code(uint32(e), 2)
			}
		}
	}
	return w.buf
}

// oggPage frames packets into one page.
func oggPage(flags byte, granule int64, seq uint32, packets ...[]byte) []byte {
	var lacing, body []byte
	for _, p := range packets {
		l := len(p)
		for ; l >= 255; l -= 255 {
			lacing = append(lacing, 255)
		}
		lacing = append(lacing, byte(l))
		body = append(body, p...)
	}
	b := []byte(capture)
	b = append(b, 0, flags)
	b = binary.LittleEndian.AppendUint64(b, uint64(granule))
	b = binary.LittleEndian.AppendUint32(b, 0x1234)
	b = binary.LittleEndian.AppendUint32(b, seq)
	b = append(b, 0, 0, 0, 0, byte(len(lacing)))
	b = append(b, lacing...)
	b = append(b, body...)
	binary.LittleEndian.PutUint32(b[22:], crcUpdate(0, b))
	return b
}

// bytes builds the stream and returns the offset of every page.
func (ts testStream) bytes() ([]byte, []int) {
	var out []byte
	var offsets []int
	seq := uint32(0)
	add := func(p []byte) {
		offsets = append(offsets, len(out))
		out = append(out, p...)
		seq++
	}
	add(oggPage(pageFirst, 0, seq, ts.identification()))
	add(oggPage(0, 0, seq, ts.commentHeader(), ts.setupHeader()))

	per := max(ts.perPage, 1)
	for start := 0; start < len(ts.packets); start += per {
		end := min(start+per, len(ts.packets))
		var pkts [][]byte
		for _, e := range ts.packets[start:end] {
			pkts = append(pkts, ts.audioPacket(e))
		}
		granule := int64((end - 1) * ts.half())
		var flags byte
		if end == len(ts.packets) {
			flags = pageLast
			granule -= int64(ts.trim)
		}
		add(oggPage(flags, granule, seq, pkts...))
	}
	return out, offsets
}
