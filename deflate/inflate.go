// Package deflate implements raw DEFLATE and zlib decompression, and a
// greedy fixed-Huffman compressor used by the image encoders.
package deflate

import (
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"log/slog"
)

var (
	lengthBase  = [31]uint16{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258, 0, 0}
	lengthExtra = [31]uint8{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0, 0, 0}
	distBase    = [32]uint16{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577, 0, 0}
	distExtra   = [32]uint8{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}

	codeLengthOrder = [19]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

// fixedLitLengths and fixedDistLengths are the code lengths of the fixed
// Huffman block type.
var fixedLitLengths, fixedDistLengths = func() ([]uint8, []uint8) {
	lit := make([]uint8, maxSyms)
	for i := range lit {
		switch {
		case i <= 143:
			lit[i] = 8
		case i <= 255:
			lit[i] = 9
		case i <= 279:
			lit[i] = 7
		default:
			lit[i] = 8
		}
	}
	dist := make([]uint8, 32)
	for i := range dist {
		dist[i] = 5
	}
	return lit, dist
}()

// Limits bounds inflated output.
type Limits struct {
	// SizeHint preallocates the output buffer.
	SizeHint int
	// MaxOutput aborts decoding once exceeded. Zero means unlimited.
	MaxOutput int
}

type inflater struct {
	in    []byte
	pos   int
	bits  uint64
	nbits uint

	out []byte
	max int

	lit, dist huffman
}

func (z *inflater) fill() {
	for z.nbits <= 56 && z.pos < len(z.in) {
		z.bits |= uint64(z.in[z.pos]) << z.nbits
		z.pos++
		z.nbits += 8
	}
}

func (z *inflater) getBits(n uint) (uint32, error) {
	if z.nbits < n {
		z.fill()
		if z.nbits < n {
			return 0, ErrTruncated
		}
	}
	v := uint32(z.bits & (1<<n - 1))
	z.bits >>= n
	z.nbits -= n
	return v, nil
}

func (z *inflater) decode(h *huffman) (int, error) {
	if z.nbits < 16 {
		z.fill()
	}
	if fv := h.fast[z.bits&fastMask]; fv != 0 {
		s := uint(fv >> 9)
		if s > z.nbits {
			return 0, ErrTruncated
		}
		z.bits >>= s
		z.nbits -= s
		return int(fv & 511), nil
	}
	// slow path: codes longer than fastBits are compared left-aligned
	k := int(reverse16(uint32(z.bits&0xffff), 16))
	s := fastBits + 1
	for ; k >= h.maxCode[s]; s++ {
	}
	if s >= 16 {
		return 0, ErrBadHuffmanCode
	}
	if uint(s) > z.nbits {
		return 0, ErrTruncated
	}
	b := (k >> (16 - s)) - int(h.firstCode[s]) + int(h.firstSymbol[s])
	if b < 0 || b >= maxSyms || int(h.size[b]) != s {
		return 0, ErrBadHuffmanCode
	}
	z.bits >>= uint(s)
	z.nbits -= uint(s)
	return int(h.value[b]), nil
}

func (z *inflater) grow(n int) error {
	if z.max > 0 && len(z.out)+n > z.max {
		return ErrTooLarge
	}
	return nil
}

func (z *inflater) stored() error {
	// discard to byte boundary
	if r := z.nbits & 7; r != 0 {
		z.bits >>= r
		z.nbits -= r
	}
	length, err := z.getBits(16)
	if err != nil {
		return err
	}
	nlength, err := z.getBits(16)
	if err != nil {
		return err
	}
	if nlength != length^0xffff {
		return ErrBadStoredLength
	}
	n := int(length)
	if err := z.grow(n); err != nil {
		return err
	}
	// drain whole bytes left in the bit buffer first
	for n > 0 && z.nbits >= 8 {
		z.out = append(z.out, byte(z.bits))
		z.bits >>= 8
		z.nbits -= 8
		n--
	}
	if z.pos+n > len(z.in) {
		return ErrTruncated
	}
	z.out = append(z.out, z.in[z.pos:z.pos+n]...)
	z.pos += n
	return nil
}

func (z *inflater) dynamicTables() error {
	hlit, err := z.getBits(5)
	if err != nil {
		return err
	}
	hdist, err := z.getBits(5)
	if err != nil {
		return err
	}
	hclen, err := z.getBits(4)
	if err != nil {
		return err
	}
	nlit, ndist := int(hlit)+257, int(hdist)+1

	var clLengths [19]uint8
	for i := 0; i < int(hclen)+4; i++ {
		v, err := z.getBits(3)
		if err != nil {
			return err
		}
		clLengths[codeLengthOrder[i]] = uint8(v)
	}
	var cl huffman
	if err := cl.build(clLengths[:]); err != nil {
		return err
	}

	lengths := make([]uint8, nlit+ndist)
	for n := 0; n < len(lengths); {
		c, err := z.decode(&cl)
		if err != nil {
			return err
		}
		if c < 16 {
			lengths[n] = uint8(c)
			n++
			continue
		}
		var fill uint8
		var rep uint32
		switch c {
		case 16:
			if n == 0 {
				return ErrBadCodeLengths
			}
			fill = lengths[n-1]
			rep, err = z.getBits(2)
			rep += 3
		case 17:
			rep, err = z.getBits(3)
			rep += 3
		case 18:
			rep, err = z.getBits(7)
			rep += 11
		default:
			return ErrBadCodeLengths
		}
		if err != nil {
			return err
		}
		if n+int(rep) > len(lengths) {
			return ErrBadCodeLengths
		}
		for i := 0; i < int(rep); i++ {
			lengths[n] = fill
			n++
		}
	}
	if lengths[256] == 0 {
		return fmt.Errorf("%w: no end-of-block code", ErrBadCodeLengths)
	}
	if err := z.lit.build(lengths[:nlit]); err != nil {
		return err
	}
	return z.dist.build(lengths[nlit:])
}

func (z *inflater) huffmanBlock() error {
	for {
		sym, err := z.decode(&z.lit)
		if err != nil {
			return err
		}
		if sym < 256 {
			if err := z.grow(1); err != nil {
				return err
			}
			z.out = append(z.out, byte(sym))
			continue
		}
		if sym == 256 {
			return nil
		}
		sym -= 257
		if sym >= 29 {
			return ErrBadHuffmanCode
		}
		length := int(lengthBase[sym])
		if e := lengthExtra[sym]; e != 0 {
			v, err := z.getBits(uint(e))
			if err != nil {
				return err
			}
			length += int(v)
		}
		dsym, err := z.decode(&z.dist)
		if err != nil {
			return err
		}
		if dsym >= 30 {
			return ErrBadHuffmanCode
		}
		dist := int(distBase[dsym])
		if e := distExtra[dsym]; e != 0 {
			v, err := z.getBits(uint(e))
			if err != nil {
				return err
			}
			dist += int(v)
		}
		if dist > len(z.out) {
			return ErrBadDistance
		}
		if err := z.grow(length); err != nil {
			return err
		}
		start := len(z.out) - dist
		if dist >= length {
			z.out = append(z.out, z.out[start:start+length]...)
			continue
		}
		// overlapping copy replicates the run
		for i := 0; i < length; i++ {
			z.out = append(z.out, z.out[start+i])
		}
	}
}

func (z *inflater) run() error {
	for {
		final, err := z.getBits(1)
		if err != nil {
			return err
		}
		typ, err := z.getBits(2)
		if err != nil {
			return err
		}
		switch typ {
		case 0:
			err = z.stored()
		case 1:
			if err = z.lit.build(fixedLitLengths); err == nil {
				if err = z.dist.build(fixedDistLengths); err == nil {
					err = z.huffmanBlock()
				}
			}
		case 2:
			if err = z.dynamicTables(); err == nil {
				err = z.huffmanBlock()
			}
		default:
			return ErrBadBlockType
		}
		if err != nil {
			return err
		}
		if final == 1 {
			return nil
		}
	}
}

// consumed returns the number of input bytes used, returning whole bytes
// still sitting in the bit buffer.
func (z *inflater) consumed() int {
	return z.pos - int(z.nbits/8)
}

func inflate(data []byte, zlib bool, lim Limits) ([]byte, error) {
	z := &inflater{in: data, max: lim.MaxOutput}
	if lim.SizeHint > 0 {
		z.out = make([]byte, 0, lim.SizeHint)
	}
	if zlib {
		if len(data) < 2 {
			return nil, ErrTruncated
		}
		cmf, flg := data[0], data[1]
		if (int(cmf)*256+int(flg))%31 != 0 || cmf&15 != 8 {
			return nil, ErrBadZlibHeader
		}
		if flg&32 != 0 {
			return nil, ErrPresetDict
		}
		z.pos = 2
	}
	if err := z.run(); err != nil {
		return nil, err
	}
	if zlib {
		end := z.consumed()
		if end+4 <= len(data) {
			want := binary.BigEndian.Uint32(data[end : end+4])
			if got := adler32.Checksum(z.out); got != want {
				return nil, fmt.Errorf("%w: got %08x want %08x", ErrBadChecksum, got, want)
			}
		} else {
			slog.Debug("deflate: zlib stream without adler32 trailer", slog.Int("size", len(z.out)))
		}
	}
	if z.out == nil {
		z.out = []byte{}
	}
	return z.out, nil
}

// Inflate decompresses a raw DEFLATE stream.
func Inflate(data []byte) ([]byte, error) {
	return inflate(data, false, Limits{})
}

// InflateZlib decompresses a zlib stream, validating its header and, when
// present, its Adler-32 trailer.
func InflateZlib(data []byte) ([]byte, error) {
	return inflate(data, true, Limits{})
}

// InflateZlibLimits is InflateZlib with a size hint and an output limit.
func InflateZlibLimits(data []byte, lim Limits) ([]byte, error) {
	return inflate(data, true, lim)
}

// InflateLimits is Inflate with a size hint and an output limit.
func InflateLimits(data []byte, lim Limits) ([]byte, error) {
	return inflate(data, false, lim)
}

// Adler32 returns the zlib checksum of data.
func Adler32(data []byte) uint32 {
	return adler32.Checksum(data)
}
