package deflate

import (
	"encoding/binary"
)

const (
	hashSize   = 16384
	windowSize = 32768
	maxMatch   = 258
	minMatch   = 3

	// DefaultQuality is the hash-chain depth used by the image encoders.
	DefaultQuality = 8
)

var lengthCodeBase = [30]uint16{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258, 259}
var distCodeBase = [31]uint32{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577, 32768}

// bitWriter packs bits LSB first.
type bitWriter struct {
	out   []byte
	bits  uint64
	nbits uint
}

func (w *bitWriter) put(v uint32, n uint) {
	w.bits |= uint64(v) << w.nbits
	w.nbits += n
	for w.nbits >= 8 {
		w.out = append(w.out, byte(w.bits))
		w.bits >>= 8
		w.nbits -= 8
	}
}

func (w *bitWriter) align() {
	if w.nbits > 0 {
		w.put(0, 8-w.nbits)
	}
}

// huff writes a Huffman code, which is transmitted most significant bit
// first.
func (w *bitWriter) huff(code uint32, n uint) {
	w.put(reverse16(code, int(n)), n)
}

func (w *bitWriter) literal(c int) {
	switch {
	case c <= 143:
		w.huff(uint32(0x30+c), 8)
	case c <= 255:
		w.huff(uint32(0x190+c-144), 9)
	case c <= 279:
		w.huff(uint32(c-256), 7)
	default:
		w.huff(uint32(0xc0+c-280), 8)
	}
}

func (w *bitWriter) match(length, dist int) {
	j := 0
	for length > int(lengthCodeBase[j+1])-1 {
		j++
	}
	w.literal(j + 257)
	if e := lengthExtra[j]; e != 0 {
		w.put(uint32(length-int(lengthCodeBase[j])), uint(e))
	}
	j = 0
	for uint32(dist) > distCodeBase[j+1]-1 {
		j++
	}
	w.huff(uint32(j), 5)
	if e := distExtra[j]; e != 0 {
		w.put(uint32(dist)-distCodeBase[j], uint(e))
	}
}

func hash3(p []byte) uint32 {
	h := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
	h ^= h << 3
	h += h >> 5
	h ^= h << 4
	h += h >> 17
	h ^= h << 25
	h += h >> 6
	return h
}

func matchLen(a, b []byte, limit int) int {
	limit = min(limit, maxMatch, len(a), len(b))
	i := 0
	for i < limit && a[i] == b[i] {
		i++
	}
	return i
}

// compressFixed emits a single fixed-Huffman block using greedy matching
// with one step of lazy evaluation.
func compressFixed(data []byte, quality int) []byte {
	w := &bitWriter{out: make([]byte, 0, len(data)/2+16)}
	w.put(1, 1) // final
	w.put(1, 2) // fixed huffman

	chains := make([][]int32, hashSize)
	n := len(data)
	i := 0
	for i < n-minMatch {
		h := hash3(data[i:]) & (hashSize - 1)
		best, bestLoc := minMatch, -1
		bucket := chains[h]
		for _, p := range bucket {
			if int(p) > i-windowSize {
				if d := matchLen(data[p:], data[i:], n-i); d >= best {
					best, bestLoc = d, int(p)
				}
			}
		}
		if len(bucket) == 2*quality {
			copy(bucket, bucket[quality:])
			bucket = bucket[:quality]
		}
		chains[h] = append(bucket, int32(i))

		if bestLoc >= 0 {
			// defer to the next position if it matches longer
			h = hash3(data[i+1:]) & (hashSize - 1)
			for _, p := range chains[h] {
				if int(p) > i-windowSize+1 {
					if e := matchLen(data[p:], data[i+1:], n-i-1); e > best {
						bestLoc = -1
						break
					}
				}
			}
		}

		if bestLoc >= 0 {
			w.match(best, i-bestLoc)
			i += best
		} else {
			w.literal(int(data[i]))
			i++
		}
	}
	for ; i < n; i++ {
		w.literal(int(data[i]))
	}
	w.literal(256)
	w.align()
	return w.out
}

// storedBlocks emits data as uncompressed blocks of at most 65535 bytes.
func storedBlocks(data []byte) []byte {
	out := make([]byte, 0, len(data)+5*(len(data)/65535+1))
	for {
		n := min(len(data), 65535)
		final := byte(0)
		if n == len(data) {
			final = 1
		}
		out = append(out, final, byte(n), byte(n>>8), ^byte(n), ^byte(n>>8))
		out = append(out, data[:n]...)
		data = data[n:]
		if final == 1 {
			return out
		}
	}
}

// Deflate compresses data into a raw DEFLATE stream. Quality is the
// hash-chain depth; values below 5 are raised to 5. Incompressible input is
// emitted as stored blocks.
func Deflate(data []byte, quality int) []byte {
	quality = max(quality, 5)
	out := compressFixed(data, quality)
	if len(out) > len(data)+5*(len(data)/65535+1) {
		return storedBlocks(data)
	}
	return out
}

// DeflateZlib compresses data into a zlib stream with an Adler-32 trailer.
func DeflateZlib(data []byte, quality int) []byte {
	body := Deflate(data, quality)
	out := make([]byte, 0, len(body)+6)
	out = append(out, 0x78, 0x5e)
	out = append(out, body...)
	return binary.BigEndian.AppendUint32(out, Adler32(data))
}
