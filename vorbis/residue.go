package vorbis

import "fmt"

// residue holds the spectral fine structure of one submap.
type residue struct {
	kind            int
	begin, end      int
	partitionSize   int
	classifications int
	classbook       int
	cascade         []int
	books           [][8]int // -1 for none
}

func readResidue(br *bitReader, kind int, books []*codebook) (*residue, error) {
	r := &residue{
		kind:            kind,
		begin:           int(br.read(24)),
		end:             int(br.read(24)),
		partitionSize:   int(br.read(24)) + 1,
		classifications: int(br.read(6)) + 1,
		classbook:       int(br.read(8)),
	}
	if r.classbook >= len(books) {
		return nil, fmt.Errorf("%w: residue classbook %d", ErrBadHeader, r.classbook)
	}
	if r.end < r.begin {
		return nil, fmt.Errorf("%w: residue range", ErrBadHeader)
	}
	r.cascade = make([]int, r.classifications)
	for i := range r.cascade {
		low := int(br.read(3))
		high := 0
		if br.readBit() {
			high = int(br.read(5))
		}
		r.cascade[i] = high<<3 | low
	}
	r.books = make([][8]int, r.classifications)
	for i := range r.books {
		for j := 0; j < 8; j++ {
			r.books[i][j] = -1
			if r.cascade[i]&(1<<j) == 0 {
				continue
			}
			b := int(br.read(8))
			if b >= len(books) {
				return nil, fmt.Errorf("%w: residue book %d", ErrBadHeader, b)
			}
			if books[b].lookupType == 0 || books[b].dimensions == 0 {
				return nil, fmt.Errorf("%w: residue book %d has no vectors", ErrBadHeader, b)
			}
			r.books[i][j] = b
		}
	}
	if br.eop {
		return nil, ErrTruncated
	}
	// classwords packed per classbook entry must fit the entry count
	cb := books[r.classbook]
	if cb.dimensions == 0 || pow(r.classifications, cb.dimensions) > 1<<24 {
		return nil, fmt.Errorf("%w: residue classbook dimensions", ErrBadHeader)
	}
	return r, nil
}

// decode adds the residue vectors for the given channels, each of length
// n (half the block). Channels flagged in skip are left untouched. The end
// of the packet ends decoding without error.
func (r *residue) decode(br *bitReader, books []*codebook, vectors [][]float32, skip []bool, n int) {
	if r.kind == 2 {
		r.decodeInterleaved(br, books, vectors, skip, n)
		return
	}
	active := false
	for _, s := range skip {
		active = active || !s
	}
	if !active {
		return
	}
	limitBegin := min(r.begin, n)
	limitEnd := min(r.end, n)
	r.decodeParts(br, books, limitBegin, limitEnd, len(vectors), skip, func(ch, off int, book *codebook) bool {
		return r.decodePartition(br, book, vectors[ch][off:off+r.partitionSize])
	})
}

// decodeInterleaved handles type 2, which codes all channels as one vector
// of length n*channels interleaved by sample.
func (r *residue) decodeInterleaved(br *bitReader, books []*codebook, vectors [][]float32, skip []bool, n int) {
	active := false
	for _, s := range skip {
		active = active || !s
	}
	if !active {
		return
	}
	ch := len(vectors)
	total := n * ch
	limitBegin := min(r.begin, total)
	limitEnd := min(r.end, total)
	// flat view; a single channel needs no interleaving
	r.decodeParts(br, books, limitBegin, limitEnd, 1, []bool{false}, func(_, off int, book *codebook) bool {
		tmp := make([]float32, r.partitionSize)
		if !r.decodePartition1(br, book, tmp) {
			return false
		}
		for i, v := range tmp {
			pos := off + i
			vectors[pos%ch][pos/ch] += v
		}
		return true
	})
}

// decodeParts runs the eight cascade passes over the partitions of
// [begin, end), calling part for each coded partition.
func (r *residue) decodeParts(br *bitReader, books []*codebook, begin, end, channels int, skip []bool, part func(ch, off int, book *codebook) bool) {
	size := end - begin
	if size <= 0 {
		return
	}
	partitions := size / r.partitionSize
	if partitions == 0 {
		return
	}
	cb := books[r.classbook]
	perWord := cb.dimensions
	classes := make([][]int, channels)
	for ch := range classes {
		classes[ch] = make([]int, partitions+perWord)
	}
	for pass := 0; pass < 8; pass++ {
		for p := 0; p < partitions; {
			if pass == 0 {
				for ch := 0; ch < channels; ch++ {
					if skip[ch] {
						continue
					}
					word := cb.decode(br)
					if word < 0 {
						return
					}
					for i := perWord - 1; i >= 0; i-- {
						classes[ch][p+i] = word % r.classifications
						word /= r.classifications
					}
				}
			}
			for i := 0; i < perWord && p < partitions; i++ {
				for ch := 0; ch < channels; ch++ {
					if skip[ch] {
						continue
					}
					book := r.books[classes[ch][p]][pass]
					if book < 0 {
						continue
					}
					if !part(ch, begin+p*r.partitionSize, books[book]) {
						return
					}
				}
				p++
			}
		}
	}
}

// decodePartition reads one partition of type 0 or 1.
func (r *residue) decodePartition(br *bitReader, book *codebook, out []float32) bool {
	if r.kind == 0 {
		step := len(out) / book.dimensions
		for i := 0; i < step; i++ {
			if !book.decodeVector(br, out[i:], step) {
				return false
			}
		}
		return true
	}
	return r.decodePartition1(br, book, out)
}

// decodePartition1 reads vectors contiguously.
func (r *residue) decodePartition1(br *bitReader, book *codebook, out []float32) bool {
	for i := 0; i+book.dimensions <= len(out); i += book.dimensions {
		if !book.decodeVector(br, out[i:], 1) {
			return false
		}
	}
	return true
}
