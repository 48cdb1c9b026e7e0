package vorbis

import "fmt"

const codebookSync = 0x564342

// codebook is a Huffman code with an optional vector lookup table.
type codebook struct {
	dimensions int
	entries    int
	lengths    []uint8 // zero marks an unused entry

	// tree nodes; a negative child is leaf -(entry+1), zero is empty
	tree [][2]int32

	lookupType   int
	lookupValues int
	minimum      float32
	delta        float32
	sequenceP    bool
	multiplicand []uint16
}

func readCodebook(br *bitReader) (*codebook, error) {
	if br.read(24) != codebookSync {
		return nil, fmt.Errorf("%w: bad sync pattern", ErrBadCodebook)
	}
	c := &codebook{
		dimensions: int(br.read(16)),
		entries:    int(br.read(24)),
	}
	if c.dimensions == 0 && c.entries != 0 {
		return nil, fmt.Errorf("%w: zero dimensions", ErrBadCodebook)
	}
	ordered := br.readBit()
	if !ordered && c.entries > br.remaining() {
		return nil, ErrTruncated
	}
	c.lengths = make([]uint8, c.entries)

	if ordered {
		// ordered: runs of entries with increasing lengths
		length := int(br.read(5)) + 1
		for cur := 0; cur < c.entries; length++ {
			n := int(br.read(ilog(c.entries - cur)))
			if length > 32 || cur+n > c.entries || br.eop {
				return nil, fmt.Errorf("%w: bad ordered lengths", ErrBadCodebook)
			}
			for i := cur; i < cur+n; i++ {
				c.lengths[i] = uint8(length)
			}
			cur += n
		}
	} else {
		sparse := br.readBit()
		for i := range c.lengths {
			if sparse && !br.readBit() {
				continue
			}
			c.lengths[i] = uint8(br.read(5)) + 1
		}
	}
	if br.eop {
		return nil, ErrTruncated
	}
	if err := c.buildTree(); err != nil {
		return nil, err
	}

	c.lookupType = int(br.read(4))
	switch c.lookupType {
	case 0:
	case 1, 2:
		c.minimum = float32Unpack(br.read(32))
		c.delta = float32Unpack(br.read(32))
		valueBits := int(br.read(4)) + 1
		c.sequenceP = br.readBit()
		if c.lookupType == 1 {
			c.lookupValues = lookup1Values(c.entries, c.dimensions)
		} else {
			c.lookupValues = c.entries * c.dimensions
		}
		if c.lookupValues*valueBits > br.remaining() {
			return nil, ErrTruncated
		}
		c.multiplicand = make([]uint16, c.lookupValues)
		for i := range c.multiplicand {
			c.multiplicand[i] = uint16(br.read(valueBits))
		}
	default:
		return nil, fmt.Errorf("%w: lookup type %d", ErrBadCodebook, c.lookupType)
	}
	if br.eop {
		return nil, ErrTruncated
	}
	return c, nil
}

// assignCodewords gives each used entry, in order, the lowest free code
// of its length. Codes are returned most significant bit first.
func assignCodewords(lengths []uint8) ([]uint32, error) {
	codes := make([]uint32, len(lengths))
	// available[n] holds the free leaf of depth n, left-aligned in 32
	// bits, or zero
	var available [33]uint32
	first := true
	for i, l := range lengths {
		if l == 0 {
			continue
		}
		if first {
			first = false
			codes[i] = 0
			for d := 1; d <= int(l); d++ {
				available[d] = 1 << (32 - d)
			}
			continue
		}
		z := int(l)
		for z > 0 && available[z] == 0 {
			z--
		}
		if z == 0 {
			return nil, fmt.Errorf("%w: overspecified code lengths", ErrBadCodebook)
		}
		res := available[z]
		available[z] = 0
		for y := int(l); y > z; y-- {
			available[y] = res + 1<<(32-y)
		}
		codes[i] = res >> (32 - int(l))
	}
	return codes, nil
}

func (c *codebook) buildTree() error {
	codes, err := assignCodewords(c.lengths)
	if err != nil {
		return err
	}
	c.tree = [][2]int32{{0, 0}}
	used := 0
	for i, l := range c.lengths {
		if l == 0 {
			continue
		}
		used++
		node := 0
		for d := int(l) - 1; d >= 0; d-- {
			bit := (codes[i] >> d) & 1
			if d == 0 {
				c.tree[node][bit] = -int32(i + 1)
				break
			}
			next := c.tree[node][bit]
			if next < 0 {
				return fmt.Errorf("%w: code is a prefix of another", ErrBadCodebook)
			}
			if next == 0 {
				c.tree = append(c.tree, [2]int32{})
				next = int32(len(c.tree) - 1)
				c.tree[node][bit] = next
			}
			node = int(next)
		}
	}
	if used == 1 {
		// a lone entry decodes from either bit
		root := &c.tree[0]
		if root[0] < 0 && root[1] == 0 {
			root[1] = root[0]
		}
	}
	return nil
}

// decode reads one entry number, or -1 at the end of the packet or on an
// invalid code.
func (c *codebook) decode(br *bitReader) int {
	node := int32(0)
	for {
		next := c.tree[node][br.read(1)]
		if br.eop || next == 0 {
			return -1
		}
		if next < 0 {
			return int(-next - 1)
		}
		node = next
	}
}

// decodeVector reads one entry and adds its vector to out[0], out[step],
// ... It reports false at the end of the packet.
func (c *codebook) decodeVector(br *bitReader, out []float32, step int) bool {
	entry := c.decode(br)
	if entry < 0 {
		return false
	}
	var last float32
	switch c.lookupType {
	case 1:
		div := 1
		for i := 0; i < c.dimensions; i++ {
			off := (entry / div) % c.lookupValues
			v := float32(c.multiplicand[off])*c.delta + c.minimum + last
			if c.sequenceP {
				last = v
			}
			out[i*step] += v
			div *= c.lookupValues
		}
	case 2:
		base := entry * c.dimensions
		for i := 0; i < c.dimensions; i++ {
			v := float32(c.multiplicand[base+i])*c.delta + c.minimum + last
			if c.sequenceP {
				last = v
			}
			out[i*step] += v
		}
	}
	return true
}
