package vorbis

import (
	"encoding/binary"
	"fmt"
)

const (
	packetIdentification = 1
	packetComment        = 3
	packetSetup          = 5
)

// Info describes an open stream.
type Info struct {
	Channels     int
	SampleRate   int
	Blocksize0   int
	Blocksize1   int
	MaxFrameSize int
}

// Comments holds the comment header.
type Comments struct {
	Vendor string
	List   []string
}

type couplingStep struct {
	magnitude, angle int
}

type mapping struct {
	coupling []couplingStep
	mux      []int // submap per channel
	floors   []int // per submap
	residues []int // per submap
}

type mode struct {
	blockFlag bool
	mapping   int
}

// setup is everything decoded from the three header packets.
type setup struct {
	info     Info
	comments Comments

	books    []*codebook
	floors   []*floor1
	residues []*residue
	mappings []*mapping
	modes    []mode
}

func checkHeader(data []byte, kind byte) error {
	if len(data) < 7 || data[0] != kind || string(data[1:7]) != "vorbis" {
		return ErrNotVorbis
	}
	return nil
}

func (s *setup) readIdentification(data []byte, maxFrame int) error {
	if err := checkHeader(data, packetIdentification); err != nil {
		return err
	}
	if len(data) < 30 {
		return fmt.Errorf("%w: identification header length %d", ErrBadHeader, len(data))
	}
	if v := binary.LittleEndian.Uint32(data[7:]); v != 0 {
		return fmt.Errorf("%w: version %d", ErrBadHeader, v)
	}
	s.info.Channels = int(data[11])
	s.info.SampleRate = int(binary.LittleEndian.Uint32(data[12:]))
	if s.info.Channels == 0 || s.info.SampleRate == 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrBadHeader, s.info.Channels, s.info.SampleRate)
	}
	bs0, bs1 := int(data[28]&15), int(data[28]>>4)
	if bs0 < 6 || bs1 > 13 || bs0 > bs1 {
		return fmt.Errorf("%w: block sizes 2^%d, 2^%d", ErrBadHeader, bs0, bs1)
	}
	s.info.Blocksize0, s.info.Blocksize1 = 1<<bs0, 1<<bs1
	if s.info.Blocksize1 > maxFrame {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, s.info.Blocksize1, maxFrame)
	}
	s.info.MaxFrameSize = s.info.Blocksize1
	if data[29]&1 == 0 {
		return fmt.Errorf("%w: identification framing bit", ErrBadHeader)
	}
	return nil
}

func (s *setup) readComments(data []byte) error {
	if err := checkHeader(data, packetComment); err != nil {
		return err
	}
	b := data[7:]
	str := func() (string, bool) {
		if len(b) < 4 {
			return "", false
		}
		n := binary.LittleEndian.Uint32(b)
		if uint64(n) > uint64(len(b)-4) {
			return "", false
		}
		v := string(b[4 : 4+n])
		b = b[4+n:]
		return v, true
	}
	vendor, ok := str()
	if !ok {
		return fmt.Errorf("%w: comment vendor", ErrBadHeader)
	}
	s.comments.Vendor = vendor
	if len(b) < 4 {
		return fmt.Errorf("%w: comment count", ErrBadHeader)
	}
	n := binary.LittleEndian.Uint32(b)
	b = b[4:]
	if uint64(n)*4 > uint64(len(b)) {
		return fmt.Errorf("%w: comment count %d", ErrBadHeader, n)
	}
	s.comments.List = make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		c, ok := str()
		if !ok {
			return fmt.Errorf("%w: comment %d", ErrBadHeader, i)
		}
		s.comments.List = append(s.comments.List, c)
	}
	return nil
}

func (s *setup) readSetup(data []byte) error {
	if err := checkHeader(data, packetSetup); err != nil {
		return err
	}
	br := newBitReader(data[7:])

	s.books = make([]*codebook, br.read(8)+1)
	for i := range s.books {
		c, err := readCodebook(br)
		if err != nil {
			return fmt.Errorf("codebook %d: %w", i, err)
		}
		s.books[i] = c
	}

	// time domain transforms are placeholders that must be zero
	times := int(br.read(6)) + 1
	for i := 0; i < times; i++ {
		if br.read(16) != 0 {
			return fmt.Errorf("%w: time transform", ErrBadHeader)
		}
	}

	s.floors = make([]*floor1, br.read(6)+1)
	for i := range s.floors {
		switch t := br.read(16); t {
		case 0:
			return ErrFloor0
		case 1:
			f, err := readFloor1(br, s.books)
			if err != nil {
				return fmt.Errorf("floor %d: %w", i, err)
			}
			s.floors[i] = f
		default:
			return fmt.Errorf("%w: floor type %d", ErrBadHeader, t)
		}
	}

	s.residues = make([]*residue, br.read(6)+1)
	for i := range s.residues {
		t := int(br.read(16))
		if t > 2 {
			return fmt.Errorf("%w: residue type %d", ErrBadHeader, t)
		}
		r, err := readResidue(br, t, s.books)
		if err != nil {
			return fmt.Errorf("residue %d: %w", i, err)
		}
		s.residues[i] = r
	}

	s.mappings = make([]*mapping, br.read(6)+1)
	for i := range s.mappings {
		m, err := s.readMapping(br)
		if err != nil {
			return fmt.Errorf("mapping %d: %w", i, err)
		}
		s.mappings[i] = m
	}

	s.modes = make([]mode, br.read(6)+1)
	for i := range s.modes {
		md := mode{blockFlag: br.readBit()}
		if br.read(16) != 0 || br.read(16) != 0 {
			return fmt.Errorf("%w: mode %d window or transform type", ErrBadHeader, i)
		}
		md.mapping = int(br.read(8))
		if md.mapping >= len(s.mappings) {
			return fmt.Errorf("%w: mode %d mapping %d", ErrBadHeader, i, md.mapping)
		}
		s.modes[i] = md
	}
	if !br.readBit() || br.eop {
		return fmt.Errorf("%w: setup framing bit", ErrBadHeader)
	}
	return nil
}

func (s *setup) readMapping(br *bitReader) (*mapping, error) {
	if br.read(16) != 0 {
		return nil, fmt.Errorf("%w: mapping type", ErrBadHeader)
	}
	channels := s.info.Channels
	m := &mapping{mux: make([]int, channels)}
	submaps := 1
	if br.readBit() {
		submaps = int(br.read(4)) + 1
	}
	if br.readBit() {
		steps := int(br.read(8)) + 1
		bitsCh := ilog(channels - 1)
		m.coupling = make([]couplingStep, steps)
		for j := range m.coupling {
			c := couplingStep{magnitude: int(br.read(bitsCh)), angle: int(br.read(bitsCh))}
			if c.magnitude == c.angle || c.magnitude >= channels || c.angle >= channels {
				return nil, fmt.Errorf("%w: coupling step %d", ErrBadHeader, j)
			}
			m.coupling[j] = c
		}
	}
	if br.read(2) != 0 {
		return nil, fmt.Errorf("%w: mapping reserved bits", ErrBadHeader)
	}
	if submaps > 1 {
		for c := range m.mux {
			m.mux[c] = int(br.read(4))
			if m.mux[c] >= submaps {
				return nil, fmt.Errorf("%w: channel %d submap %d", ErrBadHeader, c, m.mux[c])
			}
		}
	}
	m.floors = make([]int, submaps)
	m.residues = make([]int, submaps)
	for j := 0; j < submaps; j++ {
		br.read(8)
		m.floors[j] = int(br.read(8))
		m.residues[j] = int(br.read(8))
		if m.floors[j] >= len(s.floors) || m.residues[j] >= len(s.residues) {
			return nil, fmt.Errorf("%w: submap %d", ErrBadHeader, j)
		}
	}
	if br.eop {
		return nil, ErrTruncated
	}
	return m, nil
}
