package vorbis

import "fmt"

// synth turns audio packets into PCM, carrying the overlap between
// consecutive blocks.
type synth struct {
	s *setup

	imdct  [2]*imdct
	slopes [2][]float32

	spectrum [][]float32
	block    [][]float32
	tail     [][]float32
	ybuf     [][]int
	step2    []bool
	final    []int
	unused   []bool
	noFloor  []bool

	prevN int // zero before the first block
}

func newSynth(s *setup) *synth {
	ch := s.info.Channels
	bs0, bs1 := s.info.Blocksize0, s.info.Blocksize1
	sy := &synth{
		s:        s,
		spectrum: make([][]float32, ch),
		block:    make([][]float32, ch),
		tail:     make([][]float32, ch),
		ybuf:     make([][]int, ch),
		step2:    make([]bool, maxFloorValues),
		final:    make([]int, maxFloorValues),
		unused:   make([]bool, ch),
		noFloor:  make([]bool, ch),
	}
	sy.imdct[0] = newIMDCT(bs0)
	sy.slopes[0] = slope(bs0 / 2)
	if bs1 == bs0 {
		sy.imdct[1], sy.slopes[1] = sy.imdct[0], sy.slopes[0]
	} else {
		sy.imdct[1] = newIMDCT(bs1)
		sy.slopes[1] = slope(bs1 / 2)
	}
	for c := 0; c < ch; c++ {
		sy.spectrum[c] = make([]float32, bs1/2)
		sy.block[c] = make([]float32, bs1)
		sy.tail[c] = make([]float32, bs1/2)
		sy.ybuf[c] = make([]int, maxFloorValues)
	}
	return sy
}

// reset drops the overlap so the next block starts a fresh sequence.
func (sy *synth) reset() { sy.prevN = 0 }

// decode synthesises one packet. It returns the samples completed by this
// packet, which are none for the first packet after a reset.
func (sy *synth) decode(data []byte) ([][]float32, error) {
	s := sy.s
	br := newBitReader(data)
	if br.readBit() {
		return nil, fmt.Errorf("%w: not an audio packet", ErrBadPacket)
	}
	modeNum := int(br.read(ilog(len(s.modes) - 1)))
	if br.eop || modeNum >= len(s.modes) {
		return nil, fmt.Errorf("%w: mode %d", ErrBadPacket, modeNum)
	}
	md := s.modes[modeNum]
	m := s.mappings[md.mapping]
	long := 0
	n := s.info.Blocksize0
	prevLong, nextLong := false, false
	if md.blockFlag {
		long = 1
		n = s.info.Blocksize1
		prevLong = br.readBit()
		nextLong = br.readBit()
	}
	bs0 := s.info.Blocksize0
	half := n / 2

	left, leftStart := sy.slopes[long], 0
	if md.blockFlag && !prevLong {
		left, leftStart = sy.slopes[0], n/4-bs0/4
	}
	right, rightStart := sy.slopes[long], half
	if md.blockFlag && !nextLong {
		right, rightStart = sy.slopes[0], 3*n/4-bs0/4
	}

	ch := s.info.Channels
	ys := make([][]int, ch)
	for c := 0; c < ch; c++ {
		f := s.floors[m.floors[m.mux[c]]]
		ys[c] = f.decode(br, s.books, sy.ybuf[c])
		sy.noFloor[c] = ys[c] == nil
		sy.unused[c] = sy.noFloor[c]
		clear(sy.spectrum[c][:half])
	}
	for _, cp := range m.coupling {
		if !sy.unused[cp.magnitude] || !sy.unused[cp.angle] {
			sy.unused[cp.magnitude], sy.unused[cp.angle] = false, false
		}
	}

	for i, ri := range m.residues {
		var vectors [][]float32
		var skip []bool
		for c := 0; c < ch; c++ {
			if m.mux[c] != i {
				continue
			}
			vectors = append(vectors, sy.spectrum[c][:half])
			skip = append(skip, sy.unused[c])
		}
		s.residues[ri].decode(br, s.books, vectors, skip, half)
	}

	for i := len(m.coupling) - 1; i >= 0; i-- {
		mag := sy.spectrum[m.coupling[i].magnitude][:half]
		ang := sy.spectrum[m.coupling[i].angle][:half]
		for j := range mag {
			mv, av := mag[j], ang[j]
			switch {
			case mv > 0 && av > 0:
				mag[j], ang[j] = mv, mv-av
			case mv > 0:
				mag[j], ang[j] = mv+av, mv
			case av > 0:
				mag[j], ang[j] = mv, mv+av
			default:
				mag[j], ang[j] = mv-av, mv
			}
		}
	}

	for c := 0; c < ch; c++ {
		spec := sy.spectrum[c][:half]
		if sy.noFloor[c] {
			clear(spec)
		} else {
			s.floors[m.floors[m.mux[c]]].apply(ys[c], spec, sy.step2, sy.final)
		}
		blk := sy.block[c][:n]
		sy.imdct[long].transform(spec, blk)
		applyWindow(blk, left, leftStart, right, rightStart)
	}

	var out [][]float32
	if sy.prevN > 0 {
		pn := sy.prevN
		count := pn/4 + n/4
		shift := n/4 - pn/4
		out = make([][]float32, ch)
		for c := 0; c < ch; c++ {
			o := make([]float32, count)
			tail, blk := sy.tail[c][:pn/2], sy.block[c]
			for t := range o {
				var v float32
				if t < len(tail) {
					v = tail[t]
				}
				if j := t + shift; j >= 0 && j < half {
					v += blk[j]
				}
				o[t] = v
			}
			out[c] = o
		}
	}
	for c := 0; c < ch; c++ {
		copy(sy.tail[c], sy.block[c][half:n])
	}
	sy.prevN = n
	return out, nil
}
