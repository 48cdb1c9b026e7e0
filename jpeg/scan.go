package jpeg

import (
	"fmt"

	jc "github.com/cocosip/go-media-codec/jpeg/common"
)

// resetScan clears entropy and prediction state at a scan or restart
// boundary.
func (d *decoder) resetScan() {
	d.br.Reset()
	for _, c := range d.comps {
		c.dcPred = 0
	}
	if d.restartInterval > 0 {
		d.todo = d.restartInterval
	} else {
		d.todo = 0x7fffffff
	}
}

// afterBlock counts down the restart interval. It reports done=true when
// the segment ended without a restart marker.
func (d *decoder) afterBlock() (done bool) {
	d.todo--
	if d.todo > 0 {
		return false
	}
	d.br.Fill()
	if !jc.IsRST(d.br.Marker()) {
		return true
	}
	d.resetScan()
	return false
}

func (d *decoder) tables(c *component) (*jc.HuffmanTable, *jc.HuffmanTable, error) {
	dc, ac := d.dcTables[c.hd], d.acTables[c.ha]
	needDC := !d.progressive || d.specStart == 0
	needAC := !d.progressive || d.specStart != 0
	if (needDC && dc == nil) || (needAC && ac == nil) {
		return nil, nil, fmt.Errorf("%w: scan references undefined table", jc.ErrInvalidDHT)
	}
	return dc, ac, nil
}

// decodeScan decodes the entropy-coded data of one scan.
func (d *decoder) decodeScan() error {
	d.resetScan()

	if len(d.order) == 1 {
		// non-interleaved: blocks cover the component only
		c := d.comps[d.order[0]]
		dc, ac, err := d.tables(c)
		if err != nil {
			return err
		}
		bw, bh := (c.x+7)>>3, (c.y+7)>>3
		for j := 0; j < bh; j++ {
			for i := 0; i < bw; i++ {
				if err := d.decodeOne(c, dc, ac, i, j); err != nil {
					return err
				}
				if d.afterBlock() {
					return nil
				}
			}
		}
		return nil
	}

	for j := 0; j < d.mcusY; j++ {
		for i := 0; i < d.mcusX; i++ {
			for _, n := range d.order {
				c := d.comps[n]
				dc, ac, err := d.tables(c)
				if err != nil {
					return err
				}
				for y := 0; y < c.v; y++ {
					for x := 0; x < c.h; x++ {
						if err := d.decodeOne(c, dc, ac, i*c.h+x, j*c.v+y); err != nil {
							return err
						}
					}
				}
			}
			if d.afterBlock() {
				return nil
			}
		}
	}
	return nil
}

// decodeOne decodes block (bx, by) of c, writing pixels for sequential
// scans and accumulating coefficients for progressive ones.
func (d *decoder) decodeOne(c *component, dc, ac *jc.HuffmanTable, bx, by int) error {
	if !d.progressive {
		var blk [64]int16
		if err := d.decodeBlock(&blk, c, dc, ac); err != nil {
			return err
		}
		jc.IDCT(&blk, c.data[by*8*c.w2+bx*8:], c.w2)
		return nil
	}
	blk := (*[64]int16)(c.coeff[64*(bx+by*c.coeffW):])
	if d.specStart == 0 {
		return d.decodeBlockProgDC(blk, c, dc)
	}
	return d.decodeBlockProgAC(blk, ac)
}

func (d *decoder) decodeDC(c *component, dc *jc.HuffmanTable) (int, error) {
	t, err := d.br.Decode(dc)
	if err != nil {
		return 0, err
	}
	if t > 16 {
		return 0, jc.ErrBadHuffmanCode
	}
	diff := d.br.Receive(t)
	c.dcPred += diff
	return c.dcPred, nil
}

// decodeBlock decodes and dequantizes one sequential block
func (d *decoder) decodeBlock(blk *[64]int16, c *component, dc, ac *jc.HuffmanTable) error {
	q := &d.qtables[c.tq]
	v, err := d.decodeDC(c, dc)
	if err != nil {
		return err
	}
	blk[0] = int16(v * int(q[0]))

	for k := 1; k < 64; {
		if run, val, ok := d.br.DecodeFastAC(ac); ok {
			k += run
			zig := jc.Unzig[k]
			k++
			blk[zig] = int16(val * int(q[zig]))
			continue
		}
		rs, err := d.br.Decode(ac)
		if err != nil {
			return err
		}
		s, r := rs&15, rs>>4
		if s == 0 {
			if rs != 0xf0 {
				break // end of block
			}
			k += 16
			continue
		}
		k += r
		if k > 63 {
			return jc.ErrBadCoefficient
		}
		zig := jc.Unzig[k]
		k++
		blk[zig] = int16(d.br.Receive(s) * int(q[zig]))
	}
	return nil
}

func (d *decoder) decodeBlockProgDC(blk *[64]int16, c *component, dc *jc.HuffmanTable) error {
	if d.succHigh == 0 {
		// first scan for this coefficient
		v, err := d.decodeDC(c, dc)
		if err != nil {
			return err
		}
		blk[0] = int16(v * (1 << d.succLow))
		return nil
	}
	// refinement scan
	if d.br.Bit() != 0 {
		blk[0] += int16(1 << d.succLow)
	}
	return nil
}

func (d *decoder) decodeBlockProgAC(blk *[64]int16, ac *jc.HuffmanTable) error {
	if d.succHigh == 0 {
		return d.decodeACFirst(blk, ac)
	}
	return d.decodeACRefine(blk, ac)
}

func (d *decoder) decodeACFirst(blk *[64]int16, ac *jc.HuffmanTable) error {
	if d.br.EOBRun > 0 {
		d.br.EOBRun--
		return nil
	}
	shift := d.succLow
	for k := d.specStart; k <= d.specEnd; {
		if run, val, ok := d.br.DecodeFastAC(ac); ok {
			k += run
			zig := jc.Unzig[k]
			k++
			blk[zig] = int16(val * (1 << shift))
			continue
		}
		rs, err := d.br.Decode(ac)
		if err != nil {
			return err
		}
		s, r := rs&15, rs>>4
		if s == 0 {
			if r < 15 {
				d.br.EOBRun = 1 << r
				if r != 0 {
					d.br.EOBRun += d.br.Bits(r)
				}
				d.br.EOBRun--
				return nil
			}
			k += 16
			continue
		}
		k += r
		if k > 63 {
			return jc.ErrBadCoefficient
		}
		zig := jc.Unzig[k]
		k++
		blk[zig] = int16(d.br.Receive(s) * (1 << shift))
	}
	return nil
}

// refine adds a correction bit to an already non-zero coefficient.
func (d *decoder) refine(p *int16, bit int16) {
	if d.br.Bit() != 0 && *p&bit == 0 {
		if *p > 0 {
			*p += bit
		} else {
			*p -= bit
		}
	}
}

func (d *decoder) decodeACRefine(blk *[64]int16, ac *jc.HuffmanTable) error {
	bit := int16(1 << d.succLow)

	if d.br.EOBRun > 0 {
		d.br.EOBRun--
		for k := d.specStart; k <= d.specEnd; k++ {
			if p := &blk[jc.Unzig[k]]; *p != 0 {
				d.refine(p, bit)
			}
		}
		return nil
	}

	k := d.specStart
	for k <= d.specEnd {
		rs, err := d.br.Decode(ac)
		if err != nil {
			return err
		}
		s, r := rs&15, rs>>4
		var val int16
		if s == 0 {
			if r < 15 {
				d.br.EOBRun = 1<<r - 1
				if r != 0 {
					d.br.EOBRun += d.br.Bits(r)
				}
				r = 64 // force end of block
			}
			// r == 15 writes sixteen zeros: skip 15 and place a zero
		} else {
			if s != 1 {
				return jc.ErrBadHuffmanCode
			}
			if d.br.Bit() != 0 {
				val = bit
			} else {
				val = -bit
			}
		}

		// advance over r zero-history coefficients, refining the rest
		for k <= d.specEnd {
			p := &blk[jc.Unzig[k]]
			k++
			if *p != 0 {
				d.refine(p, bit)
				continue
			}
			if r == 0 {
				*p = val
				break
			}
			r--
		}
	}
	return nil
}

// finishProgressive dequantizes accumulated coefficients and runs the IDCT.
func (d *decoder) finishProgressive() {
	for _, c := range d.comps {
		q := &d.qtables[c.tq]
		bw, bh := (c.x+7)>>3, (c.y+7)>>3
		for j := 0; j < bh; j++ {
			for i := 0; i < bw; i++ {
				blk := (*[64]int16)(c.coeff[64*(i+j*c.coeffW):])
				for k := range blk {
					blk[k] *= int16(q[k])
				}
				jc.IDCT(blk, c.data[j*8*c.w2+i*8:], c.w2)
			}
		}
	}
}
