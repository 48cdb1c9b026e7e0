package gif

// maxCodes is the size of the LZW string table; code width never exceeds
// 12 bits.
const maxCodes = 4096

type lzwCode struct {
	prefix int16 // -1 for roots
	first  byte
	suffix byte
}

// readRaster decodes the LZW data of one image and hands every pixel index
// to the frame's plot function.
func (d *decoder) readRaster(f *frameState) error {
	lzwCS := int(d.cur.Byte())
	if lzwCS > 8 {
		return ErrBadCodeSize
	}
	clear := 1 << lzwCS
	codeSize := lzwCS + 1
	codeMask := 1<<codeSize - 1
	avail := clear + 2
	oldCode := -1
	first := true

	for i := 0; i < clear; i++ {
		d.codes[i] = lzwCode{prefix: -1, first: byte(i), suffix: byte(i)}
	}

	var bits uint32
	validBits := 0
	blockLen := 0
	for {
		if validBits < codeSize {
			if d.cur.AtEOF() {
				return ErrTruncated
			}
			if blockLen == 0 {
				blockLen = int(d.cur.Byte())
				if blockLen == 0 {
					// end of data without an end code
					return nil
				}
				continue
			}
			blockLen--
			bits |= uint32(d.cur.Byte()) << validBits
			validBits += 8
			continue
		}

		code := int(bits) & codeMask
		bits >>= codeSize
		validBits -= codeSize

		switch {
		case code == clear:
			codeSize = lzwCS + 1
			codeMask = 1<<codeSize - 1
			avail = clear + 2
			oldCode = -1
			first = false

		case code == clear+1:
			d.cur.Skip(blockLen)
			d.skipSubBlocks()
			return nil

		case code <= avail:
			if first {
				return ErrNoClearCode
			}
			if oldCode >= 0 && avail < maxCodes {
				p := &d.codes[avail]
				p.prefix = int16(oldCode)
				p.first = d.codes[oldCode].first
				if code == avail {
					p.suffix = p.first
				} else {
					p.suffix = d.codes[code].first
				}
				avail++
			} else if code == avail {
				return ErrIllegalCode
			}
			d.emit(f, code)
			if avail&codeMask == 0 && avail < maxCodes {
				codeSize++
				codeMask = 1<<codeSize - 1
			}
			oldCode = code

		default:
			return ErrIllegalCode
		}
	}
}

// emit outputs the string for code, walking the prefix chain into a
// stack and plotting it in order.
func (d *decoder) emit(f *frameState, code int) {
	n := 0
	for c := code; c >= 0 && n < maxCodes; c = int(d.codes[c].prefix) {
		d.stack[n] = d.codes[c].suffix
		n++
	}
	for n > 0 {
		n--
		f.plot(d.stack[n])
	}
}

// skipSubBlocks skips data sub-blocks up to the zero-length terminator.
func (d *decoder) skipSubBlocks() {
	for {
		n := int(d.cur.Byte())
		if n == 0 {
			return
		}
		d.cur.Skip(n)
	}
}
