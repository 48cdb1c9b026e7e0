// Package jpeg decodes baseline and progressive JPEG images and encodes
// baseline JPEG.
package jpeg

import (
	"fmt"
	"log/slog"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/common"
	jc "github.com/cocosip/go-media-codec/jpeg/common"
	"github.com/cocosip/go-media-codec/stream"
)

// component represents a color component in the image
type component struct {
	id     byte // Component identifier
	h, v   int  // Sampling factors
	tq     int  // Quantization table selector
	hd, ha int  // DC and AC Huffman table selectors
	dcPred int  // DC prediction value

	x, y   int    // Size in samples
	w2, h2 int    // Size padded to the MCU grid
	data   []byte // w2*h2 decoded samples

	// progressive coefficient store, 64 per block
	coeff          []int16
	coeffW, coeffH int
}

// decoder represents a JPEG decoder state for one image
type decoder struct {
	cur *stream.Cursor
	br  *jc.BitReader

	width, height int
	comps         []*component
	hMax, vMax    int
	mcuW, mcuH    int
	mcusX, mcusY  int
	progressive   bool

	qtables  [4][64]uint16 // natural order
	dcTables [4]*jc.HuffmanTable
	acTables [4]*jc.HuffmanTable

	restartInterval int
	todo            int

	// scan state
	order              []int
	specStart, specEnd int
	succHigh, succLow  int
	scans              int

	jfif           bool
	app14Transform int // -1 when no Adobe marker
	rgbIDs         int
	frameSeen      bool
	headerOnly     bool
}

func newDecoder(cur *stream.Cursor) *decoder {
	d := &decoder{cur: cur, app14Transform: -1}
	d.br = jc.NewBitReader(cur)
	return d
}

// marker returns the next marker, reusing one the bit reader stopped on.
func (d *decoder) marker() byte {
	if m := d.br.Marker(); m != jc.MarkerNone {
		d.br.SetMarker(jc.MarkerNone)
		return m
	}
	x := d.cur.Byte()
	if x != 0xff {
		return jc.MarkerNone
	}
	for x == 0xff {
		x = d.cur.Byte()
	}
	return x
}

// readHeader parses markers up to and including the frame header.
func (d *decoder) readHeader() error {
	if d.marker() != jc.MarkerSOI {
		return jc.ErrNotJPEG
	}
	m := d.marker()
	for !jc.IsSOF(m) {
		if err := d.processMarker(m); err != nil {
			return err
		}
		m = d.marker()
		for m == jc.MarkerNone {
			// tolerate padding between segments
			if d.cur.AtEOF() {
				return jc.ErrNoFrame
			}
			m = d.marker()
		}
	}
	if !jc.IsDCTSOF(m) {
		return fmt.Errorf("%w: frame type %#x (lossless, hierarchical or arithmetic)", jc.ErrUnsupported, m)
	}
	d.progressive = m == jc.MarkerSOF2
	return d.processFrameHeader()
}

func (d *decoder) processMarker(m byte) error {
	switch {
	case m == jc.MarkerNone:
		return fmt.Errorf("%w: expected marker", jc.ErrInvalidMarker)

	case m == jc.MarkerDRI:
		if d.cur.Get16BE() != 4 {
			return jc.ErrInvalidDRI
		}
		d.restartInterval = int(d.cur.Get16BE())
		return nil

	case m == jc.MarkerDQT:
		return d.processDQT()

	case m == jc.MarkerDHT:
		return d.processDHT()

	case m == jc.MarkerCOM || jc.IsAPP(m):
		return d.processAPP(m)

	case m == jc.MarkerDNL:
		return d.processDNL()
	}
	return fmt.Errorf("%w: unknown marker %#x", jc.ErrInvalidMarker, m)
}

// processDQT parses Define Quantization Table marker
func (d *decoder) processDQT() error {
	l := int(d.cur.Get16BE()) - 2
	for l > 0 {
		q := d.cur.Byte()
		p, t := q>>4, q&15
		if p > 1 {
			return fmt.Errorf("%w: precision %d", jc.ErrInvalidDQT, p)
		}
		if t > 3 {
			return fmt.Errorf("%w: table %d", jc.ErrInvalidDQT, t)
		}
		for i := 0; i < 64; i++ {
			var v uint16
			if p == 1 {
				v = d.cur.Get16BE()
			} else {
				v = uint16(d.cur.Byte())
			}
			d.qtables[t][jc.Unzig[i]] = v
		}
		if p == 1 {
			l -= 129
		} else {
			l -= 65
		}
	}
	if l != 0 || d.cur.AtEOF() {
		return jc.ErrInvalidDQT
	}
	return nil
}

// processDHT parses Define Huffman Table marker
func (d *decoder) processDHT() error {
	l := int(d.cur.Get16BE()) - 2
	for l > 0 {
		q := d.cur.Byte()
		tc, th := q>>4, q&15
		if tc > 1 || th > 3 {
			return fmt.Errorf("%w: class %d id %d", jc.ErrInvalidDHT, tc, th)
		}
		table := &jc.HuffmanTable{}
		n := 0
		for i := 0; i < 16; i++ {
			table.Bits[i] = int(d.cur.Byte())
			n += table.Bits[i]
		}
		if n > 256 {
			return jc.ErrInvalidDHT
		}
		table.Values = make([]byte, n)
		if err := d.cur.ReadFull(table.Values); err != nil {
			return jc.ErrUnexpectedEOF
		}
		if err := table.Build(); err != nil {
			return err
		}
		if tc == 0 {
			d.dcTables[th] = table
		} else {
			d.acTables[th] = table
		}
		l -= 17 + n
	}
	if l != 0 {
		return jc.ErrInvalidDHT
	}
	return nil
}

var (
	jfifTag  = [5]byte{'J', 'F', 'I', 'F', 0}
	adobeTag = [6]byte{'A', 'd', 'o', 'b', 'e', 0}
)

func (d *decoder) processAPP(m byte) error {
	l := int(d.cur.Get16BE())
	if l < 2 {
		return fmt.Errorf("%w: bad APP/COM length", jc.ErrInvalidMarker)
	}
	l -= 2

	if m == jc.MarkerAPP0 && l >= 5 {
		ok := true
		for _, c := range jfifTag {
			if d.cur.Byte() != c {
				ok = false
			}
		}
		l -= 5
		if ok {
			d.jfif = true
		}
	} else if m == jc.MarkerAPP14 && l >= 12 {
		ok := true
		for _, c := range adobeTag {
			if d.cur.Byte() != c {
				ok = false
			}
		}
		l -= 6
		if ok {
			d.cur.Byte()    // version
			d.cur.Get16BE() // flags0
			d.cur.Get16BE() // flags1
			d.app14Transform = int(d.cur.Byte())
			l -= 6
			slog.Debug("jpeg: Adobe APP14", slog.Int("transform", d.app14Transform))
		}
	}
	d.cur.Skip(l)
	return nil
}

func (d *decoder) processDNL() error {
	if d.cur.Get16BE() != 4 {
		return fmt.Errorf("%w: bad DNL length", jc.ErrInvalidMarker)
	}
	if nl := int(d.cur.Get16BE()); nl != d.height {
		return fmt.Errorf("%w: DNL height %d, frame height %d", jc.ErrInvalidMarker, nl, d.height)
	}
	return nil
}

// processFrameHeader parses Start of Frame marker
func (d *decoder) processFrameHeader() error {
	lf := int(d.cur.Get16BE())
	if lf < 11 {
		return fmt.Errorf("%w: length %d", jc.ErrInvalidSOF, lf)
	}
	if p := d.cur.Byte(); p != 8 {
		return fmt.Errorf("%w: %d-bit precision", jc.ErrUnsupported, p)
	}
	d.height = int(d.cur.Get16BE())
	if d.height == 0 {
		return fmt.Errorf("%w: delayed height", jc.ErrUnsupported)
	}
	d.width = int(d.cur.Get16BE())
	if d.width == 0 {
		return jc.ErrInvalidDimensions
	}
	n := int(d.cur.Byte())
	if n != 1 && n != 3 && n != 4 {
		return fmt.Errorf("%w: %d", jc.ErrInvalidComponents, n)
	}
	if lf != 8+3*n {
		return fmt.Errorf("%w: length %d for %d components", jc.ErrInvalidSOF, lf, n)
	}

	rgb := [3]byte{'R', 'G', 'B'}
	d.comps = make([]*component, n)
	d.hMax, d.vMax = 1, 1
	for i := range d.comps {
		c := &component{id: d.cur.Byte()}
		if n == 3 && c.id == rgb[i] {
			d.rgbIDs++
		}
		q := d.cur.Byte()
		c.h, c.v = int(q>>4), int(q&15)
		if c.h == 0 || c.h > 4 || c.v == 0 || c.v > 4 {
			return fmt.Errorf("%w: sampling %dx%d", jc.ErrInvalidSOF, c.h, c.v)
		}
		c.tq = int(d.cur.Byte())
		if c.tq > 3 {
			return fmt.Errorf("%w: quantization table %d", jc.ErrInvalidSOF, c.tq)
		}
		d.hMax = max(d.hMax, c.h)
		d.vMax = max(d.vMax, c.v)
		d.comps[i] = c
	}
	if d.cur.AtEOF() {
		return jc.ErrUnexpectedEOF
	}
	if err := codec.CheckDimensions(d.width, d.height, n); err != nil {
		return err
	}
	d.frameSeen = true

	slog.Debug("jpeg: SOF parsed",
		slog.Int("width", d.width),
		slog.Int("height", d.height),
		slog.Int("components", n),
		slog.Bool("progressive", d.progressive))

	if d.headerOnly {
		return nil
	}

	// every sampling factor must divide the maximum
	for _, c := range d.comps {
		if d.hMax%c.h != 0 || d.vMax%c.v != 0 {
			return fmt.Errorf("%w: sampling %dx%d does not divide %dx%d", jc.ErrInvalidSOF, c.h, c.v, d.hMax, d.vMax)
		}
	}

	d.mcuW, d.mcuH = d.hMax*8, d.vMax*8
	d.mcusX = common.DivCeil(d.width, d.mcuW)
	d.mcusY = common.DivCeil(d.height, d.mcuH)
	for _, c := range d.comps {
		c.x = common.DivCeil(d.width*c.h, d.hMax)
		c.y = common.DivCeil(d.height*c.v, d.vMax)
		c.w2 = d.mcusX * c.h * 8
		c.h2 = d.mcusY * c.v * 8
		c.data = make([]byte, c.w2*c.h2)
		if d.progressive {
			c.coeffW, c.coeffH = c.w2/8, c.h2/8
			c.coeff = make([]int16, c.w2*c.h2)
		}
	}
	return nil
}

// processScanHeader parses Start of Scan marker
func (d *decoder) processScanHeader() error {
	ls := int(d.cur.Get16BE())
	ns := int(d.cur.Byte())
	if ns < 1 || ns > 4 || ns > len(d.comps) {
		return fmt.Errorf("%w: %d components", jc.ErrInvalidSOS, ns)
	}
	if ls != 6+2*ns {
		return fmt.Errorf("%w: length %d", jc.ErrInvalidSOS, ls)
	}
	d.order = d.order[:0]
	for i := 0; i < ns; i++ {
		id := d.cur.Byte()
		q := d.cur.Byte()
		which := -1
		for j, c := range d.comps {
			if c.id == id {
				which = j
				break
			}
		}
		if which < 0 {
			return fmt.Errorf("%w: unknown component %d", jc.ErrInvalidSOS, id)
		}
		c := d.comps[which]
		c.hd, c.ha = int(q>>4), int(q&15)
		if c.hd > 3 || c.ha > 3 {
			return fmt.Errorf("%w: table selector", jc.ErrInvalidSOS)
		}
		d.order = append(d.order, which)
	}

	d.specStart = int(d.cur.Byte())
	d.specEnd = int(d.cur.Byte())
	aa := int(d.cur.Byte())
	d.succHigh, d.succLow = aa>>4, aa&15
	if d.progressive {
		if d.specStart > 63 || d.specEnd > 63 || d.specStart > d.specEnd || d.succHigh > 13 || d.succLow > 13 {
			return fmt.Errorf("%w: spectral selection %d..%d", jc.ErrInvalidSOS, d.specStart, d.specEnd)
		}
		if d.specStart != 0 && ns != 1 {
			return fmt.Errorf("%w: interleaved AC scan", jc.ErrInvalidSOS)
		}
		if d.specStart == 0 && d.specEnd != 0 {
			return fmt.Errorf("%w: DC and AC in one scan", jc.ErrInvalidSOS)
		}
	} else {
		if d.specStart != 0 || d.succHigh != 0 || d.succLow != 0 {
			return fmt.Errorf("%w: progressive parameters in sequential scan", jc.ErrInvalidSOS)
		}
		d.specEnd = 63
	}
	return nil
}

// decodeImage runs the marker loop to the end of the image and leaves
// reconstructed component planes in comp.data.
func (d *decoder) decodeImage() error {
	d.restartInterval = 0
	if err := d.readHeader(); err != nil {
		return err
	}
	m := d.marker()
	for m != jc.MarkerEOI {
		switch {
		case m == jc.MarkerSOS:
			if err := d.processScanHeader(); err != nil {
				return err
			}
			if err := d.decodeScan(); err != nil {
				return err
			}
			d.scans++
			if d.br.Marker() == jc.MarkerNone {
				d.skipJunk()
			}
			m = d.marker()
			if jc.IsRST(m) {
				m = d.marker()
			}
		case m == jc.MarkerNone && d.cur.AtEOF():
			slog.Debug("jpeg: missing EOI marker")
			m = jc.MarkerEOI
		default:
			if err := d.processMarker(m); err != nil {
				if d.scans == 0 {
					return err
				}
				// keep what the completed scans produced
				slog.Debug("jpeg: stopping at bad trailing marker", slog.Any("error", err))
				m = jc.MarkerEOI
				continue
			}
			m = d.marker()
		}
	}
	if d.progressive {
		d.finishProgressive()
	}
	return nil
}

// skipJunk scans forward for the marker following scan data padded with
// stray bytes.
func (d *decoder) skipJunk() {
	for !d.cur.AtEOF() {
		if d.cur.Byte() == 0xff {
			for d.cur.PeekByte() == 0xff {
				d.cur.Byte()
			}
			if p := d.cur.PeekByte(); p > 0 {
				d.br.SetMarker(d.cur.Byte())
				return
			}
		}
	}
}

// Probe reports whether cur starts with a JPEG SOI marker followed by a
// marker. The cursor is not moved.
func Probe(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	d := newDecoder(cur)
	if d.marker() != jc.MarkerSOI {
		return false
	}
	return d.cur.PeekByte() == 0xff
}

// DecodeInfo reads the frame header and rewinds the cursor.
func DecodeInfo(cur *stream.Cursor) (codec.Info, error) {
	defer func() { _ = cur.Rewind() }()
	d := newDecoder(cur)
	d.headerOnly = true
	if err := d.readHeader(); err != nil {
		return codec.Info{}, err
	}
	ch := 1
	if len(d.comps) >= 3 {
		ch = 3
	}
	return codec.Info{Width: d.width, Height: d.height, Channels: ch}, nil
}

// Decode decodes a JPEG image. Grey images decode to one channel and
// colour images to three unless opts requests otherwise.
func Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	d := newDecoder(cur)
	if err := d.decodeImage(); err != nil {
		return nil, err
	}
	if !d.frameSeen {
		return nil, jc.ErrNoFrame
	}
	pix, n := d.output(opts.Want(0))
	return codec.Finish(pix, d.width, d.height, n, opts), nil
}
