// Package png decodes and encodes PNG images.
package png

import (
	"fmt"
	"hash/crc32"
	"log/slog"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/common"
	"github.com/cocosip/go-media-codec/deflate"
	"github.com/cocosip/go-media-codec/stream"
)

var signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Colour types
const (
	ctGrey      = 0
	ctRGB       = 2
	ctPalette   = 3
	ctGreyAlpha = 4
	ctRGBA      = 6
)

// maxIDAT bounds the concatenated compressed stream.
const maxIDAT = 1 << 30

type chunk struct {
	typ  string
	data []byte
}

type decoder struct {
	cur *stream.Cursor

	width, height int
	depth         int
	colorType     int
	interlace     bool
	imgN          int // samples per stored pixel

	palette [256][4]byte
	palLen  int
	hasTRNS bool
	trns    [3]uint16
	cgbi    bool

	idat []byte
}

func newDecoder(cur *stream.Cursor) *decoder {
	d := &decoder{cur: cur}
	for i := range d.palette {
		d.palette[i][3] = 255
	}
	return d
}

func (d *decoder) checkSignature() error {
	for _, b := range signature {
		if d.cur.Byte() != b {
			return ErrNotPNG
		}
	}
	return nil
}

// readChunk reads one chunk and verifies its CRC. When skipData is set
// the payload of chunks other than IHDR, PLTE and tRNS is skipped unread.
func (d *decoder) readChunk(skipData bool) (chunk, error) {
	n := d.cur.Get32BE()
	var tb [4]byte
	if err := d.cur.ReadFull(tb[:]); err != nil {
		return chunk{}, ErrTruncated
	}
	c := chunk{typ: string(tb[:])}
	if n > maxIDAT {
		return c, fmt.Errorf("%w: chunk %q length %d", codec.ErrOutOfMemory, c.typ, n)
	}
	if skipData && c.typ != "IHDR" && c.typ != "PLTE" && c.typ != "tRNS" && c.typ != "CgBI" {
		d.cur.Skip(int(n) + 4)
		return c, nil
	}
	data, err := d.cur.Bytes(int(n))
	if err != nil {
		return c, fmt.Errorf("%w: chunk %q", ErrTruncated, c.typ)
	}
	c.data = data
	crc := crc32.NewIEEE()
	_, _ = crc.Write(tb[:])
	_, _ = crc.Write(data)
	if want := d.cur.Get32BE(); want != crc.Sum32() {
		if d.cur.AtEOF() {
			return c, fmt.Errorf("%w: chunk %q", ErrTruncated, c.typ)
		}
		return c, fmt.Errorf("%w: chunk %q", ErrBadCRC, c.typ)
	}
	return c, nil
}

func get32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (d *decoder) parseIHDR(b []byte) error {
	if len(b) != 13 {
		return ErrBadIHDR
	}
	w, h := get32(b[0:]), get32(b[4:])
	if w > codec.MaxDimension || h > codec.MaxDimension {
		return fmt.Errorf("%w: png: %dx%d", codec.ErrOutOfMemory, w, h)
	}
	d.width, d.height = int(w), int(h)
	d.depth = int(b[8])
	d.colorType = int(b[9])

	switch d.depth {
	case 1, 2, 4, 8, 16:
	default:
		return fmt.Errorf("%w: bit depth %d", ErrBadIHDR, d.depth)
	}
	switch d.colorType {
	case ctGrey:
		d.imgN = 1
	case ctRGB:
		d.imgN = 3
	case ctPalette:
		d.imgN = 1
		if d.depth == 16 {
			return fmt.Errorf("%w: 16-bit palette", ErrBadIHDR)
		}
	case ctGreyAlpha:
		d.imgN = 2
	case ctRGBA:
		d.imgN = 4
	default:
		return fmt.Errorf("%w: colour type %d", ErrBadIHDR, d.colorType)
	}
	if d.colorType != ctGrey && d.colorType != ctPalette && d.depth < 8 {
		return fmt.Errorf("%w: depth %d with colour type %d", ErrBadIHDR, d.depth, d.colorType)
	}
	if b[10] != 0 {
		return fmt.Errorf("%w: compression method %d", ErrBadIHDR, b[10])
	}
	if b[11] != 0 {
		return fmt.Errorf("%w: filter method %d", ErrBadIHDR, b[11])
	}
	if b[12] > 1 {
		return fmt.Errorf("%w: interlace method %d", ErrBadIHDR, b[12])
	}
	d.interlace = b[12] == 1
	return codec.CheckDimensions(d.width, d.height, 4)
}

func (d *decoder) parsePLTE(b []byte) error {
	if len(b) > 768 || len(b)%3 != 0 || len(b) == 0 {
		return ErrBadPLTE
	}
	d.palLen = len(b) / 3
	for i := 0; i < d.palLen; i++ {
		copy(d.palette[i][:3], b[i*3:])
	}
	return nil
}

func (d *decoder) parseTRNS(b []byte) error {
	switch d.colorType {
	case ctPalette:
		if d.palLen == 0 {
			return fmt.Errorf("%w: before PLTE", ErrBadTRNS)
		}
		if len(b) > d.palLen {
			return fmt.Errorf("%w: %d entries for %d colours", ErrBadTRNS, len(b), d.palLen)
		}
		for i, a := range b {
			d.palette[i][3] = a
		}
	case ctGrey, ctRGB:
		if len(b) != 2*d.imgN {
			return fmt.Errorf("%w: length %d", ErrBadTRNS, len(b))
		}
		mask := uint16(1<<d.depth - 1)
		for k := 0; k < d.imgN; k++ {
			d.trns[k] = (uint16(b[2*k])<<8 | uint16(b[2*k+1])) & mask
		}
	default:
		return fmt.Errorf("%w: colour type %d has alpha", ErrBadTRNS, d.colorType)
	}
	d.hasTRNS = true
	return nil
}

// channels returns the channel count of the expanded image.
func (d *decoder) channels() int {
	switch d.colorType {
	case ctPalette:
		if d.hasTRNS {
			return 4
		}
		return 3
	case ctGrey, ctRGB:
		if d.hasTRNS {
			return d.imgN + 1
		}
	}
	return d.imgN
}

// readChunks walks the chunk stream. In header mode it stops at the first
// IDAT; otherwise it collects IDAT payloads until IEND.
func (d *decoder) readChunks(headerOnly bool) error {
	if err := d.checkSignature(); err != nil {
		return err
	}
	first := true
	for {
		c, err := d.readChunk(headerOnly)
		if err != nil {
			return err
		}
		if c.typ == "CgBI" {
			d.cgbi = true
			slog.Debug("png: CgBI chunk, expecting raw deflate and premultiplied BGRA")
			continue
		}
		if first && c.typ != "IHDR" {
			return ErrFirstNotIHDR
		}
		switch c.typ {
		case "IHDR":
			if !first {
				return fmt.Errorf("%w: multiple IHDR", ErrBadIHDR)
			}
			first = false
			if err := d.parseIHDR(c.data); err != nil {
				return err
			}
		case "PLTE":
			if err := d.parsePLTE(c.data); err != nil {
				return err
			}
		case "tRNS":
			if len(d.idat) > 0 {
				return fmt.Errorf("%w: after IDAT", ErrBadTRNS)
			}
			if err := d.parseTRNS(c.data); err != nil {
				return err
			}
		case "IDAT":
			if d.colorType == ctPalette && d.palLen == 0 {
				return ErrNoPLTE
			}
			if headerOnly {
				return nil
			}
			if len(d.idat)+len(c.data) > maxIDAT {
				return fmt.Errorf("%w: png: IDAT too large", codec.ErrOutOfMemory)
			}
			d.idat = append(d.idat, c.data...)
		case "IEND":
			if len(d.idat) == 0 {
				return ErrNoIDAT
			}
			return nil
		default:
			// bit 5 of the first byte marks ancillary chunks
			if c.typ[0]&0x20 == 0 {
				return fmt.Errorf("%w: %q", ErrUnknownChunk, c.typ)
			}
			slog.Debug("png: skipping ancillary chunk", slog.String("type", c.typ))
		}
	}
}

// rowBytes returns the filtered length of a w-pixel row, excluding the
// filter byte.
func (d *decoder) rowBytes(w int) int {
	return (w*d.imgN*d.depth + 7) >> 3
}

// rawSize returns the inflated length the image needs.
func (d *decoder) rawSize() int {
	if !d.interlace {
		return d.height * (1 + d.rowBytes(d.width))
	}
	n := 0
	for p := 0; p < 7; p++ {
		w, h := d.passSize(p)
		if w > 0 && h > 0 {
			n += h * (1 + d.rowBytes(w))
		}
	}
	return n
}

func (d *decoder) passSize(p int) (w, h int) {
	w = (d.width - adam7OriginX[p] + adam7SpacingX[p] - 1) / adam7SpacingX[p]
	h = (d.height - adam7OriginY[p] + adam7SpacingY[p] - 1) / adam7SpacingY[p]
	return max(w, 0), max(h, 0)
}

// decodePass unfilters one w by h image from raw and returns its samples
// at stored depth along with the unconsumed input.
func (d *decoder) decodePass(raw []byte, w, h int) ([]uint16, []byte, error) {
	stride := d.rowBytes(w)
	need := h * (1 + stride)
	if len(raw) < need {
		return nil, nil, ErrNotEnoughData
	}
	bpp := max(1, d.imgN*d.depth/8)
	samples := make([]uint16, w*h*d.imgN)
	prior := make([]byte, stride)
	for y := 0; y < h; y++ {
		line := raw[y*(1+stride):][:1+stride]
		row := line[1:]
		if err := unfilter(line[0], row, prior, bpp); err != nil {
			return nil, nil, fmt.Errorf("%w: %d on row %d", err, line[0], y)
		}
		d.unpack(samples[y*w*d.imgN:][:w*d.imgN], row)
		prior = row
	}
	return samples, raw[need:], nil
}

// unpack splits a reconstructed row into one value per sample.
func (d *decoder) unpack(dst []uint16, row []byte) {
	switch d.depth {
	case 16:
		for i := range dst {
			dst[i] = uint16(row[2*i])<<8 | uint16(row[2*i+1])
		}
	case 8:
		for i := range dst {
			dst[i] = uint16(row[i])
		}
	default:
		mask := byte(1<<d.depth - 1)
		perByte := 8 / d.depth
		for i := range dst {
			shift := 8 - d.depth*(i%perByte+1)
			dst[i] = uint16(row[i/perByte] >> shift & mask)
		}
	}
}

// samples inflates the IDAT stream and returns every stored sample in
// raster order, undoing Adam7 interlacing.
func (d *decoder) samples() ([]uint16, error) {
	need := d.rawSize()
	lim := deflate.Limits{SizeHint: need, MaxOutput: need + 1<<16}
	var raw []byte
	var err error
	if d.cgbi {
		raw, err = deflate.InflateLimits(d.idat, lim)
	} else {
		raw, err = deflate.InflateZlibLimits(d.idat, lim)
	}
	if err != nil {
		return nil, err
	}
	d.idat = nil
	if len(raw) > need {
		slog.Debug("png: extra data after image", slog.Int("extra", len(raw)-need))
	}

	if !d.interlace {
		s, _, err := d.decodePass(raw, d.width, d.height)
		return s, err
	}

	out := make([]uint16, d.width*d.height*d.imgN)
	for p := 0; p < 7; p++ {
		w, h := d.passSize(p)
		if w == 0 || h == 0 {
			continue
		}
		var s []uint16
		s, raw, err = d.decodePass(raw, w, h)
		if err != nil {
			return nil, err
		}
		for j := 0; j < h; j++ {
			y := adam7OriginY[p] + j*adam7SpacingY[p]
			for i := 0; i < w; i++ {
				x := adam7OriginX[p] + i*adam7SpacingX[p]
				copy(out[(y*d.width+x)*d.imgN:][:d.imgN], s[(j*w+i)*d.imgN:][:d.imgN])
			}
		}
	}
	return out, nil
}

// depthScale maps a stored grey sample to the 16-bit range.
func (d *decoder) depthScale() uint32 {
	return 65535 / (1<<d.depth - 1)
}

// expand turns stored samples into 16-bit pixels with n channels,
// applying the palette, tRNS and CgBI corrections.
func (d *decoder) expand(s []uint16) ([]uint16, int) {
	n := d.channels()
	npix := d.width * d.height
	out := make([]uint16, npix*n)

	switch {
	case d.colorType == ctPalette:
		for i := 0; i < npix; i++ {
			p := &d.palette[s[i]]
			o := out[i*n:]
			for k := 0; k < n; k++ {
				o[k] = uint16(p[k]) * 257
			}
		}
	default:
		scale := d.depthScale()
		for i := 0; i < npix; i++ {
			src := s[i*d.imgN:][:d.imgN]
			o := out[i*n:]
			// only grey and RGB carry a tRNS key
			key := d.hasTRNS && d.imgN <= len(d.trns)
			for k, v := range src {
				o[k] = uint16(uint32(v) * scale)
				if key && v != d.trns[k] {
					key = false
				}
			}
			if n > d.imgN {
				if key {
					o[d.imgN] = 0
				} else {
					o[d.imgN] = 65535
				}
			}
		}
	}

	if d.cgbi && n >= 3 {
		d.deIphone(out, n)
	}
	return out, n
}

// deIphone converts Apple's premultiplied BGR(A) layout to straight RGB(A).
func (d *decoder) deIphone(pix []uint16, n int) {
	for i := 0; i+n <= len(pix); i += n {
		p := pix[i : i+n]
		p[0], p[2] = p[2], p[0]
		if n == 4 && p[3] != 0 {
			a := uint32(p[3])
			for k := 0; k < 3; k++ {
				v := (uint32(p[k])*65535 + a/2) / a
				p[k] = uint16(common.Clamp(v, 0, 65535))
			}
		}
	}
}

// decode runs the full pipeline to 16-bit pixels.
func decode(cur *stream.Cursor) ([]uint16, *decoder, int, error) {
	d := newDecoder(cur)
	if err := d.readChunks(false); err != nil {
		return nil, nil, 0, err
	}
	s, err := d.samples()
	if err != nil {
		return nil, nil, 0, err
	}
	slog.Debug("png: decoded",
		slog.Int("width", d.width),
		slog.Int("height", d.height),
		slog.Int("depth", d.depth),
		slog.Int("colorType", d.colorType),
		slog.Bool("interlaced", d.interlace))
	pix, n := d.expand(s)
	return pix, d, n, nil
}

// Probe reports whether cur starts with the PNG signature. The cursor is
// not moved.
func Probe(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	return newDecoder(cur).checkSignature() == nil
}

// DecodeInfo reads the chunks before the first IDAT and rewinds the
// cursor. Channels reflects palette expansion and tRNS.
func DecodeInfo(cur *stream.Cursor) (codec.Info, error) {
	defer func() { _ = cur.Rewind() }()
	d := newDecoder(cur)
	if err := d.readChunks(true); err != nil {
		return codec.Info{}, err
	}
	return codec.Info{Width: d.width, Height: d.height, Channels: d.channels()}, nil
}

// Is16Bit reports whether the image stores 16-bit samples. The cursor is
// rewound.
func Is16Bit(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	d := newDecoder(cur)
	if d.checkSignature() != nil {
		return false
	}
	c, err := d.readChunk(true)
	if err != nil || c.typ != "IHDR" || d.parseIHDR(c.data) != nil {
		return false
	}
	return d.depth == 16
}

// Decode decodes a PNG to 8 bits per sample. 16-bit samples keep their
// high byte.
func Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	pix16, d, n, err := decode(cur)
	if err != nil {
		return nil, err
	}
	pix := make([]byte, len(pix16))
	for i, v := range pix16 {
		pix[i] = byte(v >> 8)
	}
	return codec.Finish(pix, d.width, d.height, n, opts), nil
}

// Decode16 decodes a PNG to 16 bits per sample. Lower depths are scaled
// to the full range.
func Decode16(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image16, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	pix, d, n, err := decode(cur)
	if err != nil {
		return nil, err
	}
	want := opts.Want(n)
	pix = codec.ConvertChannels16(pix, n, want, d.width, d.height)
	if opts.Flip() {
		codec.FlipRows(pix, d.width*want, d.height)
	}
	return &codec.Image16{Pix: pix, Width: d.width, Height: d.height, Channels: want}, nil
}
