// Package bmp decodes and encodes Windows bitmaps.
//
// Paletted images of 1, 4 and 8 bits and direct colour images of 16, 24
// and 32 bits are read, with implicit or BITFIELDS channel masks. RLE and
// embedded JPEG/PNG payloads are rejected as unsupported.
package bmp

import (
	"log/slog"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/common"
	"github.com/cocosip/go-media-codec/stream"
)

const fileHeaderLen = 14

// Compression values
const (
	biRGB       = 0
	biRLE8      = 1
	biRLE4      = 2
	biBitFields = 3
)

type header struct {
	offset      int
	hsz         int
	width       int
	height      int
	topDown     bool
	bpp         int
	compression int

	mr, mg, mb, ma uint32
}

func (h *header) defaultMasks() {
	switch h.bpp {
	case 32:
		h.mr, h.mg, h.mb, h.ma = 0xff<<16, 0xff<<8, 0xff, 0xff<<24
	case 16:
		h.mr, h.mg, h.mb, h.ma = 31<<10, 31<<5, 31, 0
	default:
		h.mr, h.mg, h.mb, h.ma = 0, 0, 0, 0
	}
}

// channels returns the native output channel count.
func (h *header) channels() int {
	if h.ma != 0 {
		return 4
	}
	return 3
}

func readHeader(cur *stream.Cursor) (*header, error) {
	if cur.Byte() != 'B' || cur.Byte() != 'M' {
		return nil, ErrNotBMP
	}
	cur.Get32LE() // file size
	cur.Get32LE() // reserved
	h := &header{}
	h.offset = int(cur.Get32LE())
	h.hsz = int(cur.Get32LE())
	switch h.hsz {
	case 12, 40, 56, 108, 124:
	default:
		return nil, ErrHeaderSize
	}

	if h.hsz == 12 {
		h.width = int(cur.Get16LE())
		h.height = int(cur.Get16LE())
	} else {
		h.width = int(int32(cur.Get32LE()))
		h.height = int(int32(cur.Get32LE()))
	}
	if h.height < 0 {
		h.topDown = true
		h.height = -h.height
	}
	if cur.Get16LE() != 1 {
		return nil, ErrBadPlanes
	}
	h.bpp = int(cur.Get16LE())
	switch h.bpp {
	case 1, 4, 8, 16, 24, 32:
	default:
		return nil, ErrBadDepth
	}

	h.defaultMasks()
	if h.hsz != 12 {
		h.compression = int(cur.Get32LE())
		switch {
		case h.compression == biRLE8 || h.compression == biRLE4:
			return nil, ErrCompressed
		case h.compression > biBitFields:
			return nil, ErrEmbedded
		case h.compression == biBitFields && h.bpp != 16 && h.bpp != 32:
			return nil, ErrBadDepth
		}
		cur.Skip(20) // image size, resolution, colours used and important

		switch {
		case h.hsz == 40 && h.compression == biBitFields:
			// masks follow the header
			h.mr = cur.Get32LE()
			h.mg = cur.Get32LE()
			h.mb = cur.Get32LE()
			h.ma = 0
		case h.hsz >= 56:
			mr, mg, mb, ma := cur.Get32LE(), cur.Get32LE(), cur.Get32LE(), cur.Get32LE()
			if h.compression == biBitFields {
				h.mr, h.mg, h.mb, h.ma = mr, mg, mb, ma
			}
			cur.Skip(h.hsz - 56) // colour space, endpoints, gamma, profile
		}
		if h.compression == biBitFields && h.mr == h.mg && h.mg == h.mb {
			return nil, ErrBadMasks
		}
	}
	if h.bpp < 16 {
		h.ma = 0
	}
	if err := codec.CheckDimensions(h.width, h.height, h.channels()); err != nil {
		return nil, err
	}
	if cur.AtEOF() {
		return nil, ErrTruncated
	}
	return h, nil
}

// Probe reports whether cur holds a BMP with a known header. The cursor is
// rewound.
func Probe(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	_, err := readHeader(cur)
	return err == nil
}

// DecodeInfo reads the headers and rewinds the cursor.
func DecodeInfo(cur *stream.Cursor) (codec.Info, error) {
	defer func() { _ = cur.Rewind() }()
	h, err := readHeader(cur)
	if err != nil {
		return codec.Info{}, err
	}
	return codec.Info{Width: h.width, Height: h.height, Channels: h.channels()}, nil
}

// Decode decodes a BMP. Paletted and 24-bit images decode to RGB, images
// with an alpha mask to RGBA.
func Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h, err := readHeader(cur)
	if err != nil {
		return nil, err
	}

	var pal [256][3]byte
	if h.bpp < 16 {
		entry := 4
		if h.hsz == 12 {
			entry = 3
		}
		psize := min((h.offset-int(cur.Offset()))/entry, 1<<h.bpp)
		if psize <= 0 {
			return nil, ErrBadPalette
		}
		for i := 0; i < psize; i++ {
			pal[i][2] = cur.Byte()
			pal[i][1] = cur.Byte()
			pal[i][0] = cur.Byte()
			if entry == 4 {
				cur.Byte()
			}
		}
	}
	read := int(cur.Offset())
	if h.offset < read {
		return nil, ErrBadOffset
	}
	if h.offset > read {
		slog.Debug("bmp: skipping gap before pixel data", "bytes", h.offset-read)
		cur.Skip(h.offset - read)
	}

	n := h.channels()
	out := make([]byte, h.width*h.height*n)
	var rowErr error
	switch {
	case h.bpp < 16:
		rowErr = decodePaletted(cur, h, &pal, out)
	case h.bpp == 24 || (h.bpp == 32 && h.mb == 0xff && h.mg == 0xff00 && h.mr == 0xff0000 && h.ma == 0xff000000):
		rowErr = decodeBGR(cur, h, out)
	default:
		rowErr = decodeMasked(cur, h, out)
	}
	if rowErr != nil {
		return nil, rowErr
	}

	if n == 4 {
		// an all-zero alpha channel is treated as unused
		allZero := true
		for i := 3; i < len(out); i += 4 {
			if out[i] != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			for i := 3; i < len(out); i += 4 {
				out[i] = 255
			}
		}
	}
	if !h.topDown {
		codec.FlipRows(out, h.width*n, h.height)
	}
	return codec.Finish(out, h.width, h.height, n, opts), nil
}

func decodePaletted(cur *stream.Cursor, h *header, pal *[256][3]byte, out []byte) error {
	rowBytes := (h.width*h.bpp + 7) / 8
	pad := (-rowBytes) & 3
	row := make([]byte, rowBytes)
	o := 0
	for y := 0; y < h.height; y++ {
		if err := cur.ReadFull(row); err != nil {
			return ErrTruncated
		}
		for x := 0; x < h.width; x++ {
			var idx byte
			switch h.bpp {
			case 1:
				idx = row[x>>3] >> (7 - x&7) & 1
			case 4:
				idx = row[x>>1] >> (4 - (x&1)*4) & 15
			default:
				idx = row[x]
			}
			copy(out[o:o+3], pal[idx][:])
			o += 3
		}
		cur.Skip(pad)
	}
	return nil
}

func decodeBGR(cur *stream.Cursor, h *header, out []byte) error {
	bytesPP := h.bpp / 8
	n := h.channels()
	rowBytes := h.width * bytesPP
	pad := (-rowBytes) & 3
	row := make([]byte, rowBytes)
	o := 0
	for y := 0; y < h.height; y++ {
		if err := cur.ReadFull(row); err != nil {
			return ErrTruncated
		}
		for x := 0; x < h.width; x++ {
			p := row[x*bytesPP:]
			out[o], out[o+1], out[o+2] = p[2], p[1], p[0]
			if n == 4 {
				out[o+3] = p[3]
			}
			o += n
		}
		cur.Skip(pad)
	}
	return nil
}

// field converts one masked channel to 8 bits.
type field struct {
	mask  uint32
	shift int
	count int
}

func newField(mask uint32) field {
	return field{mask: mask, shift: common.HighBit(mask) - 7, count: min(common.BitCount(mask), 8)}
}

func (f field) get(v uint32) byte {
	return byte(common.ShiftSigned(v&f.mask, f.shift, f.count))
}

func decodeMasked(cur *stream.Cursor, h *header, out []byte) error {
	if h.mr == 0 || h.mg == 0 || h.mb == 0 {
		return ErrBadMasks
	}
	r, g, b, a := newField(h.mr), newField(h.mg), newField(h.mb), newField(h.ma)
	bytesPP := h.bpp / 8
	n := h.channels()
	rowBytes := h.width * bytesPP
	pad := (-rowBytes) & 3
	row := make([]byte, rowBytes)
	o := 0
	for y := 0; y < h.height; y++ {
		if err := cur.ReadFull(row); err != nil {
			return ErrTruncated
		}
		for x := 0; x < h.width; x++ {
			var v uint32
			if bytesPP == 2 {
				v = uint32(row[2*x]) | uint32(row[2*x+1])<<8
			} else {
				p := row[4*x:]
				v = uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
			}
			out[o], out[o+1], out[o+2] = r.get(v), g.get(v), b.get(v)
			if n == 4 {
				out[o+3] = a.get(v)
			}
			o += n
		}
		cur.Skip(pad)
	}
	return nil
}
