// Package tga decodes and encodes Truevision TGA images.
package tga

import (
	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Image types
const (
	typeColorMapped = 1
	typeTrueColor   = 2
	typeGrey        = 3
	typeRLE         = 8
)

const headerLen = 18

type header struct {
	idLen     int
	cmapType  int
	imageType int
	cmapFirst int
	cmapLen   int
	cmapBPP   int
	width     int
	height    int
	bpp       int
	desc      byte
}

func (h *header) indexed() bool { return h.imageType&^typeRLE == typeColorMapped }
func (h *header) rle() bool     { return h.imageType&typeRLE != 0 }

// topDown reports whether the first stored row is the top one.
func (h *header) topDown() bool { return h.desc&0x20 != 0 }

// components returns the output channel count for a pixel size and
// whether the pixels are packed 5-5-5.
func components(bpp int, grey bool) (int, bool) {
	switch bpp {
	case 8:
		return 1, false
	case 15, 16:
		if bpp == 16 && grey {
			return 2, false
		}
		return 3, true
	case 24, 32:
		return bpp / 8, false
	}
	return 0, false
}

// channels returns the native output channel count.
func (h *header) channels() (int, bool) {
	if h.indexed() {
		return components(h.cmapBPP, false)
	}
	return components(h.bpp, h.imageType&^typeRLE == typeGrey)
}

// readHeader parses and validates the fixed header. TGA has no magic
// number, so every field is range checked.
func readHeader(cur *stream.Cursor) (*header, error) {
	var b [headerLen]byte
	if err := cur.ReadFull(b[:]); err != nil {
		return nil, ErrNotTGA
	}
	h := &header{
		idLen:     int(b[0]),
		cmapType:  int(b[1]),
		imageType: int(b[2]),
		cmapFirst: int(b[3]) | int(b[4])<<8,
		cmapLen:   int(b[5]) | int(b[6])<<8,
		cmapBPP:   int(b[7]),
		width:     int(b[12]) | int(b[13])<<8,
		height:    int(b[14]) | int(b[15])<<8,
		bpp:       int(b[16]),
		desc:      b[17],
	}
	if h.cmapType > 1 {
		return nil, ErrNotTGA
	}
	if h.cmapType == 1 {
		if !h.indexed() {
			return nil, ErrNotTGA
		}
		switch h.cmapBPP {
		case 8, 15, 16, 24, 32:
		default:
			return nil, ErrNotTGA
		}
		if h.bpp != 8 && h.bpp != 16 {
			return nil, ErrNotTGA
		}
	} else {
		switch h.imageType &^ typeRLE {
		case typeTrueColor, typeGrey:
		default:
			return nil, ErrNotTGA
		}
		switch h.bpp {
		case 8, 15, 16, 24, 32:
		default:
			return nil, ErrNotTGA
		}
	}
	if h.width < 1 || h.height < 1 {
		return nil, ErrNotTGA
	}
	if n, _ := h.channels(); n == 0 {
		return nil, ErrNotTGA
	}
	if h.indexed() && h.cmapLen == 0 {
		return nil, ErrBadColorMap
	}
	return h, nil
}

// Probe reports whether cur holds a plausible TGA header. The cursor is
// rewound.
func Probe(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	_, err := readHeader(cur)
	return err == nil
}

// DecodeInfo reads the header and rewinds the cursor.
func DecodeInfo(cur *stream.Cursor) (codec.Info, error) {
	defer func() { _ = cur.Rewind() }()
	h, err := readHeader(cur)
	if err != nil {
		return codec.Info{}, err
	}
	n, _ := h.channels()
	return codec.Info{Width: h.width, Height: h.height, Channels: n}, nil
}

// readRGB16 expands a 5-5-5 pixel into RGB.
func readRGB16(cur *stream.Cursor, out []byte) {
	px := int(cur.Get16LE())
	out[0] = byte((px >> 10 & 31) * 255 / 31)
	out[1] = byte((px >> 5 & 31) * 255 / 31)
	out[2] = byte((px & 31) * 255 / 31)
}

// readPixel reads one stored pixel in file order.
func readPixel(cur *stream.Cursor, n int, rgb16 bool, out []byte) {
	if rgb16 {
		readRGB16(cur, out)
		return
	}
	for i := 0; i < n; i++ {
		out[i] = cur.Byte()
	}
	if n >= 3 {
		out[0], out[2] = out[2], out[0]
	}
}

// Decode decodes a TGA image.
func Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h, err := readHeader(cur)
	if err != nil {
		return nil, err
	}
	n, rgb16 := h.channels()
	if err := codec.CheckDimensions(h.width, h.height, n); err != nil {
		return nil, err
	}
	cur.Skip(h.idLen)

	var palette []byte
	if h.indexed() {
		palette = make([]byte, h.cmapLen*n)
		for i := 0; i < h.cmapLen; i++ {
			readPixel(cur, n, rgb16, palette[i*n:])
		}
	} else if h.cmapType == 0 && h.cmapLen > 0 {
		// a colour map on an unmapped image carries no meaning
		cur.Skip(h.cmapLen * ((h.cmapBPP + 7) / 8))
	}
	out := make([]byte, h.width*h.height*n)
	var (
		px        [4]byte
		count     int
		repeating bool
	)
	for i := 0; i < h.width*h.height; i++ {
		readNext := true
		if h.rle() {
			if count == 0 {
				if cur.AtEOF() {
					return nil, ErrTruncated
				}
				cmd := cur.Byte()
				count = 1 + int(cmd&0x7f)
				repeating = cmd&0x80 != 0
			} else if repeating {
				readNext = false
			}
			count--
		}
		if readNext {
			if cur.AtEOF() {
				return nil, ErrTruncated
			}
			if h.indexed() {
				idx := int(cur.Byte())
				if h.bpp == 16 {
					idx |= int(cur.Byte()) << 8
				}
				idx -= h.cmapFirst
				if idx < 0 || idx >= h.cmapLen {
					idx = 0
				}
				copy(px[:n], palette[idx*n:])
			} else {
				readPixel(cur, n, rgb16, px[:])
			}
		}
		copy(out[i*n:], px[:n])
	}
	if !h.topDown() {
		codec.FlipRows(out, h.width*n, h.height)
	}
	return codec.Finish(out, h.width, h.height, n, opts), nil
}
