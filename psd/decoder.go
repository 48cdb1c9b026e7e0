// Package psd decodes the composite image of Photoshop documents.
//
// Only RGB documents with 8 or 16 bits per channel are read. Output is
// always four channels; missing colour channels are zero and a missing
// alpha channel is opaque.
package psd

import (
	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

const (
	modeRGB = 3

	compressionRaw = 0
	compressionRLE = 1
)

type header struct {
	channels int
	width    int
	height   int
	depth    int
}

func readHeader(cur *stream.Cursor) (*header, error) {
	if cur.Get32BE() != 0x38425053 { // "8BPS"
		return nil, ErrNotPSD
	}
	if cur.Get16BE() != 1 {
		return nil, ErrBadVersion
	}
	cur.Skip(6)
	h := &header{channels: int(cur.Get16BE())}
	if h.channels < 0 || h.channels > 16 {
		return nil, ErrBadChannels
	}
	h.height = int(cur.Get32BE())
	h.width = int(cur.Get32BE())
	h.depth = int(cur.Get16BE())
	if h.depth != 8 && h.depth != 16 {
		return nil, ErrBadDepth
	}
	if cur.Get16BE() != modeRGB {
		return nil, ErrColorMode
	}
	if err := codec.CheckDimensions(h.width, h.height, 4*h.depth/8); err != nil {
		return nil, err
	}
	return h, nil
}

// Probe reports whether cur holds a PSD. The cursor is rewound.
func Probe(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	return cur.Get32BE() == 0x38425053
}

// DecodeInfo reads the header and rewinds the cursor.
func DecodeInfo(cur *stream.Cursor) (codec.Info, error) {
	defer func() { _ = cur.Rewind() }()
	h, err := readHeader(cur)
	if err != nil {
		return codec.Info{}, err
	}
	return codec.Info{Width: h.width, Height: h.height, Channels: 4}, nil
}

// Is16Bit reports whether the document stores 16-bit channels. The cursor
// is rewound.
func Is16Bit(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	h, err := readHeader(cur)
	return err == nil && h.depth == 16
}

// decode reads the composite image as 16-bit RGBA.
func decode(cur *stream.Cursor) (*header, []uint16, error) {
	h, err := readHeader(cur)
	if err != nil {
		return nil, nil, err
	}
	// colour mode data, image resources, layer and mask information
	for i := 0; i < 3; i++ {
		n := int(cur.Get32BE())
		cur.Skip(n)
	}
	compression := int(cur.Get16BE())
	if compression > compressionRLE {
		return nil, nil, ErrCompression
	}
	if cur.AtEOF() {
		return nil, nil, ErrTruncated
	}

	pixels := h.width * h.height
	bytesPer := h.depth / 8
	out := make([]uint16, pixels*4)
	if compression == compressionRLE {
		// per-row byte counts of every channel
		cur.Skip(h.height * h.channels * 2)
	}

	plane := make([]byte, pixels*bytesPer)
	for ch := 0; ch < 4; ch++ {
		if ch >= h.channels {
			var fill uint16
			if ch == 3 {
				fill = 0xffff
			}
			for i := ch; i < len(out); i += 4 {
				out[i] = fill
			}
			continue
		}
		if compression == compressionRLE {
			if err := unpackBits(cur, plane); err != nil {
				return nil, nil, err
			}
		} else if err := cur.ReadFull(plane); err != nil {
			return nil, nil, ErrTruncated
		}
		for i := 0; i < pixels; i++ {
			if bytesPer == 2 {
				out[i*4+ch] = uint16(plane[2*i])<<8 | uint16(plane[2*i+1])
			} else {
				out[i*4+ch] = uint16(plane[i]) * 257
			}
		}
	}
	return h, out, nil
}

// unpackBits fills dst from PackBits data: a header byte n < 128 copies
// n+1 literal bytes, n > 128 repeats the next byte 257-n times and 128 is a
// no-op.
func unpackBits(cur *stream.Cursor, dst []byte) error {
	for i := 0; i < len(dst); {
		if cur.AtEOF() {
			return ErrTruncated
		}
		n := int(cur.Byte())
		switch {
		case n == 128:
		case n < 128:
			n++
			if n > len(dst)-i {
				return ErrBadRLE
			}
			if err := cur.ReadFull(dst[i : i+n]); err != nil {
				return ErrTruncated
			}
			i += n
		default:
			n = 257 - n
			if n > len(dst)-i {
				return ErrBadRLE
			}
			v := cur.Byte()
			for k := 0; k < n; k++ {
				dst[i+k] = v
			}
			i += n
		}
	}
	return nil
}

// removeMatte undoes Photoshop's blend against a white matte for
// partially transparent pixels.
func removeMatte[T uint8 | uint16](pix []T, maxVal float32) {
	for i := 0; i+3 < len(pix); i += 4 {
		a := pix[i+3]
		if a == 0 || float32(a) == maxVal {
			continue
		}
		ra := maxVal / float32(a)
		inv := maxVal * (1 - ra)
		for k := 0; k < 3; k++ {
			pix[i+k] = T(max(0, min(maxVal, float32(pix[i+k])*ra+inv)))
		}
	}
}

// Decode decodes the composite image to 8 bits per channel.
func Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h, pix16, err := decode(cur)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(pix16))
	for i, v := range pix16 {
		out[i] = byte(v >> 8)
	}
	if h.channels >= 4 {
		removeMatte(out, 255)
	}
	return codec.Finish(out, h.width, h.height, 4, opts), nil
}

// Decode16 decodes the composite image to 16 bits per channel.
func Decode16(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image16, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h, out, err := decode(cur)
	if err != nil {
		return nil, err
	}
	if h.channels >= 4 {
		removeMatte(out, 65535)
	}
	want := opts.Want(4)
	out = codec.ConvertChannels16(out, 4, want, h.width, h.height)
	if opts.Flip() {
		codec.FlipRows(out, h.width*want, h.height)
	}
	return &codec.Image16{Pix: out, Width: h.width, Height: h.height, Channels: want}, nil
}
