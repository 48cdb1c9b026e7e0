package tga

import (
	"bytes"
	"io"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Encode writes img as a bottom-up true-colour or greyscale TGA. A nil
// opts uses DefaultOptions.
func Encode(w io.Writer, img *codec.Image, opts *Options) error {
	if err := codec.CheckImage(img); err != nil {
		return err
	}
	if img.Width > 0xffff || img.Height > 0xffff {
		return ErrTooLarge
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	n := img.Channels
	alpha := 0
	if n == 2 || n == 4 {
		alpha = 1
	}
	colorBytes := n - alpha
	imageType := typeTrueColor
	if colorBytes < 2 {
		imageType = typeGrey
	}
	if opts.RLE {
		imageType |= typeRLE
	}

	sw := stream.NewWriter(w)
	sw.WriteBytes(0, 0, byte(imageType), 0, 0, 0, 0, 0, 0, 0, 0, 0)
	sw.Put16LE(uint16(img.Width))
	sw.Put16LE(uint16(img.Height))
	sw.WriteBytes(byte((colorBytes+alpha)*8), byte(alpha*8))

	var px [4]byte
	put := func(p []byte) {
		if n >= 3 {
			px[0], px[1], px[2] = p[2], p[1], p[0]
			if n == 4 {
				px[3] = p[3]
			}
		} else {
			copy(px[:], p[:n])
		}
		sw.Write(px[:n])
	}

	stride := img.Stride()
	for y := img.Height - 1; y >= 0; y-- {
		row := img.Pix[y*stride : (y+1)*stride]
		at := func(x int) []byte { return row[x*n : x*n+n] }
		if !opts.RLE {
			for x := 0; x < img.Width; x++ {
				put(at(x))
			}
			continue
		}
		for x := 0; x < img.Width; {
			length, run := packet(img.Width, x, at)
			if run {
				sw.WriteByte(byte(0x80 | (length - 1)))
				put(at(x))
			} else {
				sw.WriteByte(byte(length - 1))
				for k := 0; k < length; k++ {
					put(at(x + k))
				}
			}
			x += length
		}
	}
	return sw.Flush()
}

// packet measures the RLE packet starting at x: a run of identical pixels
// or a literal stretch ending before the next pair of identical pixels.
// Packets hold at most 128 pixels.
func packet(width, x int, at func(int) []byte) (int, bool) {
	if x == width-1 {
		return 1, false
	}
	length := 2
	if bytes.Equal(at(x), at(x+1)) {
		for k := x + 2; k < width && length < 128 && bytes.Equal(at(x), at(k)); k++ {
			length++
		}
		return length, true
	}
	for k := x + 2; k < width && length < 128; k++ {
		if bytes.Equal(at(k-1), at(k)) {
			length--
			break
		}
		length++
	}
	return length, false
}
