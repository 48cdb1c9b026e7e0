// Package dxt compresses RGBA pixels to the BC1 (DXT1), BC3 (DXT5), BC4
// and BC5 block formats.
//
// Colour endpoints are found along the principal axis of each 4x4 block
// and refined by least squares. Alpha and single-channel blocks use the
// block extremes with optimal index rounding.
package dxt

import (
	"log/slog"

	"github.com/cocosip/go-media-codec/common"
)

// Block sizes in bytes.
const (
	BC1BlockSize = 8
	BC3BlockSize = 16
	BC4BlockSize = 8
	BC5BlockSize = 16
)

// Mode selects the speed/quality trade-off.
type Mode int

// Modes. ModeHighQuality refines endpoints twice instead of once.
const (
	ModeNormal Mode = iota
	ModeHighQuality
)

// Options configures colour block compression.
type Options struct {
	Mode Mode

	// Dither diffuses the 5-6-5 quantisation error across the block before
	// choosing endpoints.
	Dither bool

	// Refinements overrides the number of least-squares passes (1 or 2).
	// Zero uses the mode default.
	Refinements int
}

// DefaultOptions returns default compression options
func DefaultOptions() *Options {
	return &Options{Mode: ModeNormal}
}

// Validate validates compression options
func (o *Options) Validate() error {
	if o.Mode != ModeNormal && o.Mode != ModeHighQuality {
		return ErrInvalidOptions
	}
	if o.Refinements < 0 || o.Refinements > 2 {
		return ErrInvalidOptions
	}
	return nil
}

func (o *Options) refinements() int {
	if o.Refinements > 0 {
		return o.Refinements
	}
	if o.Mode == ModeHighQuality {
		return 2
	}
	return 1
}

// CompressBlock encodes 16 RGBA pixels. With alpha it writes a 16-byte
// BC3 block, otherwise an 8-byte BC1 block. dst must be large enough.
func CompressBlock(dst []byte, block *[64]byte, alpha bool, opts *Options) {
	if opts == nil {
		opts = DefaultOptions()
	}
	initTables()
	if alpha {
		compressAlphaBlock(dst, block[3:], 4)
		dst = dst[8:]
	}
	compressColorBlock(dst, block, opts.Dither, opts.refinements())
}

// CompressAlphaBlock encodes 16 single-channel samples as a BC4 block.
func CompressAlphaBlock(dst []byte, block *[16]byte) {
	compressAlphaBlock(dst, block[:], 1)
}

// CompressBC5Block encodes 16 interleaved two-channel samples as a BC5
// block.
func CompressBC5Block(dst []byte, block *[32]byte) {
	compressAlphaBlock(dst, block[:], 2)
	compressAlphaBlock(dst[8:], block[1:], 2)
}

// DecompressBlock expands a BC1 block, or a BC3 block when alpha is set,
// into 16 RGBA pixels.
func DecompressBlock(dst *[64]byte, src []byte, alpha bool) {
	initTables()
	if !alpha {
		decompressColorBlock(dst, src, false)
		return
	}
	decompressColorBlock(dst, src[8:], true)
	decompressAlphaBlock(dst[3:], 4, src)
}

// CompressedSize returns the encoded size of a width x height image.
func CompressedSize(width, height, blockSize int) int {
	return common.DivCeil(width, 4) * common.DivCeil(height, 4) * blockSize
}

// gatherBlock copies the 4x4 block at (bx, by) from an interleaved image,
// replicating edge pixels past the border.
func gatherBlock(dst []byte, pix []byte, width, height, channels, bx, by int) {
	for y := 0; y < 4; y++ {
		sy := min(by+y, height-1)
		for x := 0; x < 4; x++ {
			sx := min(bx+x, width-1)
			copy(dst[(y*4+x)*channels:(y*4+x+1)*channels], pix[(sy*width+sx)*channels:])
		}
	}
}

func checkImage(pix []byte, width, height, channels int) error {
	if width <= 0 || height <= 0 {
		return ErrDimensions
	}
	if len(pix) < width*height*channels {
		return ErrShortBuffer
	}
	return nil
}

// Compress encodes an RGBA image as BC3 when alpha is set, otherwise BC1.
// Partial blocks at the right and bottom edges repeat the last pixel.
func Compress(pix []byte, width, height int, alpha bool, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkImage(pix, width, height, 4); err != nil {
		return nil, err
	}
	size := BC1BlockSize
	if alpha {
		size = BC3BlockSize
	}
	out := make([]byte, CompressedSize(width, height, size))
	slog.Debug("dxt: compress", slog.Int("width", width), slog.Int("height", height),
		slog.Bool("alpha", alpha), slog.Int("refinements", opts.refinements()))

	var block [64]byte
	off := 0
	for by := 0; by < height; by += 4 {
		for bx := 0; bx < width; bx += 4 {
			gatherBlock(block[:], pix, width, height, 4, bx, by)
			CompressBlock(out[off:], &block, alpha, opts)
			off += size
		}
	}
	return out, nil
}

// CompressBC4 encodes a single-channel image as BC4.
func CompressBC4(pix []byte, width, height int) ([]byte, error) {
	if err := checkImage(pix, width, height, 1); err != nil {
		return nil, err
	}
	out := make([]byte, CompressedSize(width, height, BC4BlockSize))
	var block [16]byte
	off := 0
	for by := 0; by < height; by += 4 {
		for bx := 0; bx < width; bx += 4 {
			gatherBlock(block[:], pix, width, height, 1, bx, by)
			CompressAlphaBlock(out[off:], &block)
			off += BC4BlockSize
		}
	}
	return out, nil
}

// CompressBC5 encodes an interleaved two-channel image as BC5.
func CompressBC5(pix []byte, width, height int) ([]byte, error) {
	if err := checkImage(pix, width, height, 2); err != nil {
		return nil, err
	}
	out := make([]byte, CompressedSize(width, height, BC5BlockSize))
	var block [32]byte
	off := 0
	for by := 0; by < height; by += 4 {
		for bx := 0; bx < width; bx += 4 {
			gatherBlock(block[:], pix, width, height, 2, bx, by)
			CompressBC5Block(out[off:], &block)
			off += BC5BlockSize
		}
	}
	return out, nil
}
