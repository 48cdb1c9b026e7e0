package bmp

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// BMP errors
var (
	ErrNotBMP     = fmt.Errorf("%w: bmp: bad signature", codec.ErrFormatMismatch)
	ErrHeaderSize = fmt.Errorf("%w: bmp: unknown DIB header size", codec.ErrMalformed)
	ErrBadPlanes  = fmt.Errorf("%w: bmp: planes must be 1", codec.ErrMalformed)
	ErrBadDepth   = fmt.Errorf("%w: bmp: bad bits per pixel", codec.ErrMalformed)
	ErrBadMasks   = fmt.Errorf("%w: bmp: bad channel masks", codec.ErrMalformed)
	ErrBadOffset  = fmt.Errorf("%w: bmp: bad pixel data offset", codec.ErrMalformed)
	ErrBadPalette = fmt.Errorf("%w: bmp: bad palette size", codec.ErrMalformed)
	ErrCompressed = fmt.Errorf("%w: bmp: RLE compression", codec.ErrUnsupported)
	ErrEmbedded   = fmt.Errorf("%w: bmp: embedded JPEG or PNG", codec.ErrUnsupported)
	ErrTruncated  = fmt.Errorf("%w: bmp: unexpected end of file", codec.ErrTruncated)
)
