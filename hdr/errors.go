package hdr

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// HDR errors
var (
	ErrNotHDR       = fmt.Errorf("%w: hdr: bad signature", codec.ErrFormatMismatch)
	ErrFormat       = fmt.Errorf("%w: hdr: format is not 32-bit_rle_rgbe", codec.ErrUnsupported)
	ErrResolution   = fmt.Errorf("%w: hdr: unsupported resolution string", codec.ErrUnsupported)
	ErrScanline     = fmt.Errorf("%w: hdr: bad scanline length", codec.ErrMalformed)
	ErrBadRLE       = fmt.Errorf("%w: hdr: corrupt RLE data", codec.ErrMalformed)
	ErrTruncated    = fmt.Errorf("%w: hdr: unexpected end of file", codec.ErrTruncated)
	ErrInvalidImage = fmt.Errorf("%w: hdr: bad float image", codec.ErrInvalidParameter)
)
