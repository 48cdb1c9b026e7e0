package psd

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// PSD errors
var (
	ErrNotPSD      = fmt.Errorf("%w: psd: bad signature", codec.ErrFormatMismatch)
	ErrBadVersion  = fmt.Errorf("%w: psd: wrong version", codec.ErrMalformed)
	ErrBadChannels = fmt.Errorf("%w: psd: bad channel count", codec.ErrMalformed)
	ErrBadDepth    = fmt.Errorf("%w: psd: bit depth must be 8 or 16", codec.ErrUnsupported)
	ErrColorMode   = fmt.Errorf("%w: psd: color mode is not RGB", codec.ErrUnsupported)
	ErrCompression = fmt.Errorf("%w: psd: bad compression type", codec.ErrMalformed)
	ErrBadRLE      = fmt.Errorf("%w: psd: corrupt RLE data", codec.ErrMalformed)
	ErrTruncated   = fmt.Errorf("%w: psd: unexpected end of file", codec.ErrTruncated)
)
