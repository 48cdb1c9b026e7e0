package gif

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// GIF errors
var (
	ErrNotGIF        = fmt.Errorf("%w: gif: bad signature", codec.ErrFormatMismatch)
	ErrBadDescriptor = fmt.Errorf("%w: gif: bad image descriptor", codec.ErrMalformed)
	ErrNoColorTable  = fmt.Errorf("%w: gif: missing color table", codec.ErrMalformed)
	ErrBadCodeSize   = fmt.Errorf("%w: gif: bad LZW code size", codec.ErrMalformed)
	ErrNoClearCode   = fmt.Errorf("%w: gif: no clear code", codec.ErrMalformed)
	ErrIllegalCode   = fmt.Errorf("%w: gif: illegal code in raster", codec.ErrMalformed)
	ErrUnknownBlock  = fmt.Errorf("%w: gif: unknown block", codec.ErrMalformed)
	ErrNoFrames      = fmt.Errorf("%w: gif: no image", codec.ErrMalformed)
	ErrTruncated     = fmt.Errorf("%w: gif: unexpected end of file", codec.ErrTruncated)
)
