package png

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// PNG errors
var (
	ErrNotPNG         = fmt.Errorf("%w: png: bad signature", codec.ErrFormatMismatch)
	ErrBadIHDR        = fmt.Errorf("%w: png: bad IHDR", codec.ErrMalformed)
	ErrFirstNotIHDR   = fmt.Errorf("%w: png: first chunk is not IHDR", codec.ErrMalformed)
	ErrBadPLTE        = fmt.Errorf("%w: png: bad PLTE", codec.ErrMalformed)
	ErrBadTRNS        = fmt.Errorf("%w: png: bad tRNS", codec.ErrMalformed)
	ErrNoPLTE         = fmt.Errorf("%w: png: palette image without PLTE", codec.ErrMalformed)
	ErrNoIDAT         = fmt.Errorf("%w: png: no IDAT", codec.ErrMalformed)
	ErrBadCRC         = fmt.Errorf("%w: png: chunk CRC mismatch", codec.ErrMalformed)
	ErrBadFilter      = fmt.Errorf("%w: png: bad filter type", codec.ErrMalformed)
	ErrNotEnoughData  = fmt.Errorf("%w: png: not enough pixel data", codec.ErrMalformed)
	ErrUnknownChunk   = fmt.Errorf("%w: png: unknown critical chunk", codec.ErrUnsupported)
	ErrTruncated      = fmt.Errorf("%w: png: unexpected end of file", codec.ErrTruncated)
	ErrInvalidOptions = fmt.Errorf("%w: png", codec.ErrInvalidParameter)
)
