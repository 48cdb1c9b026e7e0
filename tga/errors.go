package tga

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// TGA errors
var (
	ErrNotTGA      = fmt.Errorf("%w: tga: unrecognised header", codec.ErrFormatMismatch)
	ErrBadColorMap = fmt.Errorf("%w: tga: bad color map", codec.ErrMalformed)
	ErrTruncated   = fmt.Errorf("%w: tga: unexpected end of file", codec.ErrTruncated)
	ErrTooLarge    = fmt.Errorf("%w: tga: dimensions exceed 65535", codec.ErrInvalidParameter)
)
