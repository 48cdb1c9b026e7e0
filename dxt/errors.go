package dxt

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// DXT errors
var (
	ErrInvalidOptions = fmt.Errorf("%w: dxt: invalid options", codec.ErrInvalidParameter)
	ErrDimensions     = fmt.Errorf("%w: dxt: bad image dimensions", codec.ErrInvalidParameter)
	ErrShortBuffer    = fmt.Errorf("%w: dxt: pixel buffer too small", codec.ErrInvalidParameter)
)
