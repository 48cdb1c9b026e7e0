package resize

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// Resize errors
var (
	ErrNoParams     = fmt.Errorf("%w: resize: nil parameters", codec.ErrInvalidParameter)
	ErrChannels     = fmt.Errorf("%w: resize: channel count out of range", codec.ErrInvalidParameter)
	ErrAlphaChannel = fmt.Errorf("%w: resize: alpha channel out of range", codec.ErrInvalidParameter)
	ErrFilter       = fmt.Errorf("%w: resize: unknown filter", codec.ErrInvalidParameter)
	ErrEdge         = fmt.Errorf("%w: resize: unknown edge mode", codec.ErrInvalidParameter)
	ErrColorspace   = fmt.Errorf("%w: resize: unknown colourspace", codec.ErrInvalidParameter)
	ErrRegion       = fmt.Errorf("%w: resize: bad source region", codec.ErrInvalidParameter)
	ErrBuffer       = fmt.Errorf("%w: resize: bad buffer geometry", codec.ErrInvalidParameter)
)
