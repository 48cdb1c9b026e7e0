package common

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// Common errors
var (
	ErrNotJPEG           = fmt.Errorf("%w: jpeg: missing SOI marker", codec.ErrFormatMismatch)
	ErrInvalidMarker     = fmt.Errorf("%w: jpeg: invalid marker", codec.ErrMalformed)
	ErrInvalidSOF        = fmt.Errorf("%w: jpeg: invalid start of frame", codec.ErrMalformed)
	ErrInvalidDHT        = fmt.Errorf("%w: jpeg: invalid huffman table", codec.ErrMalformed)
	ErrInvalidDQT        = fmt.Errorf("%w: jpeg: invalid quantization table", codec.ErrMalformed)
	ErrInvalidSOS        = fmt.Errorf("%w: jpeg: invalid start of scan", codec.ErrMalformed)
	ErrInvalidDRI        = fmt.Errorf("%w: jpeg: invalid restart interval", codec.ErrMalformed)
	ErrBadHuffmanCode    = fmt.Errorf("%w: jpeg: bad huffman code", codec.ErrMalformed)
	ErrBadCoefficient    = fmt.Errorf("%w: jpeg: coefficient index out of range", codec.ErrMalformed)
	ErrNoFrame           = fmt.Errorf("%w: jpeg: no start of frame", codec.ErrMalformed)
	ErrInvalidDimensions = fmt.Errorf("%w: jpeg: invalid image dimensions", codec.ErrMalformed)
	ErrInvalidComponents = fmt.Errorf("%w: jpeg: invalid number of components", codec.ErrMalformed)
	ErrUnexpectedEOF     = fmt.Errorf("%w: jpeg: unexpected end of file", codec.ErrTruncated)
	ErrUnsupported       = fmt.Errorf("%w: jpeg", codec.ErrUnsupported)
	ErrInvalidQuality    = fmt.Errorf("%w: jpeg: quality must be 1-100", codec.ErrInvalidParameter)
)
