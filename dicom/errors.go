package dicom

import (
	"fmt"

	mcodec "github.com/cocosip/go-media-codec/codec"
)

// Adapter errors
var (
	ErrNilPixelData      = fmt.Errorf("%w: dicom: source and destination pixel data are required", mcodec.ErrInvalidParameter)
	ErrNoFrameInfo       = fmt.Errorf("%w: dicom: missing frame info", mcodec.ErrInvalidParameter)
	ErrEmptyFrame        = fmt.Errorf("%w: dicom: empty frame", mcodec.ErrInvalidParameter)
	ErrFrameSize         = fmt.Errorf("%w: dicom: frame size does not match frame info", mcodec.ErrInvalidParameter)
	ErrBitDepth          = fmt.Errorf("%w: dicom: JPEG baseline holds 8-bit samples only", mcodec.ErrUnsupported)
	ErrSamplesPerPixel   = fmt.Errorf("%w: dicom: samples per pixel must be 1 or 3", mcodec.ErrUnsupported)
	ErrDimensionMismatch = fmt.Errorf("%w: dicom: decoded image does not match frame info", mcodec.ErrMalformed)
)
