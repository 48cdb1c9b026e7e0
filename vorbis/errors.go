package vorbis

import (
	"errors"
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// Vorbis errors
var (
	ErrNotVorbis      = fmt.Errorf("%w: vorbis: not an Ogg Vorbis stream", codec.ErrFormatMismatch)
	ErrBadPage        = fmt.Errorf("%w: vorbis: bad Ogg page", codec.ErrMalformed)
	ErrBadCRC         = fmt.Errorf("%w: vorbis: page checksum mismatch", codec.ErrMalformed)
	ErrBadHeader      = fmt.Errorf("%w: vorbis: invalid header", codec.ErrMalformed)
	ErrBadCodebook    = fmt.Errorf("%w: vorbis: invalid codebook", codec.ErrMalformed)
	ErrBadPacket      = fmt.Errorf("%w: vorbis: invalid audio packet", codec.ErrMalformed)
	ErrFloor0         = fmt.Errorf("%w: vorbis: floor type 0", codec.ErrUnsupported)
	ErrFrameTooLarge  = fmt.Errorf("%w: vorbis: block size above limit", codec.ErrUnsupported)
	ErrTruncated      = fmt.Errorf("%w: vorbis: unexpected end of stream", codec.ErrTruncated)
	ErrNeedMoreData   = fmt.Errorf("%w: vorbis: need more data", codec.ErrTruncated)
	ErrSeekRange      = fmt.Errorf("%w: vorbis: seek position out of range", codec.ErrInvalidParameter)
	ErrInvalidOptions = fmt.Errorf("%w: vorbis: invalid options", codec.ErrInvalidParameter)
	ErrClosed         = errors.New("vorbis: decoder closed")
)
