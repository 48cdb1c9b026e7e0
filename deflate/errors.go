package deflate

import (
	"fmt"

	"github.com/cocosip/go-media-codec/codec"
)

// Decode errors. Each wraps a codec error kind.
var (
	ErrBadBlockType    = fmt.Errorf("%w: deflate: bad block type", codec.ErrMalformed)
	ErrBadStoredLength = fmt.Errorf("%w: deflate: corrupt stored block length", codec.ErrMalformed)
	ErrBadCodeLengths  = fmt.Errorf("%w: deflate: bad code lengths", codec.ErrMalformed)
	ErrBadHuffmanCode  = fmt.Errorf("%w: deflate: bad huffman code", codec.ErrMalformed)
	ErrBadDistance     = fmt.Errorf("%w: deflate: bad distance", codec.ErrMalformed)
	ErrBadZlibHeader   = fmt.Errorf("%w: deflate: bad zlib header", codec.ErrMalformed)
	ErrBadChecksum     = fmt.Errorf("%w: deflate: adler32 mismatch", codec.ErrMalformed)
	ErrPresetDict      = fmt.Errorf("%w: deflate: preset dictionary", codec.ErrUnsupported)
	ErrTruncated       = fmt.Errorf("%w: deflate: unexpected end of stream", codec.ErrTruncated)
	ErrTooLarge        = fmt.Errorf("%w: deflate: output exceeds limit", codec.ErrOutOfMemory)
)
