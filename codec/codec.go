package codec

import (
	"fmt"
	"io"

	"github.com/cocosip/go-media-codec/stream"
)

// MaxDimension bounds width and height accepted by every decoder.
const MaxDimension = 1 << 24

// MaxPixels bounds width*height*channels for a single decoded buffer.
const MaxPixels = 1 << 30

// Info describes an image without decoding its pixels.
type Info struct {
	Width    int
	Height   int
	Channels int // 1 grey, 2 grey+alpha, 3 RGB, 4 RGBA
}

// Image is a decoded 8-bit image. Pix is row-major, interleaved,
// with stride Width*Channels.
type Image struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
}

// Image16 is a decoded 16-bit image.
type Image16 struct {
	Pix      []uint16
	Width    int
	Height   int
	Channels int
}

// ImageFloat is a decoded floating point image.
type ImageFloat struct {
	Pix      []float32
	Width    int
	Height   int
	Channels int
}

// Stride returns the row length in bytes.
func (m *Image) Stride() int { return m.Width * m.Channels }

// DecodeOptions controls the shape of decoded output.
type DecodeOptions struct {
	// Channels requests a specific channel count (1-4). Zero keeps the
	// channel count stored in the file.
	Channels int

	// FlipVertically stores the bottom row first.
	FlipVertically bool
}

// Validate validates decode options
func (o *DecodeOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.Channels < 0 || o.Channels > 4 {
		return fmt.Errorf("%w: channels %d", ErrInvalidParameter, o.Channels)
	}
	return nil
}

// Want returns the requested channel count or native if none was asked for.
func (o *DecodeOptions) Want(native int) int {
	if o == nil || o.Channels == 0 {
		return native
	}
	return o.Channels
}

// Flip reports whether rows should be flipped.
func (o *DecodeOptions) Flip() bool {
	return o != nil && o.FlipVertically
}

// Decoder is implemented by every image format that can be read.
type Decoder interface {
	// Name returns a short format name such as "png".
	Name() string

	// Probe reports whether the cursor holds this format. The cursor is
	// left at the position it had on entry.
	Probe(cur *stream.Cursor) bool

	// DecodeInfo reads the header only and rewinds the cursor.
	DecodeInfo(cur *stream.Cursor) (Info, error)

	// Decode reads a complete image.
	Decode(cur *stream.Cursor, opts *DecodeOptions) (*Image, error)
}

// Encoder is implemented by every image format that can be written.
type Encoder interface {
	Name() string
	Encode(w io.Writer, img *Image, opts Options) error
}

// Options is an interface for codec-specific encoding options
type Options interface {
	// Validate checks if the options are valid
	Validate() error
}

// BaseOptions provides common options for all codecs
type BaseOptions struct {
	// Quality factor for lossy codecs (1-100, higher is better)
	// Not used for lossless codecs
	Quality int
}

// Validate validates base options
func (o *BaseOptions) Validate() error {
	if o.Quality < 0 || o.Quality > 100 {
		return ErrInvalidQuality
	}
	return nil
}

// CheckDimensions validates image geometry against the decoder limits.
func CheckDimensions(width, height, channels int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: zero-sized image %dx%d", ErrMalformed, width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: image %dx%d too large", ErrOutOfMemory, width, height)
	}
	if int64(width)*int64(height)*int64(channels) > MaxPixels {
		return fmt.Errorf("%w: image %dx%dx%d too large", ErrOutOfMemory, width, height, channels)
	}
	return nil
}

// CheckImage validates an encoder input buffer.
func CheckImage(img *Image) error {
	if img == nil || len(img.Pix) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidParameter)
	}
	if img.Width <= 0 || img.Height <= 0 || img.Channels < 1 || img.Channels > 4 {
		return fmt.Errorf("%w: image %dx%dx%d", ErrInvalidParameter, img.Width, img.Height, img.Channels)
	}
	if len(img.Pix) < img.Width*img.Height*img.Channels {
		return fmt.Errorf("%w: pixel buffer too small", ErrInvalidParameter)
	}
	return nil
}
