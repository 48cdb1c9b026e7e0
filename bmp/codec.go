package bmp

import (
	"io"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Codec implements codec.Decoder and codec.Encoder for BMP
type Codec struct{}

// NewCodec creates a new BMP codec
func NewCodec() *Codec {
	return &Codec{}
}

// Name returns the format name
func (c *Codec) Name() string {
	return "bmp"
}

// Probe implements codec.Decoder.
func (c *Codec) Probe(cur *stream.Cursor) bool { return Probe(cur) }

// DecodeInfo implements codec.Decoder.
func (c *Codec) DecodeInfo(cur *stream.Cursor) (codec.Info, error) { return DecodeInfo(cur) }

// Decode implements codec.Decoder.
func (c *Codec) Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	return Decode(cur, opts)
}

// Encode implements codec.Encoder. BMP takes no options.
func (c *Codec) Encode(w io.Writer, img *codec.Image, _ codec.Options) error {
	return Encode(w, img)
}

func init() {
	c := NewCodec()
	codec.RegisterDecoder(c, codec.PriorityBMP)
	codec.RegisterEncoder(c)
}
