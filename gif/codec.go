package gif

import (
	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Codec implements codec.Decoder for GIF
type Codec struct{}

// NewCodec creates a new GIF codec
func NewCodec() *Codec {
	return &Codec{}
}

// Name returns the format name
func (c *Codec) Name() string {
	return "gif"
}

// Probe implements codec.Decoder.
func (c *Codec) Probe(cur *stream.Cursor) bool { return Probe(cur) }

// DecodeInfo implements codec.Decoder.
func (c *Codec) DecodeInfo(cur *stream.Cursor) (codec.Info, error) { return DecodeInfo(cur) }

// Decode implements codec.Decoder.
func (c *Codec) Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	return Decode(cur, opts)
}

func init() {
	codec.RegisterDecoder(NewCodec(), codec.PriorityGIF)
}
