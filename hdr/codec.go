package hdr

import (
	"io"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Codec implements codec.Decoder and codec.Encoder for HDR. The 8-bit
// paths convert through ToLDR and FromLDR.
type Codec struct{}

// NewCodec creates a new HDR codec
func NewCodec() *Codec {
	return &Codec{}
}

// Name returns the format name
func (c *Codec) Name() string {
	return "hdr"
}

// Probe implements codec.Decoder.
func (c *Codec) Probe(cur *stream.Cursor) bool { return Probe(cur) }

// DecodeInfo implements codec.Decoder.
func (c *Codec) DecodeInfo(cur *stream.Cursor) (codec.Info, error) { return DecodeInfo(cur) }

// Decode implements codec.Decoder.
func (c *Codec) Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	return DecodeLDR(cur, opts)
}

// Encode implements codec.Encoder.
func (c *Codec) Encode(w io.Writer, img *codec.Image, _ codec.Options) error {
	if err := codec.CheckImage(img); err != nil {
		return err
	}
	n := img.Width * img.Height * img.Channels
	return Encode(w, &codec.ImageFloat{
		Pix:      FromLDR(img.Pix[:n], img.Channels),
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
	})
}

func init() {
	c := NewCodec()
	codec.RegisterDecoder(c, codec.PriorityHDR)
	codec.RegisterEncoder(c)
}
