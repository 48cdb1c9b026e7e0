// Package autodetect registers every image codec so the codec package can
// decode by probing. Importing it for side effects is enough:
//
//	import _ "github.com/cocosip/go-media-codec/autodetect"
//
// Formats are probed in a fixed order: JPEG, PNG, GIF, BMP, PSD, HDR, TGA.
package autodetect

import (
	"bytes"
	"io"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"

	_ "github.com/cocosip/go-media-codec/bmp"
	_ "github.com/cocosip/go-media-codec/gif"
	_ "github.com/cocosip/go-media-codec/hdr"
	_ "github.com/cocosip/go-media-codec/jpeg"
	_ "github.com/cocosip/go-media-codec/png"
	_ "github.com/cocosip/go-media-codec/psd"
	_ "github.com/cocosip/go-media-codec/tga"
)

// Decode decodes an in-memory image of any registered format and returns
// the format name.
func Decode(data []byte, opts *codec.DecodeOptions) (*codec.Image, string, error) {
	return codec.Decode(stream.FromBytes(data), opts)
}

// DecodeReader decodes an image read from r.
func DecodeReader(r io.Reader, opts *codec.DecodeOptions) (*codec.Image, string, error) {
	return codec.Decode(stream.FromReader(r), opts)
}

// Info reads the dimensions and channel count of an in-memory image.
func Info(data []byte) (codec.Info, string, error) {
	return codec.DecodeInfo(stream.FromBytes(data))
}

// Encode encodes img in the named format into a new buffer.
func Encode(format string, img *codec.Image, opts codec.Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, format, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Formats returns the registered decoder names in probe order.
func Formats() []string {
	var names []string
	for _, d := range codec.List() {
		names = append(names, d.Name())
	}
	return names
}
