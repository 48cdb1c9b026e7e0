package jpeg

import (
	"github.com/cocosip/go-media-codec/codec"
	jc "github.com/cocosip/go-media-codec/jpeg/common"
)

// DefaultQuality is used when Options.Quality is zero.
const DefaultQuality = 90

// Options contains encoding options for JPEG Baseline
type Options struct {
	codec.BaseOptions
}

// DefaultOptions returns options with the default quality.
func DefaultOptions() *Options {
	return &Options{BaseOptions: codec.BaseOptions{Quality: DefaultQuality}}
}

// Validate validates the options. Zero selects DefaultQuality.
func (o *Options) Validate() error {
	if o.Quality < 0 || o.Quality > 100 {
		return jc.ErrInvalidQuality
	}
	return nil
}
