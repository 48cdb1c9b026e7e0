package vorbis

// Block sizes allowed by the format.
const (
	minBlocksize = 64
	maxBlocksize = 8192
)

// Options configures a decoder.
type Options struct {
	// MaxFrameSize is the largest block size, in samples, the decoder
	// accepts. Streams declaring larger blocks fail to open. Zero allows
	// every legal size.
	MaxFrameSize int
}

// DefaultOptions returns default decoder options
func DefaultOptions() *Options {
	return &Options{MaxFrameSize: maxBlocksize}
}

// Validate validates decoder options
func (o *Options) Validate() error {
	if o.MaxFrameSize != 0 && (o.MaxFrameSize < minBlocksize || o.MaxFrameSize > maxBlocksize) {
		return ErrInvalidOptions
	}
	return nil
}

func (o *Options) maxFrame() int {
	if o == nil || o.MaxFrameSize == 0 {
		return maxBlocksize
	}
	return o.MaxFrameSize
}
