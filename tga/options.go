package tga

// Options contains encoding options for TGA
type Options struct {
	// RLE selects run-length encoded pixel packets.
	RLE bool
}

// DefaultOptions returns the default encoding options: RLE on.
func DefaultOptions() *Options {
	return &Options{RLE: true}
}

// Validate validates the options
func (o *Options) Validate() error {
	return nil
}
