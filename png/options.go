package png

import "fmt"

// Compression selects the zlib stream writer.
type Compression int

const (
	// CompressionDefault uses the built-in fixed-Huffman deflater.
	CompressionDefault Compression = iota
	// CompressionFast uses the built-in deflater with the shortest hash
	// chains.
	CompressionFast
	// CompressionBest uses dynamic Huffman blocks at the best level.
	CompressionBest
	// CompressionNone writes stored blocks only.
	CompressionNone
)

// FilterMode selects the scanline filter. FilterAuto picks, per row, the
// filter with the smallest sum of absolute residuals.
type FilterMode int

const (
	FilterAuto FilterMode = iota
	FilterNone
	FilterSub
	FilterUp
	FilterAverage
	FilterPaeth
)

// Options contains encoding options for PNG
type Options struct {
	Compression Compression
	FilterMode  FilterMode

	// Quality sets the hash chain depth of the built-in deflater. Zero
	// selects deflate.DefaultQuality.
	Quality int
}

// DefaultOptions returns the default encoding options.
func DefaultOptions() *Options {
	return &Options{}
}

// Validate validates the options
func (o *Options) Validate() error {
	if o.Compression < CompressionDefault || o.Compression > CompressionNone {
		return fmt.Errorf("%w: compression %d", ErrInvalidOptions, o.Compression)
	}
	if o.FilterMode < FilterAuto || o.FilterMode > FilterPaeth {
		return fmt.Errorf("%w: filter mode %d", ErrInvalidOptions, o.FilterMode)
	}
	if o.Quality < 0 {
		return fmt.Errorf("%w: quality %d", ErrInvalidOptions, o.Quality)
	}
	return nil
}
