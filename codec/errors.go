package codec

import "errors"

// Error kinds. Every codec wraps one of these so callers can tell a probe
// miss from corrupt data from data a codec deliberately does not handle.
var (
	// ErrFormatMismatch is returned when the data is not in the probed format.
	// It is not fatal during autodetection.
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrMalformed is returned for bad signatures, invalid header fields,
	// checksum mismatches and entropy decode failures.
	ErrMalformed = errors.New("malformed stream")

	// ErrUnsupported is returned for valid data using a feature the codec
	// does not implement.
	ErrUnsupported = errors.New("unsupported feature")

	// ErrOutOfMemory is returned when a header asks for an allocation
	// beyond the configured limits.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrTruncated is returned when the source ends before a required
	// field was read.
	ErrTruncated = errors.New("truncated input")

	// ErrCodecNotFound is returned when a codec is not found in the registry
	ErrCodecNotFound = errors.New("codec not found")

	// ErrInvalidParameter is returned when encoding/decoding parameters are invalid
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidQuality is returned when quality parameter is invalid
	ErrInvalidQuality = errors.New("invalid quality (must be 1-100)")
)
