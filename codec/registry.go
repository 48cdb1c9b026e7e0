package codec

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/cocosip/go-media-codec/stream"
)

// Probe order used by autodetection. Formats with weak signatures probe last.
const (
	PriorityJPEG = 10
	PriorityPNG  = 20
	PriorityGIF  = 30
	PriorityBMP  = 40
	PriorityPSD  = 50
	PriorityHDR  = 60
	PriorityTGA  = 70
)

type decoderEntry struct {
	dec      Decoder
	priority int
}

// Registry manages the available codecs
type Registry struct {
	mu       sync.RWMutex
	decoders []decoderEntry
	encoders map[string]Encoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[string]Encoder)}
}

var defaultRegistry = NewRegistry()

// RegisterDecoder adds a decoder to the default registry.
func RegisterDecoder(dec Decoder, priority int) {
	defaultRegistry.RegisterDecoder(dec, priority)
}

// RegisterEncoder adds an encoder to the default registry.
func RegisterEncoder(enc Encoder) {
	defaultRegistry.RegisterEncoder(enc)
}

// Get retrieves a decoder by name from the default registry.
func Get(name string) (Decoder, error) {
	return defaultRegistry.Get(name)
}

// List returns the registered decoders in probe order.
func List() []Decoder {
	return defaultRegistry.List()
}

// Decode autodetects the format of cur and decodes it.
func Decode(cur *stream.Cursor, opts *DecodeOptions) (*Image, string, error) {
	return defaultRegistry.Decode(cur, opts)
}

// DecodeInfo autodetects the format of cur and reads its header.
func DecodeInfo(cur *stream.Cursor) (Info, string, error) {
	return defaultRegistry.DecodeInfo(cur)
}

// Encode writes img in the named format.
func Encode(w io.Writer, format string, img *Image, opts Options) error {
	return defaultRegistry.Encode(w, format, img, opts)
}

// RegisterDecoder registers a decoder. Lower priorities are probed first;
// registering the same name twice replaces the earlier entry.
func (r *Registry) RegisterDecoder(dec Decoder, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decoders = slices.DeleteFunc(r.decoders, func(e decoderEntry) bool {
		return e.dec.Name() == dec.Name()
	})
	r.decoders = append(r.decoders, decoderEntry{dec: dec, priority: priority})
	slices.SortStableFunc(r.decoders, func(a, b decoderEntry) int {
		return a.priority - b.priority
	})
}

// RegisterEncoder registers an encoder by name.
func (r *Registry) RegisterEncoder(enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[enc.Name()] = enc
}

// Get retrieves a decoder by name
func (r *Registry) Get(name string) (Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.decoders {
		if e.dec.Name() == name {
			return e.dec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCodecNotFound, name)
}

// List returns all registered decoders in probe order
func (r *Registry) List() []Decoder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Decoder, len(r.decoders))
	for i, e := range r.decoders {
		out[i] = e.dec
	}
	return out
}

// Detect probes every decoder in order and returns the first match. The
// cursor is rewound between probes.
func (r *Registry) Detect(cur *stream.Cursor) (Decoder, error) {
	for _, dec := range r.List() {
		ok := dec.Probe(cur)
		if err := cur.Rewind(); err != nil {
			return nil, err
		}
		if ok {
			return dec, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown image type", ErrFormatMismatch)
}

// Decode detects the format and decodes the image, returning the format name.
func (r *Registry) Decode(cur *stream.Cursor, opts *DecodeOptions) (*Image, string, error) {
	if err := opts.Validate(); err != nil {
		return nil, "", err
	}
	dec, err := r.Detect(cur)
	if err != nil {
		return nil, "", err
	}
	slog.Debug("codec: format detected", slog.String("format", dec.Name()))
	cur.Commit()
	img, err := dec.Decode(cur, opts)
	if err != nil {
		return nil, dec.Name(), err
	}
	return img, dec.Name(), nil
}

// DecodeInfo detects the format and reads its header. The cursor is rewound.
func (r *Registry) DecodeInfo(cur *stream.Cursor) (Info, string, error) {
	dec, err := r.Detect(cur)
	if err != nil {
		return Info{}, "", err
	}
	info, err := dec.DecodeInfo(cur)
	return info, dec.Name(), err
}

// Encode writes img with the named encoder.
func (r *Registry) Encode(w io.Writer, format string, img *Image, opts Options) error {
	r.mu.RLock()
	enc, ok := r.encoders[format]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: encoder %s", ErrCodecNotFound, format)
	}
	if opts != nil {
		if err := opts.Validate(); err != nil {
			return err
		}
	}
	return enc.Encode(w, img, opts)
}
