// Package resize scales images with separable windowed filters.
//
// Each axis is filtered independently. Source rows are decoded to float,
// optionally converted from sRGB and premultiplied by alpha, filtered
// horizontally into a ring of rows and then combined vertically.
package resize

import (
	"log/slog"

	"github.com/cocosip/go-media-codec/codec"
)

// Colorspace describes how colour samples are encoded.
type Colorspace int

// Colour spaces
const (
	Linear Colorspace = iota
	SRGB
)

// NoAlpha marks an image without an alpha channel.
const NoAlpha = -1

const maxChannels = 64

// Params configures a resize.
type Params struct {
	Channels int

	// AlphaChannel is the index of the alpha channel or NoAlpha.
	AlphaChannel int

	// Premultiplied marks colour channels as already multiplied by alpha.
	// Without it colour is premultiplied while filtering and divided back
	// afterwards.
	Premultiplied bool

	// AlphaUsesColorspace applies the sRGB curve to alpha as well.
	AlphaUsesColorspace bool

	FilterH, FilterV Filter
	EdgeH, EdgeV     Edge
	Colorspace       Colorspace

	// S0, T0, S1, T1 select the source region in normalised coordinates.
	// All zero selects the whole image.
	S0, T0, S1, T1 float64
}

// DefaultParams returns parameters for an interleaved image with the
// alpha channel last when the channel count is 2 or 4.
func DefaultParams(channels int) *Params {
	alpha := NoAlpha
	if channels == 2 || channels == 4 {
		alpha = channels - 1
	}
	return &Params{Channels: channels, AlphaChannel: alpha}
}

// Validate validates resize parameters
func (p *Params) Validate() error {
	if p == nil {
		return ErrNoParams
	}
	if p.Channels < 1 || p.Channels > maxChannels {
		return ErrChannels
	}
	if p.AlphaChannel < NoAlpha || p.AlphaChannel >= p.Channels {
		return ErrAlphaChannel
	}
	if !p.FilterH.valid() || !p.FilterV.valid() {
		return ErrFilter
	}
	if !p.EdgeH.valid() || !p.EdgeV.valid() {
		return ErrEdge
	}
	if p.Colorspace != Linear && p.Colorspace != SRGB {
		return ErrColorspace
	}
	s0, t0, s1, t1 := p.region()
	if s0 < 0 || t0 < 0 || s1 > 1 || t1 > 1 || s0 >= s1 || t0 >= t1 {
		return ErrRegion
	}
	return nil
}

func (p *Params) region() (s0, t0, s1, t1 float64) {
	if p.S0 == 0 && p.T0 == 0 && p.S1 == 0 && p.T1 == 0 {
		return 0, 0, 1, 1
	}
	return p.S0, p.T0, p.S1, p.T1
}

// Buffer is an interleaved image plane.
type Buffer[T Sample] struct {
	Pix    []T
	Width  int
	Height int
	// Stride is the row length in samples. Zero means Width*channels.
	Stride int
}

func (b *Buffer[T]) stride(channels int) int {
	if b.Stride == 0 {
		return b.Width * channels
	}
	return b.Stride
}

func (b *Buffer[T]) check(channels int) error {
	if b.Width <= 0 || b.Height <= 0 {
		return ErrBuffer
	}
	stride := b.stride(channels)
	if stride < b.Width*channels || len(b.Pix) < (b.Height-1)*stride+b.Width*channels {
		return ErrBuffer
	}
	return nil
}

func (b *Buffer[T]) row(y, channels int) []T {
	off := y * b.stride(channels)
	return b.Pix[off : off+b.Width*channels]
}

// resizer holds the scratch state of one Resize call.
type resizer[T Sample] struct {
	p        *Params
	src, dst *Buffer[T]
	rng      float64 // value of 1.0 for integer samples, 0 for floats

	h, v axis

	// keep holds per output row the lowest source row still read when
	// gathering vertically; below holds per source row the lowest output
	// row still written when scattering.
	keep  []int
	below []int

	decoded []float32
	row     []float32

	// When gathering, ring[(head+k)%len] holds filtered source row
	// first+k. When scattering it holds the accumulator of output row
	// first+k.
	ring  [][]float32
	head  int
	first int
	count int

	out []float32
}

// Resize resamples src into dst. Both buffers hold p.Channels interleaved
// samples per pixel.
func Resize[T Sample](dst, src *Buffer[T], p *Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if dst == nil || src == nil {
		return ErrBuffer
	}
	if err := src.check(p.Channels); err != nil {
		return err
	}
	if err := dst.check(p.Channels); err != nil {
		return err
	}

	s0, t0, s1, t1 := p.region()
	r := &resizer[T]{
		p:       p,
		src:     src,
		dst:     dst,
		rng:     sampleRange[T](),
		h:       newAxis(p.FilterH, src.Width, dst.Width, s0, s1),
		v:       newAxis(p.FilterV, src.Height, dst.Height, t0, t1),
		decoded: make([]float32, src.Width*p.Channels),
		out:     make([]float32, dst.Width*p.Channels),
	}
	var window int
	if r.v.gather {
		r.keep, window = retain(r.v.taps)
	} else {
		r.below, window = flushable(r.v.taps, dst.Height)
		r.row = make([]float32, dst.Width*p.Channels)
	}
	r.ring = make([][]float32, window)
	for i := range r.ring {
		r.ring[i] = make([]float32, dst.Width*p.Channels)
	}
	slog.Debug("resize: start",
		slog.Int("srcWidth", src.Width), slog.Int("srcHeight", src.Height),
		slog.Int("dstWidth", dst.Width), slog.Int("dstHeight", dst.Height),
		slog.Bool("gatherH", r.h.gather), slog.Bool("gatherV", r.v.gather),
		slog.Int("ring", window))

	if r.v.gather {
		for y := range r.v.taps {
			r.verticalRow(y)
		}
		return nil
	}
	for k := range r.v.taps {
		r.scatterRow(k)
	}
	r.flush(dst.Height)
	return nil
}

func (r *resizer[T]) slot(k int) []float32 {
	return r.ring[(r.head+k)%len(r.ring)]
}

// verticalRow produces output row y from the ring of filtered source rows.
func (r *resizer[T]) verticalRow(y int) {
	c := r.v.taps[y]

	// release rows no later output row reads
	for r.count > 0 && r.first < r.keep[y] {
		r.first++
		r.head = (r.head + 1) % len(r.ring)
		r.count--
	}
	if r.count == 0 {
		r.first = r.keep[y]
	}
	for r.first+r.count <= c.last() {
		r.horizontalRow(r.first+r.count, r.slot(r.count))
		r.count++
	}

	clear(r.out)
	for j, w := range c.weights {
		row := r.slot(c.first - r.first + j)
		for i, v := range row {
			r.out[i] += w * v
		}
	}
	r.encodeRow(r.out, r.dst.row(y, r.p.Channels))
}

// scatterRow filters virtual source row base+k and adds it to every output
// row accumulator it reaches. Output rows no later source row reaches are
// encoded first.
func (r *resizer[T]) scatterRow(k int) {
	r.flush(r.below[k])
	c := r.v.taps[k]
	if len(c.weights) == 0 {
		return
	}
	r.horizontalRow(r.v.base+k, r.row)
	for j, w := range c.weights {
		acc := r.slot(c.first + j - r.first)
		for i, v := range r.row {
			acc[i] += w * v
		}
	}
}

// flush encodes and releases output rows below y.
func (r *resizer[T]) flush(y int) {
	for r.first < y {
		acc := r.slot(0)
		r.encodeRow(acc, r.dst.row(r.first, r.p.Channels))
		clear(acc)
		r.head = (r.head + 1) % len(r.ring)
		r.first++
	}
}

// horizontalRow filters virtual source row sy into out.
func (r *resizer[T]) horizontalRow(sy int, out []float32) {
	sy = r.p.EdgeV.index(sy, r.src.Height)
	if sy < 0 {
		clear(out)
		return
	}
	r.decodeRow(r.src.row(sy, r.p.Channels))

	n := r.p.Channels
	if !r.h.gather {
		clear(out)
		for k, c := range r.h.taps {
			sx := r.p.EdgeH.index(r.h.base+k, r.src.Width)
			if sx < 0 {
				continue
			}
			in := r.decoded[sx*n : sx*n+n]
			for j, w := range c.weights {
				px := out[(c.first+j)*n : (c.first+j)*n+n]
				for ch := range px {
					px[ch] += w * in[ch]
				}
			}
		}
		return
	}
	for x, c := range r.h.taps {
		px := out[x*n : x*n+n]
		clear(px)
		for j, w := range c.weights {
			sx := r.p.EdgeH.index(c.first+j, r.src.Width)
			if sx < 0 {
				continue
			}
			in := r.decoded[sx*n : sx*n+n]
			for k := range px {
				px[k] += w * in[k]
			}
		}
	}
}

// coloured reports whether channel k follows the colour space curve.
func (r *resizer[T]) coloured(k int) bool {
	return r.p.Colorspace == SRGB && (k != r.p.AlphaChannel || r.p.AlphaUsesColorspace)
}

func (r *resizer[T]) premultiplies() bool {
	return r.p.AlphaChannel != NoAlpha && !r.p.Premultiplied
}

func (r *resizer[T]) decodeRow(row []T) {
	n := r.p.Channels
	for i, v := range row {
		k := i % n
		switch {
		case r.rng == 255 && r.coloured(k):
			r.decoded[i] = srgbToLinear8[uint8(v)]
		case r.rng == 0:
			f := float64(v)
			if r.coloured(k) {
				f = srgbToLinear(f)
			}
			r.decoded[i] = float32(f)
		default:
			f := float64(v) / r.rng
			if r.coloured(k) {
				f = srgbToLinear(f)
			}
			r.decoded[i] = float32(f)
		}
	}
	if !r.premultiplies() {
		return
	}
	a := r.p.AlphaChannel
	for px := 0; px < len(r.decoded); px += n {
		alpha := r.decoded[px+a]
		for k := 0; k < n; k++ {
			if k != a {
				r.decoded[px+k] *= alpha
			}
		}
	}
}

func (r *resizer[T]) encodeRow(in []float32, row []T) {
	n := r.p.Channels
	if r.premultiplies() {
		a := r.p.AlphaChannel
		for px := 0; px < len(in); px += n {
			alpha := in[px+a]
			if alpha == 0 {
				continue
			}
			for k := 0; k < n; k++ {
				if k != a {
					in[px+k] /= alpha
				}
			}
		}
	}
	for i, f := range in {
		v := float64(f)
		if r.rng != 0 {
			v = min(max(v, 0), 1)
		}
		if r.coloured(i % n) {
			v = linearToSRGB(max(v, 0))
		}
		if r.rng == 0 {
			row[i] = T(v)
			continue
		}
		row[i] = T(min(max(v, 0), 1)*r.rng + 0.5)
	}
}

// ResizeUint8 resizes an 8-bit image with default filters and clamped
// edges, treating samples as linear.
func ResizeUint8(img *codec.Image, width, height int) (*codec.Image, error) {
	return resizeImage(img, width, height, Linear)
}

// ResizeUint8SRGB is ResizeUint8 for sRGB-encoded colour.
func ResizeUint8SRGB(img *codec.Image, width, height int) (*codec.Image, error) {
	return resizeImage(img, width, height, SRGB)
}

func resizeImage(img *codec.Image, width, height int, cs Colorspace) (*codec.Image, error) {
	if err := codec.CheckImage(img); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, ErrBuffer
	}
	p := DefaultParams(img.Channels)
	p.Colorspace = cs
	out := &codec.Image{Pix: make([]byte, width*height*img.Channels), Width: width, Height: height, Channels: img.Channels}
	src := &Buffer[uint8]{Pix: img.Pix, Width: img.Width, Height: img.Height}
	dst := &Buffer[uint8]{Pix: out.Pix, Width: width, Height: height}
	if err := Resize(dst, src, p); err != nil {
		return nil, err
	}
	return out, nil
}

// ResizeFloat resizes a float image with default filters. Values are not
// clamped.
func ResizeFloat(img *codec.ImageFloat, width, height int) (*codec.ImageFloat, error) {
	if img == nil || img.Channels < 1 || img.Channels > 4 {
		return nil, ErrBuffer
	}
	if width <= 0 || height <= 0 {
		return nil, ErrBuffer
	}
	out := &codec.ImageFloat{Pix: make([]float32, width*height*img.Channels), Width: width, Height: height, Channels: img.Channels}
	src := &Buffer[float32]{Pix: img.Pix, Width: img.Width, Height: img.Height}
	dst := &Buffer[float32]{Pix: out.Pix, Width: width, Height: height}
	if err := Resize(dst, src, DefaultParams(img.Channels)); err != nil {
		return nil, err
	}
	return out, nil
}
