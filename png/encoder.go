package png

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/deflate"
	"github.com/cocosip/go-media-codec/stream"
)

var colorTypes = [5]byte{0, ctGrey, ctGreyAlpha, ctRGB, ctRGBA}

// Encode writes an 8-bit image as PNG.
func Encode(w io.Writer, img *codec.Image, opts *Options) error {
	if err := codec.CheckImage(img); err != nil {
		return err
	}
	rowLen := img.Width * img.Channels
	return encode(w, img.Width, img.Height, img.Channels, 8, opts, func(y int) []byte {
		return img.Pix[y*rowLen : (y+1)*rowLen]
	})
}

// Encode16 writes a 16-bit image as PNG.
func Encode16(w io.Writer, img *codec.Image16, opts *Options) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 || img.Channels < 1 || img.Channels > 4 ||
		len(img.Pix) < img.Width*img.Height*img.Channels {
		return fmt.Errorf("%w: png: bad 16-bit image", codec.ErrInvalidParameter)
	}
	rowLen := img.Width * img.Channels
	row := make([]byte, rowLen*2)
	return encode(w, img.Width, img.Height, img.Channels, 16, opts, func(y int) []byte {
		for i, v := range img.Pix[y*rowLen : (y+1)*rowLen] {
			row[2*i], row[2*i+1] = byte(v>>8), byte(v)
		}
		return row
	})
}

// encode filters the rows supplied by rowAt, compresses them and writes
// the chunk stream.
func encode(w io.Writer, width, height, channels, depth int, opts *Options, rowAt func(y int) []byte) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if width > 0x7fffffff || height > 0x7fffffff {
		return fmt.Errorf("%w: png: %dx%d", codec.ErrInvalidParameter, width, height)
	}

	stride := width * channels * depth / 8
	bpp := channels * depth / 8
	filtered := make([]byte, 0, height*(stride+1))
	prior := make([]byte, stride)
	cur := make([]byte, stride)
	best := make([]byte, stride)
	tmp := make([]byte, stride)

	for y := 0; y < height; y++ {
		copy(cur, rowAt(y))
		ft := ftNone
		if opts.FilterMode != FilterAuto {
			ft = int(opts.FilterMode - FilterNone)
			filterRow(ft, best, cur, prior, bpp)
		} else {
			bestSum := -1
			for f := ftNone; f < numFilters; f++ {
				s := filterRow(f, tmp, cur, prior, bpp)
				if bestSum < 0 || s < bestSum {
					bestSum, ft = s, f
					best, tmp = tmp, best
				}
			}
		}
		filtered = append(filtered, byte(ft))
		filtered = append(filtered, best...)
		prior, cur = cur, prior
	}

	z, err := compress(filtered, opts)
	if err != nil {
		return err
	}

	sw := stream.NewWriter(w)
	sw.WriteBytes(signature[:]...)

	var ihdr [13]byte
	putU32(ihdr[0:], uint32(width))
	putU32(ihdr[4:], uint32(height))
	ihdr[8] = byte(depth)
	ihdr[9] = colorTypes[channels]
	writeChunk(sw, "IHDR", ihdr[:])
	writeChunk(sw, "IDAT", z)
	writeChunk(sw, "IEND", nil)
	return sw.Flush()
}

func compress(data []byte, opts *Options) ([]byte, error) {
	switch opts.Compression {
	case CompressionBest, CompressionNone:
		level := zlib.BestCompression
		if opts.Compression == CompressionNone {
			level = zlib.NoCompression
		}
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionFast:
		return deflate.DeflateZlib(data, 5), nil
	}
	q := opts.Quality
	if q == 0 {
		q = deflate.DefaultQuality
	}
	return deflate.DeflateZlib(data, q), nil
}

func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
}

func writeChunk(w *stream.Writer, typ string, data []byte) {
	w.Put32BE(uint32(len(data)))
	crc := crc32.NewIEEE()
	_, _ = io.WriteString(crc, typ)
	_, _ = crc.Write(data)
	_, _ = io.WriteString(w, typ)
	_, _ = w.Write(data)
	w.Put32BE(crc.Sum32())
}
