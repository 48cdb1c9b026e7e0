// Package hdr reads and writes Radiance RGBE (.hdr) images.
package hdr

import (
	"strconv"
	"strings"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

const (
	formatRGBE = "FORMAT=32-bit_rle_rgbe"
	maxLine    = 1024

	// scanlines outside this width range are never run-length encoded
	minRLEWidth = 8
	maxRLEWidth = 32767
)

var signatures = []string{"#?RADIANCE\n", "#?RGBE\n"}

// readLine returns the next header line without its newline. ok is false
// when the data ends first.
func readLine(cur *stream.Cursor) (string, bool) {
	var sb strings.Builder
	for sb.Len() < maxLine {
		if cur.AtEOF() {
			return sb.String(), false
		}
		c := cur.Byte()
		if c == '\n' {
			return sb.String(), true
		}
		sb.WriteByte(c)
	}
	return sb.String(), true
}

func readHeader(cur *stream.Cursor) (width, height int, err error) {
	line, _ := readLine(cur)
	if line+"\n" != signatures[0] && line+"\n" != signatures[1] {
		return 0, 0, ErrNotHDR
	}
	valid := false
	for {
		line, ok := readLine(cur)
		if !ok {
			return 0, 0, ErrTruncated
		}
		if line == "" {
			break
		}
		if line == formatRGBE {
			valid = true
		}
	}
	if !valid {
		return 0, 0, ErrFormat
	}

	line, ok := readLine(cur)
	if !ok {
		return 0, 0, ErrTruncated
	}
	f := strings.Fields(line)
	if len(f) != 4 || f[0] != "-Y" || f[2] != "+X" {
		return 0, 0, ErrResolution
	}
	height, err1 := strconv.Atoi(f[1])
	width, err2 := strconv.Atoi(f[3])
	if err1 != nil || err2 != nil {
		return 0, 0, ErrResolution
	}
	if err := codec.CheckDimensions(width, height, 4); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// Probe reports whether cur holds a Radiance file. The cursor is rewound.
func Probe(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	line, _ := readLine(cur)
	for _, s := range signatures {
		if line+"\n" == s {
			return true
		}
	}
	return false
}

// DecodeInfo reads the header and rewinds the cursor.
func DecodeInfo(cur *stream.Cursor) (codec.Info, error) {
	defer func() { _ = cur.Rewind() }()
	w, h, err := readHeader(cur)
	if err != nil {
		return codec.Info{}, err
	}
	return codec.Info{Width: w, Height: h, Channels: 3}, nil
}

func readFlat(cur *stream.Cursor, out []float32) error {
	var p [4]byte
	for i := 0; i < len(out); i += 3 {
		if err := cur.ReadFull(p[:]); err != nil {
			return ErrTruncated
		}
		out[i], out[i+1], out[i+2] = fromRGBE(p)
	}
	return nil
}

// readRLE decodes one component of a new-style run-length scanline.
func readRLE(cur *stream.Cursor, dst []byte) error {
	for i := 0; i < len(dst); {
		if cur.AtEOF() {
			return ErrTruncated
		}
		count := int(cur.Byte())
		if count > 128 {
			count -= 128
			if count > len(dst)-i {
				return ErrBadRLE
			}
			if cur.AtEOF() {
				return ErrTruncated
			}
			v := cur.Byte()
			for k := 0; k < count; k++ {
				dst[i+k] = v
			}
		} else {
			if count == 0 || count > len(dst)-i {
				return ErrBadRLE
			}
			if err := cur.ReadFull(dst[i : i+count]); err != nil {
				return ErrTruncated
			}
		}
		i += count
	}
	return nil
}

// decode reads the pixels as linear RGB floats.
func decode(cur *stream.Cursor) (int, int, []float32, error) {
	w, h, err := readHeader(cur)
	if err != nil {
		return 0, 0, nil, err
	}
	out := make([]float32, w*h*3)
	if w < minRLEWidth || w > maxRLEWidth {
		return w, h, out, readFlat(cur, out)
	}

	line := make([]byte, w*4)
	for y := 0; y < h; y++ {
		row := out[y*w*3:]
		var p [4]byte
		if err := cur.ReadFull(p[:]); err != nil {
			return 0, 0, nil, ErrTruncated
		}
		if p[0] != 2 || p[1] != 2 || p[2]&0x80 != 0 {
			// not run-length encoded: this was the first flat pixel and
			// the rest of the image follows in the same form
			row[0], row[1], row[2] = fromRGBE(p)
			return w, h, out, readFlat(cur, row[3:])
		}
		if int(p[2])<<8|int(p[3]) != w {
			return 0, 0, nil, ErrScanline
		}
		for k := 0; k < 4; k++ {
			if err := readRLE(cur, line[k*w:(k+1)*w]); err != nil {
				return 0, 0, nil, err
			}
		}
		for x := 0; x < w; x++ {
			row[3*x], row[3*x+1], row[3*x+2] = fromRGBE([4]byte{line[x], line[w+x], line[2*w+x], line[3*w+x]})
		}
	}
	return w, h, out, nil
}

// convertFloat maps RGB floats to 1-4 channels: grey is the mean of the
// colour channels and added alpha is 1.
func convertFloat(src []float32, want int) []float32 {
	if want == 3 {
		return src
	}
	n := len(src) / 3
	out := make([]float32, n*want)
	for i := 0; i < n; i++ {
		r, g, b := src[3*i], src[3*i+1], src[3*i+2]
		d := out[i*want:]
		switch want {
		case 1:
			d[0] = (r + g + b) / 3
		case 2:
			d[0], d[1] = (r+g+b)/3, 1
		case 4:
			d[0], d[1], d[2], d[3] = r, g, b, 1
		}
	}
	return out
}

// Decode decodes an HDR image to linear floats.
func Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.ImageFloat, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	w, h, pix, err := decode(cur)
	if err != nil {
		return nil, err
	}
	want := opts.Want(3)
	pix = convertFloat(pix, want)
	if opts.Flip() {
		codec.FlipRows(pix, w*want, h)
	}
	return &codec.ImageFloat{Pix: pix, Width: w, Height: h, Channels: want}, nil
}

// DecodeLDR decodes an HDR image and tone maps it to 8 bits with ToLDR.
func DecodeLDR(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	img, err := Decode(cur, opts)
	if err != nil {
		return nil, err
	}
	return &codec.Image{Pix: ToLDR(img.Pix, img.Channels), Width: img.Width, Height: img.Height, Channels: img.Channels}, nil
}
