package hdr

import (
	"fmt"
	"io"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Encode writes a float image as Radiance RGBE with run-length encoded
// scanlines. Grey input is written as equal RGB; alpha is dropped.
func Encode(w io.Writer, img *codec.ImageFloat) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 || img.Channels < 1 || img.Channels > 4 ||
		len(img.Pix) < img.Width*img.Height*img.Channels {
		return ErrInvalidImage
	}
	sw := stream.NewWriter(w)
	fmt.Fprintf(sw, "#?RADIANCE\n%s\n\n-Y %d +X %d\n", formatRGBE, img.Height, img.Width)

	n := img.Channels
	line := make([]byte, img.Width*4)
	for y := 0; y < img.Height; y++ {
		src := img.Pix[y*img.Width*n : (y+1)*img.Width*n]
		for x := 0; x < img.Width; x++ {
			p := src[x*n:]
			var e [4]byte
			if n <= 2 {
				e = toRGBE(p[0], p[0], p[0])
			} else {
				e = toRGBE(p[0], p[1], p[2])
			}
			for k := 0; k < 4; k++ {
				line[k*img.Width+x] = e[k]
			}
		}
		writeScanline(sw, line, img.Width)
	}
	return sw.Flush()
}

// writeScanline writes one row stored as four planes of width bytes.
func writeScanline(sw *stream.Writer, line []byte, width int) {
	if width < minRLEWidth || width > maxRLEWidth {
		for x := 0; x < width; x++ {
			sw.WriteBytes(line[x], line[width+x], line[2*width+x], line[3*width+x])
		}
		return
	}
	sw.WriteBytes(2, 2, byte(width>>8), byte(width))
	for k := 0; k < 4; k++ {
		writeRLE(sw, line[k*width:(k+1)*width])
	}
}

// writeRLE emits literal dumps up to each run of three or more equal bytes
// and the runs themselves. Dumps hold at most 128 bytes, runs 127.
func writeRLE(sw *stream.Writer, comp []byte) {
	width := len(comp)
	for x := 0; x < width; {
		r := x
		for r+2 < width && (comp[r] != comp[r+1] || comp[r] != comp[r+2]) {
			r++
		}
		if r+2 >= width {
			r = width
		}
		for x < r {
			n := min(r-x, 128)
			sw.WriteByte(byte(n))
			sw.Write(comp[x : x+n])
			x += n
		}
		if r+2 < width {
			for r < width && comp[r] == comp[x] {
				r++
			}
			for x < r {
				n := min(r-x, 127)
				sw.WriteBytes(byte(128+n), comp[x])
				x += n
			}
		}
	}
}
