package bmp

import (
	"io"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

const (
	infoHeaderLen = 40
	v4HeaderLen   = 108
	lcsSRGB       = 0x73524742 // 'sRGB'
)

// Encode writes img as an uncompressed bottom-up bitmap. Grey and RGB
// images become 24-bit BGR. Images with alpha become 32-bit BGRA with a
// V4 header carrying the channel masks.
func Encode(w io.Writer, img *codec.Image) error {
	if err := codec.CheckImage(img); err != nil {
		return err
	}
	alpha := img.Channels == 2 || img.Channels == 4
	hsz, bpp, compression := infoHeaderLen, 24, biRGB
	if alpha {
		hsz, bpp, compression = v4HeaderLen, 32, biBitFields
	}
	rowBytes := (img.Width*bpp/8 + 3) &^ 3
	offset := fileHeaderLen + hsz

	sw := stream.NewWriter(w)
	sw.WriteBytes('B', 'M')
	sw.Put32LE(uint32(offset + rowBytes*img.Height))
	sw.Put32LE(0)
	sw.Put32LE(uint32(offset))

	sw.Put32LE(uint32(hsz))
	sw.Put32LE(uint32(img.Width))
	sw.Put32LE(uint32(img.Height))
	sw.Put16LE(1)
	sw.Put16LE(uint16(bpp))
	sw.Put32LE(uint32(compression))
	sw.Put32LE(uint32(rowBytes * img.Height))
	sw.Put32LE(2835) // 72 dpi
	sw.Put32LE(2835)
	sw.Put32LE(0)
	sw.Put32LE(0)
	if alpha {
		sw.Put32LE(0x00ff0000)
		sw.Put32LE(0x0000ff00)
		sw.Put32LE(0x000000ff)
		sw.Put32LE(0xff000000)
		sw.Put32LE(lcsSRGB)
		sw.Write(make([]byte, 36+12)) // endpoints and gamma
	}

	n := img.Channels
	row := make([]byte, rowBytes)
	for y := img.Height - 1; y >= 0; y-- {
		src := img.Pix[y*img.Stride() : (y+1)*img.Stride()]
		o := 0
		for x := 0; x < img.Width; x++ {
			p := src[x*n : x*n+n]
			switch n {
			case 1, 2:
				row[o], row[o+1], row[o+2] = p[0], p[0], p[0]
			default:
				row[o], row[o+1], row[o+2] = p[2], p[1], p[0]
			}
			o += 3
			if alpha {
				row[o] = p[n-1]
				o++
			}
		}
		sw.Write(row)
	}
	return sw.Flush()
}
