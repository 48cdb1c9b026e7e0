package jpeg

import (
	"fmt"
	"io"

	"github.com/cocosip/go-media-codec/codec"
	jc "github.com/cocosip/go-media-codec/jpeg/common"
	"github.com/cocosip/go-media-codec/stream"
)

// Encoder represents a JPEG Baseline encoder
type Encoder struct {
	width      int
	height     int
	components int // 1 for greyscale, 3 for YCbCr
	src        *codec.Image

	qtables [2][64]int32   // natural order
	fdtbl   [2][64]float32 // reciprocal divisors including the AAN scale
	dcCodes [2][256]jc.HuffmanCode
	acCodes [2][256]jc.HuffmanCode
}

// Encode writes img as a baseline JPEG. Grey and grey+alpha input is
// written as a single-component frame; RGB and RGBA input as YCbCr with
// every component sampled 1x1. Alpha is dropped.
func Encode(w io.Writer, img *codec.Image, opts *Options) error {
	if err := codec.CheckImage(img); err != nil {
		return err
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if img.Width > 0xffff || img.Height > 0xffff {
		return fmt.Errorf("%w: jpeg: %dx%d exceeds 65535", codec.ErrInvalidParameter, img.Width, img.Height)
	}

	quality := opts.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	enc := newEncoder(img, quality)

	sw := stream.NewWriter(w)
	enc.writeHeaders(sw)
	enc.encodeScan(sw)
	sw.WriteBytes(0xff, jc.MarkerEOI)
	return sw.Flush()
}

func newEncoder(img *codec.Image, quality int) *Encoder {
	enc := &Encoder{
		width:      img.Width,
		height:     img.Height,
		components: 1,
		src:        img,
	}
	if img.Channels >= 3 {
		enc.components = 3
	}

	enc.qtables[0] = jc.ScaleQuantTable(jc.DefaultLuminanceQuantTable, quality)
	enc.qtables[1] = jc.ScaleQuantTable(jc.DefaultChrominanceQuantTable, quality)
	enc.fdtbl[0] = jc.QuantDivisors(enc.qtables[0])
	enc.fdtbl[1] = jc.QuantDivisors(enc.qtables[1])

	enc.dcCodes[0] = jc.BuildHuffmanCodes(jc.StdDCLuminance)
	enc.acCodes[0] = jc.BuildHuffmanCodes(jc.StdACLuminance)
	enc.dcCodes[1] = jc.BuildHuffmanCodes(jc.StdDCChrominance)
	enc.acCodes[1] = jc.BuildHuffmanCodes(jc.StdACChrominance)
	return enc
}

// writeHeaders writes SOI, JFIF APP0, DQT, SOF0, DHT and SOS.
func (enc *Encoder) writeHeaders(w *stream.Writer) {
	w.WriteBytes(0xff, jc.MarkerSOI)
	w.WriteBytes(0xff, jc.MarkerAPP0, 0, 16, 'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0)
	enc.writeDQT(w)
	enc.writeFrame(w, jc.MarkerSOF0)
	enc.writeDHT(w)
	enc.writeSOS(w, enc.scanComponents(), 0, 63, 0, 0)
}

// table returns the quantization and Huffman table index of component c.
func table(c int) int {
	if c > 0 {
		return 1
	}
	return 0
}

func (enc *Encoder) scanComponents() []int {
	if enc.components == 1 {
		return []int{0}
	}
	return []int{0, 1, 2}
}

// writeDQT writes Define Quantization Table segments
func (enc *Encoder) writeDQT(w *stream.Writer) {
	numTables := 1
	if enc.components == 3 {
		numTables = 2
	}
	w.WriteBytes(0xff, jc.MarkerDQT)
	w.Put16BE(uint16(2 + 65*numTables))
	for i := 0; i < numTables; i++ {
		_ = w.WriteByte(byte(i))
		for j := 0; j < 64; j++ {
			_ = w.WriteByte(byte(enc.qtables[i][jc.Unzig[j]]))
		}
	}
}

// writeFrame writes a start of frame segment with 1x1 sampling.
func (enc *Encoder) writeFrame(w *stream.Writer, marker byte) {
	w.WriteBytes(0xff, marker)
	w.Put16BE(uint16(8 + 3*enc.components))
	_ = w.WriteByte(8)
	w.Put16BE(uint16(enc.height))
	w.Put16BE(uint16(enc.width))
	_ = w.WriteByte(byte(enc.components))
	for i := 0; i < enc.components; i++ {
		w.WriteBytes(byte(i+1), 0x11, byte(table(i)))
	}
}

// writeDHT writes Define Huffman Table segments
func (enc *Encoder) writeDHT(w *stream.Writer) {
	tables := []struct {
		class byte
		id    byte
		table *jc.HuffmanTable
	}{
		{0, 0, jc.StdDCLuminance},
		{1, 0, jc.StdACLuminance},
		{0, 1, jc.StdDCChrominance},
		{1, 1, jc.StdACChrominance},
	}
	if enc.components == 1 {
		tables = tables[:2]
	}
	for _, t := range tables {
		w.WriteBytes(0xff, jc.MarkerDHT)
		w.Put16BE(uint16(2 + 1 + 16 + len(t.table.Values)))
		_ = w.WriteByte(t.class<<4 | t.id)
		for _, n := range t.table.Bits {
			_ = w.WriteByte(byte(n))
		}
		w.WriteBytes(t.table.Values...)
	}
}

// writeSOS writes a start of scan header for the given components.
func (enc *Encoder) writeSOS(w *stream.Writer, comps []int, ss, se, ah, al int) {
	w.WriteBytes(0xff, jc.MarkerSOS)
	w.Put16BE(uint16(6 + 2*len(comps)))
	_ = w.WriteByte(byte(len(comps)))
	for _, c := range comps {
		sel := byte(table(c))
		w.WriteBytes(byte(c+1), sel<<4|sel)
	}
	w.WriteBytes(byte(ss), byte(se), byte(ah<<4|al))
}

// encodeScan encodes the scan data
func (enc *Encoder) encodeScan(w *stream.Writer) {
	bw := jc.NewBitWriter(w)
	var dcPred [3]int
	var blocks [3][64]float32

	for by := 0; by < enc.height; by += 8 {
		for bx := 0; bx < enc.width; bx += 8 {
			enc.loadBlock(&blocks, bx, by)
			for c := 0; c < enc.components; c++ {
				t := table(c)
				du := enc.quantize(&blocks[c], t)
				enc.writeDC(bw, du[0]-dcPred[c], t)
				enc.writeAC(bw, &du, t, 1, 63)
				dcPred[c] = du[0]
			}
		}
	}
	bw.Flush()
}

// loadBlock reads the 8x8 tile at (bx, by), replicating the last row and
// column past the image edge, and converts it to level-shifted YCbCr.
func (enc *Encoder) loadBlock(blocks *[3][64]float32, bx, by int) {
	img := enc.src
	n := img.Channels
	for y := 0; y < 8; y++ {
		sy := min(by+y, enc.height-1)
		row := img.Pix[sy*img.Stride():]
		for x := 0; x < 8; x++ {
			sx := min(bx+x, enc.width-1)
			p := row[sx*n:]
			k := y*8 + x
			if enc.components == 1 {
				blocks[0][k] = float32(p[0]) - 128
				continue
			}
			r, g, b := float32(p[0]), float32(p[1]), float32(p[2])
			blocks[0][k] = 0.29900*r + 0.58700*g + 0.11400*b - 128
			blocks[1][k] = -0.16874*r - 0.33126*g + 0.50000*b
			blocks[2][k] = 0.50000*r - 0.41869*g - 0.08131*b
		}
	}
}

// quantize runs the forward DCT on blk and returns the quantized
// coefficients in zig-zag order.
func (enc *Encoder) quantize(blk *[64]float32, t int) [64]int {
	jc.FDCT(blk)

	var du [64]int
	fd := &enc.fdtbl[t]
	for k := 0; k < 64; k++ {
		v := blk[k] * fd[k]
		var q int
		if v < 0 {
			q = int(v - 0.5)
		} else {
			q = int(v + 0.5)
		}
		du[jc.ZigZag[k]] = q
	}
	return du
}

// writeDC codes a DC difference as magnitude class plus value bits.
func (enc *Encoder) writeDC(bw *jc.BitWriter, diff, t int) {
	cat, bits := jc.Category(diff)
	bw.WriteCode(enc.dcCodes[t][cat])
	bw.WriteBits(bits, cat)
}

// writeAC codes coefficients ss..se as run/size pairs, escaping runs of
// sixteen zeros and ending with EOB when the band ends in zeros.
func (enc *Encoder) writeAC(bw *jc.BitWriter, du *[64]int, t, ss, se int) {
	ac := &enc.acCodes[t]
	end := se
	for end >= ss && du[end] == 0 {
		end--
	}
	run := 0
	for i := ss; i <= end; i++ {
		if du[i] == 0 {
			run++
			continue
		}
		for run >= 16 {
			bw.WriteCode(ac[0xf0])
			run -= 16
		}
		cat, bits := jc.Category(du[i])
		bw.WriteCode(ac[run<<4|cat])
		bw.WriteBits(bits, cat)
		run = 0
	}
	if end < se {
		bw.WriteCode(ac[0x00])
	}
}

// Codec adapts the encoder and decoder to the codec registry.
type Codec struct{}

// NewCodec creates a new JPEG codec
func NewCodec() *Codec {
	return &Codec{}
}

// Name returns the format name
func (c *Codec) Name() string {
	return "jpeg"
}

// Probe implements codec.Decoder.
func (c *Codec) Probe(cur *stream.Cursor) bool { return Probe(cur) }

// DecodeInfo implements codec.Decoder.
func (c *Codec) DecodeInfo(cur *stream.Cursor) (codec.Info, error) { return DecodeInfo(cur) }

// Decode implements codec.Decoder.
func (c *Codec) Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	return Decode(cur, opts)
}

// Encode implements codec.Encoder. opts may be nil, *Options or
// *codec.BaseOptions.
func (c *Codec) Encode(w io.Writer, img *codec.Image, opts codec.Options) error {
	o := DefaultOptions()
	switch v := opts.(type) {
	case *Options:
		if v != nil {
			o = v
		}
	case *codec.BaseOptions:
		if v != nil {
			o.BaseOptions = *v
		}
	}
	return Encode(w, img, o)
}

func init() {
	c := NewCodec()
	codec.RegisterDecoder(c, codec.PriorityJPEG)
	codec.RegisterEncoder(c)
}
