// Package gif decodes GIF images, including every frame of an animation.
//
// Frames are composited onto a canvas the size of the logical screen and
// returned as 8-bit RGBA. Pixels at a frame's transparent index leave the
// canvas untouched.
package gif

import (
	"io"
	"log/slog"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// Block introducers
const (
	blockExtension  = 0x21
	blockImage      = 0x2c
	blockTrailer    = 0x3b
	extGraphicsCtrl = 0xf9
)

// Disposal methods
const (
	DisposalUnspecified = 0
	DisposalNone        = 1
	DisposalBackground  = 2
	DisposalPrevious    = 3
)

type rect struct{ x0, y0, x1, y1 int }

type decoder struct {
	cur *stream.Cursor

	width, height int
	flags         byte
	bgIndex       int
	global        [256][4]byte
	local         [256][4]byte

	// canvas and the state needed to undo the last frame
	out       []byte
	saved     []byte
	last      rect
	lastDisp  int
	lastDelay int
	frames    int

	// graphic control for the next image
	disposal    int
	delay       int
	transparent int

	codes [maxCodes]lzwCode
	stack [maxCodes]byte
}

// frameState walks the pixels of one image in storage order.
type frameState struct {
	d          *decoder
	table      *[256][4]byte
	r          rect
	x, y       int
	step       int
	pass       int
	interlaced bool
}

func (f *frameState) plot(idx byte) {
	if f.y >= f.r.y1 || f.x >= f.r.x1 {
		return
	}
	c := &f.table[idx]
	if c[3] > 128 {
		o := (f.y*f.d.width + f.x) * 4
		copy(f.d.out[o:o+4], c[:])
	}
	f.x++
	if f.x < f.r.x1 {
		return
	}
	f.x = f.r.x0
	f.y += f.step
	for f.interlaced && f.y >= f.r.y1 && f.pass < 3 {
		f.pass++
		f.y = f.r.y0 + interlaceStart[f.pass]
		f.step = interlaceStep[f.pass]
	}
}

// Interlaced rows are stored in four passes: every 8th row from 0, every
// 8th from 4, every 4th from 2 and every 2nd from 1.
var (
	interlaceStart = [4]int{0, 4, 2, 1}
	interlaceStep  = [4]int{8, 8, 4, 2}
)

func newDecoder(cur *stream.Cursor) *decoder {
	return &decoder{cur: cur, transparent: -1}
}

func (d *decoder) readHeader() error {
	var sig [6]byte
	if err := d.cur.ReadFull(sig[:]); err != nil {
		return ErrNotGIF
	}
	if string(sig[:4]) != "GIF8" || (sig[4] != '7' && sig[4] != '9') || sig[5] != 'a' {
		return ErrNotGIF
	}
	d.width = int(d.cur.Get16LE())
	d.height = int(d.cur.Get16LE())
	d.flags = d.cur.Byte()
	d.bgIndex = int(d.cur.Byte())
	d.cur.Byte() // aspect ratio
	if d.cur.AtEOF() {
		return ErrTruncated
	}
	if err := codec.CheckDimensions(d.width, d.height, 4); err != nil {
		return err
	}
	if d.flags&0x80 != 0 {
		d.readPalette(&d.global, 2<<(d.flags&7))
	}
	return nil
}

func (d *decoder) readPalette(pal *[256][4]byte, n int) {
	for i := 0; i < n; i++ {
		pal[i][0] = d.cur.Byte()
		pal[i][1] = d.cur.Byte()
		pal[i][2] = d.cur.Byte()
		pal[i][3] = 255
	}
}

// dispose undoes the previous frame according to its disposal method.
func (d *decoder) dispose() {
	r := d.last
	switch d.lastDisp {
	case DisposalBackground:
		for y := r.y0; y < r.y1; y++ {
			clear(d.out[(y*d.width+r.x0)*4 : (y*d.width+r.x1)*4])
		}
	case DisposalPrevious:
		for y := r.y0; y < r.y1; y++ {
			o := (y*d.width + r.x0) * 4
			e := (y*d.width + r.x1) * 4
			copy(d.out[o:e], d.saved[o:e])
		}
	}
}

// nextFrame composites the next image onto the canvas. It returns false
// at the trailer.
func (d *decoder) nextFrame() (bool, error) {
	if d.out == nil {
		d.out = make([]byte, d.width*d.height*4)
	} else {
		d.dispose()
	}

	for {
		if d.cur.AtEOF() {
			return false, ErrTruncated
		}
		switch tag := d.cur.Byte(); tag {
		case blockImage:
			return true, d.readImage()

		case blockExtension:
			ext := d.cur.Byte()
			if ext == extGraphicsCtrl {
				n := int(d.cur.Byte())
				if n == 4 {
					flags := d.cur.Byte()
					d.delay = int(d.cur.Get16LE())
					idx := int(d.cur.Byte())
					d.disposal = int(flags>>2) & 7
					if flags&1 != 0 {
						d.transparent = idx
					} else {
						d.transparent = -1
					}
				} else {
					d.cur.Skip(n)
				}
			}
			d.skipSubBlocks()

		case blockTrailer:
			return false, nil

		default:
			slog.Debug("gif: unknown block", "tag", tag, "offset", d.cur.Offset())
			return false, ErrUnknownBlock
		}
	}
}

func (d *decoder) readImage() error {
	x := int(d.cur.Get16LE())
	y := int(d.cur.Get16LE())
	w := int(d.cur.Get16LE())
	h := int(d.cur.Get16LE())
	if w == 0 || h == 0 || x+w > d.width || y+h > d.height {
		return ErrBadDescriptor
	}
	flags := d.cur.Byte()

	table := &d.global
	if flags&0x80 != 0 {
		d.readPalette(&d.local, 2<<(flags&7))
		table = &d.local
	} else if d.flags&0x80 == 0 {
		return ErrNoColorTable
	}

	r := rect{x, y, x + w, y + h}
	if d.disposal == DisposalPrevious {
		if d.saved == nil {
			d.saved = make([]byte, len(d.out))
		}
		copy(d.saved, d.out)
	}

	var keep [4]byte
	if d.transparent >= 0 {
		keep = table[d.transparent]
		table[d.transparent][3] = 0
	}
	f := &frameState{d: d, table: table, r: r, x: r.x0, y: r.y0, step: 1, interlaced: flags&0x40 != 0}
	if f.interlaced {
		f.step = interlaceStep[0]
	}
	err := d.readRaster(f)
	if d.transparent >= 0 {
		table[d.transparent] = keep
	}
	if err != nil {
		return err
	}

	if d.frames == 0 && d.bgIndex > 0 && d.flags&0x80 != 0 {
		bg := d.global[d.bgIndex]
		bg[3] = 255
		for py := 0; py < d.height; py++ {
			for px := 0; px < d.width; px++ {
				if px >= r.x0 && px < r.x1 && py >= r.y0 && py < r.y1 {
					continue
				}
				copy(d.out[(py*d.width+px)*4:], bg[:])
			}
		}
	}

	d.last = r
	d.lastDisp = d.disposal
	d.lastDelay = d.delay
	d.frames++

	// a graphic control extension applies to one image only
	d.disposal = DisposalUnspecified
	d.delay = 0
	d.transparent = -1
	return nil
}

// Probe reports whether cur holds a GIF. The cursor is rewound.
func Probe(cur *stream.Cursor) bool {
	defer func() { _ = cur.Rewind() }()
	var sig [6]byte
	if cur.ReadFull(sig[:]) != nil {
		return false
	}
	return string(sig[:4]) == "GIF8" && (sig[4] == '7' || sig[4] == '9') && sig[5] == 'a'
}

// DecodeInfo reads the logical screen descriptor and rewinds the cursor.
// Decoded frames always carry four channels.
func DecodeInfo(cur *stream.Cursor) (codec.Info, error) {
	defer func() { _ = cur.Rewind() }()
	d := newDecoder(cur)
	if err := d.readHeader(); err != nil {
		return codec.Info{}, err
	}
	return codec.Info{Width: d.width, Height: d.height, Channels: 4}, nil
}

// Decode returns the first frame.
func Decode(cur *stream.Cursor, opts *codec.DecodeOptions) (*codec.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	a, err := NewAnimation(cur)
	if err != nil {
		return nil, err
	}
	f, err := a.Next()
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoFrames
		}
		return nil, err
	}
	return codec.Finish(f.Pix, a.Width, a.Height, 4, opts), nil
}
