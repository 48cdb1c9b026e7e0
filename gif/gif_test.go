package gif

import (
	"bytes"
	"compress/lzw"
	"errors"
	"image"
	"image/color"
	stdgif "image/gif"
	"io"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

var (
	clearColor = color.RGBA{}
	red        = color.RGBA{255, 0, 0, 255}
	green      = color.RGBA{0, 255, 0, 255}
	blue       = color.RGBA{0, 0, 255, 255}
	testPal    = color.Palette{clearColor, red, green, blue}
)

func rgba(c color.RGBA) []byte { return []byte{c.R, c.G, c.B, c.A} }

func paletted(r image.Rectangle, index func(x, y int) uint8) *image.Paletted {
	m := image.NewPaletted(r, testPal)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.SetColorIndex(x, y, index(x, y))
		}
	}
	return m
}

func fill(i uint8) func(x, y int) uint8 { return func(int, int) uint8 { return i } }

func encodeAll(t *testing.T, g *stdgif.GIF) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := stdgif.EncodeAll(&buf, g); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// canvas builds an expected RGBA frame from a per-pixel colour function.
func canvas(w, h int, at func(x, y int) color.RGBA) []byte {
	out := make([]byte, 0, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, rgba(at(x, y))...)
		}
	}
	return out
}

func TestPaletteAndTransparency(t *testing.T) {
	m := paletted(image.Rect(0, 0, 4, 3), func(x, y int) uint8 { return uint8((x + y) % 4) })
	var buf bytes.Buffer
	if err := stdgif.Encode(&buf, m, nil); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(stream.FromBytes(buf.Bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if img.Channels != 4 || img.Width != 4 || img.Height != 3 {
		t.Fatalf("got %dx%dx%d", img.Width, img.Height, img.Channels)
	}
	want := canvas(4, 3, func(x, y int) color.RGBA { return testPal[(x+y)%4].(color.RGBA) })
	if diff := cmp.Diff(want, img.Pix); diff != "" {
		t.Errorf("pixels mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchesStdlib(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255}
	}
	// enough noise to fill the string table and force a reset
	m := image.NewPaletted(image.Rect(0, 0, 97, 91), pal)
	for i := range m.Pix {
		m.Pix[i] = uint8(rng.Intn(256))
		if i%7 < 3 {
			m.Pix[i] = uint8(i / 50)
		}
	}
	var buf bytes.Buffer
	if err := stdgif.Encode(&buf, m, nil); err != nil {
		t.Fatal(err)
	}
	ref, err := stdgif.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	img, err := Decode(stream.FromBytes(buf.Bytes()), &codec.DecodeOptions{Channels: 3})
	if err != nil {
		t.Fatal(err)
	}
	b := ref.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := ref.At(x, y).RGBA()
			o := (y*img.Width + x) * 3
			got := img.Pix[o : o+3]
			if got[0] != byte(r>>8) || got[1] != byte(g>>8) || got[2] != byte(bl>>8) {
				t.Fatalf("(%d,%d): got %v want %d,%d,%d", x, y, got, r>>8, g>>8, bl>>8)
			}
		}
	}
}

func TestAnimationDisposal(t *testing.T) {
	g := &stdgif.GIF{
		Image: []*image.Paletted{
			paletted(image.Rect(0, 0, 4, 4), fill(1)),
			paletted(image.Rect(1, 1, 3, 3), fill(2)),
			paletted(image.Rect(0, 0, 2, 2), func(x, y int) uint8 {
				if x == 0 && y == 0 {
					return 0
				}
				return 3
			}),
			paletted(image.Rect(3, 3, 4, 4), fill(2)),
		},
		Delay:    []int{5, 6, 7, 8},
		Disposal: []byte{stdgif.DisposalNone, stdgif.DisposalBackground, stdgif.DisposalPrevious, stdgif.DisposalNone},
	}
	data := encodeAll(t, g)

	in := func(x, y, x0, y0, x1, y1 int) bool { return x >= x0 && x < x1 && y >= y0 && y < y1 }
	want := [][]byte{
		canvas(4, 4, func(x, y int) color.RGBA { return red }),
		canvas(4, 4, func(x, y int) color.RGBA {
			if in(x, y, 1, 1, 3, 3) {
				return green
			}
			return red
		}),
		// centre cleared, then blue drawn over the top-left square except
		// its transparent corner
		canvas(4, 4, func(x, y int) color.RGBA {
			switch {
			case x == 0 && y == 0:
				return red
			case in(x, y, 0, 0, 2, 2):
				return blue
			case in(x, y, 1, 1, 3, 3):
				return clearColor
			}
			return red
		}),
		// top-left square restored to the state before the blue frame
		canvas(4, 4, func(x, y int) color.RGBA {
			switch {
			case x == 3 && y == 3:
				return green
			case in(x, y, 1, 1, 3, 3):
				return clearColor
			}
			return red
		}),
	}

	a, err := NewAnimation(stream.FromBytes(data))
	if err != nil {
		t.Fatal(err)
	}
	if a.Width != 4 || a.Height != 4 {
		t.Fatalf("canvas %dx%d", a.Width, a.Height)
	}
	for i, w := range want {
		f, err := a.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if f.Delay != g.Delay[i] {
			t.Errorf("frame %d: delay %d, want %d", i, f.Delay, g.Delay[i])
		}
		if f.Disposal != int(g.Disposal[i]) {
			t.Errorf("frame %d: disposal %d, want %d", i, f.Disposal, g.Disposal[i])
		}
		if diff := cmp.Diff(w, f.Pix); diff != "" {
			t.Errorf("frame %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if _, err := a.Next(); err != io.EOF {
		t.Errorf("after last frame: got %v, want io.EOF", err)
	}
	if a.Frames() != 4 {
		t.Errorf("Frames() = %d", a.Frames())
	}

	all, err := DecodeAll(stream.FromBytes(data), &codec.DecodeOptions{Channels: 3, FlipVertically: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Frames) != 4 || all.Channels != 3 {
		t.Fatalf("DecodeAll: %d frames, %d channels", len(all.Frames), all.Channels)
	}
	if diff := cmp.Diff([]int{5, 6, 7, 8}, all.Delays); diff != "" {
		t.Errorf("delays (-want +got):\n%s", diff)
	}
	// bottom-right pixel of the last frame lands first after the flip
	last := all.Frames[3]
	row := last.Pix[:last.Stride()]
	if diff := cmp.Diff(rgba(green)[:3], row[9:12]); diff != "" {
		t.Errorf("flipped frame (-want +got):\n%s", diff)
	}
}

// rawGIF assembles a single-image GIF with a 4-entry palette from pixel
// indices already in storage order.
func rawGIF(t testing.TB, w, h int, global, local bool, interlaced bool, indices []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("GIF89a")
	b.Write([]byte{byte(w), byte(w >> 8), byte(h), byte(h >> 8)})
	pal := []byte{0, 0, 0, 255, 0, 0, 0, 255, 0, 0, 0, 255}
	if global {
		b.Write([]byte{0x81, 0, 0})
		b.Write(pal)
	} else {
		b.Write([]byte{0, 0, 0})
	}
	b.Write([]byte{blockImage, 0, 0, 0, 0, byte(w), byte(w >> 8), byte(h), byte(h >> 8)})
	var flags byte
	if local {
		flags |= 0x81
	}
	if interlaced {
		flags |= 0x40
	}
	b.WriteByte(flags)
	if local {
		b.Write(pal)
	}

	var comp bytes.Buffer
	lw := lzw.NewWriter(&comp, lzw.LSB, 2)
	if _, err := lw.Write(indices); err != nil {
		t.Fatal(err)
	}
	if err := lw.Close(); err != nil {
		t.Fatal(err)
	}
	b.WriteByte(2)
	data := comp.Bytes()
	for len(data) > 0 {
		n := min(len(data), 255)
		b.WriteByte(byte(n))
		b.Write(data[:n])
		data = data[n:]
	}
	b.WriteByte(0)
	b.WriteByte(blockTrailer)
	return b.Bytes()
}

func TestInterlaced(t *testing.T) {
	const w, h = 3, 11
	index := func(x, y int) byte { return byte(x+y*3) % 4 }
	var stored []byte
	for pass := 0; pass < 4; pass++ {
		for y := interlaceStart[pass]; y < h; y += interlaceStep[pass] {
			for x := 0; x < w; x++ {
				stored = append(stored, index(x, y))
			}
		}
	}
	cols := [4][]byte{{0, 0, 0}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}}
	var want []byte
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want = append(want, cols[index(x, y)]...)
		}
	}
	for _, local := range []bool{false, true} {
		img, err := Decode(stream.FromBytes(rawGIF(t, w, h, !local, local, true, stored)), &codec.DecodeOptions{Channels: 3})
		if err != nil {
			t.Fatalf("local=%v: %v", local, err)
		}
		if diff := cmp.Diff(want, img.Pix); diff != "" {
			t.Errorf("local=%v mismatch (-want +got):\n%s", local, diff)
		}
	}
}

func TestProbeAndInfo(t *testing.T) {
	data := encodeAll(t, &stdgif.GIF{
		Image: []*image.Paletted{paletted(image.Rect(0, 0, 9, 5), fill(2))},
		Delay: []int{0},
	})
	cur := stream.FromReader(bytes.NewReader(data))
	if !Probe(cur) {
		t.Fatal("Probe rejected a GIF")
	}
	info, err := DecodeInfo(cur)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(codec.Info{Width: 9, Height: 5, Channels: 4}, info); diff != "" {
		t.Errorf("info (-want +got):\n%s", diff)
	}
	img, err := Decode(cur, nil)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 9 || img.Height != 5 {
		t.Errorf("decode after probe: %dx%d", img.Width, img.Height)
	}
	if Probe(stream.FromBytes([]byte("GIF88a"))) {
		t.Error("Probe accepted a bad version")
	}
}

func TestDecodeErrors(t *testing.T) {
	good := rawGIF(t, 2, 2, true, false, false, []byte{0, 1, 2, 3})
	if _, err := Decode(stream.FromBytes(good), nil); err != nil {
		t.Fatalf("good file: %v", err)
	}
	badDesc := bytes.Clone(good)
	badDesc[13+12+5] = 3 // image width 3 on a 2-wide screen
	emptyDesc := zeroWidthGIF(good)

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"not gif", []byte("PNG89a......"), codec.ErrFormatMismatch},
		{"no color table", rawGIF(t, 2, 2, false, false, false, []byte{0, 1, 2, 3}), ErrNoColorTable},
		{"bad descriptor", badDesc, ErrBadDescriptor},
		{"zero width at right edge", emptyDesc, ErrBadDescriptor},
		{"truncated", good[:len(good)-6], codec.ErrTruncated},
		{"no trailer", good[:13+12], codec.ErrTruncated},
		{"unknown block", append(bytes.Clone(good[:13+12]), 0x99), ErrUnknownBlock},
		{"empty", append(bytes.Clone(good[:13+12]), blockTrailer), ErrNoFrames},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(stream.FromBytes(tc.data), nil); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

// zeroWidthGIF moves the image of a 2x2 file to x=2, y=1 with width 0.
func zeroWidthGIF(good []byte) []byte {
	b := bytes.Clone(good)
	d := 13 + 12
	b[d+1], b[d+3], b[d+5], b[d+7] = 2, 1, 0, 1
	return b
}

func TestRandomBytesErrorKinds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		b := make([]byte, 3)
		rng.Read(b)
		_, err := Decode(stream.FromBytes(b), nil)
		if !errors.Is(err, codec.ErrFormatMismatch) && !errors.Is(err, codec.ErrMalformed) {
			t.Fatalf("% x: unexpected error %v", b, err)
		}
	}
}

func FuzzDecode(f *testing.F) {
	var seed bytes.Buffer
	_ = stdgif.EncodeAll(&seed, &stdgif.GIF{
		Image: []*image.Paletted{paletted(image.Rect(0, 0, 5, 4), func(x, y int) uint8 { return uint8(x*y) % 4 })},
		Delay: []int{3},
	})
	f.Add(seed.Bytes())
	f.Add(zeroWidthGIF(rawGIF(f, 2, 2, true, false, false, []byte{0, 1, 2, 3})))
	f.Fuzz(func(t *testing.T, data []byte) {
		all, err := DecodeAll(stream.FromBytes(data), nil)
		if err != nil {
			return
		}
		for _, img := range all.Frames {
			if len(img.Pix) != img.Width*img.Height*img.Channels {
				t.Fatalf("buffer length %d for %dx%dx%d", len(img.Pix), img.Width, img.Height, img.Channels)
			}
		}
	})
}
