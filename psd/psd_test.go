package psd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

// psdFile assembles a document from planar channel data.
type psdFile struct {
	channels, width, height, depth int
	mode                           int
	compression                    int
	resources                      []byte
	planes                         [][]byte // one per channel, big-endian samples
}

// packBits compresses one row: runs of three or more become repeat
// packets, everything else literal packets.
func packBits(row []byte) []byte {
	var out []byte
	for i := 0; i < len(row); {
		run := 1
		for i+run < len(row) && run < 128 && row[i+run] == row[i] {
			run++
		}
		if run >= 3 {
			out = append(out, byte(257-run), row[i])
			i += run
			continue
		}
		j := i
		for j < len(row) && j-i < 128 {
			if j+2 < len(row) && row[j] == row[j+1] && row[j] == row[j+2] {
				break
			}
			j++
		}
		out = append(out, byte(j-i-1))
		out = append(out, row[i:j]...)
		i = j
	}
	return out
}

func (f psdFile) bytes() []byte {
	be := binary.BigEndian
	b := []byte("8BPS")
	b = be.AppendUint16(b, 1)
	b = append(b, make([]byte, 6)...)
	b = be.AppendUint16(b, uint16(f.channels))
	b = be.AppendUint32(b, uint32(f.height))
	b = be.AppendUint32(b, uint32(f.width))
	b = be.AppendUint16(b, uint16(f.depth))
	mode := f.mode
	if mode == 0 {
		mode = modeRGB
	}
	b = be.AppendUint16(b, uint16(mode))
	b = be.AppendUint32(b, 0)
	b = be.AppendUint32(b, uint32(len(f.resources)))
	b = append(b, f.resources...)
	b = be.AppendUint32(b, 0)
	b = be.AppendUint16(b, uint16(f.compression))
	if f.compression != compressionRLE {
		for _, p := range f.planes {
			b = append(b, p...)
		}
		return b
	}
	rowLen := f.width * f.depth / 8
	var counts, data []byte
	for _, p := range f.planes {
		for y := 0; y < f.height; y++ {
			packed := packBits(p[y*rowLen : (y+1)*rowLen])
			counts = be.AppendUint16(counts, uint16(len(packed)))
			data = append(data, packed...)
		}
	}
	return append(append(b, counts...), data...)
}

// planar splits interleaved 8-bit samples into channel planes.
func planar(pix []byte, channels int) [][]byte {
	planes := make([][]byte, channels)
	for i, v := range pix {
		planes[i%channels] = append(planes[i%channels], v)
	}
	return planes
}

func smooth(rng *rand.Rand, n int) []byte {
	pix := make([]byte, n)
	for i := range pix {
		pix[i] = byte(i / 7 * 3)
		if i%11 == 0 {
			pix[i] = byte(rng.Intn(256))
		}
	}
	return pix
}

func TestDecodeRGB(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const w, h = 9, 5
	rgb := smooth(rng, w*h*3)
	want := codec.ConvertChannels(rgb, 3, 4, w, h)
	for _, compression := range []int{compressionRaw, compressionRLE} {
		f := psdFile{channels: 3, width: w, height: h, depth: 8, compression: compression,
			resources: []byte{1, 2, 3, 4}, planes: planar(rgb, 3)}
		img, err := Decode(stream.FromBytes(f.bytes()), nil)
		if err != nil {
			t.Fatalf("compression %d: %v", compression, err)
		}
		if img.Channels != 4 {
			t.Fatalf("channels %d", img.Channels)
		}
		if diff := cmp.Diff(want, img.Pix); diff != "" {
			t.Errorf("compression %d mismatch (-want +got):\n%s", compression, diff)
		}
	}
}

func TestAlphaMatte(t *testing.T) {
	// colours blended against white at alpha 0.2: stored = c*0.2 + 255*0.8
	pix := []byte{
		204, 255, 229, 51,
		10, 20, 30, 255,
		40, 50, 60, 0,
	}
	f := psdFile{channels: 4, width: 3, height: 1, depth: 8, compression: compressionRLE, planes: planar(pix, 4)}
	img, err := Decode(stream.FromBytes(f.bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 255, 125, 51, 10, 20, 30, 255, 40, 50, 60, 0}
	if diff := cmp.Diff(want, img.Pix); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSixteenBit(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const w, h = 4, 3
	samples := make([]uint16, w*h*3)
	for i := range samples {
		samples[i] = uint16(rng.Intn(65536))
	}
	planes := make([][]byte, 3)
	for i, v := range samples {
		planes[i%3] = binary.BigEndian.AppendUint16(planes[i%3], v)
	}
	for _, compression := range []int{compressionRaw, compressionRLE} {
		data := psdFile{channels: 3, width: w, height: h, depth: 16, compression: compression, planes: planes}.bytes()
		if !Is16Bit(stream.FromBytes(data)) {
			t.Error("Is16Bit = false")
		}
		img16, err := Decode16(stream.FromBytes(data), &codec.DecodeOptions{Channels: 3})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(samples, img16.Pix); diff != "" {
			t.Errorf("compression %d: 16-bit mismatch (-want +got):\n%s", compression, diff)
		}
		img, err := Decode(stream.FromBytes(data), &codec.DecodeOptions{Channels: 3})
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range samples {
			if img.Pix[i] != byte(v>>8) {
				t.Fatalf("sample %d: 8-bit %d, want %d", i, img.Pix[i], v>>8)
			}
		}
	}
}

func TestChannelCounts(t *testing.T) {
	red := []byte{1, 2, 3, 4}
	img, err := Decode(stream.FromBytes(psdFile{channels: 1, width: 2, height: 2, depth: 8, planes: [][]byte{red}}.bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 0, 0, 255, 2, 0, 0, 255, 3, 0, 0, 255, 4, 0, 0, 255}
	if diff := cmp.Diff(want, img.Pix); diff != "" {
		t.Errorf("one channel (-want +got):\n%s", diff)
	}

	// a spot channel after alpha is ignored
	five := psdFile{channels: 5, width: 1, height: 1, depth: 8,
		planes: [][]byte{{9}, {8}, {7}, {255}, {100}}}
	img, err = Decode(stream.FromBytes(five.bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{9, 8, 7, 255}, img.Pix); diff != "" {
		t.Errorf("five channels (-want +got):\n%s", diff)
	}
}

func TestProbeAndInfo(t *testing.T) {
	data := psdFile{channels: 3, width: 6, height: 2, depth: 8, planes: planar(make([]byte, 36), 3)}.bytes()
	cur := stream.FromReader(bytes.NewReader(data))
	if !Probe(cur) {
		t.Fatal("Probe rejected a PSD")
	}
	info, err := DecodeInfo(cur)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(codec.Info{Width: 6, Height: 2, Channels: 4}, info); diff != "" {
		t.Errorf("info (-want +got):\n%s", diff)
	}
	img, err := Decode(cur, &codec.DecodeOptions{Channels: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Pix) != 36 {
		t.Errorf("decode after probe: %d bytes", len(img.Pix))
	}
}

func TestDecodeErrors(t *testing.T) {
	plane := [][]byte{make([]byte, 16), make([]byte, 16), make([]byte, 16)}
	base := psdFile{channels: 3, width: 4, height: 4, depth: 8, planes: plane}
	good := base.bytes()
	badVersion := bytes.Clone(good)
	badVersion[5] = 2
	badRLE := base
	badRLE.compression = compressionRLE
	rle := badRLE.bytes()
	// first packet of the first row claims 100 literal bytes
	rle[len(rle)-3*4*2] = 99
	withDepth := func(d int) psdFile { f := base; f.depth = d; return f }
	withMode := func(m int) psdFile { f := base; f.mode = m; return f }
	withCompression := func(c int) psdFile { f := base; f.compression = c; return f }
	withChannels := func(c int) psdFile { f := base; f.channels = c; return f }

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"not psd", []byte("8BPX\x00\x01"), codec.ErrFormatMismatch},
		{"version", badVersion, ErrBadVersion},
		{"cmyk", withMode(4).bytes(), codec.ErrUnsupported},
		{"depth", withDepth(1).bytes(), codec.ErrUnsupported},
		{"compression", withCompression(2).bytes(), ErrCompression},
		{"channels", withChannels(17).bytes(), ErrBadChannels},
		{"bad rle", rle, ErrBadRLE},
		{"truncated", good[:len(good)-5], codec.ErrTruncated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(stream.FromBytes(tc.data), nil); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
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
	rng := rand.New(rand.NewSource(4))
	for _, compression := range []int{compressionRaw, compressionRLE} {
		f.Add(psdFile{channels: 4, width: 5, height: 3, depth: 8, compression: compression,
			planes: planar(smooth(rng, 60), 4)}.bytes())
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeInfo(stream.FromBytes(data))
		if img, err := Decode(stream.FromBytes(data), nil); err == nil {
			if len(img.Pix) != img.Width*img.Height*img.Channels {
				t.Fatalf("buffer length %d for %dx%dx%d", len(img.Pix), img.Width, img.Height, img.Channels)
			}
		}
	})
}
