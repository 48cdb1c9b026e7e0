package hdr

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/cocosip/go-media-codec/codec"
	"github.com/cocosip/go-media-codec/stream"
)

func floatImage(rng *rand.Rand, w, h, channels int) *codec.ImageFloat {
	pix := make([]float32, w*h*channels)
	for i := range pix {
		switch {
		case i%13 == 0:
			pix[i] = 0
		case (i/channels)%4 < 2:
			// flat spans give the run-length coder something to do
			pix[i] = float32(i%channels+1) * 0.75
		default:
			pix[i] = rng.Float32() * float32(math.Pow(2, float64(rng.Intn(20)-10)))
		}
	}
	return &codec.ImageFloat{Pix: pix, Width: w, Height: h, Channels: channels}
}

func encodeBytes(t *testing.T, img *codec.ImageFloat) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// within reports whether each decoded pixel is within the RGBE quantum of
// its brightest component.
func within(t *testing.T, want []float32, got []float32) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := 0; i < len(want); i += 3 {
		m := max(want[i], want[i+1], want[i+2])
		for k := 0; k < 3; k++ {
			if d := math.Abs(float64(want[i+k] - got[i+k])); d > float64(m)/128+1e-30 {
				t.Fatalf("sample %d: got %g, want %g", i+k, got[i+k], want[i+k])
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, w := range []int{1, 7, 8, 61, 300, 32768} {
		t.Run(fmt.Sprint(w), func(t *testing.T) {
			h := 3
			if w > 1000 {
				h = 1
			}
			img := floatImage(rng, w, h, 3)
			got, err := Decode(stream.FromBytes(encodeBytes(t, img)), nil)
			if err != nil {
				t.Fatal(err)
			}
			if got.Width != w || got.Height != h || got.Channels != 3 {
				t.Fatalf("got %dx%dx%d", got.Width, got.Height, got.Channels)
			}
			within(t, img.Pix, got.Pix)
		})
	}
}

func TestGreyInput(t *testing.T) {
	img := &codec.ImageFloat{Pix: []float32{0.5, 1, 2, 4, 8, 16, 32, 64, 0, 100}, Width: 10, Height: 1, Channels: 1}
	got, err := Decode(stream.FromBytes(encodeBytes(t, img)), &codec.DecodeOptions{Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	// powers of two and zero are exact in RGBE
	if diff := cmp.Diff(img.Pix[:9], got.Pix[:9]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(float64(got.Pix[9]-100)) > 1 {
		t.Errorf("100 decoded as %g", got.Pix[9])
	}
}

func TestRunLengthShrinksFlatRows(t *testing.T) {
	const w, h = 64, 4
	pix := make([]float32, w*h*3)
	for i := range pix {
		pix[i] = 0.25
	}
	data := encodeBytes(t, &codec.ImageFloat{Pix: pix, Width: w, Height: h, Channels: 3})
	if len(data) > 64+h*(4+4*2) {
		t.Errorf("flat image encoded to %d bytes", len(data))
	}
}

func header(w, h int) []byte {
	return fmt.Appendf(nil, "#?RGBE\n# comment\nFORMAT=32-bit_rle_rgbe\nEXPOSURE=1\n\n-Y %d +X %d\n", h, w)
}

func TestFlatScanlinesAtRLEWidth(t *testing.T) {
	// a width that allows run-length rows, stored flat
	const w = 8
	data := header(w, 2)
	for i := 0; i < w*2; i++ {
		data = append(data, byte(i+1), 128, 64, 129)
	}
	img, err := Decode(stream.FromBytes(data), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < w*2; i++ {
		want := []float32{float32(i+1) / 128, 1, 0.5}
		if diff := cmp.Diff(want, img.Pix[i*3:i*3+3]); diff != "" {
			t.Fatalf("pixel %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestChannelConversion(t *testing.T) {
	data := append(header(1, 1), 64, 128, 192, 128)
	cases := []struct {
		channels int
		want     []float32
	}{
		{1, []float32{0.5}},
		{2, []float32{0.5, 1}},
		{3, []float32{0.25, 0.5, 0.75}},
		{4, []float32{0.25, 0.5, 0.75, 1}},
	}
	for _, tc := range cases {
		img, err := Decode(stream.FromBytes(data), &codec.DecodeOptions{Channels: tc.channels})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(tc.want, img.Pix, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("channels %d (-want +got):\n%s", tc.channels, diff)
		}
	}
}

func TestFlip(t *testing.T) {
	data := append(header(1, 2), 128, 128, 128, 129, 128, 128, 128, 130)
	img, err := Decode(stream.FromBytes(data), &codec.DecodeOptions{Channels: 1, FlipVertically: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{2, 1}, img.Pix); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLDRConversion(t *testing.T) {
	src := make([]byte, 256*4)
	for i := range src {
		src[i] = byte(i / 4)
	}
	for _, channels := range []int{1, 2, 3, 4} {
		if diff := cmp.Diff(src, ToLDR(FromLDR(src, channels), channels)); diff != "" {
			t.Errorf("channels %d (-want +got):\n%s", channels, diff)
		}
	}
	// colour is gamma encoded, alpha is not
	got := ToLDR([]float32{0.5, 0.5}, 2)
	if diff := cmp.Diff([]byte{186, 128}, got); diff != "" {
		t.Errorf("grey+alpha (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0, 255}, ToLDR([]float32{-1, 7}, 1)); diff != "" {
		t.Errorf("clamping (-want +got):\n%s", diff)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	pix := make([]byte, 16*2)
	for i := range pix {
		pix[i] = byte(i * 8)
	}
	c := NewCodec()
	var buf bytes.Buffer
	if err := c.Encode(&buf, &codec.Image{Pix: pix, Width: 16, Height: 2, Channels: 1}, nil); err != nil {
		t.Fatal(err)
	}
	img, err := c.Decode(stream.FromBytes(buf.Bytes()), &codec.DecodeOptions{Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range pix {
		if d := int(v) - int(img.Pix[i]); d < 0 || d > 1 {
			t.Errorf("sample %d: got %d, want %d", i, img.Pix[i], v)
		}
	}
}

func TestProbeAndInfo(t *testing.T) {
	data := encodeBytes(t, floatImage(rand.New(rand.NewSource(2)), 9, 4, 3))
	cur := stream.FromReader(bytes.NewReader(data))
	if !Probe(cur) {
		t.Fatal("Probe rejected an HDR file")
	}
	info, err := DecodeInfo(cur)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(codec.Info{Width: 9, Height: 4, Channels: 3}, info); diff != "" {
		t.Errorf("info (-want +got):\n%s", diff)
	}
	img, err := DecodeLDR(cur, &codec.DecodeOptions{Channels: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Pix) != 9*4*4 {
		t.Errorf("decode after probe: %d bytes", len(img.Pix))
	}
	if Probe(stream.FromBytes([]byte("#?RADIANCEX\n"))) {
		t.Error("Probe accepted a bad signature")
	}
}

func TestDecodeErrors(t *testing.T) {
	rleRow := func(length int, packets ...byte) []byte {
		return append(append(header(8, 1), 2, 2, byte(length>>8), byte(length)), packets...)
	}
	good := encodeBytes(t, floatImage(rand.New(rand.NewSource(3)), 20, 3, 3))

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"not hdr", []byte("P6\n1 1\n255\n"), codec.ErrFormatMismatch},
		{"no format", []byte("#?RADIANCE\nEXPOSURE=2\n\n-Y 1 +X 1\n\x80\x80\x80\x81"), ErrFormat},
		{"other format", []byte("#?RADIANCE\nFORMAT=32-bit_rle_xyze\n\n-Y 1 +X 1\n"), codec.ErrUnsupported},
		{"resolution", []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n+Y 1 +X 1\n"), ErrResolution},
		{"scanline length", rleRow(9), ErrScanline},
		{"zero count", rleRow(8, 0), ErrBadRLE},
		{"run overrun", rleRow(8, 0x80+9, 1), ErrBadRLE},
		{"dump overrun", rleRow(8, 9), ErrBadRLE},
		{"no blank line", []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n"), codec.ErrTruncated},
		{"truncated", good[:len(good)-6], codec.ErrTruncated},
		{"truncated flat", append(header(2, 2), 1, 2, 3, 4, 5), codec.ErrTruncated},
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
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 1000; i++ {
		b := make([]byte, 3)
		rng.Read(b)
		_, err := Decode(stream.FromBytes(b), nil)
		if !errors.Is(err, codec.ErrFormatMismatch) && !errors.Is(err, codec.ErrMalformed) {
			t.Fatalf("% x: unexpected error %v", b, err)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, nil); !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("nil image: got %v", err)
	}
	short := &codec.ImageFloat{Pix: make([]float32, 5), Width: 2, Height: 1, Channels: 3}
	if err := Encode(&bytes.Buffer{}, short); !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("short buffer: got %v", err)
	}
	sink := stream.SinkFunc(func(p []byte) int { return 0 })
	if err := Encode(sink, floatImage(rand.New(rand.NewSource(5)), 40, 40, 3)); err == nil {
		t.Error("refusing sink did not fail")
	}
}

func FuzzDecode(f *testing.F) {
	rng := rand.New(rand.NewSource(6))
	for _, w := range []int{3, 17} {
		var buf bytes.Buffer
		_ = Encode(&buf, floatImage(rng, w, 2, 3))
		f.Add(buf.Bytes())
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
