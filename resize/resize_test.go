package resize

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/cocosip/go-media-codec/codec"
)

func randomImage(rng *rand.Rand, w, h, channels int) []byte {
	pix := make([]byte, w*h*channels)
	for i := range pix {
		pix[i] = byte(rng.Intn(256))
		if channels == 4 && i%4 == 3 && pix[i] == 0 {
			pix[i] = 1
		}
	}
	return pix
}

func resize8(t *testing.T, pix []byte, w, h, ow, oh int, p *Params) []byte {
	t.Helper()
	out := make([]byte, ow*oh*p.Channels)
	err := Resize(&Buffer[uint8]{Pix: out, Width: ow, Height: oh}, &Buffer[uint8]{Pix: pix, Width: w, Height: h}, p)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestIdentityBox(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, channels := range []int{1, 3, 4} {
		pix := randomImage(rng, 13, 7, channels)
		p := DefaultParams(channels)
		p.FilterH, p.FilterV = FilterBox, FilterBox
		if diff := cmp.Diff(pix, resize8(t, pix, 13, 7, 13, 7, p)); diff != "" {
			t.Errorf("channels %d (-want +got):\n%s", channels, diff)
		}
	}
}

func TestIdentitySRGB(t *testing.T) {
	pix := make([]byte, 256*3)
	for i := range pix {
		pix[i] = byte(i / 3)
	}
	p := DefaultParams(3)
	p.FilterH, p.FilterV = FilterBox, FilterBox
	p.Colorspace = SRGB
	got := resize8(t, pix, 256, 1, 256, 1, p)
	for i := range pix {
		if d := int(pix[i]) - int(got[i]); d < -1 || d > 1 {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], pix[i])
		}
	}
}

func TestConstantColourSurvives(t *testing.T) {
	const w, h = 64, 48
	colour := []byte{200, 17, 90, 255}
	pix := make([]byte, 0, w*h*4)
	for i := 0; i < w*h; i++ {
		pix = append(pix, colour...)
	}
	sizes := [][2]int{{1, 1}, {7, 5}, {31, 23}, {63, 47}, {100, 70}}
	filters := []Filter{FilterDefault, FilterBox, FilterTriangle, FilterCubic, FilterCatmullRom, FilterMitchell}
	for _, edge := range []Edge{EdgeClamp, EdgeReflect, EdgeWrap} {
		for _, f := range filters {
			for _, sz := range sizes {
				t.Run(fmt.Sprintf("%s/%d/%dx%d", f, edge, sz[0], sz[1]), func(t *testing.T) {
					p := DefaultParams(4)
					p.FilterH, p.FilterV = f, f
					p.EdgeH, p.EdgeV = edge, edge
					got := resize8(t, pix, w, h, sz[0], sz[1], p)
					for i := 0; i < len(got); i += 4 {
						if diff := cmp.Diff(colour, got[i:i+4]); diff != "" {
							t.Fatalf("pixel %d (-want +got):\n%s", i/4, diff)
						}
					}
				})
			}
		}
	}
}

func TestKernelsPartitionUnity(t *testing.T) {
	for _, f := range []Filter{FilterBox, FilterTriangle, FilterCubic, FilterCatmullRom, FilterMitchell} {
		for _, phase := range []float64{0, 0.25, 0.5, 0.9} {
			var sum float64
			for i := -3; i <= 3; i++ {
				sum += f.eval(float64(i) + phase)
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("%s phase %g: weights sum to %g", f, phase, sum)
			}
		}
	}
}

func TestDefaultFilter(t *testing.T) {
	if got := FilterDefault.resolve(2); got != FilterCatmullRom {
		t.Errorf("upsampling picked %s", got)
	}
	if got := FilterDefault.resolve(0.5); got != FilterMitchell {
		t.Errorf("downsampling picked %s", got)
	}
	if got := FilterBox.resolve(2); got != FilterBox {
		t.Errorf("explicit filter replaced by %s", got)
	}
}

func TestEdgeIndex(t *testing.T) {
	cases := []struct {
		edge Edge
		i    int
		want int
	}{
		{EdgeClamp, -3, 0},
		{EdgeClamp, 7, 4},
		{EdgeReflect, -1, 1},
		{EdgeReflect, -2, 2},
		{EdgeReflect, 5, 4},
		{EdgeReflect, 6, 3},
		{EdgeWrap, -1, 4},
		{EdgeWrap, 5, 0},
		{EdgeWrap, 12, 2},
		{EdgeZero, -1, -1},
		{EdgeZero, 5, -1},
		{EdgeZero, 2, 2},
	}
	for _, tc := range cases {
		if got := tc.edge.index(tc.i, 5); got != tc.want {
			t.Errorf("edge %d index(%d) = %d, want %d", tc.edge, tc.i, got, tc.want)
		}
	}
}

func TestBoxAverage(t *testing.T) {
	p := DefaultParams(1)
	p.FilterH, p.FilterV = FilterBox, FilterBox
	got := resize8(t, []byte{0, 100, 200, 50}, 4, 1, 2, 1, p)
	if diff := cmp.Diff([]byte{50, 125}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDownsampleScatterWeights(t *testing.T) {
	// 6 -> 2 with a triangle: input n sits at output coordinate (n+0.5)/3
	// and every output collects five inputs weighted 1:2:3:2:1.
	a := newAxis(FilterTriangle, 6, 2, 0, 1)
	if a.gather {
		t.Fatal("downsampling axis gathers")
	}
	tap := func(n int) contributor { return a.taps[n-a.base] }
	cases := []struct {
		input int
		first int
		want  []float32
	}{
		{-1, 0, []float32{1.0 / 9}},
		{1, 0, []float32{3.0 / 9}},
		{2, 0, []float32{2.0 / 9, 1.0 / 9}},
		{3, 0, []float32{1.0 / 9, 2.0 / 9}},
		{4, 1, []float32{3.0 / 9}},
		{6, 1, []float32{1.0 / 9}},
	}
	for _, tc := range cases {
		c := tap(tc.input)
		if c.first != tc.first {
			t.Errorf("input %d: first output %d, want %d", tc.input, c.first, tc.first)
		}
		if diff := cmp.Diff(tc.want, c.weights, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("input %d weights (-want +got):\n%s", tc.input, diff)
		}
	}
	if c := tap(-2); len(c.weights) != 0 {
		t.Errorf("input -2 reaches outputs %v", c.weights)
	}

	p := DefaultParams(1)
	p.FilterH, p.FilterV = FilterTriangle, FilterBox
	got := resize8(t, []byte{0, 90, 180, 27, 9, 252}, 6, 1, 2, 1, p)
	// (0 + 2*0 + 3*90 + 2*180 + 27)/9 and (180 + 2*27 + 3*9 + 2*252 + 252)/9
	if diff := cmp.Diff([]byte{73, 113}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// the vertical axis goes through the row accumulators
	p.FilterH, p.FilterV = FilterBox, FilterTriangle
	got = resize8(t, []byte{0, 90, 180, 27, 9, 252}, 1, 6, 1, 2, p)
	if diff := cmp.Diff([]byte{73, 113}, got); diff != "" {
		t.Errorf("vertical mismatch (-want +got):\n%s", diff)
	}
}

func TestDownsampleNonIntegerRatio(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const w, h, ow, oh = 17, 13, 5, 4
	src := make([]float32, w*h)
	for i := range src {
		src[i] = float32(rng.Intn(256))
	}
	out := make([]float32, ow*oh)
	p := DefaultParams(1)
	p.FilterH, p.FilterV = FilterMitchell, FilterCubic
	if err := Resize(&Buffer[float32]{Pix: out, Width: ow, Height: oh}, &Buffer[float32]{Pix: src, Width: w, Height: h}, p); err != nil {
		t.Fatal(err)
	}

	// reference: scatter every input with kernel(i+0.5-center)*scale and
	// divide each output by the weight it received
	weights := func(f Filter, in, outN int) [][]float64 {
		scale := float64(outN) / float64(in)
		ws := make([][]float64, outN)
		for i := range ws {
			ws[i] = make([]float64, in)
		}
		for n := -3 * in; n < 4*in; n++ {
			center := (float64(n) + 0.5) * scale
			sx := EdgeClamp.index(n, in)
			for i := 0; i < outN; i++ {
				ws[i][sx] += f.eval(float64(i)+0.5-center) * scale
			}
		}
		for i := range ws {
			var total float64
			for _, v := range ws[i] {
				total += v
			}
			for j := range ws[i] {
				ws[i][j] /= total
			}
		}
		return ws
	}
	wh, wv := weights(FilterMitchell, w, ow), weights(FilterCubic, h, oh)
	want := make([]float32, ow*oh)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			var sum float64
			for sy := 0; sy < h; sy++ {
				for sx := 0; sx < w; sx++ {
					sum += wv[y][sy] * wh[x][sx] * float64(src[sy*w+sx])
				}
			}
			want[y*ow+x] = float32(sum)
		}
	}
	if diff := cmp.Diff(want, out, cmpopts.EquateApprox(0, 1e-2)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSubRegion(t *testing.T) {
	p := DefaultParams(1)
	p.FilterH, p.FilterV = FilterBox, FilterBox
	p.S0, p.T0, p.S1, p.T1 = 0.5, 0, 1, 1
	got := resize8(t, []byte{10, 20, 30, 40}, 4, 1, 2, 1, p)
	if diff := cmp.Diff([]byte{30, 40}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAlphaWeighting(t *testing.T) {
	pix := []byte{255, 0, 0, 255, 0, 0, 255, 0}
	p := DefaultParams(4)
	p.FilterH, p.FilterV = FilterBox, FilterBox
	if diff := cmp.Diff([]byte{255, 0, 0, 128}, resize8(t, pix, 2, 1, 1, 1, p)); diff != "" {
		t.Errorf("straight alpha (-want +got):\n%s", diff)
	}
	p.Premultiplied = true
	if diff := cmp.Diff([]byte{128, 0, 128, 128}, resize8(t, pix, 2, 1, 1, 1, p)); diff != "" {
		t.Errorf("premultiplied (-want +got):\n%s", diff)
	}
}

func TestZeroEdgeDarkens(t *testing.T) {
	p := DefaultParams(1)
	p.FilterH, p.FilterV = FilterTriangle, FilterBox
	p.EdgeH, p.EdgeV = EdgeZero, EdgeZero
	got := resize8(t, []byte{200}, 1, 1, 3, 1, p)
	if got[1] != 200 || got[0] >= 200 || got[2] >= 200 {
		t.Errorf("zero edge: %v", got)
	}
	p.EdgeH = EdgeClamp
	if diff := cmp.Diff([]byte{200, 200, 200}, resize8(t, []byte{200}, 1, 1, 3, 1, p)); diff != "" {
		t.Errorf("clamp edge (-want +got):\n%s", diff)
	}
}

func TestStride(t *testing.T) {
	// two rows of three grey pixels padded to five samples
	src := &Buffer[uint8]{Pix: []byte{1, 2, 3, 99, 99, 4, 5, 6, 99, 99}, Width: 3, Height: 2, Stride: 5}
	dst := &Buffer[uint8]{Pix: make([]byte, 8), Width: 3, Height: 2, Stride: 4}
	p := DefaultParams(1)
	p.FilterH, p.FilterV = FilterBox, FilterBox
	if err := Resize(dst, src, p); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 0, 4, 5, 6, 0}, dst.Pix); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleTypes(t *testing.T) {
	src16 := &Buffer[uint16]{Pix: []uint16{65535, 0, 65535, 0}, Width: 2, Height: 2}
	dst16 := &Buffer[uint16]{Pix: make([]uint16, 1), Width: 1, Height: 1}
	p := DefaultParams(1)
	p.FilterH, p.FilterV = FilterBox, FilterBox
	if err := Resize(dst16, src16, p); err != nil {
		t.Fatal(err)
	}
	if dst16.Pix[0] != 32768 {
		t.Errorf("uint16 average %d", dst16.Pix[0])
	}

	img := &codec.ImageFloat{Pix: []float32{5, 5, 5, 5, 5, 5, 5, 5, 5}, Width: 3, Height: 3, Channels: 1}
	out, err := ResizeFloat(img, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{5, 5, 5, 5}, out.Pix, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("float values above one (-want +got):\n%s", diff)
	}
	if sampleRange[uint8]() != 255 || sampleRange[uint32]() != math.MaxUint32 || sampleRange[float64]() != 0 {
		t.Error("sample ranges")
	}
}

func TestConvenience(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	img := &codec.Image{Pix: randomImage(rng, 20, 10, 2), Width: 20, Height: 10, Channels: 2}
	for _, fn := range []func(*codec.Image, int, int) (*codec.Image, error){ResizeUint8, ResizeUint8SRGB} {
		out, err := fn(img, 45, 3)
		if err != nil {
			t.Fatal(err)
		}
		if out.Width != 45 || out.Height != 3 || len(out.Pix) != 45*3*2 {
			t.Errorf("got %dx%d with %d bytes", out.Width, out.Height, len(out.Pix))
		}
	}
	if _, err := ResizeUint8(img, 0, 3); !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("zero width: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Params { return DefaultParams(3) }
	cases := []struct {
		name   string
		modify func(*Params)
		want   error
	}{
		{"channels", func(p *Params) { p.Channels = 0 }, ErrChannels},
		{"alpha", func(p *Params) { p.AlphaChannel = 3 }, ErrAlphaChannel},
		{"filter", func(p *Params) { p.FilterV = 42 }, ErrFilter},
		{"edge", func(p *Params) { p.EdgeH = -1 }, ErrEdge},
		{"colourspace", func(p *Params) { p.Colorspace = 7 }, ErrColorspace},
		{"region", func(p *Params) { p.S0, p.S1, p.T1 = 0.5, 0.5, 1 }, ErrRegion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base()
			tc.modify(p)
			if err := p.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
	var nilParams *Params
	if err := nilParams.Validate(); !errors.Is(err, ErrNoParams) {
		t.Errorf("nil params: %v", err)
	}
	small := &Buffer[uint8]{Pix: make([]byte, 5), Width: 2, Height: 1}
	if err := Resize(small, &Buffer[uint8]{Pix: make([]byte, 6), Width: 2, Height: 1}, base()); !errors.Is(err, ErrBuffer) {
		t.Errorf("short buffer: %v", err)
	}
}
