package dxt

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cocosip/go-media-codec/codec"
)

func TestTables(t *testing.T) {
	initTables()
	if expand5[31] != 255 || expand6[63] != 255 || expand5[0] != 0 {
		t.Errorf("expand tables: %d %d %d", expand5[31], expand6[63], expand5[0])
	}
	if diff := cmp.Diff([2]uint8{0, 0}, omatch5[0]); diff != "" {
		t.Errorf("omatch5[0] (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([2]uint8{63, 63}, omatch6[255]); diff != "" {
		t.Errorf("omatch6[255] (-want +got):\n%s", diff)
	}
	// every value is reachable within a couple of levels
	for i := 0; i < 256; i++ {
		got := lerp13(int(expand5[omatch5[i][0]]), int(expand5[omatch5[i][1]]))
		if d := got - i; d < -4 || d > 4 {
			t.Errorf("omatch5[%d] reproduces %d", i, got)
		}
	}
}

func TestBlockCount(t *testing.T) {
	for _, sz := range [][2]int{{1, 1}, {4, 4}, {5, 7}, {17, 3}, {64, 64}} {
		w, h := sz[0], sz[1]
		t.Run(fmt.Sprintf("%dx%d", w, h), func(t *testing.T) {
			blocks := ((w + 3) / 4) * ((h + 3) / 4)
			rng := rand.New(rand.NewSource(int64(w*100 + h)))
			rgba := make([]byte, w*h*4)
			rng.Read(rgba)

			for _, alpha := range []bool{false, true} {
				out, err := Compress(rgba, w, h, alpha, nil)
				if err != nil {
					t.Fatal(err)
				}
				want := blocks * 8
				if alpha {
					want = blocks * 16
				}
				if len(out) != want {
					t.Errorf("alpha=%v: %d bytes, want %d", alpha, len(out), want)
				}
			}
			bc4, err := CompressBC4(rgba[:w*h], w, h)
			if err != nil {
				t.Fatal(err)
			}
			bc5, err := CompressBC5(rgba[:w*h*2], w, h)
			if err != nil {
				t.Fatal(err)
			}
			if len(bc4) != blocks*8 || len(bc5) != blocks*16 {
				t.Errorf("bc4 %d bytes, bc5 %d bytes for %d blocks", len(bc4), len(bc5), blocks)
			}
		})
	}
}

func solidBlock(c [4]byte) *[64]byte {
	var b [64]byte
	for i := 0; i < 16; i++ {
		copy(b[i*4:], c[:])
	}
	return &b
}

func maxError(a, b *[64]byte, channels int) int {
	worst := 0
	for i := 0; i < 16; i++ {
		for k := 0; k < channels; k++ {
			d := int(a[i*4+k]) - int(b[i*4+k])
			worst = max(worst, d, -d)
		}
	}
	return worst
}

func TestSolidColour(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		c := [4]byte{byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256)), 255}
		block := solidBlock(c)
		var enc [8]byte
		CompressBlock(enc[:], block, false, nil)
		var dec [64]byte
		DecompressBlock(&dec, enc[:], false)
		if e := maxError(block, &dec, 4); e > 4 {
			t.Fatalf("colour %v: error %d", c, e)
		}
	}
}

func TestGreyRampIsExact(t *testing.T) {
	// white, black and the two one-third points are exactly representable
	levels := [4]byte{255, 0, 170, 85}
	var block [64]byte
	for i := 0; i < 16; i++ {
		v := levels[(i*7)%4]
		copy(block[i*4:], []byte{v, v, v, 255})
	}
	for _, mode := range []Mode{ModeNormal, ModeHighQuality} {
		var enc [8]byte
		CompressBlock(enc[:], &block, false, &Options{Mode: mode})
		var dec [64]byte
		DecompressBlock(&dec, enc[:], false)
		if e := maxError(&block, &dec, 4); e > 1 {
			t.Errorf("mode %d: error %d", mode, e)
		}
	}
}

func gradientBlock(rng *rand.Rand) *[64]byte {
	var b [64]byte
	base := [3]int{rng.Intn(128), rng.Intn(128), rng.Intn(128)}
	step := [3]int{rng.Intn(9), rng.Intn(9), rng.Intn(9)}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			i := (y*4 + x) * 4
			for k := 0; k < 3; k++ {
				b[i+k] = byte(base[k] + step[k]*(x+y))
			}
			b[i+3] = byte(x*80 + y*5)
		}
	}
	return &b
}

func TestGradientQuality(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	opts := []*Options{
		{Mode: ModeNormal},
		{Mode: ModeHighQuality},
		{Mode: ModeNormal, Dither: true},
		{Mode: ModeHighQuality, Refinements: 1},
	}
	for _, o := range opts {
		var total, n int
		for i := 0; i < 100; i++ {
			block := gradientBlock(rng)
			var enc [16]byte
			CompressBlock(enc[:], block, true, o)
			var dec [64]byte
			DecompressBlock(&dec, enc[:], true)
			for p := 0; p < 64; p++ {
				d := int(block[p]) - int(dec[p])
				total += max(d, -d)
				n++
			}
		}
		mean := float64(total) / float64(n)
		t.Logf("%+v: mean abs error %.2f", *o, mean)
		if mean > 8 {
			t.Errorf("%+v: mean abs error %.2f", *o, mean)
		}
	}
}

func TestAlphaBlock(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		var block [16]byte
		lo, span := rng.Intn(256), rng.Intn(256)
		for k := range block {
			block[k] = byte(min(lo+rng.Intn(span+1), 255))
		}
		var enc [8]byte
		CompressAlphaBlock(enc[:], &block)
		var dec [16]byte
		decompressAlphaBlock(dec[:], 1, enc[:])

		mn, mx := block[0], block[0]
		for _, v := range block {
			mn, mx = min(mn, v), max(mx, v)
		}
		if enc[0] != mx || enc[1] != mn {
			t.Fatalf("endpoints %d,%d want %d,%d", enc[0], enc[1], mx, mn)
		}
		limit := (int(mx-mn)+13)/14 + 2
		for k := range block {
			if d := int(block[k]) - int(dec[k]); d > limit || -d > limit {
				t.Fatalf("block %v: sample %d decoded %d, limit %d", block, k, dec[k], limit)
			}
		}
	}
}

func TestBC5Channels(t *testing.T) {
	var block [32]byte
	for i := 0; i < 16; i++ {
		block[i*2] = byte(i * 16)
		block[i*2+1] = byte(255 - i*3)
	}
	var enc [16]byte
	CompressBC5Block(enc[:], &block)
	var dec [32]byte
	decompressAlphaBlock(dec[:], 2, enc[:8])
	decompressAlphaBlock(dec[1:], 2, enc[8:])
	for i := range block {
		if d := int(block[i]) - int(dec[i]); d > 18 || d < -18 {
			t.Errorf("sample %d: %d decoded as %d", i, block[i], dec[i])
		}
	}
	if enc[0] != 240 || enc[1] != 0 || enc[8] != 255 || enc[9] != 210 {
		t.Errorf("endpoints %v", enc)
	}
}

func TestPartialBlocksReplicateEdges(t *testing.T) {
	// a 1x1 image fills its block with the single pixel
	out, err := Compress([]byte{10, 200, 30, 255}, 1, 1, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]byte, 8)
	CompressBlock(want, solidBlock([4]byte{10, 200, 30, 255}), false, nil)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	if _, err := Compress(make([]byte, 16), 2, 2, false, &Options{Mode: 9}); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("bad mode: %v", err)
	}
	if _, err := Compress(make([]byte, 16), 2, 2, false, &Options{Refinements: 3}); !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("bad refinements: %v", err)
	}
	if _, err := Compress(make([]byte, 15), 2, 2, true, nil); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short buffer: %v", err)
	}
	if _, err := CompressBC4(nil, 0, 4); !errors.Is(err, ErrDimensions) {
		t.Errorf("zero width: %v", err)
	}
}
