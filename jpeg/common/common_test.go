package common

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/cocosip/go-media-codec/stream"
)

func TestHuffmanRoundTrip(t *testing.T) {
	tables := []struct {
		name  string
		table *HuffmanTable
	}{
		{"dc luminance", StdDCLuminance},
		{"ac luminance", StdACLuminance},
		{"dc chrominance", StdDCChrominance},
		{"ac chrominance", StdACChrominance},
	}
	rng := rand.New(rand.NewSource(3))
	for _, tt := range tables {
		t.Run(tt.name, func(t *testing.T) {
			codes := BuildHuffmanCodes(tt.table)
			// strictly increasing codes within each length
			last := map[int]int{}
			for _, v := range tt.table.Values {
				c := codes[v]
				if prev, ok := last[c.Len]; ok && int(c.Code) <= prev {
					t.Fatalf("symbol %#x: code %d not above %d", v, c.Code, prev)
				}
				last[c.Len] = int(c.Code)
			}

			var want []int
			for i := 0; i < 2000; i++ {
				want = append(want, int(tt.table.Values[rng.Intn(len(tt.table.Values))]))
			}
			var buf bytes.Buffer
			sw := stream.NewWriter(&buf)
			bw := NewBitWriter(sw)
			for _, v := range want {
				bw.WriteCode(codes[v])
			}
			bw.Flush()
			if err := sw.Flush(); err != nil {
				t.Fatal(err)
			}

			br := NewBitReader(stream.FromBytes(buf.Bytes()))
			for i, v := range want {
				got, err := br.Decode(tt.table)
				if err != nil {
					t.Fatalf("symbol %d: %v", i, err)
				}
				if got != v {
					t.Fatalf("symbol %d = %#x, want %#x", i, got, v)
				}
			}
		})
	}
}

func TestBitReaderStopsAtMarker(t *testing.T) {
	// 0xFF00 is a stuffed 0xFF data byte; 0xFFD9 ends the segment
	br := NewBitReader(stream.FromBytes([]byte{0xFF, 0x00, 0xA5, 0xFF, 0xD9}))
	if v := br.Bits(8); v != 0xFF {
		t.Fatalf("first byte = %#x, want 0xff", v)
	}
	if v := br.Bits(8); v != 0xA5 {
		t.Fatalf("second byte = %#x, want 0xa5", v)
	}
	if v := br.Bits(16); v != 0 {
		t.Errorf("bits past marker = %#x, want 0", v)
	}
	if br.Marker() != MarkerEOI {
		t.Errorf("marker = %#x, want EOI", br.Marker())
	}
}

func TestReceiveExtend(t *testing.T) {
	for _, v := range []int{-1023, -255, -3, -1, 1, 2, 7, 100, 2047} {
		var buf bytes.Buffer
		sw := stream.NewWriter(&buf)
		bw := NewBitWriter(sw)
		cat, bits := Category(v)
		bw.WriteBits(bits, cat)
		bw.Flush()
		sw.Flush()
		br := NewBitReader(stream.FromBytes(buf.Bytes()))
		if got := br.Receive(cat); got != v {
			t.Errorf("Receive(Category(%d)) = %d", v, got)
		}
	}
}

func TestFastACMatchesSlowPath(t *testing.T) {
	codes := BuildHuffmanCodes(StdACLuminance)
	for _, rs := range StdACLuminance.Values {
		run, mag := int(rs>>4), int(rs&15)
		if mag == 0 {
			continue
		}
		val := 1<<mag - 1 // largest positive value of this class
		var buf bytes.Buffer
		sw := stream.NewWriter(&buf)
		bw := NewBitWriter(sw)
		bw.WriteCode(codes[rs])
		_, bits := Category(val)
		bw.WriteBits(bits, mag)
		bw.Flush()
		sw.Flush()

		br := NewBitReader(stream.FromBytes(buf.Bytes()))
		if r, v, ok := br.DecodeFastAC(StdACLuminance); ok {
			if r != run || v != val {
				t.Errorf("rs %#x: fast run/val = %d/%d, want %d/%d", rs, r, v, run, val)
			}
			continue
		}
		sym, err := br.Decode(StdACLuminance)
		if err != nil || sym != int(rs) {
			t.Fatalf("rs %#x: slow decode = %#x, %v", rs, sym, err)
		}
		if v := br.Receive(mag); v != val {
			t.Errorf("rs %#x: slow value = %d, want %d", rs, v, val)
		}
	}
}

func TestBuildRejectsBadLengths(t *testing.T) {
	h := &HuffmanTable{Bits: [16]int{3}, Values: []byte{1, 2, 3}}
	if err := h.Build(); err == nil {
		t.Fatal("three 1-bit codes should not build")
	}
}

// referenceIDCT is the direct double-precision 2D inverse DCT.
func referenceIDCT(coef *[64]int16) [64]float64 {
	var out [64]float64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sum := 0.0
			for v := 0; v < 8; v++ {
				for u := 0; u < 8; u++ {
					cu, cv := 1.0, 1.0
					if u == 0 {
						cu = math.Sqrt2 / 2
					}
					if v == 0 {
						cv = math.Sqrt2 / 2
					}
					sum += cu * cv * float64(coef[v*8+u]) *
						math.Cos(float64(2*x+1)*float64(u)*math.Pi/16) *
						math.Cos(float64(2*y+1)*float64(v)*math.Pi/16)
				}
			}
			out[y*8+x] = sum/4 + 128
		}
	}
	return out
}

func TestIDCTAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for iter := 0; iter < 50; iter++ {
		var coef [64]int16
		coef[0] = int16(rng.Intn(400) - 200)
		for i := 1; i < 64; i++ {
			if rng.Intn(4) == 0 {
				coef[i] = int16(rng.Intn(80) - 40)
			}
		}
		want := referenceIDCT(&coef)
		got := make([]byte, 64)
		IDCT(&coef, got, 8)
		for i := range got {
			w := math.Max(0, math.Min(255, want[i]))
			if d := math.Abs(float64(got[i]) - w); d > 1.5 {
				t.Fatalf("iter %d sample %d: got %d want %.2f", iter, i, got[i], w)
			}
		}
	}
}

func TestFDCTInvertsWithIDCT(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var one [64]int32
	for i := range one {
		one[i] = 1
	}
	div := QuantDivisors(one)
	for iter := 0; iter < 20; iter++ {
		var src [64]byte
		var block [64]float32
		for i := range src {
			src[i] = byte(rng.Intn(256))
			block[i] = float32(src[i]) - 128
		}
		FDCT(&block)
		var coef [64]int16
		for i := range block {
			coef[i] = int16(math.Round(float64(block[i] * div[i])))
		}
		out := make([]byte, 64)
		IDCT(&coef, out, 8)
		for i := range out {
			if d := int(out[i]) - int(src[i]); d < -2 || d > 2 {
				t.Fatalf("sample %d: %d -> %d", i, src[i], out[i])
			}
		}
	}
}

func TestScaleQuantTable(t *testing.T) {
	q50 := ScaleQuantTable(DefaultLuminanceQuantTable, 50)
	if q50 != DefaultLuminanceQuantTable {
		t.Error("quality 50 should leave the table unchanged")
	}
	q100 := ScaleQuantTable(DefaultLuminanceQuantTable, 100)
	for i, v := range q100 {
		if v != 1 {
			t.Fatalf("quality 100 entry %d = %d, want 1", i, v)
		}
	}
	q1 := ScaleQuantTable(DefaultChrominanceQuantTable, 1)
	if q1[63] != 255 {
		t.Errorf("quality 1 entry = %d, want 255", q1[63])
	}
}

func TestZigZagInverse(t *testing.T) {
	for i := 0; i < 64; i++ {
		if int(ZigZag[Unzig[i]]) != i {
			t.Fatalf("ZigZag[Unzig[%d]] = %d", i, ZigZag[Unzig[i]])
		}
	}
}
