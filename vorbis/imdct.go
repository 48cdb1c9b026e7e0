package vorbis

import (
	"math"
	"math/bits"
	"math/cmplx"
)

// imdct computes the inverse MDCT of one block size through a DCT-IV
// evaluated with a complex FFT of a quarter of the block.
type imdct struct {
	n      int
	pre    []complex128 // e^{-iπ(4k+1)/(4M)}
	post   []complex128 // e^{-iπk/M}
	twid   []complex128 // FFT roots e^{-2πij/L}
	bitrev []int
	z      []complex128
	u      []float64
}

func newIMDCT(n int) *imdct {
	m := n / 2
	l := n / 4
	t := &imdct{
		n:      n,
		pre:    make([]complex128, l),
		post:   make([]complex128, l),
		twid:   make([]complex128, l/2),
		bitrev: make([]int, l),
		z:      make([]complex128, l),
		u:      make([]float64, m),
	}
	for k := 0; k < l; k++ {
		t.pre[k] = cmplx.Rect(1, -math.Pi*float64(4*k+1)/float64(4*m))
		t.post[k] = cmplx.Rect(1, -math.Pi*float64(k)/float64(m))
	}
	for j := range t.twid {
		t.twid[j] = cmplx.Rect(1, -2*math.Pi*float64(j)/float64(l))
	}
	shift := bits.UintSize - bits.Len(uint(l-1))
	for k := range t.bitrev {
		if l > 1 {
			t.bitrev[k] = int(bits.Reverse(uint(k)) >> shift)
		}
	}
	return t
}

// fft transforms z in place.
func (t *imdct) fft(z []complex128) {
	l := len(z)
	for k, r := range t.bitrev {
		if k < r {
			z[k], z[r] = z[r], z[k]
		}
	}
	for size := 2; size <= l; size <<= 1 {
		half := size / 2
		step := l / size
		for start := 0; start < l; start += size {
			for j := 0; j < half; j++ {
				w := t.twid[j*step] * z[start+j+half]
				z[start+j+half] = z[start+j] - w
				z[start+j] += w
			}
		}
	}
}

// transform writes the n time samples for the n/2 coefficients in x.
func (t *imdct) transform(x []float32, y []float32) {
	m := t.n / 2
	l := t.n / 4
	for k := 0; k < l; k++ {
		t.z[k] = complex(float64(x[2*k]), float64(x[m-1-2*k])) * t.pre[k]
	}
	t.fft(t.z)
	u := t.u
	for k := 0; k < l; k++ {
		w := t.z[k] * t.post[k]
		u[2*k] = real(w)
		u[m-1-2*k] = -imag(w)
	}
	// unfold the DCT-IV into the full block using its symmetries
	half := m / 2
	for i := 0; i < t.n; i++ {
		switch {
		case i < half:
			y[i] = float32(u[i+half])
		case i < 3*half:
			y[i] = float32(-u[3*half-1-i])
		default:
			y[i] = float32(-u[i-3*half])
		}
	}
}
