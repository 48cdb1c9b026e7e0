package vorbis

import "math"

// slope returns the rising half of the power-complementary window over m
// samples.
func slope(m int) []float32 {
	w := make([]float32, m)
	for i := range w {
		s := math.Sin((float64(i) + 0.5) / float64(m) * math.Pi / 2)
		w[i] = float32(math.Sin(math.Pi / 2 * s * s))
	}
	return w
}

// applyWindow shapes a block of n samples whose left slope spans
// [leftStart, leftStart+len(left)) and whose right slope spans
// [rightStart, rightStart+len(right)). Samples outside are zeroed.
func applyWindow(buf []float32, left []float32, leftStart int, right []float32, rightStart int) {
	for i := 0; i < leftStart; i++ {
		buf[i] = 0
	}
	for i, w := range left {
		buf[leftStart+i] *= w
	}
	for i := range right {
		buf[rightStart+i] *= right[len(right)-1-i]
	}
	for i := rightStart + len(right); i < len(buf); i++ {
		buf[i] = 0
	}
}
