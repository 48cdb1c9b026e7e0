package common

// AANScale holds the per-row/column output scale of the AAN forward DCT,
// premultiplied by 2*sqrt(2).
var AANScale = [8]float32{
	1.0 * 2.828427125,
	1.387039845 * 2.828427125,
	1.306562965 * 2.828427125,
	1.175875602 * 2.828427125,
	1.0 * 2.828427125,
	0.785694958 * 2.828427125,
	0.541196100 * 2.828427125,
	0.275899379 * 2.828427125,
}

// fdct1D runs one pass of the Arai-Agui-Nakajima forward DCT over eight
// samples spaced step apart, in place.
func fdct1D(d []float32, off, step int) {
	d0, d1, d2, d3 := d[off], d[off+step], d[off+2*step], d[off+3*step]
	d4, d5, d6, d7 := d[off+4*step], d[off+5*step], d[off+6*step], d[off+7*step]

	tmp0 := d0 + d7
	tmp7 := d0 - d7
	tmp1 := d1 + d6
	tmp6 := d1 - d6
	tmp2 := d2 + d5
	tmp5 := d2 - d5
	tmp3 := d3 + d4
	tmp4 := d3 - d4

	// Even part
	tmp10 := tmp0 + tmp3
	tmp13 := tmp0 - tmp3
	tmp11 := tmp1 + tmp2
	tmp12 := tmp1 - tmp2

	d[off] = tmp10 + tmp11
	d[off+4*step] = tmp10 - tmp11

	z1 := (tmp12 + tmp13) * 0.707106781
	d[off+2*step] = tmp13 + z1
	d[off+6*step] = tmp13 - z1

	// Odd part
	tmp10 = tmp4 + tmp5
	tmp11 = tmp5 + tmp6
	tmp12 = tmp6 + tmp7

	z5 := (tmp10 - tmp12) * 0.382683433
	z2 := tmp10*0.541196100 + z5
	z4 := tmp12*1.306562965 + z5
	z3 := tmp11 * 0.707106781

	z11 := tmp7 + z3
	z13 := tmp7 - z3

	d[off+5*step] = z13 + z2
	d[off+3*step] = z13 - z2
	d[off+step] = z11 + z4
	d[off+7*step] = z11 - z4
}

// FDCT performs the forward DCT on a level-shifted 8x8 block in natural
// order. Outputs are scaled by AANScale[row]*AANScale[col]*8; fold that into
// the quantizer with QuantDivisors.
func FDCT(block *[64]float32) {
	for row := 0; row < 64; row += 8 {
		fdct1D(block[:], row, 1)
	}
	for col := 0; col < 8; col++ {
		fdct1D(block[:], col, 8)
	}
}

// QuantDivisors returns reciprocal divisors for FDCT output, combining the
// natural-order quantization table with the AAN scale.
func QuantDivisors(q [64]int32) [64]float32 {
	var f [64]float32
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			k := row*8 + col
			f[k] = 1 / (float32(q[k]) * AANScale[row] * AANScale[col])
		}
	}
	return f
}
