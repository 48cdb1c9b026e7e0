package common

// fixed-point 4096 constants
const (
	f0541 = 2217   // 0.5411961
	f1847 = -7567  // -1.847759065
	f0765 = 3135   // 0.765366865
	f1175 = 4816   // 1.175875602
	f0298 = 1223   // 0.298631336
	f2053 = 8410   // 2.053119869
	f3072 = 12586  // 3.072711026
	f1501 = 6149   // 1.501321110
	f0899 = -3685  // -0.899976223
	f2562 = -10497 // -2.562915447
	f1961 = -8034  // -1.961570560
	f0390 = -1597  // -0.390180644
)

// idct1D returns the even (x) and odd (t) partial sums of one pass.
func idct1D(s0, s1, s2, s3, s4, s5, s6, s7 int) (x0, x1, x2, x3, t0, t1, t2, t3 int) {
	p2, p3 := s2, s6
	p1 := (p2 + p3) * f0541
	t2 = p1 + p3*f1847
	t3 = p1 + p2*f0765
	p2, p3 = s0, s4
	t0 = (p2 + p3) * 4096
	t1 = (p2 - p3) * 4096
	x0 = t0 + t3
	x3 = t0 - t3
	x1 = t1 + t2
	x2 = t1 - t2

	t0, t1, t2, t3 = s7, s5, s3, s1
	p3 = t0 + t2
	p4 := t1 + t3
	p1 = t0 + t3
	p2 = t1 + t2
	p5 := (p3 + p4) * f1175
	t0 *= f0298
	t1 *= f2053
	t2 *= f3072
	t3 *= f1501
	p1 = p5 + p1*f0899
	p2 = p5 + p2*f2562
	p3 *= f1961
	p4 *= f0390
	t3 += p1 + p4
	t2 += p2 + p3
	t1 += p2 + p4
	t0 += p1 + p3
	return
}

// IDCT transforms a dequantized natural-order block and writes clamped
// 8-bit samples to out with the given stride.
func IDCT(coef *[64]int16, out []byte, stride int) {
	var val [64]int

	// columns
	for i := 0; i < 8; i++ {
		d := coef[i:]
		if d[8] == 0 && d[16] == 0 && d[24] == 0 && d[32] == 0 &&
			d[40] == 0 && d[48] == 0 && d[56] == 0 {
			dc := int(d[0]) * 4
			for r := 0; r < 64; r += 8 {
				val[i+r] = dc
			}
			continue
		}
		x0, x1, x2, x3, t0, t1, t2, t3 := idct1D(int(d[0]), int(d[8]), int(d[16]), int(d[24]),
			int(d[32]), int(d[40]), int(d[48]), int(d[56]))
		// keep 2 extra bits of precision for the row pass
		x0 += 512
		x1 += 512
		x2 += 512
		x3 += 512
		val[i] = (x0 + t3) >> 10
		val[i+56] = (x0 - t3) >> 10
		val[i+8] = (x1 + t2) >> 10
		val[i+48] = (x1 - t2) >> 10
		val[i+16] = (x2 + t1) >> 10
		val[i+40] = (x2 - t1) >> 10
		val[i+24] = (x3 + t0) >> 10
		val[i+32] = (x3 - t0) >> 10
	}

	// rows
	for i := 0; i < 8; i++ {
		v := val[i*8 : i*8+8]
		o := out[i*stride : i*stride+8]
		x0, x1, x2, x3, t0, t1, t2, t3 := idct1D(v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7])
		// remove 1<<17 of scale with rounding and add the level shift
		const bias = 65536 + 128<<17
		x0 += bias
		x1 += bias
		x2 += bias
		x3 += bias
		o[0] = clamp8((x0 + t3) >> 17)
		o[7] = clamp8((x0 - t3) >> 17)
		o[1] = clamp8((x1 + t2) >> 17)
		o[6] = clamp8((x1 - t2) >> 17)
		o[2] = clamp8((x2 + t1) >> 17)
		o[5] = clamp8((x2 - t1) >> 17)
		o[3] = clamp8((x3 + t0) >> 17)
		o[4] = clamp8((x3 - t0) >> 17)
	}
}

func clamp8(v int) byte {
	if uint(v) > 255 {
		if v < 0 {
			return 0
		}
		return 255
	}
	return byte(v)
}
