package dxt

import "math"

// evalColors builds the four-entry palette for the endpoint pair.
func evalColors(c0, c1 uint16) (pal [4][3]int) {
	pal[0] = from565(c0)
	pal[1] = from565(c1)
	for k := 0; k < 3; k++ {
		pal[2][k] = lerp13(pal[0][k], pal[1][k])
		pal[3][k] = lerp13(pal[1][k], pal[0][k])
	}
	return pal
}

// matchColors assigns each pixel the nearest palette entry by projecting
// onto the axis between the endpoints. The result holds two bits per pixel.
func matchColors(block *[64]byte, pal *[4][3]int, dither bool) uint32 {
	dr := pal[0][0] - pal[1][0]
	dg := pal[0][1] - pal[1][1]
	db := pal[0][2] - pal[1][2]

	var dots [16]int
	for i := range dots {
		dots[i] = int(block[i*4])*dr + int(block[i*4+1])*dg + int(block[i*4+2])*db
	}
	var stops [4]int
	for i := range stops {
		stops[i] = pal[i][0]*dr + pal[i][1]*dg + pal[i][2]*db
	}

	// the palette lies on a line: pick the half first, then the entry
	// inside it
	c0Point := stops[1] + stops[3]
	halfPoint := stops[3] + stops[2]
	c3Point := stops[2] + stops[0]
	pick := func(dot int) uint32 {
		if dot < halfPoint {
			if dot < c0Point {
				return 1
			}
			return 3
		}
		if dot < c3Point {
			return 2
		}
		return 0
	}

	var mask uint32
	if !dither {
		for i := 15; i >= 0; i-- {
			mask = mask<<2 | pick(dots[i]*2)
		}
		return mask
	}

	c0Point <<= 3
	halfPoint <<= 3
	c3Point <<= 3
	var cur, prev [4]int
	for y := 0; y < 4; y++ {
		dp := dots[y*4 : y*4+4]
		var line uint32
		for x := 0; x < 4; x++ {
			dot := dp[x] << 4
			switch x {
			case 0:
				dot += 3*prev[1] + 5*prev[0]
			case 1, 2:
				dot += 7*cur[x-1] + 3*prev[x+1] + 5*prev[x] + prev[x-1]
			case 3:
				dot += 7*cur[2] + 5*prev[3] + prev[2]
			}
			step := pick(dot)
			cur[x] = dp[x] - stops[step]
			line |= step << (2 * x)
		}
		mask |= line << (8 * y)
		cur, prev = prev, cur
	}
	return mask
}

// ditherBlock applies Floyd-Steinberg error diffusion against the 5-6-5
// grid to the colour channels.
func ditherBlock(dst, block *[64]byte) {
	*dst = *block
	for ch := 0; ch < 3; ch++ {
		quant := quantRB[:]
		if ch == 1 {
			quant = quantG[:]
		}
		q := func(v int) byte {
			return quant[min(max(v+8, 0), len(quant)-1)]
		}
		var cur, prev [4]int
		for y := 0; y < 4; y++ {
			bp := func(x int) int { return int(block[(y*4+x)*4+ch]) }
			for x := 0; x < 4; x++ {
				var e int
				switch x {
				case 0:
					e = 3*prev[1] + 5*prev[0]
				case 1, 2:
					e = 7*cur[x-1] + 3*prev[x+1] + 5*prev[x] + prev[x-1]
				case 3:
					e = 7*cur[2] + 5*prev[3] + prev[2]
				}
				v := q(bp(x) + e>>4)
				dst[(y*4+x)*4+ch] = v
				cur[x] = bp(x) - int(v)
			}
			cur, prev = prev, cur
		}
	}
}

// powerIterations is the number of steps used to find the principal axis.
const powerIterations = 4

// optimizeColors picks endpoints at the extremes of the block along its
// principal colour axis.
func optimizeColors(block *[64]byte) (max16, min16 uint16) {
	var mu, lo, hi [3]int
	for ch := 0; ch < 3; ch++ {
		sum := int(block[ch])
		lo[ch], hi[ch] = sum, sum
		for i := 4; i < 64; i += 4 {
			v := int(block[i+ch])
			sum += v
			lo[ch] = min(lo[ch], v)
			hi[ch] = max(hi[ch], v)
		}
		mu[ch] = (sum + 8) >> 4
	}

	var cov [6]int
	for i := 0; i < 16; i++ {
		r := int(block[i*4]) - mu[0]
		g := int(block[i*4+1]) - mu[1]
		b := int(block[i*4+2]) - mu[2]
		cov[0] += r * r
		cov[1] += r * g
		cov[2] += r * b
		cov[3] += g * g
		cov[4] += g * b
		cov[5] += b * b
	}
	var covf [6]float32
	for i, c := range cov {
		covf[i] = float32(c) / 255
	}

	vr := float32(hi[0] - lo[0])
	vg := float32(hi[1] - lo[1])
	vb := float32(hi[2] - lo[2])
	for i := 0; i < powerIterations; i++ {
		r := vr*covf[0] + vg*covf[1] + vb*covf[2]
		g := vr*covf[1] + vg*covf[3] + vb*covf[4]
		b := vr*covf[2] + vg*covf[4] + vb*covf[5]
		vr, vg, vb = r, g, b
	}

	var ar, ag, ab int
	magn := math.Max(math.Abs(float64(vr)), math.Max(math.Abs(float64(vg)), math.Abs(float64(vb))))
	if magn < 4 {
		// degenerate spread: fall back to luma weights
		ar, ag, ab = 299, 587, 114
	} else {
		s := 512 / magn
		ar, ag, ab = int(float64(vr)*s), int(float64(vg)*s), int(float64(vb)*s)
	}

	minp, maxp := 0, 0
	mind := int(block[0])*ar + int(block[1])*ag + int(block[2])*ab
	maxd := mind
	for i := 1; i < 16; i++ {
		dot := int(block[i*4])*ar + int(block[i*4+1])*ag + int(block[i*4+2])*ab
		if dot < mind {
			mind, minp = dot, i
		}
		if dot > maxd {
			maxd, maxp = dot, i
		}
	}
	return to565(block[maxp*4], block[maxp*4+1], block[maxp*4+2]),
		to565(block[minp*4], block[minp*4+1], block[minp*4+2])
}

func clampInt(v float32, hi int) uint16 {
	return uint16(min(max(int(v), 0), hi))
}

// singleColor returns the endpoints that best reproduce one colour through
// the one-third interpolant.
func singleColor(r, g, b uint8) (max16, min16 uint16) {
	max16 = uint16(omatch5[r][0])<<11 | uint16(omatch6[g][0])<<5 | uint16(omatch5[b][0])
	min16 = uint16(omatch5[r][1])<<11 | uint16(omatch6[g][1])<<5 | uint16(omatch5[b][1])
	return max16, min16
}

// refineBlock re-fits the endpoints by least squares against the current
// index assignment. It reports whether they changed.
func refineBlock(block *[64]byte, max16, min16 *uint16, mask uint32) bool {
	// weight of the max endpoint per index, and the packed products
	// xx<<16 | yy<<8 | xy accumulated for the normal equations
	w1Tab := [4]int{3, 0, 2, 1}
	prods := [4]int{0x090000, 0x000900, 0x040102, 0x010402}

	oldMin, oldMax := *min16, *max16
	var newMax, newMin uint16
	if mask^(mask<<2) < 4 {
		// every pixel shares one index so the system is singular
		r, g, b := 8, 8, 8
		for i := 0; i < 16; i++ {
			r += int(block[i*4])
			g += int(block[i*4+1])
			b += int(block[i*4+2])
		}
		newMax, newMin = singleColor(uint8(r>>4), uint8(g>>4), uint8(b>>4))
	} else {
		var at1r, at1g, at1b, at2r, at2g, at2b, akku int
		cm := mask
		for i := 0; i < 16; i, cm = i+1, cm>>2 {
			step := cm & 3
			w1 := w1Tab[step]
			r, g, b := int(block[i*4]), int(block[i*4+1]), int(block[i*4+2])
			akku += prods[step]
			at1r += w1 * r
			at1g += w1 * g
			at1b += w1 * b
			at2r += r
			at2g += g
			at2b += b
		}
		at2r = 3*at2r - at1r
		at2g = 3*at2g - at1g
		at2b = 3*at2b - at1b

		xx := akku >> 16
		yy := (akku >> 8) & 0xff
		xy := akku & 0xff
		frb := float32(3*31) / 255 / float32(xx*yy-xy*xy)
		fg := frb * 63 / 31

		newMax = clampInt(float32(at1r*yy-at2r*xy)*frb+0.5, 31)<<11 |
			clampInt(float32(at1g*yy-at2g*xy)*fg+0.5, 63)<<5 |
			clampInt(float32(at1b*yy-at2b*xy)*frb+0.5, 31)
		newMin = clampInt(float32(at2r*xx-at1r*xy)*frb+0.5, 31)<<11 |
			clampInt(float32(at2g*xx-at1g*xy)*fg+0.5, 63)<<5 |
			clampInt(float32(at2b*xx-at1b*xy)*frb+0.5, 31)
	}
	*min16, *max16 = newMin, newMax
	return oldMin != newMin || oldMax != newMax
}

// compressColorBlock writes an 8-byte BC1 colour block for 16 RGBA pixels.
func compressColorBlock(dst []byte, block *[64]byte, dither bool, refinements int) {
	var max16, min16 uint16
	var mask uint32

	constant := true
	first := [4]byte(block[0:4])
	for i := 4; i < 64; i += 4 {
		if [4]byte(block[i:i+4]) != first {
			constant = false
			break
		}
	}

	if constant {
		mask = 0xaaaaaaaa
		max16, min16 = singleColor(block[0], block[1], block[2])
	} else {
		src := block
		if dither {
			var dblock [64]byte
			ditherBlock(&dblock, block)
			src = &dblock
		}
		max16, min16 = optimizeColors(src)
		if max16 != min16 {
			pal := evalColors(max16, min16)
			mask = matchColors(block, &pal, dither)
		}
		for i := 0; i < refinements; i++ {
			last := mask
			if refineBlock(src, &max16, &min16, mask) {
				if max16 == min16 {
					mask = 0
					break
				}
				pal := evalColors(max16, min16)
				mask = matchColors(block, &pal, dither)
			}
			if mask == last {
				break
			}
		}
	}

	if max16 < min16 {
		max16, min16 = min16, max16
		mask ^= 0x55555555
	}
	dst[0], dst[1] = byte(max16), byte(max16>>8)
	dst[2], dst[3] = byte(min16), byte(min16>>8)
	dst[4], dst[5], dst[6], dst[7] = byte(mask), byte(mask>>8), byte(mask>>16), byte(mask>>24)
}
