package dxt

// compressAlphaBlock writes an 8-byte BC4 block for the 16 samples at
// src[0], src[stride], ... src[15*stride].
//
// Indices are chosen by scaling each value onto the 0..7 line between the
// block extremes with a bias that makes the rounding optimal for the
// hardware interpolants.
func compressAlphaBlock(dst []byte, src []byte, stride int) {
	mn, mx := int(src[0]), int(src[0])
	for i := 1; i < 16; i++ {
		v := int(src[i*stride])
		if v < mn {
			mn = v
		} else if v > mx {
			mx = v
		}
	}
	dst[0], dst[1] = byte(mx), byte(mn)

	dist := mx - mn
	dist4, dist2 := dist*4, dist*2
	bias := dist/2 + 2
	if dist < 8 {
		bias = dist - 1
	}
	bias -= mn * 7

	out := dst[2:]
	bits, acc := 0, 0
	for i := 0; i < 16; i++ {
		a := int(src[i*stride])*7 + bias
		ind := 0
		if a >= dist4 {
			ind += 4
			a -= dist4
		}
		if a >= dist2 {
			ind += 2
			a -= dist2
		}
		if a >= dist {
			ind++
		}
		// linear position 0 (min) .. 7 (max) to block index, where 0
		// and 1 are the endpoints
		ind = -ind & 7
		if ind < 2 {
			ind ^= 1
		}
		acc |= ind << bits
		bits += 3
		if bits >= 8 {
			out[0] = byte(acc)
			out = out[1:]
			acc >>= 8
			bits -= 8
		}
	}
}

// alphaPalette returns the eight levels of a BC4 block.
func alphaPalette(a0, a1 int) (pal [8]int) {
	pal[0], pal[1] = a0, a1
	if a0 > a1 {
		for i := 1; i <= 6; i++ {
			pal[i+1] = ((7-i)*a0 + i*a1) / 7
		}
		return pal
	}
	for i := 1; i <= 4; i++ {
		pal[i+1] = ((5-i)*a0 + i*a1) / 5
	}
	pal[6], pal[7] = 0, 255
	return pal
}

// decompressAlphaBlock expands a BC4 block into dst[0], dst[stride], ...
func decompressAlphaBlock(dst []byte, stride int, src []byte) {
	pal := alphaPalette(int(src[0]), int(src[1]))
	var bits uint64
	for i := 7; i >= 2; i-- {
		bits = bits<<8 | uint64(src[i])
	}
	for i := 0; i < 16; i++ {
		dst[i*stride] = byte(pal[bits&7])
		bits >>= 3
	}
}

// decompressColorBlock expands a BC1 block into 16 RGBA pixels. Blocks
// inside BC3 always use the four-colour palette.
func decompressColorBlock(dst *[64]byte, src []byte, fourColour bool) {
	c0 := uint16(src[0]) | uint16(src[1])<<8
	c1 := uint16(src[2]) | uint16(src[3])<<8
	var pal [4][4]int
	p0, p1 := from565(c0), from565(c1)
	for k := 0; k < 3; k++ {
		pal[0][k], pal[1][k] = p0[k], p1[k]
		if fourColour || c0 > c1 {
			pal[2][k] = lerp13(p0[k], p1[k])
			pal[3][k] = lerp13(p1[k], p0[k])
		} else {
			pal[2][k] = (p0[k] + p1[k]) / 2
		}
	}
	pal[0][3], pal[1][3], pal[2][3] = 255, 255, 255
	if fourColour || c0 > c1 {
		pal[3][3] = 255
	}

	mask := uint32(src[4]) | uint32(src[5])<<8 | uint32(src[6])<<16 | uint32(src[7])<<24
	for i := 0; i < 16; i++ {
		c := pal[mask&3]
		for k := 0; k < 4; k++ {
			dst[i*4+k] = byte(c[k])
		}
		mask >>= 2
	}
}
