package jpeg

import "github.com/cocosip/go-media-codec/common"

// resampleFunc produces one full-width row from a near and a far source
// row of a subsampled plane.
type resampleFunc func(out, near, far []byte, w, hs int) []byte

func div4(x int) byte  { return byte(x >> 2) }
func div16(x int) byte { return byte(x >> 4) }

func resampleRow1(out, near, far []byte, w, hs int) []byte {
	return near
}

// resampleRowV2 interpolates vertically between two rows (1x2).
func resampleRowV2(out, near, far []byte, w, hs int) []byte {
	for i := 0; i < w; i++ {
		out[i] = div4(3*int(near[i]) + int(far[i]) + 2)
	}
	return out
}

// resampleRowH2 doubles a row horizontally with a triangle filter (2x1).
func resampleRowH2(out, near, far []byte, w, hs int) []byte {
	in := near
	if w == 1 {
		out[0], out[1] = in[0], in[0]
		return out
	}
	out[0] = in[0]
	out[1] = div4(int(in[0])*3 + int(in[1]) + 2)
	i := 1
	for ; i < w-1; i++ {
		n := 3*int(in[i]) + 2
		out[i*2] = div4(n + int(in[i-1]))
		out[i*2+1] = div4(n + int(in[i+1]))
	}
	out[i*2] = div4(int(in[w-2])*3 + int(in[w-1]) + 2)
	out[i*2+1] = in[w-1]
	return out
}

// resampleRowHV2 doubles in both directions (2x2).
func resampleRowHV2(out, near, far []byte, w, hs int) []byte {
	if w == 1 {
		v := div4(3*int(near[0]) + int(far[0]) + 2)
		out[0], out[1] = v, v
		return out
	}
	t1 := 3*int(near[0]) + int(far[0])
	out[0] = div4(t1 + 2)
	for i := 1; i < w; i++ {
		t0 := t1
		t1 = 3*int(near[i]) + int(far[i])
		out[i*2-1] = div16(3*t0 + t1 + 8)
		out[i*2] = div16(3*t1 + t0 + 8)
	}
	out[w*2-1] = div4(t1 + 2)
	return out
}

// resampleRowGeneric replicates samples for any other integer ratio.
func resampleRowGeneric(out, near, far []byte, w, hs int) []byte {
	for i := 0; i < w; i++ {
		for j := 0; j < hs; j++ {
			out[i*hs+j] = near[i]
		}
	}
	return out
}

type resampler struct {
	fn           resampleFunc
	hs, vs       int
	wLores       int
	ystep        int
	ypos         int
	line0, line1 int // row offsets into the component plane
	buf          []byte
}

func (d *decoder) newResampler(c *component) *resampler {
	r := &resampler{
		hs:  d.hMax / c.h,
		vs:  d.vMax / c.v,
		buf: make([]byte, d.width+3),
	}
	r.ystep = r.vs >> 1
	r.wLores = common.DivCeil(d.width, r.hs)
	switch {
	case r.hs == 1 && r.vs == 1:
		r.fn = resampleRow1
	case r.hs == 1 && r.vs == 2:
		r.fn = resampleRowV2
	case r.hs == 2 && r.vs == 1:
		r.fn = resampleRowH2
	case r.hs == 2 && r.vs == 2:
		r.fn = resampleRowHV2
	default:
		r.fn = resampleRowGeneric
	}
	return r
}

// next returns the next full-resolution row of c.
func (r *resampler) next(c *component) []byte {
	near, far := r.line0, r.line1
	if r.ystep >= r.vs>>1 {
		near, far = r.line1, r.line0
	}
	row := r.fn(r.buf, c.data[near:near+c.w2], c.data[far:far+c.w2], r.wLores, r.hs)
	r.ystep++
	if r.ystep >= r.vs {
		r.ystep = 0
		r.line0 = r.line1
		r.ypos++
		if r.ypos < c.y {
			r.line1 += c.w2
		}
	}
	return row
}

// fixed-point YCbCr constants, 20 fractional bits
const (
	crR = 1470208  // 1.40200
	crG = -748800  // -0.71414
	cbG = -360960  // -0.34414
	cbB = 1858048  // 1.77200
)

func ycbcrToRGB(out []byte, y, cb, cr []byte, w, step int) {
	for i := 0; i < w; i++ {
		yf := int(y[i])<<20 + 1<<19
		crv := int(cr[i]) - 128
		cbv := int(cb[i]) - 128
		r := yf + crv*crR
		g := yf + crv*crG + int(int32(cbv*cbG)&^0xffff)
		b := yf + cbv*cbB
		o := out[i*step:]
		o[0] = common.Clamp8(r >> 20)
		o[1] = common.Clamp8(g >> 20)
		o[2] = common.Clamp8(b >> 20)
	}
}

// isRGB reports whether three-component data is stored as RGB rather
// than YCbCr.
func (d *decoder) isRGB() bool {
	return len(d.comps) == 3 && (d.rgbIDs == 3 || (d.app14Transform == 0 && !d.jfif))
}

// output upsamples and colour converts the component planes. It returns
// the interleaved buffer and its channel count: 1 for grey and for colour
// images when fewer than 3 channels were requested and luma is available
// directly, else 3.
func (d *decoder) output(want int) ([]byte, int) {
	nc := len(d.comps)
	n := 3
	if nc < 3 {
		n = 1
	}
	rgb := d.isRGB()
	decodeN := nc
	if nc == 3 && want > 0 && want < 3 && !rgb {
		// only luma is needed
		n, decodeN = 1, 1
	}
	if nc == 4 && want > 0 && want < 3 && d.app14Transform != 0 && d.app14Transform != 2 {
		n, decodeN = 1, 1
	}

	rs := make([]*resampler, decodeN)
	for k := range rs {
		rs[k] = d.newResampler(d.comps[k])
	}

	out := make([]byte, d.width*d.height*n)
	rows := make([][]byte, decodeN)
	var tmp []byte
	if nc == 4 && n == 3 {
		tmp = make([]byte, d.width*3)
	}
	for j := 0; j < d.height; j++ {
		for k, r := range rs {
			rows[k] = r.next(d.comps[k])
		}
		dst := out[j*d.width*n : (j+1)*d.width*n]
		switch {
		case n == 1:
			copy(dst, rows[0][:d.width])
		case nc == 3 && rgb:
			for i := 0; i < d.width; i++ {
				dst[i*3], dst[i*3+1], dst[i*3+2] = rows[0][i], rows[1][i], rows[2][i]
			}
		case nc == 3:
			ycbcrToRGB(dst, rows[0], rows[1], rows[2], d.width, 3)
		case nc == 4:
			d.convertCMYK(dst, tmp, rows)
		}
	}
	return out, n
}

// convertCMYK handles four-component images: Adobe transform 0 is CMYK,
// 2 is YCCK, anything else is treated as YCbCr with the fourth channel
// ignored.
func (d *decoder) convertCMYK(dst, tmp []byte, rows [][]byte) {
	w := d.width
	switch d.app14Transform {
	case 0:
		for i := 0; i < w; i++ {
			m := rows[3][i]
			dst[i*3] = common.Mul8x8(rows[0][i], m)
			dst[i*3+1] = common.Mul8x8(rows[1][i], m)
			dst[i*3+2] = common.Mul8x8(rows[2][i], m)
		}
	case 2:
		ycbcrToRGB(tmp, rows[0], rows[1], rows[2], w, 3)
		for i := 0; i < w; i++ {
			m := rows[3][i]
			dst[i*3] = common.Mul8x8(255-tmp[i*3], m)
			dst[i*3+1] = common.Mul8x8(255-tmp[i*3+1], m)
			dst[i*3+2] = common.Mul8x8(255-tmp[i*3+2], m)
		}
	default:
		ycbcrToRGB(dst, rows[0], rows[1], rows[2], w, 3)
	}
}
