package codec

// luma computes integer BT.601 luminance.
func luma(r, g, b int) int {
	return (r*77 + g*150 + 29*b) >> 8
}

// ConvertChannels reinterleaves an 8-bit buffer from one channel count to
// another. Grey is replicated into RGB, RGB collapses to luminance and a
// missing alpha is filled with 255. The input is returned unchanged when
// from == to.
func ConvertChannels(pix []byte, from, to, width, height int) []byte {
	if from == to || to == 0 {
		return pix
	}
	n := width * height
	out := make([]byte, n*to)
	for i := 0; i < n; i++ {
		s := pix[i*from : i*from+from]
		d := out[i*to : i*to+to]
		var r, g, b, a byte
		switch from {
		case 1:
			r, g, b, a = s[0], s[0], s[0], 255
		case 2:
			r, g, b, a = s[0], s[0], s[0], s[1]
		case 3:
			r, g, b, a = s[0], s[1], s[2], 255
		default:
			r, g, b, a = s[0], s[1], s[2], s[3]
		}
		switch to {
		case 1:
			if from <= 2 {
				d[0] = r
			} else {
				d[0] = byte(luma(int(r), int(g), int(b)))
			}
		case 2:
			if from <= 2 {
				d[0] = r
			} else {
				d[0] = byte(luma(int(r), int(g), int(b)))
			}
			d[1] = a
		case 3:
			d[0], d[1], d[2] = r, g, b
		default:
			d[0], d[1], d[2], d[3] = r, g, b, a
		}
	}
	return out
}

// ConvertChannels16 is ConvertChannels for 16-bit samples.
func ConvertChannels16(pix []uint16, from, to, width, height int) []uint16 {
	if from == to || to == 0 {
		return pix
	}
	n := width * height
	out := make([]uint16, n*to)
	for i := 0; i < n; i++ {
		s := pix[i*from : i*from+from]
		d := out[i*to : i*to+to]
		var r, g, b, a uint16
		switch from {
		case 1:
			r, g, b, a = s[0], s[0], s[0], 0xffff
		case 2:
			r, g, b, a = s[0], s[0], s[0], s[1]
		case 3:
			r, g, b, a = s[0], s[1], s[2], 0xffff
		default:
			r, g, b, a = s[0], s[1], s[2], s[3]
		}
		y := r
		if from > 2 {
			y = uint16(luma(int(r), int(g), int(b)))
		}
		switch to {
		case 1:
			d[0] = y
		case 2:
			d[0], d[1] = y, a
		case 3:
			d[0], d[1], d[2] = r, g, b
		default:
			d[0], d[1], d[2], d[3] = r, g, b, a
		}
	}
	return out
}

// FlipRows reverses the row order of a buffer in place.
func FlipRows[T any](pix []T, rowLen, height int) {
	for y := 0; y < height/2; y++ {
		a := pix[y*rowLen : (y+1)*rowLen]
		b := pix[(height-1-y)*rowLen : (height-y)*rowLen]
		for i := range a {
			a[i], b[i] = b[i], a[i]
		}
	}
}

// Finish applies the requested channel conversion and flip to a freshly
// decoded 8-bit buffer.
func Finish(pix []byte, width, height, native int, opts *DecodeOptions) *Image {
	want := opts.Want(native)
	pix = ConvertChannels(pix, native, want, width, height)
	if opts.Flip() {
		FlipRows(pix, width*want, height)
	}
	return &Image{Pix: pix, Width: width, Height: height, Channels: want}
}
