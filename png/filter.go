package png

import "github.com/cocosip/go-media-codec/common"

// Filter types
const (
	ftNone = iota
	ftSub
	ftUp
	ftAverage
	ftPaeth
	numFilters
)

// Adam7 pass geometry
var (
	adam7OriginX  = [7]int{0, 4, 0, 2, 0, 1, 0}
	adam7OriginY  = [7]int{0, 0, 4, 0, 2, 0, 1}
	adam7SpacingX = [7]int{8, 8, 4, 4, 2, 2, 1}
	adam7SpacingY = [7]int{8, 8, 8, 4, 4, 2, 2}
)

// paeth returns whichever of a (left), b (up) or c (upper left) is
// closest to a+b-c, preferring a then b.
func paeth(a, b, c int) int {
	p := a + b - c
	pa, pb, pc := common.Abs(p-a), common.Abs(p-b), common.Abs(p-c)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

// unfilter reverses the filter of one scanline in place. prior is the
// reconstructed previous line, all zero for the first line of a pass.
func unfilter(ft byte, cur, prior []byte, bpp int) error {
	switch ft {
	case ftNone:
	case ftSub:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case ftUp:
		for i := range cur {
			cur[i] += prior[i]
		}
	case ftAverage:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prior[i] >> 1
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += byte((int(cur[i-bpp]) + int(prior[i])) >> 1)
		}
	case ftPaeth:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += prior[i]
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += byte(paeth(int(cur[i-bpp]), int(prior[i]), int(prior[i-bpp])))
		}
	default:
		return ErrBadFilter
	}
	return nil
}

// filterRow writes the filtered form of cur into out and returns the sum
// of absolute residuals, reading residuals as signed bytes.
func filterRow(ft int, out, cur, prior []byte, bpp int) int {
	for i := range cur {
		var a, b, c int
		if i >= bpp {
			a = int(cur[i-bpp])
			c = int(prior[i-bpp])
		}
		b = int(prior[i])
		var pred int
		switch ft {
		case ftSub:
			pred = a
		case ftUp:
			pred = b
		case ftAverage:
			pred = (a + b) >> 1
		case ftPaeth:
			pred = paeth(a, b, c)
		}
		out[i] = cur[i] - byte(pred)
	}
	sum := 0
	for _, v := range out {
		sum += common.Abs(int(int8(v)))
	}
	return sum
}
