package vorbis

import (
	"fmt"
	"math"
	"sort"
)

const maxFloorValues = 65

// floor1 is a piecewise linear spectral envelope.
type floor1 struct {
	partitionClass []int
	classDims      []int
	classSubs      []int
	classMaster    []int
	subBooks       [][]int // -1 for none
	multiplier     int
	xList          []int

	sorted []int // indices of xList in increasing x
	low    []int // low_neighbor for each index >= 2
	high   []int // high_neighbor
}

// floorRange maps the multiplier to the range of the first two values.
var floorRange = [4]int{256, 128, 86, 64}

// inverseDB is the amplitude for each floor value, a geometric ramp over
// 140 dB ending at 1.
var inverseDB [256]float32

func init() {
	for i := range inverseDB {
		inverseDB[i] = float32(math.Pow(1.0649863, float64(i-255)))
	}
}

func readFloor1(br *bitReader, books []*codebook) (*floor1, error) {
	f := &floor1{}
	partitions := int(br.read(5))
	maxClass := -1
	f.partitionClass = make([]int, partitions)
	for i := range f.partitionClass {
		f.partitionClass[i] = int(br.read(4))
		maxClass = max(maxClass, f.partitionClass[i])
	}
	n := maxClass + 1
	f.classDims = make([]int, n)
	f.classSubs = make([]int, n)
	f.classMaster = make([]int, n)
	f.subBooks = make([][]int, n)
	for i := 0; i < n; i++ {
		f.classDims[i] = int(br.read(3)) + 1
		f.classSubs[i] = int(br.read(2))
		if f.classSubs[i] > 0 {
			f.classMaster[i] = int(br.read(8))
			if f.classMaster[i] >= len(books) {
				return nil, fmt.Errorf("%w: floor master book", ErrBadHeader)
			}
		}
		f.subBooks[i] = make([]int, 1<<f.classSubs[i])
		for j := range f.subBooks[i] {
			b := int(br.read(8)) - 1
			if b >= len(books) {
				return nil, fmt.Errorf("%w: floor subclass book", ErrBadHeader)
			}
			f.subBooks[i][j] = b
		}
	}
	f.multiplier = int(br.read(2)) + 1
	rangeBits := int(br.read(4))
	f.xList = []int{0, 1 << rangeBits}
	for _, class := range f.partitionClass {
		for j := 0; j < f.classDims[class]; j++ {
			f.xList = append(f.xList, int(br.read(rangeBits)))
			if len(f.xList) > maxFloorValues {
				return nil, fmt.Errorf("%w: too many floor points", ErrBadHeader)
			}
		}
	}
	if br.eop {
		return nil, ErrTruncated
	}

	f.sorted = make([]int, len(f.xList))
	for i := range f.sorted {
		f.sorted[i] = i
	}
	sort.SliceStable(f.sorted, func(a, b int) bool { return f.xList[f.sorted[a]] < f.xList[f.sorted[b]] })
	for i := 1; i < len(f.sorted); i++ {
		if f.xList[f.sorted[i]] == f.xList[f.sorted[i-1]] {
			return nil, fmt.Errorf("%w: repeated floor x", ErrBadHeader)
		}
	}

	f.low = make([]int, len(f.xList))
	f.high = make([]int, len(f.xList))
	for i := 2; i < len(f.xList); i++ {
		lo, hi := 0, 1
		for j := 0; j < i; j++ {
			x := f.xList[j]
			if x < f.xList[i] && x > f.xList[lo] {
				lo = j
			}
			if x > f.xList[i] && x < f.xList[hi] {
				hi = j
			}
		}
		f.low[i], f.high[i] = lo, hi
	}
	return f, nil
}

// decode reads the floor values for one channel. It returns nil when the
// channel is silent in this packet.
func (f *floor1) decode(br *bitReader, books []*codebook, y []int) []int {
	if !br.readBit() {
		return nil
	}
	rng := floorRange[f.multiplier-1]
	y = y[:len(f.xList)]
	bitsY := ilog(rng - 1)
	y[0] = int(br.read(bitsY))
	y[1] = int(br.read(bitsY))
	off := 2
	for _, class := range f.partitionClass {
		cdim := f.classDims[class]
		cbits := f.classSubs[class]
		csub := 1<<cbits - 1
		cval := 0
		if cbits > 0 {
			cval = books[f.classMaster[class]].decode(br)
			if cval < 0 {
				return nil
			}
		}
		for j := 0; j < cdim; j++ {
			book := f.subBooks[class][cval&csub]
			cval >>= cbits
			y[off+j] = 0
			if book >= 0 {
				v := books[book].decode(br)
				if v < 0 {
					return nil
				}
				y[off+j] = v
			}
		}
		off += cdim
	}
	if br.eop {
		return nil
	}
	return y
}

func renderPoint(x0, y0, x1, y1, x int) int {
	dy := y1 - y0
	adx := x1 - x0
	ady := dy
	if ady < 0 {
		ady = -ady
	}
	off := ady * (x - x0) / adx
	if dy < 0 {
		return y0 - off
	}
	return y0 + off
}

// renderLine draws the integer line from (x0,y0) to (x1,y1) into out as
// amplitudes, ignoring x beyond len(out).
func renderLine(x0, y0, x1, y1 int, out []float32) {
	dy := y1 - y0
	adx := x1 - x0
	ady := dy
	if ady < 0 {
		ady = -ady
	}
	base := dy / adx
	sy := base + 1
	if dy < 0 {
		sy = base - 1
	}
	if base < 0 {
		ady -= -base * adx
	} else {
		ady -= base * adx
	}
	x, yv, err := x0, y0, 0
	if x < len(out) {
		out[x] *= inverseDB[min(max(yv, 0), 255)]
	}
	for x = x0 + 1; x < x1 && x < len(out); x++ {
		err += ady
		if err >= adx {
			err -= adx
			yv += sy
		} else {
			yv += base
		}
		out[x] *= inverseDB[min(max(yv, 0), 255)]
	}
}

// apply synthesises the curve from decoded values and multiplies it into
// the spectrum.
func (f *floor1) apply(y []int, spectrum []float32, step2 []bool, final []int) {
	rng := floorRange[f.multiplier-1]
	n := len(f.xList)
	step2 = step2[:n]
	final = final[:n]
	step2[0], step2[1] = true, true
	final[0], final[1] = y[0], y[1]
	for i := 2; i < n; i++ {
		lo, hi := f.low[i], f.high[i]
		predicted := renderPoint(f.xList[lo], final[lo], f.xList[hi], final[hi], f.xList[i])
		val := y[i]
		highroom := rng - predicted
		lowroom := predicted
		room := lowroom * 2
		if highroom < lowroom {
			room = highroom * 2
		}
		if val == 0 {
			step2[i] = false
			final[i] = predicted
			continue
		}
		step2[lo], step2[hi], step2[i] = true, true, true
		switch {
		case val >= room && highroom > lowroom:
			final[i] = val - lowroom + predicted
		case val >= room:
			final[i] = predicted - val + highroom - 1
		case val&1 == 1:
			final[i] = predicted - (val+1)/2
		default:
			final[i] = predicted + val/2
		}
	}

	lx, ly := 0, final[0]*f.multiplier
	for _, i := range f.sorted[1:] {
		if !step2[i] {
			continue
		}
		hx, hy := f.xList[i], final[i]*f.multiplier
		if hx > lx {
			renderLine(lx, ly, hx, hy, spectrum)
		}
		lx, ly = hx, hy
	}
	if lx < len(spectrum) {
		renderLine(lx, ly, len(spectrum), ly, spectrum)
	}
}
