package resize

import "math"

// Filter selects the reconstruction kernel for one axis.
type Filter int

// Filters. FilterDefault picks Catmull-Rom when the axis is upsampled and
// Mitchell otherwise.
const (
	FilterDefault Filter = iota
	FilterBox
	FilterTriangle
	FilterCubic
	FilterCatmullRom
	FilterMitchell
)

func (f Filter) String() string {
	switch f {
	case FilterDefault:
		return "default"
	case FilterBox:
		return "box"
	case FilterTriangle:
		return "triangle"
	case FilterCubic:
		return "cubic"
	case FilterCatmullRom:
		return "catmullrom"
	case FilterMitchell:
		return "mitchell"
	}
	return "unknown"
}

func (f Filter) valid() bool { return f >= FilterDefault && f <= FilterMitchell }

// resolve replaces FilterDefault with the kernel used at this scale.
func (f Filter) resolve(scale float64) Filter {
	if f != FilterDefault {
		return f
	}
	if scale > 1 {
		return FilterCatmullRom
	}
	return FilterMitchell
}

// support is the kernel radius in source samples at unit scale.
func (f Filter) support() float64 {
	switch f {
	case FilterBox:
		return 0.5
	case FilterTriangle:
		return 1
	}
	return 2
}

// eval returns the kernel weight at signed distance x.
func (f Filter) eval(x float64) float64 {
	if f == FilterBox {
		// half-open so adjacent boxes never both claim a sample
		if x <= -0.5 || x > 0.5 {
			return 0
		}
		return 1
	}
	x = math.Abs(x)
	switch f {
	case FilterTriangle:
		if x <= 1 {
			return 1 - x
		}
	case FilterCubic:
		if x < 1 {
			return (4 + x*x*(3*x-6)) / 6
		} else if x < 2 {
			return (8 + x*(-12+x*(6-x))) / 6
		}
	case FilterCatmullRom:
		if x < 1 {
			return 1 - x*x*(2.5-1.5*x)
		} else if x < 2 {
			return 2 - x*(4+x*(0.5*x-2.5))
		}
	case FilterMitchell:
		if x < 1 {
			return (16 + x*x*(21*x-36)) / 18
		} else if x < 2 {
			return (32 + x*(-60+x*(36-7*x))) / 18
		}
	}
	return 0
}

// Edge selects how samples outside the source are produced.
type Edge int

// Edge modes
const (
	EdgeClamp Edge = iota
	EdgeReflect
	EdgeWrap
	EdgeZero
)

func (e Edge) valid() bool { return e >= EdgeClamp && e <= EdgeZero }

// index maps a possibly out-of-range sample index into [0, n). It returns
// -1 when the sample is zero.
func (e Edge) index(i, n int) int {
	if i >= 0 && i < n {
		return i
	}
	switch e {
	case EdgeReflect:
		if i < 0 {
			return min(-i, n-1)
		}
		return max(2*n-i-1, 0)
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case EdgeZero:
		return -1
	}
	return min(max(i, 0), n-1)
}

// weightEpsilon is the magnitude below which edge taps are trimmed.
const weightEpsilon = 1.0 / (1 << 20)

// contributor lists the taps of one sample: the source samples feeding an
// output sample when gathering, or the output samples an input sample is
// scattered into when downsampling.
type contributor struct {
	first   int // may lie outside the source when gathering
	weights []float32
}

func (c contributor) last() int { return c.first + len(c.weights) - 1 }

// axis holds the filter taps of one axis. When gather is set, taps[i]
// lists the source samples read by output i. Otherwise taps[k] lists the
// outputs that virtual source sample base+k adds to.
type axis struct {
	gather bool
	base   int
	taps   []contributor
}

// newAxis computes the taps for one axis. The source span is [s0, s1] in
// normalised coordinates. Upsampling gathers with the kernel at source
// scale; downsampling evaluates the kernel in output space around each
// input sample and scatters.
func newAxis(f Filter, inSize, outSize int, s0, s1 float64) axis {
	span := (s1 - s0) * float64(inSize)
	scale := float64(outSize) / span
	offset := s0 * float64(inSize)
	f = f.resolve(scale)
	if scale >= 1 {
		return axis{gather: true, taps: gatherTaps(f, outSize, scale, offset)}
	}
	return scatterTaps(f, outSize, scale, offset)
}

func gatherTaps(f Filter, outSize int, scale, offset float64) []contributor {
	radius := f.support()
	out := make([]contributor, outSize)
	ws := make([]float64, 0, int(2*radius)+3)
	for x := range out {
		center := (float64(x)+0.5)/scale + offset
		n0 := int(math.Ceil(center - radius - 0.5))
		n1 := int(math.Floor(center + radius - 0.5))

		ws = ws[:0]
		var total float64
		for i := n0; i <= n1; i++ {
			w := f.eval(float64(i) + 0.5 - center)
			ws = append(ws, w)
			total += w
		}
		if total != 0 {
			for i := range ws {
				ws[i] /= total
			}
		}
		out[x] = trim(n0, ws)
	}
	return out
}

// scatterTaps builds one contributor per input sample that reaches an
// output, including virtual samples beyond the source edges. Weights are
// normalised so every output receives a total weight of one.
func scatterTaps(f Filter, outSize int, scale, offset float64) axis {
	radius := f.support()
	lo := int(math.Floor(offset+(0.5-radius)/scale-0.5)) - 1
	hi := int(math.Ceil(offset+(float64(outSize)+radius-0.5)/scale-0.5)) + 1

	raw := make([][]float64, hi-lo+1)
	firsts := make([]int, len(raw))
	totals := make([]float64, outSize)
	for k := range raw {
		center := (float64(lo+k) + 0.5 - offset) * scale
		i0 := max(int(math.Ceil(center-radius-0.5)), 0)
		i1 := min(int(math.Floor(center+radius-0.5)), outSize-1)
		firsts[k] = i0
		for i := i0; i <= i1; i++ {
			w := f.eval(float64(i)+0.5-center) * scale
			raw[k] = append(raw[k], w)
			totals[i] += w
		}
	}

	a := axis{base: lo, taps: make([]contributor, len(raw))}
	for k, ws := range raw {
		for j := range ws {
			if t := totals[firsts[k]+j]; t != 0 {
				ws[j] /= t
			}
		}
		a.taps[k] = trim(firsts[k], ws)
	}
	return a
}

// trim drops near-zero leading and trailing taps.
func trim(first int, ws []float64) contributor {
	lo, hi := 0, len(ws)
	for lo < hi && math.Abs(ws[lo]) < weightEpsilon {
		lo++
	}
	for hi > lo && math.Abs(ws[hi-1]) < weightEpsilon {
		hi--
	}
	c := contributor{first: first + lo, weights: make([]float32, hi-lo)}
	for i, w := range ws[lo:hi] {
		c.weights[i] = float32(w)
	}
	return c
}

// retain returns, for each gathered output sample, the lowest source index
// that it or any later sample still reads, and the ring size this implies.
func retain(cs []contributor) (keep []int, window int) {
	keep = make([]int, len(cs))
	low := math.MaxInt
	for i := len(cs) - 1; i >= 0; i-- {
		if len(cs[i].weights) > 0 {
			low = min(low, cs[i].first)
		}
		keep[i] = low
	}
	high := math.MinInt
	for i, c := range cs {
		high = max(high, c.last())
		window = max(window, high-keep[i]+1)
	}
	return keep, window + 1
}

// flushable returns, for each scattered input sample, the lowest output
// index it or any later input still adds to (outSize when none does), and
// the number of output accumulators that must stay open.
func flushable(cs []contributor, outSize int) (below []int, window int) {
	below = make([]int, len(cs)+1)
	low := outSize
	below[len(cs)] = low
	for k := len(cs) - 1; k >= 0; k-- {
		if len(cs[k].weights) > 0 {
			low = min(low, cs[k].first)
		}
		below[k] = low
	}
	high := -1
	for k, c := range cs {
		if len(c.weights) > 0 {
			high = max(high, c.last())
		}
		window = max(window, high-below[k]+1)
	}
	return below, window + 1
}
