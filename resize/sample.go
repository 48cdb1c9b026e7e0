package resize

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Sample is a supported channel type. Unsigned integers span [0, max];
// floats are used as stored.
type Sample interface {
	~uint8 | ~uint16 | ~uint32 | constraints.Float
}

// sampleRange returns the value that maps to 1.0, or 0 for float types.
func sampleRange[T Sample]() float64 {
	one := T(1)
	if one/(one+one) != 0 {
		return 0
	}
	var zero T
	return float64(zero - one)
}

// srgbToLinear8 maps 8-bit sRGB codes to linear intensity.
var srgbToLinear8 [256]float32

func init() {
	for i := range srgbToLinear8 {
		srgbToLinear8[i] = float32(srgbToLinear(float64(i) / 255))
	}
}

func srgbToLinear(f float64) float64 {
	if f <= 0.04045 {
		return f / 12.92
	}
	return math.Pow((f+0.055)/1.055, 2.4)
}

func linearToSRGB(f float64) float64 {
	if f <= 0.0031308 {
		return f * 12.92
	}
	return 1.055*math.Pow(f, 1/2.4) - 0.055
}
