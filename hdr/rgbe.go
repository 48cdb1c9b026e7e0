package hdr

import "math"

// toRGBE packs a linear colour into shared-exponent form.
func toRGBE(r, g, b float32) [4]byte {
	m := max(r, g, b)
	if m < 1e-32 {
		return [4]byte{}
	}
	frac, exp := math.Frexp(float64(m))
	scale := float32(frac * 256 / float64(m))
	return [4]byte{byte(r * scale), byte(g * scale), byte(b * scale), byte(exp + 128)}
}

// fromRGBE expands a shared-exponent pixel.
func fromRGBE(p [4]byte) (r, g, b float32) {
	if p[3] == 0 {
		return 0, 0, 0
	}
	f := float32(math.Ldexp(1, int(p[3])-(128+8)))
	return float32(p[0]) * f, float32(p[1]) * f, float32(p[2]) * f
}

// Gamma and scale used to move between low and high dynamic range.
const (
	ldrGamma = 2.2
	ldrScale = 1.0
)

// ToLDR converts linear float samples to 8-bit with gamma 2.2. The last
// channel of a 2- or 4-channel image is alpha and is scaled linearly.
func ToLDR(src []float32, channels int) []byte {
	colour := channels
	if channels == 2 || channels == 4 {
		colour--
	}
	out := make([]byte, len(src))
	for i, v := range src {
		v = max(v, 0)
		var z float64
		if i%channels < colour {
			z = math.Pow(float64(v)*ldrScale, 1/ldrGamma)*255 + 0.5
		} else {
			z = float64(v)*255 + 0.5
		}
		out[i] = byte(max(0, min(255, z)))
	}
	return out
}

// FromLDR converts 8-bit samples to linear floats, the inverse of ToLDR.
func FromLDR(src []byte, channels int) []float32 {
	colour := channels
	if channels == 2 || channels == 4 {
		colour--
	}
	out := make([]float32, len(src))
	for i, v := range src {
		if i%channels < colour {
			out[i] = float32(math.Pow(float64(v)/255, ldrGamma) * ldrScale)
		} else {
			out[i] = float32(v) / 255
		}
	}
	return out
}
