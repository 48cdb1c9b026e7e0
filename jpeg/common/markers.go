package common

// JPEG marker codes, the byte following 0xFF
const (
	// Start of Image
	MarkerSOI = 0xD8

	// End of Image
	MarkerEOI = 0xD9

	// Start of Frame markers
	MarkerSOF0  = 0xC0 // Baseline DCT
	MarkerSOF1  = 0xC1 // Extended Sequential DCT
	MarkerSOF2  = 0xC2 // Progressive DCT
	MarkerSOF3  = 0xC3 // Lossless (Sequential)
	MarkerSOF15 = 0xCF // Differential Lossless, Arithmetic coding

	// Define Huffman Table
	MarkerDHT = 0xC4

	// Define Arithmetic Coding conditioning
	MarkerDAC = 0xCC

	// Define Quantization Table
	MarkerDQT = 0xDB

	// Define Restart Interval
	MarkerDRI = 0xDD

	// Define Number of Lines
	MarkerDNL = 0xDC

	// Start of Scan
	MarkerSOS = 0xDA

	MarkerAPP0  = 0xE0 // JFIF
	MarkerAPP14 = 0xEE // Adobe
	MarkerAPP15 = 0xEF

	// Comment
	MarkerCOM = 0xFE

	// Restart markers
	MarkerRST0 = 0xD0
	MarkerRST7 = 0xD7

	// MarkerNone means no marker has been seen.
	MarkerNone = 0xFF
)

// IsSOF returns true if the marker is a Start of Frame marker
func IsSOF(marker byte) bool {
	return marker >= MarkerSOF0 && marker <= MarkerSOF15 &&
		marker != MarkerDHT && marker != MarkerDAC && marker != 0xC8
}

// IsDCTSOF reports whether the frame type is one this package decodes.
func IsDCTSOF(marker byte) bool {
	return marker == MarkerSOF0 || marker == MarkerSOF1 || marker == MarkerSOF2
}

// IsRST returns true if the marker is a Restart marker
func IsRST(marker byte) bool {
	return marker >= MarkerRST0 && marker <= MarkerRST7
}

// IsAPP returns true for APP0..APP15.
func IsAPP(marker byte) bool {
	return marker >= MarkerAPP0 && marker <= MarkerAPP15
}

// HasLength returns true if the marker is followed by a length field
func HasLength(marker byte) bool {
	// Markers without length: SOI, EOI, RSTn, TEM
	if marker == MarkerSOI || marker == MarkerEOI || marker == 0x01 {
		return false
	}
	return !IsRST(marker)
}
