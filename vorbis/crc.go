package vorbis

import "sync"

// Ogg uses the unreflected CRC-32 with polynomial 0x04c11db7, zero initial
// value and no final inversion.
const crcPoly = 0x04c11db7

var (
	crcOnce  sync.Once
	crcTable [256]uint32
)

func crcUpdate(crc uint32, p []byte) uint32 {
	crcOnce.Do(func() {
		for i := range crcTable {
			r := uint32(i) << 24
			for j := 0; j < 8; j++ {
				if r&0x80000000 != 0 {
					r = r<<1 ^ crcPoly
				} else {
					r <<= 1
				}
			}
			crcTable[i] = r
		}
	})
	for _, b := range p {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
