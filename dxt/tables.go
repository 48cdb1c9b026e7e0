package dxt

import (
	"sync"

	"github.com/cocosip/go-media-codec/common"
)

var (
	tablesOnce sync.Once

	expand5 [32]uint8
	expand6 [64]uint8

	// omatch5[i] and omatch6[i] hold the endpoint pair whose one-third
	// interpolant best reproduces the 8-bit value i.
	omatch5 [256][2]uint8
	omatch6 [256][2]uint8

	// quantisation tables for dithering, offset by 8 to absorb the
	// diffused error
	quantRB [256 + 16]uint8
	quantG  [256 + 16]uint8
)

func initTables() {
	tablesOnce.Do(func() {
		for i := range expand5 {
			expand5[i] = uint8(i<<3 | i>>2)
		}
		for i := range expand6 {
			expand6[i] = uint8(i<<2 | i>>4)
		}
		for i := range quantRB {
			v := min(max(i-8, 0), 255)
			quantRB[i] = expand5[common.Mul8x8(uint8(v), 31)]
			quantG[i] = expand6[common.Mul8x8(uint8(v), 63)]
		}
		prepareOptTable(&omatch5, expand5[:])
		prepareOptTable(&omatch6, expand6[:])
	})
}

func prepareOptTable(table *[256][2]uint8, expand []uint8) {
	for i := range table {
		best := 256
		for mn := range expand {
			for mx := range expand {
				mine, maxe := int(expand[mn]), int(expand[mx])
				err := common.Abs(lerp13(maxe, mine) - i)
				// interpolation may deviate by up to 3% of the endpoint
				// distance in hardware
				err += common.Abs(maxe-mine) * 3 / 100
				if err < best {
					table[i] = [2]uint8{uint8(mx), uint8(mn)}
					best = err
				}
			}
		}
	}
}

func lerp13(a, b int) int { return (2*a + b) / 3 }

func from565(v uint16) [3]int {
	return [3]int{int(expand5[v>>11]), int(expand6[(v>>5)&0x3f]), int(expand5[v&0x1f])}
}

func to565(r, g, b uint8) uint16 {
	return uint16(common.Mul8x8(r, 31))<<11 | uint16(common.Mul8x8(g, 63))<<5 | uint16(common.Mul8x8(b, 31))
}
