package tables

import "github.com/CodedInternet/gowalker/onboard/geometry"

const (
	hexFrames      = 20
	hexStride      = 25.0 // half stroke
	hexFastStride  = 50.0
	hexLift        = 20.0
	hexClimbLift   = 28.0
	hexTwistDegree = 15.0
)

// Alternating tripods: legs 0, 2 and 4 play the path, the others half a cycle later.
func tripod(p Path) []Path {
	paths := make([]Path, 6)
	for leg := range paths {
		if leg%2 == 0 {
			paths[leg] = p
		} else {
			paths[leg] = p.Shift(len(p) / 2)
		}
	}
	return paths
}

func buildHexSet() *Set {
	s := &Set{Chassis: geometry.Hex}
	standby := geometry.Hex.Standby()

	postureTables(s, standby, hexTwistDegree)
	locomotionTables(s, standby,
		tripod(semicircle(hexFrames, hexStride, hexLift)),
		tripod(semicircle(hexFrames, hexFastStride, hexLift)),
	)
	s.tables[Climb] = newTable("climb", assemble(standby, tripod(semicircle(hexFrames, hexStride, hexClimbLift))), frameMs)

	return s
}
