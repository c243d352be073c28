package tables

import "github.com/CodedInternet/gowalker/onboard/geometry"

const (
	quadStride      = 25.0 // half stroke
	quadLift        = 25.0
	quadFastStride  = 1.6
	quadFastLift    = 0.6
	quadTwistDegree = 10.0
)

type gaitShape struct {
	stages int
	n      int     // frames per stage
	swing  [4]int  // stage in which each leg swings
	stride float64 // stride multiplier
}

// Leg order is front right, back right, back left, front left.
var gaitShapes = [GaitCount]gaitShape{
	Trot:   {2, 8, [4]int{0, 1, 0, 1}, 1},
	Walk:   {4, 4, [4]int{2, 1, 3, 0}, 1.5},
	Gallop: {4, 4, [4]int{1, 2, 3, 0}, 1},
	// stages 2 and 5 shift the body with every foot down
	Creep: {6, 6, [4]int{0, 4, 1, 3}, 1.5},
}

func (g gaitShape) paths(stride, lift float64) []Path {
	paths := make([]Path, 4)
	for leg := range paths {
		paths[leg] = dutyPath(g.stages, g.n, g.swing[leg], stride*g.stride, lift)
	}
	return paths
}

func buildQuadSet(gait QuadGait) *Set {
	s := &Set{Chassis: geometry.Quad, Gait: gait}
	standby := geometry.Quad.Standby()
	shape := gaitShapes[gait]

	postureTables(s, standby, quadTwistDegree)
	locomotionTables(s, standby,
		shape.paths(quadStride, quadLift),
		shape.paths(quadStride*quadFastStride, quadLift*quadFastLift),
	)
	// no climbing gait on four legs, it holds standby
	s.tables[Climb] = s.tables[Standby]

	return s
}
