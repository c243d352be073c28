package tables

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Set holds one table per movement mode for a chassis and gait family.
type Set struct {
	Chassis geometry.Chassis
	Gait    QuadGait
	tables  [ModeCount]*Table
}

func (s *Set) Table(mode MovementMode) *Table {
	if !mode.Valid() {
		return s.tables[Standby]
	}
	return s.tables[mode]
}

func (s *Set) validate() error {
	for mode, t := range s.tables {
		if t == nil {
			return errors.Errorf("%s set has no table for %s", s.Chassis, MovementMode(mode))
		}
		if err := t.Validate(s.Chassis.LegCount()); err != nil {
			return err
		}
	}
	return nil
}

var (
	hexSet   *Set
	quadSets [GaitCount]*Set
)

func init() {
	hexSet = buildHexSet()
	if err := hexSet.validate(); err != nil {
		panic(err)
	}
	for g := range quadSets {
		quadSets[g] = buildQuadSet(QuadGait(g))
		if err := quadSets[g].validate(); err != nil {
			panic(err)
		}
	}
}

// Returns the tables for a chassis. The gait is ignored for the hexapod,
// which only has one family.
func For(chassis geometry.Chassis, gait QuadGait) *Set {
	if chassis == geometry.Quad {
		if !gait.Valid() {
			gait = Trot
		}
		return quadSets[gait]
	}
	return hexSet
}

// Whole body tables shared by both chassis.
func postureTables(s *Set, standby geometry.Locations, twistAmplitude float64) {
	s.tables[Standby] = newTable("standby", []geometry.Locations{standby}, frameMs)
	s.tables[RotateX] = newTable("rotate_x", rocking(standby, 20, mgl64.Rotate3DX, 15), postureMs)
	s.tables[RotateY] = newTable("rotate_y", rocking(standby, 20, mgl64.Rotate3DY, 15), postureMs)
	s.tables[RotateZ] = newTable("rotate_z", rocking(standby, 20, mgl64.Rotate3DZ, 20), postureMs)
	s.tables[Twist] = newTable("twist", twist(standby, 20, twistAmplitude), postureMs)
}

// Locomotion tables derived from a forward path per leg. Backward and the
// right hand variants are the left hand ones played in reverse, which keeps
// each pair on identical entry postures.
func locomotionTables(s *Set, standby geometry.Locations, forward, fast []Path) {
	mounts := s.Chassis.Mounts()

	turn := make([]Path, len(forward))
	shift := make([]Path, len(forward))
	for leg, p := range forward {
		turn[leg] = p.RotateZ(mounts[leg].Azimuth)
		shift[leg] = p.RotateZ(90)
	}

	s.tables[Forward] = newTable("forward", assemble(standby, forward), frameMs)
	s.tables[ForwardFast] = newTable("forward_fast", assemble(standby, fast), frameMs)
	s.tables[Backward] = newTable("backward", reverse(s.tables[Forward].Frames), frameMs)
	s.tables[TurnLeft] = newTable("turn_left", assemble(standby, turn), frameMs)
	s.tables[TurnRight] = newTable("turn_right", reverse(s.tables[TurnLeft].Frames), frameMs)
	s.tables[ShiftLeft] = newTable("shift_left", assemble(standby, shift), frameMs)
	s.tables[ShiftRight] = newTable("shift_right", reverse(s.tables[ShiftLeft].Frames), frameMs)
}
