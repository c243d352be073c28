package tables

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/kinematics"
	"github.com/CodedInternet/gowalker/onboard/servo"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"testing"
)

func allSets() []*Set {
	sets := []*Set{For(geometry.Hex, Trot)}
	for g := Trot; g < GaitCount; g++ {
		sets = append(sets, For(geometry.Quad, g))
	}
	return sets
}

func TestTablesReachable(t *testing.T) {
	for _, s := range allSets() {
		legs := make([]*kinematics.Leg, s.Chassis.LegCount())
		for i, m := range s.Chassis.Mounts() {
			legs[i] = kinematics.NewLeg(i, m, [3]kinematics.Joint{})
		}

		for mode := Standby; mode < ModeCount; mode++ {
			table := s.Table(mode)
			for k, frame := range table.Frames {
				for leg, p := range frame {
					angles, err := kinematics.Inverse(legs[leg].ToLocal(p))
					if !assert.NoError(t, err, "%s/%s %s frame %d leg %d", s.Chassis, s.Gait, mode, k, leg) {
						continue
					}
					for j, a := range angles {
						min, max := servo.Limits(j)
						assert.True(t, a >= min-1e-6 && a <= max+1e-6,
							"%s/%s %s frame %d leg %d joint %d at %.1f", s.Chassis, s.Gait, mode, k, leg, j, a)
					}
				}
			}
		}
	}
}

func TestTables(t *testing.T) {
	Convey("every set validates", t, func() {
		for _, s := range allSets() {
			So(s.validate(), ShouldBeNil)
		}
	})

	Convey("hex tables", t, func() {
		s := For(geometry.Hex, Walk)
		So(s.Gait, ShouldEqual, Trot)

		Convey("standby is a single grounded frame", func() {
			table := s.Table(Standby)
			So(table.Len(), ShouldEqual, 1)
			So(table.Entries, ShouldResemble, []int{0})
			So(table.Frames[0].ApproxEqual(geometry.Hex.Standby(), 1e-9), ShouldBeTrue)
		})

		Convey("forward enters at both tripod changes", func() {
			table := s.Table(Forward)
			So(table.Len(), ShouldEqual, 20)
			So(table.StepDuration, ShouldEqual, 20)
			So(table.Entries, ShouldResemble, []int{0, 10})
		})

		Convey("a tripod is always on the ground", func() {
			for _, mode := range []MovementMode{Forward, ForwardFast, Backward, TurnLeft, ShiftRight, Climb} {
				for _, f := range s.Table(mode).Frames {
					So(len(f.Grounded(1e-6)), ShouldBeGreaterThanOrEqualTo, 3)
				}
			}
		})

		Convey("forward drives the grounded feet backwards", func() {
			f := s.Table(Forward).Frames
			So(f[1][0].Y(), ShouldBeLessThan, f[0][0].Y())
			So(f[1][0].Z(), ShouldAlmostEqual, f[0][0].Z(), 1e-9)
		})

		Convey("posture tables are slower", func() {
			So(s.Table(RotateX).StepDuration, ShouldEqual, 50)
			So(s.Table(Twist).Entries, ShouldContain, 10)
		})
	})

	Convey("quad tables", t, func() {
		Convey("frame counts follow the gait shape", func() {
			So(For(geometry.Quad, Trot).Table(Forward).Len(), ShouldEqual, 16)
			So(For(geometry.Quad, Walk).Table(Forward).Len(), ShouldEqual, 16)
			So(For(geometry.Quad, Creep).Table(Forward).Len(), ShouldEqual, 36)
		})

		Convey("climb holds standby", func() {
			s := For(geometry.Quad, Trot)
			So(s.Table(Climb), ShouldEqual, s.Table(Standby))
		})

		Convey("walk swings one leg at a time", func() {
			for _, f := range For(geometry.Quad, Walk).Table(Forward).Frames {
				So(len(f.Grounded(1e-6)), ShouldBeGreaterThanOrEqualTo, 3)
			}
		})

		Convey("unknown gaits fall back to trot", func() {
			So(For(geometry.Quad, QuadGait(9)), ShouldEqual, For(geometry.Quad, Trot))
		})
	})

	Convey("paired tables share their entry postures", t, func() {
		pairs := [][2]MovementMode{{Forward, Backward}, {TurnLeft, TurnRight}, {ShiftLeft, ShiftRight}}
		for _, s := range allSets() {
			for _, pair := range pairs {
				from, to := s.Table(pair[0]), s.Table(pair[1])
				So(len(from.Entries), ShouldEqual, len(to.Entries))
				for _, e := range from.Entries {
					m := to.MatchingEntry(from.Frames[e])
					So(to.Frames[m].ApproxEqual(from.Frames[e], 1e-9), ShouldBeTrue)
				}
			}
		}
	})

	Convey("every entry is ground stable", t, func() {
		for _, s := range allSets() {
			for mode := Standby; mode < ModeCount; mode++ {
				table := s.Table(mode)
				for _, e := range table.Entries {
					So(table.Frames[e].Grounded(1e-6), ShouldHaveLength, s.Chassis.LegCount())
				}
			}
		}
	})

	Convey("validation catches broken tables", t, func() {
		table := &Table{Name: "broken", Frames: []geometry.Locations{geometry.Hex.Standby()}, StepDuration: 20, Entries: []int{1}}
		So(table.Validate(6), ShouldNotBeNil)
		table.Entries = []int{0}
		So(table.Validate(6), ShouldBeNil)
		So(table.Validate(4), ShouldNotBeNil)
		table.StepDuration = 0
		err := table.Validate(6)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldEqual, "table broken has step duration 0")

		_, traced := err.(interface{ StackTrace() errors.StackTrace })
		So(traced, ShouldBeTrue)
	})
}

func TestModes(t *testing.T) {
	Convey("mode names", t, func() {
		for _, name := range []string{"turnleft", "turn_left", "TurnLeft"} {
			m, err := ParseMovementMode(name)
			So(err, ShouldBeNil)
			So(m, ShouldEqual, TurnLeft)
		}
		m, err := ParseMovementMode("forwardfast")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, ForwardFast)
		So(m.String(), ShouldEqual, "forward_fast")

		_, err = ParseMovementMode("moonwalk")
		So(err, ShouldNotBeNil)
	})

	Convey("mode ids and bit masks", t, func() {
		m, err := ModeFromID(12)
		So(err, ShouldBeNil)
		So(m, ShouldEqual, Twist)

		m, err = ModeFromID(1 << 4)
		So(err, ShouldBeNil)
		So(m, ShouldEqual, TurnLeft)

		_, err = ModeFromID(1 << 13)
		So(err, ShouldNotBeNil)
		_, err = ModeFromID(-1)
		So(err, ShouldNotBeNil)
		_, err = ModeFromID(13)
		So(err, ShouldNotBeNil)
	})

	Convey("mode classes", t, func() {
		So(Standby.Posture(), ShouldBeTrue)
		So(Twist.Posture(), ShouldBeTrue)
		So(Climb.Posture(), ShouldBeFalse)
		So(Forward.Group(), ShouldEqual, Backward.Group())
		So(Forward.Group(), ShouldNotEqual, ShiftLeft.Group())
		So(ForwardFast.Group(), ShouldEqual, 0)
	})

	Convey("gaits", t, func() {
		g, err := ParseQuadGait("Gallop")
		So(err, ShouldBeNil)
		So(g, ShouldEqual, Gallop)
		So(g.String(), ShouldEqual, "gallop")
		_, err = ParseQuadGait("canter")
		So(err, ShouldNotBeNil)
	})

	Convey("metrics", t, func() {
		So(MetricsFor(Forward).DistancePerCycle, ShouldEqual, 0.05)
		So(MetricsFor(TurnLeft).DegreesPerCycle, ShouldEqual, 30)
		So(MetricsFor(MovementMode(99)).StepsPerCycle, ShouldEqual, 1)
	})
}
