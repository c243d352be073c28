package movement

import (
	"fmt"
	"github.com/CodedInternet/gowalker/calcs"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/kinematics"
	"github.com/CodedInternet/gowalker/onboard/servo"
	"github.com/CodedInternet/gowalker/onboard/tables"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

const tick = 20.0

// Records what every grounding and aligning tick looked like.
type trace struct {
	states      []State
	airborne    int // most legs in the air on one tick
	worstMargin float64
	unreachable int // ticks with a foot outside the leg's reach or servo travel
}

func airborneLegs(pos geometry.Locations) int {
	return len(pos) - len(pos.Grounded(AirThreshold))
}

var testLegs = func() (legs []*kinematics.Leg) {
	for i, m := range geometry.Quad.Mounts() {
		legs = append(legs, kinematics.NewLeg(i, m, [3]kinematics.Joint{}))
	}
	return
}()

func reachable(pos geometry.Locations) bool {
	for i, p := range pos {
		angles, err := kinematics.Inverse(testLegs[i].ToLocal(p))
		if err != nil {
			return false
		}
		for joint, a := range angles {
			min, max := servo.Limits(joint)
			if a < min-1e-6 || a > max+1e-6 {
				return false
			}
		}
	}
	return true
}

// Ticks until the engine plays mode again or limit ticks pass.
func run(e *QuadEngine, mode tables.MovementMode, limit int) (tr trace, done bool) {
	tr.worstMargin = 1e9
	for i := 0; i < limit; i++ {
		pos := e.Next(tick)
		tr.states = append(tr.states, e.State())

		if e.State() == Grounding || e.State() == Aligning {
			if n := airborneLegs(pos); n > tr.airborne {
				tr.airborne = n
			}
			m := calcs.Margin(calcs.SupportPolygon(pos, AirThreshold), mgl64.Vec2{})
			if m < tr.worstMargin {
				tr.worstMargin = m
			}
			if !reachable(pos) {
				tr.unreachable++
			}
		}

		if playing, ok := e.Executing(); ok && playing == mode && e.State() == Normal {
			return tr, true
		}
	}
	return tr, false
}

func (tr trace) visited(s State) bool {
	for _, v := range tr.states {
		if v == s {
			return true
		}
	}
	return false
}

func walking(mode tables.MovementMode) *QuadEngine {
	e := NewQuadEngine(tables.For(geometry.Quad, tables.Trot), tick)
	e.SetMode(mode)
	run(e, mode, 500)
	return e
}

func TestQuadFromStandby(t *testing.T) {
	Convey("Given a trotting quad at standby", t, func() {
		e := NewQuadEngine(tables.For(geometry.Quad, tables.Trot), tick)
		So(e.State(), ShouldEqual, Normal)

		Convey("Walking forward aligns the legs one at a time", func() {
			e.SetMode(tables.Forward)
			So(e.State(), ShouldEqual, Aligning)

			_, ok := e.Executing()
			So(ok, ShouldBeFalse)

			tr, done := run(e, tables.Forward, 500)
			So(done, ShouldBeTrue)
			So(tr.airborne, ShouldEqual, 1)
			So(tr.worstMargin, ShouldBeGreaterThanOrEqualTo, MinStabilityMargin-1e-6)
			So(tr.unreachable, ShouldEqual, 0)

			forward := e.set.Table(tables.Forward)
			So(e.Position().ApproxEqual(forward.Frames[forward.Entries[0]], 1e-6), ShouldBeTrue)
		})

		Convey("Posture modes glide without lifting a leg", func() {
			e.SetMode(tables.RotateZ)
			So(e.State(), ShouldEqual, Normal)

			tr, done := run(e, tables.RotateZ, 5)
			So(done, ShouldBeTrue)
			So(tr.visited(Aligning), ShouldBeFalse)
		})

		Convey("Climb shares the standby posture", func() {
			e.SetMode(tables.Climb)
			So(e.State(), ShouldEqual, Normal)
			mode, ok := e.Executing()
			So(ok, ShouldBeTrue)
			So(mode, ShouldEqual, tables.Climb)
		})
	})
}

func TestQuadSwitching(t *testing.T) {
	Convey("Given a quad trotting forward", t, func() {
		e := walking(tables.Forward)
		So(e.State(), ShouldEqual, Normal)

		Convey("Reversing waits for the paired entry and never lifts extra legs", func() {
			e.SetMode(tables.Backward)
			So(e.State(), ShouldEqual, WaitEntryPair)

			tr, done := run(e, tables.Backward, 200)
			So(done, ShouldBeTrue)
			So(tr.visited(Grounding), ShouldBeFalse)
			So(tr.visited(Aligning), ShouldBeFalse)

			backward := e.set.Table(tables.Backward)
			index, _ := e.Frame()
			So(backward.IsEntry(index), ShouldBeTrue)
		})

		for _, target := range []tables.MovementMode{tables.ShiftLeft, tables.TurnLeft, tables.Standby} {
			target := target
			Convey("Switching to "+target.String()+" grounds and realigns", func() {
				e.SetMode(target)
				So(e.State(), ShouldEqual, WaitEntryAlign)

				tr, done := run(e, target, 1000)
				So(done, ShouldBeTrue)
				So(tr.visited(Grounding), ShouldBeTrue)
				So(tr.airborne, ShouldBeLessThanOrEqualTo, 1)
				So(tr.worstMargin, ShouldBeGreaterThanOrEqualTo, 0)
				So(tr.unreachable, ShouldEqual, 0)
			})
		}

		Convey("Asking for the playing mode again cancels a pending switch", func() {
			e.SetMode(tables.ShiftLeft)
			e.SetMode(tables.Forward)
			So(e.State(), ShouldEqual, Normal)
			So(e.Mode(), ShouldEqual, tables.Forward)
		})

		Convey("A new request during a transition replans from the current feet", func() {
			e.SetMode(tables.ShiftLeft)
			tr, _ := run(e, tables.ShiftLeft, 1000)
			So(tr.visited(Grounding), ShouldBeTrue)

			// restart and interrupt half way through aligning
			e = walking(tables.Forward)
			e.SetMode(tables.ShiftLeft)
			for i := 0; i < 1000 && e.State() != Aligning; i++ {
				e.Next(tick)
			}
			for i := 0; i < 8; i++ {
				e.Next(tick)
			}
			So(e.State(), ShouldEqual, Aligning)

			e.SetMode(tables.TurnLeft)
			So(e.State(), ShouldEqual, Grounding)
			So(e.Mode(), ShouldEqual, tables.TurnLeft)

			tr, done := run(e, tables.TurnLeft, 1000)
			So(done, ShouldBeTrue)
			So(tr.airborne, ShouldBeLessThanOrEqualTo, 1)
			So(tr.unreachable, ShouldEqual, 0)
		})

		Convey("Gait changes are refused while walking", func() {
			So(e.SetGait(tables.Walk), ShouldEqual, errors.ErrGaitChangeRejected)
			So(e.Gait(), ShouldEqual, tables.Trot)
		})
	})

	Convey("Gait changes are accepted at standby", t, func() {
		e := NewQuadEngine(tables.For(geometry.Quad, tables.Trot), tick)
		So(e.SetGait(tables.Creep), ShouldBeNil)
		So(e.Gait(), ShouldEqual, tables.Creep)
		So(e.SetGait(tables.GaitCount), ShouldNotBeNil)
	})

	Convey("Transition phases are whole ticks", t, func() {
		e := NewQuadEngine(tables.For(geometry.Quad, tables.Trot), tick)
		e.SetSpeed(0.33)
		d := e.scaled(LiftDuration)
		So(d/tick, ShouldEqual, float64(int(d/tick)))
		So(d, ShouldBeGreaterThanOrEqualTo, LiftDuration/0.33)
	})
}

type transitionFault struct {
	gait     tables.QuadGait
	from, to tables.MovementMode
	trace    trace
	done     bool
}

func (f transitionFault) String() string {
	return fmt.Sprintf("%s %s->%s done=%v airborne=%d margin=%.2f unreachable=%d",
		f.gait, f.from, f.to, f.done, f.trace.airborne, f.trace.worstMargin, f.trace.unreachable)
}

func TestQuadTransitionSafety(t *testing.T) {
	Convey("Every switch between two modes in every gait", t, func() {
		var faults []string
		pairs := 0
		for g := tables.QuadGait(0); g < tables.GaitCount; g++ {
			for from := tables.MovementMode(0); from < tables.ModeCount; from++ {
				for to := tables.MovementMode(0); to < tables.ModeCount; to++ {
					if from == to {
						continue
					}
					pairs++

					e := NewQuadEngine(tables.For(geometry.Quad, g), tick)
					e.SetMode(from)
					if _, ok := run(e, from, 1000); !ok {
						faults = append(faults, fmt.Sprintf("%s never reached %s", g, from))
						continue
					}
					// leave from at different points of its cycle
					for i := 0; i < pairs%17; i++ {
						e.Next(tick)
					}

					e.SetMode(to)
					tr, done := run(e, to, 3000)
					if !done || tr.airborne > 1 || tr.worstMargin < 0 || tr.unreachable > 0 {
						faults = append(faults, transitionFault{g, from, to, tr, done}.String())
					}
				}
			}
		}

		So(pairs, ShouldEqual, int(tables.GaitCount)*int(tables.ModeCount)*(int(tables.ModeCount)-1))
		So(faults, ShouldBeEmpty)
	})
}
