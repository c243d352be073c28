package gait

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	. "math"
	"testing"
)

func TestBounds(t *testing.T) {
	p := Parameters{Stride: 500, LiftHeight: 1, Period: 100, DutyFactor: 0.9}.Bounded()
	assert.Equal(t, Parameters{MaxStride, MinLiftHeight, MinPeriod, MaxDutyFactor}, p)
	assert.Equal(t, DefaultParameters(), DefaultParameters().Bounded())

	v := Velocity{VX: -1000, VY: NaN(), VYaw: 400}.Bounded()
	assert.Equal(t, Velocity{-MaxVelocityX, 0, MaxVelocityYaw}, v)
	assert.True(t, Velocity{}.IsZero())
}

func TestGenerator(t *testing.T) {
	Convey("Given a hex trot generator", t, func() {
		g := NewGenerator(geometry.Hex)
		standby := geometry.Hex.Standby()
		period := g.Parameters().Period

		Convey("With no velocity the feet stay at standby while the phase runs", func() {
			for i := 0; i < 10; i++ {
				So(g.Update(20).ApproxEqual(standby, 1e-9), ShouldBeTrue)
			}
			So(g.Phase(), ShouldAlmostEqual, 200/period, 1e-9)
		})

		Convey("The phase wraps at the period", func() {
			g.Update(period * 1.25)
			So(g.Phase(), ShouldAlmostEqual, 0.25, 1e-9)
		})

		Convey("Walking forward at full speed", func() {
			g.SetVelocity(Velocity{VY: MaxVelocityY})
			stride := g.Parameters().Stride

			Convey("Diagonal sets are half a cycle apart", func() {
				pos := g.Update(0)
				// phase 0: first set starts stance at the front, second set starts swing at the back
				So(pos[0].Sub(standby[0]).Y(), ShouldAlmostEqual, stride/2, 1e-9)
				So(pos[0].Z(), ShouldAlmostEqual, standby[0].Z(), 1e-9)
				So(pos[1].Sub(standby[1]).Y(), ShouldAlmostEqual, -stride/2, 1e-9)
			})

			Convey("Only one set is lifted at a time", func() {
				for i := 0; i < int(period/20); i++ {
					pos := g.Update(20)
					lifted := [2]bool{}
					for leg, p := range pos {
						if p.Z() > standby[leg].Z()+1e-9 {
							lifted[leg%2] = true
						}
					}
					So(lifted[0] && lifted[1], ShouldBeFalse)
				}
			})

			Convey("Swing peaks at the lift height mid swing", func() {
				duty := g.Parameters().DutyFactor
				g.Reset()
				pos := g.Update(period * (duty + (1-duty)/2))
				So(pos[0].Z()-standby[0].Z(), ShouldAlmostEqual, g.Parameters().LiftHeight, 1e-9)
				So(pos[0].Y(), ShouldAlmostEqual, standby[0].Y(), 1e-9)
			})

			Convey("Stopping returns to standby on the next tick", func() {
				for i := 0; i < 100; i++ {
					g.Update(20)
				}
				g.SetVelocity(Velocity{})
				So(g.Update(20).ApproxEqual(standby, 1e-9), ShouldBeTrue)
			})
		})

		Convey("Slow walking shortens the stride", func() {
			g.SetVelocity(Velocity{VX: MaxVelocityX / 4})
			pos := g.Update(0)
			So(pos[0].Sub(standby[0]).X(), ShouldAlmostEqual, g.Parameters().Stride/8, 1e-9)
		})

		Convey("Turning moves every foot along its mount tangent", func() {
			g.SetVelocity(Velocity{VYaw: 45})
			pos := g.Update(0)
			for leg, m := range geometry.Hex.Mounts() {
				offset := pos[leg].Sub(standby[leg])
				r, _ := m.Polar()
				So(offset.Dot(m.Position), ShouldAlmostEqual, 0, 1e-9)
				So(offset.Len(), ShouldAlmostEqual, r*mgl64.DegToRad(45*period/1000)/2, 1e-9)
				// counter clockwise
				So(m.Position.Cross(offset).Z(), ShouldBeGreaterThan, 0)
			}
		})

		Convey("Reset rewinds the phase", func() {
			g.Update(300)
			g.Reset()
			So(g.Phase(), ShouldEqual, 0)
		})
	})

	Convey("The quad pairs its diagonals", t, func() {
		g := NewGenerator(geometry.Quad)
		g.SetVelocity(Velocity{VY: 100})
		pos := g.Update(0)
		So(pos, ShouldHaveLength, 4)
		So(pos[0].Y()-geometry.Quad.Standby()[0].Y(), ShouldAlmostEqual, pos[2].Y()-geometry.Quad.Standby()[2].Y(), 1e-9)
	})
}
