// Package gait synthesises a trot on the fly from a velocity command instead
// of playing stored tables.
package gait

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	. "math"
)

var log = logrus.WithFields(logrus.Fields{"pkg": "gait"})

// Diagonal legs share a phase.
var trotOffsets = map[geometry.Chassis][]float64{
	geometry.Hex:  {0, 0.5, 0, 0.5, 0, 0.5},
	geometry.Quad: {0, 0.5, 0, 0.5},
}

type Generator struct {
	standby  geometry.Locations
	mounts   []geometry.LegMount
	offsets  []float64
	params   Parameters
	velocity Velocity
	phase    float64
	pos      geometry.Locations
}

func NewGenerator(chassis geometry.Chassis) *Generator {
	return &Generator{
		standby: chassis.Standby(),
		mounts:  chassis.Mounts(),
		offsets: trotOffsets[chassis],
		params:  DefaultParameters(),
		pos:     chassis.Standby(),
	}
}

func (g *Generator) SetParameters(p Parameters) {
	g.params = p.Bounded()
	log.WithFields(logrus.Fields{
		"stride": g.params.Stride,
		"lift":   g.params.LiftHeight,
		"period": g.params.Period,
		"duty":   g.params.DutyFactor,
	}).Info("gait parameters updated")
}

func (g *Generator) Parameters() Parameters {
	return g.params
}

func (g *Generator) SetVelocity(v Velocity) {
	g.velocity = v.Bounded()
	log.WithFields(logrus.Fields{
		"vx":   g.velocity.VX,
		"vy":   g.velocity.VY,
		"vyaw": g.velocity.VYaw,
	}).Debug("velocity updated")
}

func (g *Generator) Velocity() Velocity {
	return g.velocity
}

func (g *Generator) Phase() float64 {
	return g.phase
}

// Reset restarts the cycle at the resting posture.
func (g *Generator) Reset() {
	g.phase = 0
	copy(g.pos, g.standby)
	log.Info("gait reset")
}

// Update advances the cycle by elapsedMs and returns the foot targets.
func (g *Generator) Update(elapsedMs float64) geometry.Locations {
	if elapsedMs > 0 {
		g.phase += elapsedMs / g.params.Period
		g.phase -= Floor(g.phase)
	}

	if g.velocity.IsZero() {
		copy(g.pos, g.standby)
		return g.pos
	}

	speed := Hypot(g.velocity.VX, g.velocity.VY)
	heading := Atan2(g.velocity.VY, g.velocity.VX)
	stride := g.params.Stride * Min(1, speed/MaxVelocityX)

	for leg := range g.pos {
		p := g.standby[leg]
		if speed > 0 {
			p = p.Add(g.stepOffset(g.legPhase(leg), stride, heading))
		}
		if g.velocity.VYaw != 0 {
			p = p.Add(g.yawOffset(leg))
		}
		g.pos[leg] = p
	}
	return g.pos
}

func (g *Generator) legPhase(leg int) float64 {
	p := g.phase + g.offsets[leg]
	return p - Floor(p)
}

// Stance drags the foot back along the heading, swing carries it forward in
// an arc.
func (g *Generator) stepOffset(phase, stride, heading float64) mgl64.Vec3 {
	duty := g.params.DutyFactor

	var along, lift float64
	if phase < duty {
		along = stride * (0.5 - phase/duty)
	} else {
		t := (phase - duty) / (1 - duty)
		along = stride * (t - 0.5)
		lift = g.params.LiftHeight * Sin(Pi*t)
	}
	return mgl64.Vec3{along * Cos(heading), along * Sin(heading), lift}
}

// Half the arc the mount sweeps in one period, along its tangent.
func (g *Generator) yawOffset(leg int) mgl64.Vec3 {
	r, azimuth := g.mounts[leg].Polar()
	sweep := mgl64.DegToRad(g.velocity.VYaw * g.params.Period / 1000)
	arc := r * sweep * 0.5
	return mgl64.Vec3{-Sin(azimuth) * arc, Cos(azimuth) * arc, 0}
}
