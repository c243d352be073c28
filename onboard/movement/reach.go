package movement

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/kinematics"
	"github.com/CodedInternet/gowalker/onboard/servo"
	"github.com/go-gl/mathgl/mgl64"
)

// Points checked on every straight move, the end point included.
const reachSamples = 10

// Checks foot positions against the leg geometry and the servo travel.
type reach struct {
	legs []*kinematics.Leg
}

func newReach(chassis geometry.Chassis) reach {
	mounts := chassis.Mounts()
	r := reach{legs: make([]*kinematics.Leg, len(mounts))}
	for i, m := range mounts {
		r.legs[i] = kinematics.NewLeg(i, m, [3]kinematics.Joint{})
	}
	return r
}

func (r reach) leg(leg int, p mgl64.Vec3) bool {
	angles, err := kinematics.Inverse(r.legs[leg].ToLocal(p))
	if err != nil {
		return false
	}
	for joint, a := range angles {
		min, max := servo.Limits(joint)
		if a < min-1e-6 || a > max+1e-6 {
			return false
		}
	}
	return true
}

// legAlong reports whether one foot stays in reach on the line from a to b.
func (r reach) legAlong(leg int, a, b mgl64.Vec3) bool {
	for k := 1; k <= reachSamples; k++ {
		t := float64(k) / reachSamples
		if !r.leg(leg, a.Add(b.Sub(a).Mul(t))) {
			return false
		}
	}
	return true
}

// along is legAlong for every foot moving at once.
func (r reach) along(a, b geometry.Locations) bool {
	for leg := range a {
		if !r.legAlong(leg, a[leg], b[leg]) {
			return false
		}
	}
	return true
}
