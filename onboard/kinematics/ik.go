// Package kinematics converts between foot positions and the three joint
// angles of a leg.
package kinematics

import (
	"github.com/CodedInternet/gowalker/onboard/errors"
	. "github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	. "math"
)

// JointAngles in degrees, 0 is mechanical neutral.
type JointAngles [3]float64

// Forward returns the local frame foot position for a set of joint angles.
func Forward(a JointAngles) mgl64.Vec3 {
	t0 := mgl64.DegToRad(a[0])
	t1 := mgl64.DegToRad(a[1])
	t3 := mgl64.DegToRad(a[1] + a[2] - 90)

	r := Joint1ToJoint2 + Cos(t1)*Joint2ToJoint3 + Cos(t3)*Joint3ToTip
	return mgl64.Vec3{
		RootToJoint1 + Cos(t0)*r,
		Sin(t0) * r,
		Sin(t1)*Joint2ToJoint3 + Sin(t3)*Joint3ToTip,
	}
}

// Inverse solves the joint angles that put the foot at a local frame position.
// Targets outside the reachable annulus return an UnreachableError.
func Inverse(p mgl64.Vec3) (a JointAngles, err error) {
	x := p.X() - RootToJoint1
	y := p.Y()
	z := p.Z()

	a[0] = mgl64.RadToDeg(Atan2(y, x))

	h := Hypot(x, y) - Joint1ToJoint2
	d2 := h*h + z*z
	d := Sqrt(d2)
	if d == 0 {
		return a, errors.UnreachableError{Target: p}
	}

	cb := (d2 + Joint2ToJoint3*Joint2ToJoint3 - Joint3ToTip*Joint3ToTip) / (2 * Joint2ToJoint3 * d)
	cg := (d2 - Joint2ToJoint3*Joint2ToJoint3 + Joint3ToTip*Joint3ToTip) / (2 * Joint3ToTip * d)
	if cb < -1 || cb > 1 || cg < -1 || cg > 1 {
		return a, errors.UnreachableError{Target: p}
	}

	alpha := Atan2(z, h)
	beta := Acos(cb)
	gamma := Acos(cg)

	a[1] = mgl64.RadToDeg(alpha + beta)
	a[2] = 90 - mgl64.RadToDeg(beta+gamma)
	return
}
