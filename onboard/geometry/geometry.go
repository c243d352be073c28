// Package geometry holds the fixed body measurements of both chassis variants
// and the resting posture derived from them.
//
// World frame: X to the right, Y forward, Z up, origin at the body centre.
// All lengths are millimetres, all angles degrees unless a name says otherwise.
package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
	. "math"
)

// Leg link lengths.
const (
	RootToJoint1   = 20.75
	Joint1ToJoint2 = 28.0
	Joint2ToJoint3 = 42.6
	Joint3ToTip    = 89.07
)

// Mount offsets.
const (
	HexMiddleX = 29.87
	HexCornerX = 22.41
	HexCornerY = 55.41
	QuadMountX = 25.0
	QuadMountY = 45.0
)

// Neutral joint angles of the standby posture.
const (
	StandbyJoint1 = 30.0
	StandbyJoint2 = -15.0
)

var (
	// StandbyZ is the foot height below the mount plane with the joints at
	// their standby angles.
	StandbyZ = -(Joint3ToTip*Cos(mgl64.DegToRad(-StandbyJoint2)) - Joint2ToJoint3*Sin(mgl64.DegToRad(StandbyJoint1)))

	// StandbyReach is the horizontal distance from mount to foot at standby.
	StandbyReach = RootToJoint1 + Joint1ToJoint2 +
		Joint2ToJoint3*Cos(mgl64.DegToRad(StandbyJoint1)) +
		Joint3ToTip*Sin(mgl64.DegToRad(-StandbyJoint2))
)

// LegMount places one leg on the body.
type LegMount struct {
	Position mgl64.Vec3
	Azimuth  float64 // direction the leg points in, counter clockwise from +X
}

// Returns the mount position in polar form on the XY plane, azimuth in radians.
func (m LegMount) Polar() (radius, azimuth float64) {
	return Hypot(m.Position.X(), m.Position.Y()), Atan2(m.Position.Y(), m.Position.X())
}

// Returns where this leg's foot rests at standby.
func (m LegMount) Standby() mgl64.Vec3 {
	a := mgl64.DegToRad(m.Azimuth)
	return mgl64.Vec3{
		m.Position.X() + StandbyReach*Cos(a),
		m.Position.Y() + StandbyReach*Sin(a),
		StandbyZ,
	}
}

var (
	hexMounts = []LegMount{
		{mgl64.Vec3{HexCornerX, HexCornerY, 0}, 45},     // front right
		{mgl64.Vec3{HexMiddleX, 0, 0}, 0},               // middle right
		{mgl64.Vec3{HexCornerX, -HexCornerY, 0}, -45},   // back right
		{mgl64.Vec3{-HexCornerX, -HexCornerY, 0}, -135}, // back left
		{mgl64.Vec3{-HexMiddleX, 0, 0}, 180},            // middle left
		{mgl64.Vec3{-HexCornerX, HexCornerY, 0}, 135},   // front left
	}

	quadMounts = []LegMount{
		{mgl64.Vec3{QuadMountX, QuadMountY, 0}, 45},     // front right
		{mgl64.Vec3{QuadMountX, -QuadMountY, 0}, -45},   // back right
		{mgl64.Vec3{-QuadMountX, -QuadMountY, 0}, -135}, // back left
		{mgl64.Vec3{-QuadMountX, QuadMountY, 0}, 135},   // front left
	}
)
