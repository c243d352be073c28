// Package pose tilts and shifts the body over planted feet.
package pose

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	. "math"
)

const (
	MaxRoll         = 30.0
	MaxPitch        = 30.0
	MaxYaw          = 30.0
	MaxHeightOffset = 50.0
)

var log = logrus.WithFields(logrus.Fields{"pkg": "pose"})

// BodyPose is a rigid transform of the body: angles in degrees, offsets in mm.
type BodyPose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

func bound(v, limit float64) float64 {
	if IsNaN(v) {
		return 0
	}
	return Max(-limit, Min(limit, v))
}

func (p BodyPose) Bounded() BodyPose {
	return BodyPose{
		Roll:  bound(p.Roll, MaxRoll),
		Pitch: bound(p.Pitch, MaxPitch),
		Yaw:   bound(p.Yaw, MaxYaw),
		X:     p.X,
		Y:     p.Y,
		Z:     bound(p.Z, MaxHeightOffset),
	}
}

func (p BodyPose) IsZero() bool {
	return p == BodyPose{}
}

// Rotation applies yaw first, then pitch, then roll.
func (p BodyPose) Rotation() mgl64.Mat3 {
	return mgl64.Rotate3DX(mgl64.DegToRad(p.Roll)).
		Mul3(mgl64.Rotate3DY(mgl64.DegToRad(p.Pitch))).
		Mul3(mgl64.Rotate3DZ(mgl64.DegToRad(p.Yaw)))
}

type Controller struct {
	mounts []geometry.LegMount
	pose   BodyPose
}

func NewController(chassis geometry.Chassis) *Controller {
	return &Controller{mounts: chassis.Mounts()}
}

func (c *Controller) SetPose(p BodyPose) {
	c.pose = p.Bounded()
	log.WithFields(logrus.Fields{
		"roll":  c.pose.Roll,
		"pitch": c.pose.Pitch,
		"yaw":   c.pose.Yaw,
		"z":     c.pose.Z,
	}).Debug("pose updated")
}

func (c *Controller) Pose() BodyPose {
	return c.pose
}

// Apply transforms every foot about its own mount. The input is not modified.
func (c *Controller) Apply(feet geometry.Locations) geometry.Locations {
	out := feet.Clone()
	if c.pose.IsZero() {
		return out
	}

	rot := c.pose.Rotation()
	shift := mgl64.Vec3{c.pose.X, c.pose.Y, c.pose.Z}
	for leg, p := range feet {
		mount := c.mounts[leg].Position
		out[leg] = rot.Mul3x1(p.Sub(mount)).Add(shift).Add(mount)
	}
	return out
}
