package kinematics

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
)

// Joint is anything that can hold an angle, normally a servo channel.
type Joint interface {
	SetAngle(angle float64) error
}

type Leg struct {
	Index   int
	mount   geometry.LegMount
	toLocal mgl64.Mat3
	toWorld mgl64.Mat3
	joints  [3]Joint

	known    bool
	tip      mgl64.Vec3
	tipLocal mgl64.Vec3
	angles   JointAngles
}

func NewLeg(index int, mount geometry.LegMount, joints [3]Joint) *Leg {
	a := mgl64.DegToRad(mount.Azimuth)
	return &Leg{
		Index:   index,
		mount:   mount,
		toLocal: mgl64.Rotate3DZ(-a),
		toWorld: mgl64.Rotate3DZ(a),
		joints:  joints,
	}
}

func (l *Leg) Mount() geometry.LegMount {
	return l.mount
}

func (l *Leg) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return l.toLocal.Mul3x1(world.Sub(l.mount.Position))
}

func (l *Leg) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return l.toWorld.Mul3x1(local).Add(l.mount.Position)
}

// Moves the foot to a world frame position. Repeating the last target is a
// no-op so an idle engine does not flood the bus.
func (l *Leg) MoveTip(world mgl64.Vec3) error {
	if l.known && world == l.tip {
		return nil
	}
	return l.move(world, l.ToLocal(world))
}

func (l *Leg) MoveTipLocal(local mgl64.Vec3) error {
	if l.known && local == l.tipLocal {
		return nil
	}
	return l.move(l.ToWorld(local), local)
}

func (l *Leg) move(world, local mgl64.Vec3) (err error) {
	angles, err := Inverse(local)
	if err != nil {
		return
	}

	for i, j := range l.joints {
		if j == nil {
			continue
		}
		err = multierr.Append(err, j.SetAngle(angles[i]))
	}
	if err != nil {
		// hardware state is unknown now, make sure the next move is written
		l.known = false
		return
	}

	l.tip = world
	l.tipLocal = local
	l.angles = angles
	l.known = true
	return
}

// Returns the last commanded foot position, ok is false if nothing has been written yet.
func (l *Leg) Tip() (world mgl64.Vec3, ok bool) {
	return l.tip, l.known
}

func (l *Leg) Angles() JointAngles {
	return l.angles
}

// Drops the cached target so the next move is always written. Used after
// calibration writes moved the joints behind the leg's back.
func (l *Leg) Forget() {
	l.known = false
}
