// Package servo turns joint angles into pulse widths on the right expander channel.
package servo

import (
	"github.com/sirupsen/logrus"
	. "math"
)

const (
	PulseCentre = 1500
	PulseMin    = 500
	PulseMax    = 2500
	UsPerDegree = float64(PulseMax-PulseCentre) / 90
)

var (
	ranges   = [3]float64{45, 60, 60}
	trims    = [3]float64{0, 15, 0}
	inverted = [3]bool{false, true, false}

	log = logrus.WithFields(logrus.Fields{"pkg": "servo"})
)

// Output is a PWM expander.
type Output interface {
	SetPulse(channel int, us int) error
}

type Servo struct {
	Leg, Joint int
	channel    Channel
	out        Output
	offset     int
	angle      float64
	pulse      int
}

// Limits returns the accepted angle range of a joint.
func Limits(joint int) (min, max float64) {
	return -ranges[joint] + trims[joint], ranges[joint] + trims[joint]
}

// PulseWidth converts a joint angle, already trimmed and oriented, plus a
// calibration offset into a pulse width in µs.
func PulseWidth(angle float64, offset int) int {
	us := PulseCentre + (angle+float64(offset))*UsPerDegree
	return int(Round(Max(PulseMin, Min(PulseMax, us))))
}

// Clamps, trims and orients the angle then writes it.
func (s *Servo) SetAngle(angle float64) error {
	min, max := Limits(s.Joint)
	if angle < min || angle > max {
		clamped := Max(min, Min(max, angle))
		log.WithFields(logrus.Fields{
			"leg":     s.Leg,
			"joint":   s.Joint,
			"angle":   angle,
			"clamped": clamped,
		}).Warn("joint angle clamped")
		angle = clamped
	}
	s.angle = angle

	a := angle - trims[s.Joint]
	if inverted[s.Joint] {
		a = -a
	}

	s.pulse = PulseWidth(a, s.offset)
	return s.out.SetPulse(s.channel.Index, s.pulse)
}

// Returns the last angle written after clamping.
func (s *Servo) Angle() float64 {
	return s.angle
}

// Returns the last pulse width written.
func (s *Servo) Pulse() int {
	return s.pulse
}

func (s *Servo) Channel() Channel {
	return s.channel
}

func (s *Servo) Offset() int {
	return s.offset
}

// Sets the calibration offset and rewrites the current angle so the change is visible.
func (s *Servo) SetOffset(offset int) error {
	s.offset = offset
	return s.SetAngle(s.angle)
}
