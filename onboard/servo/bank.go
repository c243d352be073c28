package servo

import (
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Bank owns every servo of a chassis.
type Bank struct {
	chassis geometry.Chassis
	servos  [][3]*Servo
}

// Builds the servos of a chassis on top of one output per expander address.
func NewBank(chassis geometry.Chassis, boards map[uint16]Output) (b *Bank, err error) {
	b = &Bank{
		chassis: chassis,
		servos:  make([][3]*Servo, chassis.LegCount()),
	}

	for leg := range b.servos {
		for joint := 0; joint < 3; joint++ {
			ch, _ := Wiring(chassis, leg, joint)
			out, ok := boards[ch.Board]
			if !ok || out == nil {
				return nil, pkgerrors.Errorf("no expander at 0x%02X for leg %d joint %d", ch.Board, leg, joint)
			}
			b.servos[leg][joint] = &Servo{
				Leg:     leg,
				Joint:   joint,
				channel: ch,
				out:     out,
			}
		}
	}
	return
}

func (b *Bank) Servo(leg, joint int) (*Servo, error) {
	if leg < 0 || leg >= len(b.servos) {
		return nil, errors.LegIndexError{Leg: leg, Joint: -1}
	}
	if joint < 0 || joint > 2 {
		return nil, errors.LegIndexError{Leg: leg, Joint: joint}
	}
	return b.servos[leg][joint], nil
}

// Returns the three servos of a leg.
func (b *Bank) Leg(leg int) [3]*Servo {
	return b.servos[leg]
}

func (b *Bank) Offsets() (offsets [][3]int) {
	offsets = make([][3]int, len(b.servos))
	for leg, joints := range b.servos {
		for joint, s := range joints {
			offsets[leg][joint] = s.offset
		}
	}
	return
}

// Installs offsets without writing, the next move picks them up.
func (b *Bank) SetOffsets(offsets [][3]int) error {
	if len(offsets) != len(b.servos) {
		return pkgerrors.Errorf("expected offsets for %d legs, got %d", len(b.servos), len(offsets))
	}
	for leg, joints := range b.servos {
		for joint, s := range joints {
			s.offset = offsets[leg][joint]
		}
	}
	return nil
}

// Drives every joint to the same angle, used while calibrating.
func (b *Bank) SetAll(angle float64) (err error) {
	for _, joints := range b.servos {
		for _, s := range joints {
			err = multierr.Append(err, s.SetAngle(angle))
		}
	}
	return
}
