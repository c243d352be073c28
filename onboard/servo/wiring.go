package servo

import (
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/geometry"
)

// Expander addresses.
const (
	BoardRight uint16 = 0x40
	BoardLeft  uint16 = 0x41
)

// Channel locates one servo output.
type Channel struct {
	Board uint16
	Index int
}

// first channel of each hex leg, joints follow on consecutive channels
var hexWiring = []Channel{
	{BoardRight, 5},
	{BoardRight, 2},
	{BoardRight, 8},
	{BoardLeft, 8},
	{BoardLeft, 2},
	{BoardLeft, 5},
}

// Resolves the output channel of a joint.
func Wiring(chassis geometry.Chassis, leg, joint int) (ch Channel, err error) {
	if leg < 0 || leg >= chassis.LegCount() {
		return ch, errors.LegIndexError{Leg: leg, Joint: -1}
	}
	if joint < 0 || joint > 2 {
		return ch, errors.LegIndexError{Leg: leg, Joint: joint}
	}

	if chassis == geometry.Quad {
		return Channel{BoardRight, leg*3 + joint}, nil
	}

	ch = hexWiring[leg]
	ch.Index += joint
	return
}

// Returns every expander a chassis needs.
func Boards(chassis geometry.Chassis) []uint16 {
	if chassis == geometry.Quad {
		return []uint16{BoardRight}
	}
	return []uint16{BoardRight, BoardLeft}
}
