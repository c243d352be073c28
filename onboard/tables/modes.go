package tables

import (
	"fmt"
	"github.com/pkg/errors"
	"math/bits"
	"strings"
)

type MovementMode int

const (
	Standby MovementMode = iota
	Forward
	ForwardFast
	Backward
	TurnLeft
	TurnRight
	ShiftLeft
	ShiftRight
	Climb
	RotateX
	RotateY
	RotateZ
	Twist

	ModeCount
)

var modeNames = [ModeCount]string{
	"standby",
	"forward",
	"forward_fast",
	"backward",
	"turn_left",
	"turn_right",
	"shift_left",
	"shift_right",
	"climb",
	"rotate_x",
	"rotate_y",
	"rotate_z",
	"twist",
}

func (m MovementMode) Valid() bool {
	return m >= 0 && m < ModeCount
}

func (m MovementMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Parses a mode name. Underscores and case are ignored so "turnLeft",
// "turn_left" and "TURNLEFT" are all accepted.
func ParseMovementMode(name string) (m MovementMode, err error) {
	key := strings.ToLower(strings.Replace(strings.TrimSpace(name), "_", "", -1))
	for i, n := range modeNames {
		if strings.Replace(n, "_", "", -1) == key {
			return MovementMode(i), nil
		}
	}
	return Standby, errors.Errorf("unknown movement mode %q", name)
}

// Resolves a numeric mode. Ids outside the enumeration with exactly one bit set
// are read as a bit mask, as older controllers sent them.
func ModeFromID(id int) (m MovementMode, err error) {
	m = MovementMode(id)
	if m.Valid() {
		return m, nil
	}
	if id > 0 && bits.OnesCount(uint(id)) == 1 {
		m = MovementMode(bits.TrailingZeros(uint(id)))
		if m.Valid() {
			return m, nil
		}
	}
	return Standby, errors.Errorf("unknown movement mode id %d", id)
}

// Posture modes move the body over planted feet and never need the legs realigned.
func (m MovementMode) Posture() bool {
	switch m {
	case Standby, RotateX, RotateY, RotateZ, Twist:
		return true
	}
	return false
}

// Group returns the switch group of a locomotion mode. Modes in the same
// group share an equivalent entry frame. Zero means the mode is alone.
func (m MovementMode) Group() int {
	switch m {
	case Forward, Backward:
		return 1
	case TurnLeft, TurnRight:
		return 2
	case ShiftLeft, ShiftRight:
		return 3
	}
	return 0
}

type QuadGait int

const (
	Trot QuadGait = iota
	Walk
	Gallop
	Creep

	GaitCount
)

var gaitNames = [GaitCount]string{"trot", "walk", "gallop", "creep"}

func (g QuadGait) Valid() bool {
	return g >= 0 && g < GaitCount
}

func (g QuadGait) String() string {
	if !g.Valid() {
		return fmt.Sprintf("gait(%d)", int(g))
	}
	return gaitNames[g]
}

func ParseQuadGait(name string) (g QuadGait, err error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range gaitNames {
		if n == key {
			return QuadGait(i), nil
		}
	}
	return Trot, errors.Errorf("unknown gait %q", name)
}

func (g *QuadGait) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseQuadGait(name)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
