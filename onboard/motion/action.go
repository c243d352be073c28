package motion

import (
	"fmt"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/tables"
	. "math"
	"strings"
)

// Unit says how the value of an action bounds it.
type Unit int

const (
	Continuous Unit = iota
	Cycles
	Steps
	Distance // metres
	Angle    // degrees
	DurationMs
)

var unitNames = [...]string{"continuous", "cycles", "steps", "distance", "angle", "durationMs"}

func (u Unit) String() string {
	if u < 0 || int(u) >= len(unitNames) {
		return fmt.Sprintf("unit(%d)", int(u))
	}
	return unitNames[u]
}

func ParseUnit(name string) (Unit, error) {
	for i, n := range unitNames {
		if strings.EqualFold(n, name) {
			return Unit(i), nil
		}
	}
	return Continuous, errors.Invalid("unknown unit %q", name)
}

// BoundedUnits are the units a client can bound an action with, in the order
// a request is searched for them.
var BoundedUnits = []Unit{DurationMs, Cycles, Steps, Distance, Angle}

type Action struct {
	Mode          tables.MovementMode
	Unit          Unit
	Value         float64
	SpeedOverride float64 // ignored unless within the engine speed range
	SequenceID    uint32  // zero outside a sequence
	SequenceTail  bool
}

// Cycles converts a bounded value into table cycles using the mode metrics.
// Zero means the unit does not apply to the mode.
func (a Action) Cycles() float64 {
	m := tables.MetricsFor(a.Mode)
	v := Abs(a.Value)
	switch a.Unit {
	case Cycles:
		return v
	case Steps:
		if m.StepsPerCycle > 0 {
			return v / m.StepsPerCycle
		}
	case Distance:
		if m.DistancePerCycle > 0 {
			return v / m.DistancePerCycle
		}
	case Angle:
		if m.DegreesPerCycle > 0 {
			return v / m.DegreesPerCycle
		}
	}
	return 0
}

// Validate rejects actions that could never finish or never start.
func (a Action) Validate() error {
	if !a.Mode.Valid() {
		return errors.Invalid("unknown movement mode %d", int(a.Mode))
	}
	switch a.Unit {
	case Continuous:
		return nil
	case DurationMs:
		if !(a.Value > 0) {
			return errors.Invalid("value must be positive")
		}
		return nil
	case Cycles, Steps, Distance, Angle:
		if !(a.Value > 0) {
			return errors.Invalid("value must be positive")
		}
		if a.Cycles() <= 0 {
			return errors.Invalid("%s can not bound %s", a.Unit, a.Mode)
		}
		return nil
	}
	return errors.Invalid("unknown unit %d", int(a.Unit))
}
