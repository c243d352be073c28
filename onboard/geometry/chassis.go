package geometry

import (
	"fmt"
	"github.com/pkg/errors"
	"strings"
)

type Chassis int

const (
	Hex Chassis = iota
	Quad
)

func ParseChassis(name string) (c Chassis, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hex", "hexapod", "6":
		return Hex, nil
	case "quad", "quadruped", "4":
		return Quad, nil
	}
	return Hex, errors.Errorf("unknown chassis %q", name)
}

func (c Chassis) String() string {
	switch c {
	case Hex:
		return "hex"
	case Quad:
		return "quad"
	}
	return fmt.Sprintf("chassis(%d)", int(c))
}

func (c *Chassis) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseChassis(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Chassis) LegCount() int {
	return len(c.Mounts())
}

func (c Chassis) Mounts() []LegMount {
	if c == Quad {
		return quadMounts
	}
	return hexMounts
}

// Returns a fresh copy of the resting posture.
func (c Chassis) Standby() Locations {
	mounts := c.Mounts()
	locs := make(Locations, len(mounts))
	for i, m := range mounts {
		locs[i] = m.Standby()
	}
	return locs
}

// Key under which this chassis keeps its servo calibration.
func (c Chassis) CalibrationKey() string {
	if c == Quad {
		return "/calibration_quad.json"
	}
	return "/calibration.json"
}
