package gait

import . "math"

const (
	DefaultStride     = 50.0
	MinStride         = 30.0
	MaxStride         = 80.0
	DefaultLiftHeight = 25.0
	MinLiftHeight     = 15.0
	MaxLiftHeight     = 40.0
	DefaultPeriod     = 800.0
	MinPeriod         = 500.0
	MaxPeriod         = 1500.0
	DefaultDutyFactor = 0.5
	MinDutyFactor     = 0.4
	MaxDutyFactor     = 0.6

	MaxVelocityX   = 200.0 // mm/s
	MaxVelocityY   = 200.0
	MaxVelocityYaw = 90.0 // deg/s
)

// Parameters shape the trot. Lengths in mm, period in ms.
type Parameters struct {
	Stride     float64 `json:"stride" yaml:"stride"`
	LiftHeight float64 `json:"liftHeight" yaml:"lift_height"`
	Period     float64 `json:"period" yaml:"period"`
	DutyFactor float64 `json:"dutyFactor" yaml:"duty_factor"`
}

func DefaultParameters() Parameters {
	return Parameters{
		Stride:     DefaultStride,
		LiftHeight: DefaultLiftHeight,
		Period:     DefaultPeriod,
		DutyFactor: DefaultDutyFactor,
	}
}

func clamp(v, min, max float64) float64 {
	if IsNaN(v) {
		return min
	}
	return Max(min, Min(max, v))
}

// Bounded returns a copy with every field inside its accepted range.
func (p Parameters) Bounded() Parameters {
	return Parameters{
		Stride:     clamp(p.Stride, MinStride, MaxStride),
		LiftHeight: clamp(p.LiftHeight, MinLiftHeight, MaxLiftHeight),
		Period:     clamp(p.Period, MinPeriod, MaxPeriod),
		DutyFactor: clamp(p.DutyFactor, MinDutyFactor, MaxDutyFactor),
	}
}

// Velocity is the commanded body motion: mm/s along X and Y, deg/s about Z.
type Velocity struct {
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
	VYaw float64 `json:"vyaw"`
}

func (v Velocity) Bounded() Velocity {
	b := Velocity{
		VX:   clamp(v.VX, -MaxVelocityX, MaxVelocityX),
		VY:   clamp(v.VY, -MaxVelocityY, MaxVelocityY),
		VYaw: clamp(v.VYaw, -MaxVelocityYaw, MaxVelocityYaw),
	}
	// NaN would otherwise clamp to full reverse
	if IsNaN(v.VX) {
		b.VX = 0
	}
	if IsNaN(v.VY) {
		b.VY = 0
	}
	if IsNaN(v.VYaw) {
		b.VYaw = 0
	}
	return b
}

func (v Velocity) IsZero() bool {
	return v.VX == 0 && v.VY == 0 && v.VYaw == 0
}
