package tables

// Metrics describe how far one cycle of a mode moves the body.
type Metrics struct {
	DistancePerCycle float64 // metres
	DegreesPerCycle  float64
	StepsPerCycle    float64
}

// Hand calibrated from the table amplitudes and never measured on a robot.
// TODO: re-measure distance and angle per cycle on hardware for both chassis.
var metrics = [ModeCount]Metrics{
	Standby:     {0, 0, 1},
	Forward:     {0.050, 0, 2},
	ForwardFast: {0.100, 0, 2},
	Backward:    {0.050, 0, 2},
	TurnLeft:    {0, 30, 2},
	TurnRight:   {0, 30, 2},
	ShiftLeft:   {0.050, 0, 2},
	ShiftRight:  {0.050, 0, 2},
	Climb:       {0.040, 0, 2},
	RotateX:     {0, 15, 2},
	RotateY:     {0, 15, 2},
	RotateZ:     {0, 20, 2},
	Twist:       {0, 15, 2},
}

func MetricsFor(mode MovementMode) Metrics {
	if !mode.Valid() {
		return Metrics{0, 0, 1}
	}
	return metrics[mode]
}
