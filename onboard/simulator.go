package onboard

import (
	"math/rand"
	"sync"
)

const (
	SimFullVoltage = 8.4
	SimDrain       = 0.002 // volts per sample
	SimNoise       = 0.02
)

// SimulatedSensors is a slowly draining battery with some noise on top, used
// when there is no ADC to read.
type SimulatedSensors struct {
	lock    sync.Mutex
	voltage float64
	floor   float64
	rand    *rand.Rand
}

func NewSimulatedSensors(floor float64, seed int64) *SimulatedSensors {
	return &SimulatedSensors{
		voltage: SimFullVoltage,
		floor:   floor,
		rand:    rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedSensors) Voltage() (float64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.voltage -= SimDrain
	if s.voltage < s.floor {
		s.voltage = SimFullVoltage
	}
	noise := (s.rand.Float64()*2 - 1) * SimNoise
	return s.voltage + noise, nil
}

func (s *SimulatedSensors) Temperature() (float64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return DefaultTemperature + s.rand.Float64() - 0.5, nil
}

// Sets the battery voltage, handy for exercising the low battery path.
func (s *SimulatedSensors) SetVoltage(v float64) {
	s.lock.Lock()
	s.voltage = v
	s.lock.Unlock()
}
