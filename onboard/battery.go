package onboard

import (
	"context"
	"github.com/pkg/errors"
	"io/ioutil"
	. "math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Reported when no thermal source is available.
const DefaultTemperature = 35.0

// Sensors reads raw battery voltage and board temperature.
type Sensors interface {
	Voltage() (float64, error)
	Temperature() (float64, error)
}

type BatteryReading struct {
	Voltage     float64 `json:"voltage"`
	Percent     float64 `json:"battery"`
	Temperature float64 `json:"temperature"`
	Low         bool    `json:"lowBattery"`
}

// SysfsSensors reads an IIO ADC channel behind a resistor divider and a
// thermal zone.
type SysfsSensors struct {
	cfg BatteryConfig
}

func NewSysfsSensors(cfg BatteryConfig) *SysfsSensors {
	return &SysfsSensors{cfg: cfg}
}

func readNumber(path string) (float64, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", path)
	}
	return v, nil
}

func (s *SysfsSensors) Voltage() (float64, error) {
	if s.cfg.RawPath == "" {
		return 0, errors.New("no battery adc configured")
	}
	raw, err := readNumber(s.cfg.RawPath)
	if err != nil {
		return 0, err
	}
	pin := raw * s.cfg.Scale / 1000
	return pin * (s.cfg.DividerHigh + s.cfg.DividerLow) / s.cfg.DividerLow, nil
}

// Thermal zones report millidegrees.
func (s *SysfsSensors) Temperature() (float64, error) {
	if s.cfg.ThermalPath == "" {
		return DefaultTemperature, nil
	}
	v, err := readNumber(s.cfg.ThermalPath)
	if err != nil {
		return DefaultTemperature, err
	}
	return v / 1000, nil
}

// Battery keeps a moving average of the sensor voltage.
type Battery struct {
	lock    sync.RWMutex
	src     Sensors
	cfg     BatteryConfig
	samples []float64
	next    int
	filled  int
	reading BatteryReading
}

func NewBattery(src Sensors, cfg BatteryConfig) *Battery {
	n := cfg.Samples
	if n < 1 {
		n = 1
	}
	return &Battery{
		src:     src,
		cfg:     cfg,
		samples: make([]float64, n),
		reading: BatteryReading{Temperature: DefaultTemperature},
	}
}

// Takes one sample and refreshes the reading.
func (b *Battery) Sample() error {
	v, err := b.src.Voltage()
	if err != nil {
		return err
	}
	t, terr := b.src.Temperature()
	if terr != nil {
		log.WithError(terr).Debug("temperature unavailable")
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	b.samples[b.next] = v
	b.next = (b.next + 1) % len(b.samples)
	if b.filled < len(b.samples) {
		b.filled++
	}

	sum := 0.0
	for i := 0; i < b.filled; i++ {
		sum += b.samples[i]
	}
	avg := sum / float64(b.filled)

	b.reading = BatteryReading{
		Voltage:     avg,
		Percent:     b.percent(avg),
		Temperature: t,
		Low:         avg < b.cfg.LowVoltage,
	}
	return nil
}

// Linear between the low and full voltage.
func (b *Battery) percent(v float64) float64 {
	span := b.cfg.FullVoltage - b.cfg.LowVoltage
	if span <= 0 {
		return 0
	}
	return Max(0, Min(100, (v-b.cfg.LowVoltage)/span*100))
}

func (b *Battery) Reading() BatteryReading {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.reading
}

// Samples every interval until the context ends.
func (b *Battery) Run(ctx context.Context) {
	interval := time.Duration(b.cfg.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failing := false
	for {
		if err := b.Sample(); err != nil {
			if !failing {
				log.WithError(err).Warn("battery sample failed")
			}
			failing = true
		} else {
			failing = false
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// OpenBattery reads the sysfs sensors, or a draining simulation when sim is set.
func OpenBattery(cfg BatteryConfig, sim bool) *Battery {
	if sim {
		return NewBattery(NewSimulatedSensors(cfg.LowVoltage-0.2, time.Now().UnixNano()), cfg)
	}
	return NewBattery(NewSysfsSensors(cfg), cfg)
}
