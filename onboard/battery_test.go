package onboard

import (
	"fmt"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"io/ioutil"
	"path/filepath"
	"testing"
)

type fixedSensors struct {
	volts []float64
	i     int
}

func (s *fixedSensors) Voltage() (float64, error) {
	v := s.volts[s.i%len(s.volts)]
	s.i++
	return v, nil
}

func (s *fixedSensors) Temperature() (float64, error) {
	return 41.5, nil
}

func TestBattery(t *testing.T) {
	cfg := DefaultConfig().Battery
	cfg.Samples = 4

	Convey("readings are a moving average", t, func() {
		b := NewBattery(&fixedSensors{volts: []float64{8.0, 7.0, 8.0, 7.0, 6.0, 6.0, 6.0, 6.0}}, cfg)

		So(b.Sample(), ShouldBeNil)
		So(b.Reading().Voltage, ShouldAlmostEqual, 8.0)
		So(b.Reading().Temperature, ShouldEqual, 41.5)

		So(b.Sample(), ShouldBeNil)
		So(b.Reading().Voltage, ShouldAlmostEqual, 7.5)
		So(b.Reading().Percent, ShouldAlmostEqual, 55, 1e-9)
		So(b.Reading().Low, ShouldBeFalse)

		Convey("and go low once the window drops under the threshold", func() {
			for i := 0; i < 6; i++ {
				So(b.Sample(), ShouldBeNil)
			}
			So(b.Reading().Voltage, ShouldAlmostEqual, 6.0)
			So(b.Reading().Percent, ShouldEqual, 0)
			So(b.Reading().Low, ShouldBeTrue)
		})
	})

	Convey("a fresh battery reports the default temperature", t, func() {
		b := NewBattery(&fixedSensors{volts: []float64{7}}, cfg)
		So(b.Reading().Temperature, ShouldEqual, DefaultTemperature)
	})
}

func TestSysfsSensors(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "in_voltage0_raw")
	thermal := filepath.Join(dir, "temp")

	cfg := DefaultConfig().Battery
	cfg.RawPath = raw
	cfg.ThermalPath = thermal
	cfg.Scale = 1 // mV per count

	// 2.4V at the pin is 7.5V at the battery through 100k/47k
	assert.NoError(t, ioutil.WriteFile(raw, []byte(fmt.Sprintf("%d\n", 2398)), 0644))
	assert.NoError(t, ioutil.WriteFile(thermal, []byte("52300\n"), 0644))

	s := NewSysfsSensors(cfg)
	v, err := s.Voltage()
	assert.NoError(t, err)
	assert.InDelta(t, 7.5, v, 0.01)

	temp, err := s.Temperature()
	assert.NoError(t, err)
	assert.InDelta(t, 52.3, temp, 1e-9)

	cfg.RawPath = filepath.Join(dir, "missing")
	_, err = NewSysfsSensors(cfg).Voltage()
	assert.Error(t, err)
}

func TestSimulatedSensors(t *testing.T) {
	Convey("the simulated battery drains and recovers", t, func() {
		s := NewSimulatedSensors(6.2, 1)
		first, _ := s.Voltage()
		So(first, ShouldBeBetween, SimFullVoltage-SimDrain-SimNoise-1e-9, SimFullVoltage+SimNoise)

		s.SetVoltage(6.2)
		v, _ := s.Voltage()
		So(v, ShouldBeGreaterThan, 8)
	})
}
