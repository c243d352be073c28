package onboard

import (
	"github.com/CodedInternet/gowalker/onboard/gait"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/movement"
	"github.com/CodedInternet/gowalker/onboard/tables"
	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"io/ioutil"
	"strings"
	"time"
)

// Config file versions this build understands.
const ConfigConstraint = "~1.0"

// Deployment selects what drives the legs: stored tables or the realtime trot.
type Deployment int

const (
	Tabular Deployment = iota
	Realtime
)

func (d Deployment) String() string {
	if d == Realtime {
		return "realtime"
	}
	return "tabular"
}

func (d *Deployment) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	switch strings.ToLower(name) {
	case "tabular", "":
		*d = Tabular
	case "realtime":
		*d = Realtime
	default:
		return errors.Errorf("unknown deployment %q", name)
	}
	return nil
}

type BatteryConfig struct {
	// IIO raw ADC reading, empty disables sampling.
	RawPath     string  `yaml:"raw_path"`
	Scale       float64 `yaml:"scale"` // mV per count at the ADC pin
	DividerHigh float64 `yaml:"divider_high"`
	DividerLow  float64 `yaml:"divider_low"`
	LowVoltage  float64 `yaml:"low_voltage"`
	FullVoltage float64 `yaml:"full_voltage"`
	Samples     int     `yaml:"samples"`
	IntervalMs  int     `yaml:"interval_ms"`
	ThermalPath string  `yaml:"thermal_path"`
}

type Config struct {
	Version            string           `yaml:"version"`
	Chassis            geometry.Chassis `yaml:"chassis"`
	Deployment         Deployment       `yaml:"deployment"`
	LoopPeriodMs       int              `yaml:"loop_period_ms"`
	DefaultSpeed       float64          `yaml:"default_speed"`
	Gait               tables.QuadGait  `yaml:"gait"`
	HeartbeatTimeoutMs int              `yaml:"heartbeat_timeout_ms"`
	StatusIntervalMs   int              `yaml:"status_interval_ms"`
	Bus                string           `yaml:"bus"`
	Battery            BatteryConfig    `yaml:"battery"`
	GaitParameters     gait.Parameters  `yaml:"gait_parameters"`
}

func DefaultConfig() Config {
	return Config{
		Version:            "1.0.0",
		Chassis:            geometry.Hex,
		Deployment:         Tabular,
		LoopPeriodMs:       20,
		DefaultSpeed:       movement.DefaultSpeed,
		Gait:               tables.Trot,
		HeartbeatTimeoutMs: 3000,
		StatusIntervalMs:   1000,
		Bus:                "/dev/i2c-1",
		Battery: BatteryConfig{
			Scale:       3300.0 / 4095,
			DividerHigh: 100e3,
			DividerLow:  47e3,
			LowVoltage:  6.4,
			FullVoltage: 8.4,
			Samples:     10,
			IntervalMs:  1000,
			ThermalPath: "/sys/class/thermal/thermal_zone0/temp",
		},
		GaitParameters: gait.DefaultParameters(),
	}
}

func (c Config) LoopPeriod() time.Duration {
	return time.Duration(c.LoopPeriodMs) * time.Millisecond
}

func (c Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutMs) * time.Millisecond
}

func (c Config) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalMs) * time.Millisecond
}

// Validate checks the version constraint and the ranges that would make the
// loop misbehave.
func (c Config) Validate() error {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return errors.Wrapf(err, "config version %q", c.Version)
	}
	constraint, err := semver.NewConstraint(ConfigConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return errors.Errorf("config version %s does not satisfy %s", v, ConfigConstraint)
	}

	if c.LoopPeriodMs <= 0 {
		return errors.Errorf("loop_period_ms must be positive, got %d", c.LoopPeriodMs)
	}
	if c.DefaultSpeed < movement.MinSpeed || c.DefaultSpeed > movement.MaxSpeed {
		return errors.Errorf("default_speed %.2f outside %.2f-%.2f", c.DefaultSpeed, movement.MinSpeed, movement.MaxSpeed)
	}
	if c.Battery.Samples < 1 {
		return errors.New("battery samples must be at least 1")
	}
	return nil
}

// ParseConfig reads a yaml config on top of the defaults.
func ParseConfig(data []byte) (c Config, err error) {
	c = DefaultConfig()
	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrap(err, "unable to unmarshal config")
	}
	c.GaitParameters = c.GaitParameters.Bounded()
	err = c.Validate()
	return
}

func LoadConfig(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return DefaultConfig(), errors.Wrapf(err, "unable to read config %s", path)
	}
	return ParseConfig(data)
}
