package onboard

import (
	"github.com/CodedInternet/gowalker/onboard/hardware"
	"github.com/CodedInternet/gowalker/onboard/i2cbus"
	"github.com/CodedInternet/gowalker/onboard/servo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Hardware is the PWM side of a robot: one bus and the expanders on it.
type Hardware struct {
	Bus    i2cbus.Bus
	Boards map[uint16]servo.Output
}

// Wakes every expander a chassis needs on an already open bus.
func NewHardware(cfg Config, bus i2cbus.Bus) (hw *Hardware, err error) {
	hw = &Hardware{
		Bus:    bus,
		Boards: make(map[uint16]servo.Output),
	}
	for _, addr := range servo.Boards(cfg.Chassis) {
		var p *hardware.PCA9685
		if p, err = hardware.NewPCA9685(bus, addr); err != nil {
			return nil, err
		}
		hw.Boards[addr] = p
	}
	return
}

// Opens the configured i2c bus, or a simulated one when sim is set.
func OpenHardware(cfg Config, sim bool) (hw *Hardware, err error) {
	var bus i2cbus.Bus
	if sim {
		bus = i2cbus.NewSimBus()
	} else {
		dev, err := i2cbus.Open(cfg.Bus)
		if err != nil {
			return nil, err
		}
		bus = dev
	}

	if hw, err = NewHardware(cfg, bus); err != nil {
		bus.Close()
		return nil, errors.Wrap(err, "unable to start servo expanders")
	}
	log.WithFields(logrus.Fields{"bus": cfg.Bus, "sim": sim, "boards": len(hw.Boards)}).Info("hardware ready")
	return
}

func (hw *Hardware) Close() error {
	if hw == nil || hw.Bus == nil {
		return nil
	}
	return hw.Bus.Close()
}
