// Package hardware drives the PCA9685 16 channel PWM expanders the servos hang off.
package hardware

import (
	"github.com/CodedInternet/gowalker/onboard/i2cbus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"time"
)

var log = logrus.WithFields(logrus.Fields{"pkg": "hardware"})

type PCA9685 struct {
	bus  i2cbus.Bus
	Addr uint16
}

// Wakes an expander and configures it for 50Hz servo pulses.
func NewPCA9685(bus i2cbus.Bus, addr uint16) (p *PCA9685, err error) {
	p = &PCA9685{
		bus:  bus,
		Addr: addr,
	}

	steps := [][]byte{
		{REG_MODE1, MODE1_SLEEP},
		{REG_PRESCALE, prescale(PWM_FREQ)},
		{REG_MODE2, MODE2_OUTDRV},
		{REG_MODE1, MODE1_AI},
	}
	for _, buf := range steps {
		if err = p.write(buf); err != nil {
			return nil, errors.Wrapf(err, "init pca9685 at 0x%02X", addr)
		}
	}

	// oscillator needs to settle before the restart bit may be set
	time.Sleep(OSC_SETTLE)
	if err = p.write([]byte{REG_MODE1, MODE1_RESTART | MODE1_AI}); err != nil {
		return nil, errors.Wrapf(err, "restart pca9685 at 0x%02X", addr)
	}

	log.WithField("addr", addr).Debug("pwm expander ready")
	return
}

func (p *PCA9685) SetPWM(channel int, on, off uint16) error {
	if channel < 0 || channel >= CHANNELS {
		return ERR_BAD_CHANNEL
	}
	return p.write(channelWrite(channel, on, off))
}

// Sets the pulse width of a channel in microseconds.
func (p *PCA9685) SetPulse(channel int, us int) error {
	return p.SetPWM(channel, 0, PulseTicks(us))
}

// Writes a buffer, retrying transient bus errors up to WRITE_MAX_RETRIES times.
func (p *PCA9685) write(buf []byte) (err error) {
	for i := 0; i < WRITE_MAX_RETRIES; i++ {
		if err = p.bus.Write(p.Addr, buf); err == nil {
			return nil
		}

		log.WithError(err).WithField("attempt", i+1).Debug("pwm write failed")
		time.Sleep(WRITE_RETRY_DELAY)
	}

	return errors.Wrap(ERR_MAX_RETRIES, err.Error())
}
