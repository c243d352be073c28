// Package i2cbus gives the servo expanders a byte level path to the hardware.
package i2cbus

import (
	"errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrClosed = errors.New("i2c bus closed")

	log = logrus.WithFields(logrus.Fields{"pkg": "i2cbus"})
)

// Bus writes raw register data to a device address.
// All writes for one device are expected to come from a single goroutine, but
// implementations are safe for concurrent use.
type Bus interface {
	Write(addr uint16, buf []byte) error
	Close() error
}
