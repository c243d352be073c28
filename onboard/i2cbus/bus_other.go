//go:build !linux

package i2cbus

import (
	"github.com/pkg/errors"
	"runtime"
)

type DevBus struct{}

// Opens a character device such as /dev/i2c-1. Only linux exposes these, use a
// SimBus everywhere else.
func Open(path string) (*DevBus, error) {
	return nil, errors.Errorf("i2c devices are not supported on %s", runtime.GOOS)
}

func (b *DevBus) Write(addr uint16, buf []byte) error {
	return ErrClosed
}

func (b *DevBus) Close() error {
	return nil
}
