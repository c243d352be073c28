package i2cbus

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"sync"
)

// from linux/i2c-dev.h
const i2cSlave = 0x0703

type DevBus struct {
	fd   int
	path string
	addr uint16
	lock sync.Mutex
	open bool
}

// Opens a character device such as /dev/i2c-1.
func Open(path string) (bus *DevBus, err error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	bus = &DevBus{
		fd:   fd,
		path: path,
		open: true,
	}
	log.WithField("path", path).Debug("i2c bus opened")
	return
}

func (b *DevBus) Write(addr uint16, buf []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return ErrClosed
	}

	if b.addr != addr {
		if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
			return errors.Wrapf(err, "select device 0x%02X", addr)
		}
		b.addr = addr
	}

	n, err := unix.Write(b.fd, buf)
	if err != nil {
		return errors.Wrapf(err, "write to 0x%02X", addr)
	}
	if n != len(buf) {
		return errors.Errorf("short write to 0x%02X: %d of %d bytes", addr, n, len(buf))
	}
	return nil
}

func (b *DevBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	return unix.Close(b.fd)
}
