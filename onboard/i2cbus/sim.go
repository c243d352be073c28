package i2cbus

import (
	"errors"
	"sync"
)

var ErrSimulatedFault = errors.New("simulated bus fault")

type register struct {
	addr uint16
	reg  byte
}

// SimBus stands in for the real hardware. Every write is recorded per register
// so tests and the simulator can inspect what the driver produced. Writes
// spanning several bytes are spread over consecutive registers the same way
// auto-increment mode does on the expanders.
type SimBus struct {
	lock      sync.Mutex
	registers map[register]byte
	writes    int
	failNext  int
	closed    bool
}

func NewSimBus() *SimBus {
	return &SimBus{
		registers: make(map[register]byte),
	}
}

func (s *SimBus) Write(addr uint16, buf []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.writes++
	if s.failNext > 0 {
		s.failNext--
		return ErrSimulatedFault
	}
	if len(buf) == 0 {
		return nil
	}

	start := buf[0]
	for i, b := range buf[1:] {
		s.registers[register{addr, start + byte(i)}] = b
	}
	return nil
}

func (s *SimBus) Close() error {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	return nil
}

// Returns the last byte written to a register.
func (s *SimBus) Register(addr uint16, reg byte) (val byte, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	val, ok = s.registers[register{addr, reg}]
	return
}

// Returns the number of write calls, including failed ones.
func (s *SimBus) Writes() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.writes
}

// Makes the next n writes fail.
func (s *SimBus) FailNext(n int) {
	s.lock.Lock()
	s.failNext = n
	s.lock.Unlock()
}
