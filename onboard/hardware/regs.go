package hardware

import (
	"errors"
	"time"
)

// PCA9685 registers and bits.
const (
	REG_MODE1     = 0x00
	REG_MODE2     = 0x01
	REG_LED0_ON_L = 0x06
	REG_PRESCALE  = 0xFE

	MODE1_RESTART = 0x80
	MODE1_AI      = 0x20
	MODE1_SLEEP   = 0x10
	MODE2_OUTDRV  = 0x04

	OSC_CLOCK  = 25000000
	PWM_FREQ   = 50
	PWM_TICKS  = 4096
	PWM_PERIOD = 1000000 / PWM_FREQ // µs

	CHANNELS = 16

	WRITE_MAX_RETRIES = 3
	WRITE_RETRY_DELAY = time.Millisecond
	OSC_SETTLE        = 500 * time.Microsecond
)

var (
	ERR_MAX_RETRIES = errors.New("WRITE_MAX_RETRIES reached while attempting to write")
	ERR_BAD_CHANNEL = errors.New("channel out of range")
)

// Returns the prescale register value for an output frequency.
func prescale(freq float64) byte {
	return byte(float64(OSC_CLOCK)/(PWM_TICKS*freq) + 0.5 - 1)
}

// Converts a pulse width into the off tick count for one PWM period.
func PulseTicks(us int) uint16 {
	if us < 0 {
		us = 0
	}
	if us > PWM_PERIOD {
		us = PWM_PERIOD
	}
	return uint16(us * PWM_TICKS / PWM_PERIOD)
}

// Builds the four byte LEDn_ON/LEDn_OFF register write for a channel.
func channelWrite(channel int, on, off uint16) []byte {
	return []byte{
		byte(REG_LED0_ON_L + 4*channel),
		byte(on), byte(on >> 8),
		byte(off), byte(off >> 8),
	}
}
