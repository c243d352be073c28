package hardware

import (
	"github.com/CodedInternet/gowalker/onboard/i2cbus"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

func TestPCA9685(t *testing.T) {
	Convey("expander initialisation", t, func() {
		bus := i2cbus.NewSimBus()
		p, err := NewPCA9685(bus, 0x41)
		So(err, ShouldBeNil)

		Convey("prescale is set for 50Hz", func() {
			val, ok := bus.Register(0x41, REG_PRESCALE)
			So(ok, ShouldBeTrue)
			So(val, ShouldEqual, 121)
		})

		Convey("chip is left running with auto increment", func() {
			val, _ := bus.Register(0x41, REG_MODE1)
			So(val, ShouldEqual, MODE1_RESTART|MODE1_AI)
		})

		Convey("pulses land in the channel registers", func() {
			So(p.SetPulse(3, 1500), ShouldBeNil)

			base := byte(REG_LED0_ON_L + 4*3)
			lo, _ := bus.Register(0x41, base+2)
			hi, _ := bus.Register(0x41, base+3)
			So(uint16(hi)<<8|uint16(lo), ShouldEqual, 307)
		})

		Convey("bad channels are refused", func() {
			So(p.SetPulse(16, 1500), ShouldEqual, ERR_BAD_CHANNEL)
		})

		Convey("transient failures are retried", func() {
			bus.FailNext(WRITE_MAX_RETRIES - 1)
			So(p.SetPulse(0, 1000), ShouldBeNil)
		})

		Convey("persistent failures give up", func() {
			bus.FailNext(WRITE_MAX_RETRIES)
			err := p.SetPulse(0, 1000)
			So(errors.Cause(err), ShouldEqual, ERR_MAX_RETRIES)
		})
	})

	Convey("pulse widths map onto the 4096 tick period", t, func() {
		So(PulseTicks(500), ShouldEqual, 102)
		So(PulseTicks(2500), ShouldEqual, 512)
		So(PulseTicks(-10), ShouldEqual, 0)
		So(PulseTicks(30000), ShouldEqual, 4096)
	})
}
