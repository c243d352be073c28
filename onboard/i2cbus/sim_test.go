package i2cbus

import (
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

func TestSimBus(t *testing.T) {
	Convey("simulated bus", t, func() {
		bus := NewSimBus()

		Convey("multi byte writes auto increment", func() {
			So(bus.Write(0x40, []byte{0x06, 1, 2, 3, 4}), ShouldBeNil)

			for i, want := range []byte{1, 2, 3, 4} {
				val, ok := bus.Register(0x40, 0x06+byte(i))
				So(ok, ShouldBeTrue)
				So(val, ShouldEqual, want)
			}

			_, ok := bus.Register(0x41, 0x06)
			So(ok, ShouldBeFalse)
		})

		Convey("faults are injected and counted", func() {
			bus.FailNext(1)
			So(bus.Write(0x40, []byte{0x00, 0x10}), ShouldEqual, ErrSimulatedFault)
			So(bus.Write(0x40, []byte{0x00, 0x10}), ShouldBeNil)
			So(bus.Writes(), ShouldEqual, 2)
		})

		Convey("closed bus refuses writes", func() {
			So(bus.Close(), ShouldBeNil)
			So(bus.Write(0x40, []byte{0x00}), ShouldEqual, ErrClosed)
		})
	})
}
