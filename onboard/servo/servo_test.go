package servo

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

type testOutput struct {
	pulses map[int]int
}

func (t *testOutput) SetPulse(channel int, us int) error {
	t.pulses[channel] = us
	return nil
}

func createTestBank(chassis geometry.Chassis) (bank *Bank, right, left *testOutput) {
	right = &testOutput{pulses: make(map[int]int)}
	left = &testOutput{pulses: make(map[int]int)}
	bank, err := NewBank(chassis, map[uint16]Output{BoardRight: right, BoardLeft: left})
	if err != nil {
		panic(err)
	}
	return
}

func TestPulseWidth(t *testing.T) {
	Convey("angles map linearly around the centre pulse", t, func() {
		So(PulseWidth(0, 0), ShouldEqual, 1500)
		So(PulseWidth(90, 0), ShouldEqual, 2500)
		So(PulseWidth(-45, 0), ShouldEqual, 1000)
		So(PulseWidth(0, 9), ShouldEqual, 1600)
	})

	Convey("pulses are clamped to the servo range", t, func() {
		So(PulseWidth(120, 0), ShouldEqual, 2500)
		So(PulseWidth(-89, -9), ShouldEqual, 500)
	})
}

func TestWiring(t *testing.T) {
	Convey("hex legs are split over two expanders", t, func() {
		ch, err := Wiring(geometry.Hex, 0, 2)
		So(err, ShouldBeNil)
		So(ch, ShouldResemble, Channel{BoardRight, 7})

		ch, _ = Wiring(geometry.Hex, 3, 0)
		So(ch, ShouldResemble, Channel{BoardLeft, 8})

		ch, _ = Wiring(geometry.Hex, 5, 1)
		So(ch, ShouldResemble, Channel{BoardLeft, 6})
	})

	Convey("quad legs share one expander", t, func() {
		ch, _ := Wiring(geometry.Quad, 3, 2)
		So(ch, ShouldResemble, Channel{BoardRight, 11})
		So(Boards(geometry.Quad), ShouldHaveLength, 1)
	})

	Convey("no channel is used twice", t, func() {
		for _, chassis := range []geometry.Chassis{geometry.Hex, geometry.Quad} {
			seen := make(map[Channel]bool)
			for leg := 0; leg < chassis.LegCount(); leg++ {
				for joint := 0; joint < 3; joint++ {
					ch, _ := Wiring(chassis, leg, joint)
					So(seen[ch], ShouldBeFalse)
					seen[ch] = true
				}
			}
		}
	})

	Convey("bad indices are rejected", t, func() {
		_, err := Wiring(geometry.Quad, 4, 0)
		So(err, ShouldNotBeNil)
		_, err = Wiring(geometry.Hex, 0, 3)
		So(err, ShouldNotBeNil)
	})
}

func TestServo(t *testing.T) {
	Convey("writing angles through a bank", t, func() {
		bank, right, left := createTestBank(geometry.Hex)

		Convey("the hip is written as is", func() {
			s, _ := bank.Servo(1, 0)
			So(s.SetAngle(9), ShouldBeNil)
			So(right.pulses[2], ShouldEqual, 1600)
		})

		Convey("the femur is trimmed and inverted", func() {
			s, _ := bank.Servo(4, 1)
			So(s.SetAngle(30), ShouldBeNil)
			So(left.pulses[3], ShouldEqual, PulseWidth(-15, 0))
			So(s.Pulse(), ShouldEqual, 1333)
		})

		Convey("out of range angles are clamped", func() {
			s, _ := bank.Servo(0, 0)
			So(s.SetAngle(80), ShouldBeNil)
			So(s.Angle(), ShouldEqual, 45)
			So(right.pulses[5], ShouldEqual, 2000)

			s, _ = bank.Servo(0, 1)
			So(s.SetAngle(-60), ShouldBeNil)
			So(s.Angle(), ShouldEqual, -45)
		})

		Convey("offsets are applied and rewritten", func() {
			s, _ := bank.Servo(2, 2)
			So(s.SetAngle(0), ShouldBeNil)
			So(s.SetOffset(-9), ShouldBeNil)
			So(right.pulses[10], ShouldEqual, 1400)

			offsets := bank.Offsets()
			So(offsets[2][2], ShouldEqual, -9)

			offsets[2][2] = 3
			So(bank.SetOffsets(offsets), ShouldBeNil)
			So(s.Offset(), ShouldEqual, 3)
			So(bank.SetOffsets(offsets[:2]), ShouldNotBeNil)
		})

		Convey("set all drives every channel", func() {
			So(bank.SetAll(0), ShouldBeNil)
			So(len(right.pulses)+len(left.pulses), ShouldEqual, 18)
		})
	})

	Convey("missing expanders are reported", t, func() {
		_, err := NewBank(geometry.Hex, map[uint16]Output{BoardRight: &testOutput{}})
		So(err, ShouldNotBeNil)
	})
}
