package errors

import (
	"fmt"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"testing"
)

func TestCode(t *testing.T) {
	Convey("codes are resolved through wrapping", t, func() {
		So(Code(Malformed("Invalid JSON format")), ShouldEqual, CodeMalformed)
		So(Code(Invalid("value must be positive")), ShouldEqual, CodeInvalidValue)
		So(Code(errors.Wrap(ErrQueueFull, "sequence")), ShouldEqual, CodeQueueFull)
		So(Code(fmt.Errorf("enqueue: %w", ErrBusy)), ShouldEqual, CodeBusy)
		So(Code(LegIndexError{Leg: 7, Joint: -1}), ShouldEqual, CodeInvalidValue)
		So(Code(ErrNotCalibrating), ShouldEqual, CodeNotCalibrating)
		So(Code(errors.Wrap(ErrUnsupported, "walk_mode")), ShouldEqual, CodeUnsupported)
		So(Code(ErrLowBattery), ShouldEqual, CodeLowBattery)
		So(Code(fmt.Errorf("boom")), ShouldEqual, CodeInternalFailure)
	})

	Convey("leg index errors describe the missing part", t, func() {
		So(LegIndexError{Leg: 7, Joint: -1}.Error(), ShouldEqual, "no such leg 7")
		So(LegIndexError{Leg: 1, Joint: 4}.Error(), ShouldEqual, "no such joint 4 on leg 1")
	})
}
