package onboard

import (
	"context"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/gait"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/tables"
	. "github.com/smartystreets/goconvey/convey"
	"testing"
	"time"
)

func TestLoop(t *testing.T) {
	Convey("a running loop", t, func() {
		r, _, _ := testRobot(t, geometry.Hex, Tabular)
		l := NewLoop(r)

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan error, 1)
		go func() { stopped <- l.Run(ctx) }()

		Convey("applies submitted commands", func() {
			reply, err := l.Submit(context.Background(), MovementCommand{Mode: tables.TurnLeft})
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "Movement command executed")

			reply, err = l.Submit(context.Background(), MovementCommand{Mode: tables.TurnLeft})
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "Movement mode already set")

			time.Sleep(3 * l.Period())
			So(l.Snapshot().Mode, ShouldEqual, "turn_left")
		})

		Convey("reports command errors", func() {
			_, err := l.Submit(context.Background(), SpeedLevelCommand{Level: 9})
			So(errors.Code(err), ShouldEqual, errors.CodeInvalidValue)
		})

		Convey("parks on shutdown", func() {
			l.Submit(context.Background(), MovementCommand{Mode: tables.Forward})
			time.Sleep(5 * l.Period())
			cancel()
			So(<-stopped, ShouldEqual, context.Canceled)
			So(r.Position().ApproxEqual(geometry.Hex.Standby(), 1e-9), ShouldBeTrue)
		})

		Reset(func() {
			cancel()
		})
	})

	Convey("a loop that can not keep up", t, func() {
		r, _, _ := testRobot(t, geometry.Hex, Tabular)
		l := NewLoop(r)
		for i := 0; i < PendingCommands; i++ {
			l.requests <- request{cmd: HeartbeatCommand{}, reply: make(chan result, 1)}
		}

		_, err := l.Submit(context.Background(), StopCommand{})
		So(err, ShouldEqual, errors.ErrBusy)

		Convey("catches up on the next tick", func() {
			l.Step(20)
			So(len(l.requests), ShouldEqual, 0)
		})
	})
}

func TestHeartbeat(t *testing.T) {
	Convey("realtime clients must keep talking", t, func() {
		r, _, _ := testRobot(t, geometry.Hex, Realtime)
		l := NewLoop(r)

		clock := time.Now()
		l.now = func() time.Time { return clock }
		l.lastHeard = clock

		req := request{
			cmd:   WalkCommand{Velocity: gait.Velocity{VX: 50}, Parameters: gait.DefaultParameters()},
			reply: make(chan result, 1),
		}
		l.requests <- req
		l.Step(20)
		So((<-req.reply).err, ShouldBeNil)
		So(r.ControlMode(), ShouldEqual, Walk)

		Convey("quiet for less than the timeout keeps walking", func() {
			clock = clock.Add(r.Config().HeartbeatTimeout() / 2)
			l.Step(20)
			So(r.ControlMode(), ShouldEqual, Walk)
		})

		Convey("quiet for longer stands", func() {
			clock = clock.Add(r.Config().HeartbeatTimeout() + time.Millisecond)
			l.Step(20)
			So(r.ControlMode(), ShouldEqual, Stand)
			So(r.generator.Velocity().IsZero(), ShouldBeTrue)
			So(l.Snapshot().Control, ShouldEqual, "stand")
		})
	})
}
