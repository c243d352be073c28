package onboard

import (
	"context"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/gait"
	"github.com/sirupsen/logrus"
	"sync/atomic"
	"time"
)

// Commands waiting for the next tick.
const PendingCommands = 16

type result struct {
	reply Reply
	err   error
}

type request struct {
	cmd   Command
	reply chan result
}

// Loop owns the robot. Every other goroutine talks to it through Submit and
// reads it through Snapshot.
type Loop struct {
	robot     *Robot
	period    time.Duration
	requests  chan request
	snapshot  atomic.Value
	heartbeat time.Duration
	lastHeard time.Time
	timedOut  bool
	now       func() time.Time
}

func NewLoop(r *Robot) *Loop {
	l := &Loop{
		robot:     r,
		period:    r.cfg.LoopPeriod(),
		requests:  make(chan request, PendingCommands),
		heartbeat: r.cfg.HeartbeatTimeout(),
		now:       time.Now,
	}
	l.lastHeard = l.now()
	l.snapshot.Store(r.Status())
	return l
}

func (l *Loop) Period() time.Duration {
	return l.period
}

// Run ticks until the context ends, then parks the legs at standby.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.robot.Park(); err != nil {
		log.WithError(err).Warn("legs not parked on start")
	}

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	last := l.now()
	log.WithField("period", l.period).Info("loop running")
	for {
		select {
		case <-ctx.Done():
			l.drain(errors.ErrBusy)
			if err := l.robot.Park(); err != nil {
				log.WithError(err).Warn("legs not parked on stop")
			}
			log.Info("loop stopped")
			return ctx.Err()

		case t := <-ticker.C:
			elapsed := t.Sub(last)
			last = t
			l.Step(float64(elapsed) / float64(time.Millisecond))
		}
	}
}

// Step runs one tick: pending commands first, then the robot, then the
// snapshot.
func (l *Loop) Step(elapsedMs float64) {
	start := l.now()

	l.applyPending()
	l.checkHeartbeat()
	l.robot.Tick(elapsedMs)
	l.snapshot.Store(l.robot.Status())

	if took := l.now().Sub(start); took > l.period {
		log.WithFields(logrus.Fields{"took": took, "period": l.period}).Warn("tick overran")
	}
}

func (l *Loop) applyPending() {
	for {
		select {
		case req := <-l.requests:
			l.lastHeard = l.now()
			l.timedOut = false
			rep, err := req.cmd.Apply(l.robot)
			req.reply <- result{rep, err}
		default:
			return
		}
	}
}

// Answers everything still waiting with err.
func (l *Loop) drain(err error) {
	for {
		select {
		case req := <-l.requests:
			req.reply <- result{err: err}
		default:
			return
		}
	}
}

// Realtime clients must keep talking, otherwise the robot stops walking.
func (l *Loop) checkHeartbeat() {
	r := l.robot
	if r.cfg.Deployment != Realtime || l.heartbeat <= 0 || l.timedOut {
		return
	}
	if l.now().Sub(l.lastHeard) < l.heartbeat {
		return
	}
	l.timedOut = true
	if r.ControlMode() == Stand && r.generator.Velocity().IsZero() {
		return
	}
	log.WithField("timeout", l.heartbeat).Warn("heartbeat lost, standing")
	r.SetVelocity(gait.Velocity{})
	r.SetControlMode(Stand)
}

// Submit hands a command to the loop and waits for its reply. If the loop
// can not take it within one period ErrBusy is returned and nothing changes.
func (l *Loop) Submit(ctx context.Context, cmd Command) (Reply, error) {
	req := request{cmd: cmd, reply: make(chan result, 1)}

	timer := time.NewTimer(l.period)
	defer timer.Stop()
	select {
	case l.requests <- req:
	case <-timer.C:
		log.Warn("command queue full, command ignored")
		return Reply{}, errors.ErrBusy
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.reply, res.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Snapshot is the status published by the last tick.
func (l *Loop) Snapshot() Status {
	return l.snapshot.Load().(Status)
}
