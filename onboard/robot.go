// Package onboard ties the locomotion packages into one robot driven by a
// fixed period loop.
package onboard

import (
	"context"
	"fmt"
	"github.com/CodedInternet/gowalker/onboard/calibration"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/gait"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/kinematics"
	"github.com/CodedInternet/gowalker/onboard/motion"
	"github.com/CodedInternet/gowalker/onboard/movement"
	"github.com/CodedInternet/gowalker/onboard/pose"
	"github.com/CodedInternet/gowalker/onboard/servo"
	"github.com/CodedInternet/gowalker/onboard/tables"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
	. "math"
	"strings"
	"time"
)

const (
	MaxWalkPitch = 15.0
	FlagTimeout  = 10 * time.Millisecond
)

var log = logrus.WithFields(logrus.Fields{"pkg": "onboard"})

// ControlMode selects what the realtime deployment does with the legs.
type ControlMode int

const (
	Stand ControlMode = iota
	Walk
	Trick
)

var controlNames = []string{"stand", "walk", "trick"}

func (m ControlMode) String() string {
	if m < 0 || int(m) >= len(controlNames) {
		return fmt.Sprintf("control(%d)", int(m))
	}
	return controlNames[m]
}

func ParseControlMode(name string) (ControlMode, error) {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "_mode"))
	for i, n := range controlNames {
		if n == key {
			return ControlMode(i), nil
		}
	}
	return Stand, errors.Invalid("unknown control mode %q", name)
}

type Robot struct {
	cfg     Config
	chassis geometry.Chassis
	hw      *Hardware
	store   calibration.Store
	battery *Battery

	servos    *servo.Bank
	legs      []*kinematics.Leg
	engine    movement.Engine
	quad      *movement.QuadEngine
	generator *gait.Generator
	pose      *pose.Controller
	walkPose  *pose.Controller
	motion    *motion.Controller

	flagSem *semaphore.Weighted
	flag    tables.MovementMode

	control     ControlMode
	walkPitch   float64
	calibrating bool
	frozen      bool
	onSequence  func(id uint32)
}

// NewRobot builds the legs and engines of the configured chassis on top of
// already opened hardware. Stored calibration is applied when the store has
// any, battery may be nil.
func NewRobot(cfg Config, hw *Hardware, store calibration.Store, battery *Battery) (r *Robot, err error) {
	r = &Robot{
		cfg:       cfg,
		chassis:   cfg.Chassis,
		hw:        hw,
		store:     store,
		battery:   battery,
		generator: gait.NewGenerator(cfg.Chassis),
		pose:      pose.NewController(cfg.Chassis),
		walkPose:  pose.NewController(cfg.Chassis),
		flagSem:   semaphore.NewWeighted(1),
	}

	if r.servos, err = servo.NewBank(cfg.Chassis, hw.Boards); err != nil {
		return nil, err
	}
	for i, mount := range cfg.Chassis.Mounts() {
		s := r.servos.Leg(i)
		r.legs = append(r.legs, kinematics.NewLeg(i, mount, [3]kinematics.Joint{s[0], s[1], s[2]}))
	}

	set := tables.For(cfg.Chassis, cfg.Gait)
	if cfg.Chassis == geometry.Quad {
		r.quad = movement.NewQuadEngine(set, float64(cfg.LoopPeriodMs))
		r.engine = r.quad
	} else {
		r.engine = movement.NewHexEngine(set)
	}
	r.engine.SetSpeed(cfg.DefaultSpeed)
	r.generator.SetParameters(cfg.GaitParameters)

	r.motion = motion.New(r.engine)
	r.motion.SetSequenceCallback(r.sequenceDone)

	if store != nil {
		if err := r.CalibrationLoad(); err != nil && !pkgerrors.Is(err, errors.ErrNoCalibration) {
			log.WithError(err).Warn("starting uncalibrated")
		}
	}

	log.WithFields(logrus.Fields{
		"chassis":    cfg.Chassis,
		"deployment": cfg.Deployment,
		"gait":       cfg.Gait,
	}).Info("robot ready")
	return r, nil
}

func (r *Robot) Config() Config {
	return r.cfg
}

func (r *Robot) Chassis() geometry.Chassis {
	return r.chassis
}

func (r *Robot) Motion() *motion.Controller {
	return r.motion
}

// Sets the function told about every completed sequence, called from the loop goroutine.
func (r *Robot) SetSequenceCallback(fn func(id uint32)) {
	r.onSequence = fn
}

func (r *Robot) sequenceDone(id uint32) {
	log.WithField("sequence", id).Info("sequence complete")
	if r.onSequence != nil {
		r.onSequence(id)
	}
}

func (r *Robot) lockFlag() error {
	ctx, cancel := context.WithTimeout(context.Background(), FlagTimeout)
	defer cancel()
	if err := r.flagSem.Acquire(ctx, 1); err != nil {
		log.Warn("movement flag lock timed out")
		return errors.ErrBusy
	}
	return nil
}

// SetMovementMode latches the mode played whenever no action is running.
// changed is false when the mode was already set.
func (r *Robot) SetMovementMode(mode tables.MovementMode) (changed bool, err error) {
	if !mode.Valid() {
		return false, errors.Invalid("unknown movement mode %d", int(mode))
	}
	if err = r.lockFlag(); err != nil {
		return
	}
	defer r.flagSem.Release(1)

	if r.flag == mode {
		return false, nil
	}
	log.WithFields(logrus.Fields{"from": r.flag, "to": mode}).Info("movement mode")
	r.flag = mode
	return true, nil
}

func (r *Robot) MovementMode() tables.MovementMode {
	if err := r.lockFlag(); err != nil {
		return tables.Standby
	}
	defer r.flagSem.Release(1)
	return r.flag
}

// The mode the next tick plays: the running action wins over the latched flag.
func (r *Robot) selectedMode() tables.MovementMode {
	if mode, ok := r.motion.Active(); ok {
		return mode
	}
	return r.MovementMode()
}

// Tick runs one loop period.
func (r *Robot) Tick(elapsedMs float64) {
	if r.frozen || r.calibrating {
		return
	}
	if r.cfg.Deployment == Realtime {
		r.UpdateRealtime(elapsedMs)
		return
	}

	r.ProcessMovement(r.selectedMode(), elapsedMs)
	if executed, ok := r.engine.Executing(); ok {
		if err := r.motion.OnLoopTick(executed, elapsedMs); err != nil {
			log.WithError(err).Warn("motion tick skipped")
		}
	}
}

// ProcessMovement steps the table engine in mode and moves every leg.
func (r *Robot) ProcessMovement(mode tables.MovementMode, elapsedMs float64) {
	r.engine.SetMode(mode)
	r.drive(r.engine.Next(elapsedMs))
}

// UpdateRealtime steps the realtime side according to the control mode.
func (r *Robot) UpdateRealtime(elapsedMs float64) {
	switch r.control {
	case Walk:
		r.drive(r.walkPose.Apply(r.generator.Update(elapsedMs)))
	case Stand:
		r.drive(r.pose.Apply(r.chassis.Standby()))
	default:
		r.drive(r.chassis.Standby())
	}
}

// Unreachable feet are skipped for the tick, the other legs still move.
func (r *Robot) drive(feet geometry.Locations) {
	for i, leg := range r.legs {
		if err := leg.MoveTip(feet[i]); err != nil {
			log.WithError(err).WithField("leg", i).Warn("leg not moved")
		}
	}
}

// Puts every leg at standby right away, used on start and shutdown.
func (r *Robot) Park() error {
	r.engine.Reset()
	r.generator.Reset()
	var err error
	for i, leg := range r.legs {
		leg.Forget()
		err = multierr.Append(err, leg.MoveTip(r.chassis.Standby()[i]))
	}
	return err
}

// Position is where the feet were last sent.
func (r *Robot) Position() geometry.Locations {
	out := make(geometry.Locations, len(r.legs))
	for i, leg := range r.legs {
		out[i], _ = leg.Tip()
	}
	return out
}

// SetSpeed clamps into the supported range. Only NaN is refused.
func (r *Robot) SetSpeed(s float64) error {
	if IsNaN(s) {
		return errors.Invalid("speed is not a number")
	}
	if clamped := movement.ClampSpeed(s); clamped != s {
		log.WithFields(logrus.Fields{"requested": s, "speed": clamped}).Debug("speed clamped")
		s = clamped
	}
	r.engine.SetSpeed(s)
	return nil
}

func (r *Robot) Speed() float64 {
	return r.engine.Speed()
}

func (r *Robot) SetSpeedLevel(level int) error {
	s, err := movement.SpeedForLevel(level)
	if err != nil {
		return err
	}
	r.engine.SetSpeed(s)
	return nil
}

// SetGait changes the quad gait family. Hexapods have only one.
func (r *Robot) SetGait(g tables.QuadGait) error {
	if r.quad == nil {
		return pkgerrors.Wrap(errors.ErrUnsupported, "gait families")
	}
	return r.quad.SetGait(g)
}

func (r *Robot) Gait() tables.QuadGait {
	if r.quad == nil {
		return tables.Trot
	}
	return r.quad.Gait()
}

func (r *Robot) SetControlMode(m ControlMode) {
	if m == r.control {
		return
	}
	log.WithFields(logrus.Fields{"from": r.control, "to": m}).Info("control mode")
	if m != Walk {
		r.generator.Reset()
	}
	r.control = m
}

func (r *Robot) ControlMode() ControlMode {
	return r.control
}

func (r *Robot) SetBodyPose(p pose.BodyPose) {
	r.pose.SetPose(p)
}

func (r *Robot) SetVelocity(v gait.Velocity) {
	r.generator.SetVelocity(v)
}

func (r *Robot) SetGaitParameters(p gait.Parameters) {
	r.generator.SetParameters(p)
}

// SetWalkPitch tilts the body while walking, limited to MaxWalkPitch.
func (r *Robot) SetWalkPitch(pitch float64) {
	if IsNaN(pitch) {
		pitch = 0
	}
	clamped := Max(-MaxWalkPitch, Min(MaxWalkPitch, pitch))
	if clamped != pitch {
		log.WithFields(logrus.Fields{"requested": pitch, "applied": clamped}).Warn("walk pitch limited")
	}
	r.walkPitch = clamped
	r.walkPose.SetPose(pose.BodyPose{Pitch: clamped})
}

// EmergencyStop drops every queued motion and returns to a still standby.
func (r *Robot) EmergencyStop() {
	if err := r.motion.Clear("emergency stop"); err != nil {
		log.WithError(err).Error("motion queue not cleared on emergency stop")
	}
	if _, err := r.SetMovementMode(tables.Standby); err != nil {
		log.WithError(err).Error("movement flag not reset on emergency stop")
	}
	r.generator.SetVelocity(gait.Velocity{})
	r.pose.SetPose(pose.BodyPose{})
	r.SetControlMode(Stand)
	log.Warn("emergency stop")
}

// Stop clears every action and latches standby.
func (r *Robot) Stop(reason string) error {
	if err := r.motion.Clear(reason); err != nil {
		return err
	}
	_, err := r.SetMovementMode(tables.Standby)
	return err
}

// Freeze stops the loop from computing or writing anything until unfrozen.
func (r *Robot) Freeze(frozen bool) {
	if frozen != r.frozen {
		log.WithField("frozen", frozen).Info("freeze")
	}
	r.frozen = frozen
	if !frozen {
		for _, leg := range r.legs {
			leg.Forget()
		}
	}
}

func (r *Robot) Frozen() bool {
	return r.frozen
}

func (r *Robot) Battery() (reading BatteryReading, ok bool) {
	if r.battery == nil {
		return BatteryReading{Temperature: DefaultTemperature}, false
	}
	return r.battery.Reading(), true
}

func (r *Robot) Close() error {
	return multierr.Combine(r.hw.Close(), r.closeStore())
}

func (r *Robot) closeStore() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
