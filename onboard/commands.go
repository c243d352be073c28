package onboard

import (
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/gait"
	"github.com/CodedInternet/gowalker/onboard/motion"
	"github.com/CodedInternet/gowalker/onboard/pose"
	"github.com/CodedInternet/gowalker/onboard/tables"
	pkgerrors "github.com/pkg/errors"
	"strings"
)

// Command is one client request. Apply runs on the loop goroutine between ticks.
type Command interface {
	Apply(r *Robot) (Reply, error)
}

// Reply is the outcome of a successful command. Typed replies set Type and
// carry their payload in Data.
type Reply struct {
	Message    string
	SequenceID uint32
	Type       string
	Data       interface{}
}

type MovementCommand struct {
	Mode tables.MovementMode
}

func (c MovementCommand) Apply(r *Robot) (Reply, error) {
	changed, err := r.SetMovementMode(c.Mode)
	if err != nil {
		return Reply{}, err
	}
	if !changed {
		return Reply{Message: "Movement mode already set"}, nil
	}
	return Reply{Message: "Movement command executed"}, nil
}

type SpeedCommand struct {
	Speed float64
}

func (c SpeedCommand) Apply(r *Robot) (Reply, error) {
	if err := r.SetSpeed(c.Speed); err != nil {
		return Reply{}, err
	}
	return Reply{Message: "Speed updated"}, nil
}

type SpeedLevelCommand struct {
	Level int
}

func (c SpeedLevelCommand) Apply(r *Robot) (Reply, error) {
	if err := r.SetSpeedLevel(c.Level); err != nil {
		return Reply{}, err
	}
	return Reply{Message: "Speed level updated"}, nil
}

type GaitCommand struct {
	Gait tables.QuadGait
}

func (c GaitCommand) Apply(r *Robot) (Reply, error) {
	if err := r.SetGait(c.Gait); err != nil {
		return Reply{}, err
	}
	return Reply{Message: "Gait updated"}, nil
}

// ActionCommand queues one bounded action. Without Append whatever was
// queued or running is dropped first.
type ActionCommand struct {
	Action motion.Action
	Append bool
}

func (c ActionCommand) Apply(r *Robot) (Reply, error) {
	if err := c.Action.Validate(); err != nil {
		return Reply{}, err
	}
	if c.Action.SequenceID != 0 {
		c.Action.SequenceTail = true
	}
	var err error
	if c.Append {
		err = r.motion.Enqueue(c.Action)
	} else {
		err = r.motion.Replace("single action override", c.Action)
	}
	if err != nil {
		return Reply{}, err
	}
	if _, err := r.SetMovementMode(tables.Standby); err != nil {
		return Reply{}, err
	}
	return Reply{Message: "action accepted", SequenceID: c.Action.SequenceID}, nil
}

type SequenceCommand struct {
	Actions []motion.Action
	ID      uint32
	Append  bool
}

func (c SequenceCommand) Apply(r *Robot) (Reply, error) {
	if len(c.Actions) < 1 || len(c.Actions) > motion.MaxSequence {
		return Reply{}, errors.Invalid("sequence size must be 1-%d", motion.MaxSequence)
	}
	for _, a := range c.Actions {
		if err := a.Validate(); err != nil {
			return Reply{}, err
		}
	}
	var err error
	if c.Append {
		err = r.motion.EnqueueSequence(c.Actions, c.ID)
	} else {
		err = r.motion.ReplaceSequence(c.Actions, c.ID, "sequence override")
	}
	if err != nil {
		return Reply{}, err
	}
	if _, err := r.SetMovementMode(tables.Standby); err != nil {
		return Reply{}, err
	}
	return Reply{Message: "sequence accepted", SequenceID: c.ID}, nil
}

type StopCommand struct{}

func (StopCommand) Apply(r *Robot) (Reply, error) {
	if err := r.Stop("stop command"); err != nil {
		return Reply{}, err
	}
	return Reply{Message: "Motion stopped"}, nil
}

type ClearQueueCommand struct{}

func (ClearQueueCommand) Apply(r *Robot) (Reply, error) {
	if err := r.motion.ClearQueue(); err != nil {
		return Reply{}, err
	}
	return Reply{Message: "Queue cleared"}, nil
}

func requireRealtime(r *Robot, what string) error {
	if r.cfg.Deployment != Realtime {
		return pkgerrors.Wrap(errors.ErrUnsupported, what)
	}
	return nil
}

// StandCommand holds the feet at standby under a body pose.
type StandCommand struct {
	Pose pose.BodyPose
}

func (c StandCommand) Apply(r *Robot) (Reply, error) {
	if err := requireRealtime(r, "stand_mode"); err != nil {
		return Reply{}, err
	}
	r.SetControlMode(Stand)
	r.SetBodyPose(c.Pose)
	return Reply{Message: "stand mode"}, nil
}

type WalkCommand struct {
	Velocity   gait.Velocity
	Pitch      float64
	Parameters gait.Parameters
}

func (c WalkCommand) Apply(r *Robot) (Reply, error) {
	if err := requireRealtime(r, "walk_mode"); err != nil {
		return Reply{}, err
	}
	r.SetControlMode(Walk)
	r.SetGaitParameters(c.Parameters)
	r.SetVelocity(c.Velocity)
	r.SetWalkPitch(c.Pitch)
	return Reply{Message: "walk mode"}, nil
}

// TrickCommand names a canned routine. None are defined yet so the robot
// only holds standby.
type TrickCommand struct {
	Name string
}

var Tricks = []string{"trick_a", "trick_b", "trick_c", "trick_d"}

func (c TrickCommand) Apply(r *Robot) (Reply, error) {
	if err := requireRealtime(r, "trick"); err != nil {
		return Reply{}, err
	}
	known := false
	for _, t := range Tricks {
		if strings.EqualFold(t, c.Name) {
			known = true
		}
	}
	if !known {
		return Reply{}, errors.Invalid("unknown trick %q", c.Name)
	}
	r.SetControlMode(Trick)
	log.WithField("trick", c.Name).Info("trick requested, holding standby")
	return Reply{Message: "trick " + strings.ToLower(c.Name)}, nil
}

type EmergencyStopCommand struct{}

func (EmergencyStopCommand) Apply(r *Robot) (Reply, error) {
	r.EmergencyStop()
	return Reply{Message: "Emergency stop"}, nil
}

// HeartbeatCommand only proves the client is alive, the loop notes the time.
type HeartbeatCommand struct{}

func (HeartbeatCommand) Apply(r *Robot) (Reply, error) {
	return Reply{Message: "heartbeat"}, nil
}

type FreezeCommand struct {
	Frozen bool
}

func (c FreezeCommand) Apply(r *Robot) (Reply, error) {
	r.Freeze(c.Frozen)
	if c.Frozen {
		return Reply{Message: "Frozen"}, nil
	}
	return Reply{Message: "Unfrozen"}, nil
}

type CalibrationAction int

const (
	CalibrationStart CalibrationAction = iota
	CalibrationAdjust
	CalibrationGet
	CalibrationSave
	CalibrationExit
	CalibrationTest
)

var calibrationActions = []string{"start", "adjust", "get", "save", "exit", "test"}

func (a CalibrationAction) String() string {
	if a < 0 || int(a) >= len(calibrationActions) {
		return "unknown"
	}
	return calibrationActions[a]
}

func ParseCalibrationAction(name string) (CalibrationAction, error) {
	for i, n := range calibrationActions {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return CalibrationAction(i), nil
		}
	}
	return CalibrationStart, errors.Invalid("unknown calibration action %q", name)
}

type CalibrationCommand struct {
	Action    CalibrationAction
	Leg       int
	Joint     int
	Offset    int
	TestAngle float64
}

// CalibrationStatus is the payload of every calibration reply.
type CalibrationStatus struct {
	Action      string   `json:"action"`
	Calibrating bool     `json:"calibrating"`
	Leg         int      `json:"legIndex"`
	Joint       int      `json:"partIndex"`
	Offset      int      `json:"offset"`
	Offsets     [][3]int `json:"offsets,omitempty"`
	Message     string   `json:"message"`
}

func (c CalibrationCommand) Apply(r *Robot) (Reply, error) {
	status := CalibrationStatus{Action: c.Action.String(), Leg: c.Leg, Joint: c.Joint}

	if c.Action != CalibrationStart && c.Action != CalibrationExit && !r.Calibrating() {
		return Reply{}, errors.ErrNotCalibrating
	}

	switch c.Action {
	case CalibrationStart:
		if err := r.StartCalibration(c.TestAngle); err != nil {
			log.WithError(err).Warn("calibration test write failed")
		}
		status.Message = "calibration started"

	case CalibrationAdjust:
		if err := r.CalibrationSet(c.Leg, c.Joint, c.Offset); err != nil {
			if _, index := err.(errors.LegIndexError); index {
				return Reply{}, err
			}
			log.WithError(err).Warn("calibration write failed")
		}
		status.Offset = c.Offset
		status.Message = "offset adjusted"

	case CalibrationTest:
		if err := r.CalibrationTest(c.Leg, c.Joint, c.TestAngle); err != nil {
			if _, index := err.(errors.LegIndexError); index {
				return Reply{}, err
			}
			log.WithError(err).Warn("calibration test write failed")
		}
		status.Offset, _ = r.CalibrationGet(c.Leg, c.Joint)
		status.Message = "test angle written"

	case CalibrationGet:
		offset, err := r.CalibrationGet(c.Leg, c.Joint)
		if err != nil {
			return Reply{}, err
		}
		status.Offset = offset
		status.Offsets = r.CalibrationOffsets()
		status.Message = "offset read"

	case CalibrationSave:
		if err := r.CalibrationSave(); err != nil {
			return Reply{}, pkgerrors.Wrap(errors.ErrCalibrationIO, err.Error())
		}
		if err := r.CalibrationLoad(); err != nil {
			return Reply{}, pkgerrors.Wrap(errors.ErrCalibrationIO, err.Error())
		}
		status.Offsets = r.CalibrationOffsets()
		status.Message = "calibration saved"

	case CalibrationExit:
		r.ExitCalibration()
		status.Message = "calibration finished"
	}

	status.Calibrating = r.Calibrating()
	return Reply{Type: "calibration_status", Data: status, Message: status.Message}, nil
}

// Batch applies several commands from one request in order and stops at the
// first failure.
type Batch []Command

func (b Batch) Apply(r *Robot) (reply Reply, err error) {
	var messages []string
	for _, c := range b {
		var rep Reply
		if rep, err = c.Apply(r); err != nil {
			return
		}
		messages = append(messages, rep.Message)
		if rep.SequenceID != 0 {
			reply.SequenceID = rep.SequenceID
		}
	}
	reply.Message = strings.Join(messages, "; ")
	return
}
