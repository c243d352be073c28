package onboard

import (
	"github.com/CodedInternet/gowalker/onboard/calibration"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/sirupsen/logrus"
)

// Calibrating reports whether the robot is in calibration mode. The loop
// leaves the legs alone while it is.
func (r *Robot) Calibrating() bool {
	return r.calibrating
}

// StartCalibration stops all motion, zeroes every offset and drives every
// joint to testAngle.
func (r *Robot) StartCalibration(testAngle float64) error {
	if err := r.Stop("calibration"); err != nil {
		return err
	}
	r.calibrating = true
	log.WithField("angle", testAngle).Info("calibration started")

	r.CalibrationClear()
	return r.CalibrationTestAll(testAngle)
}

// ExitCalibration hands the legs back to the loop, which starts from standby.
func (r *Robot) ExitCalibration() {
	if !r.calibrating {
		return
	}
	r.calibrating = false
	r.engine.Reset()
	r.forgetLegs()
	log.Info("calibration finished")
}

func (r *Robot) forgetLegs() {
	for _, leg := range r.legs {
		leg.Forget()
	}
}

// CalibrationLoad replaces the offsets with the stored ones. On failure the
// current offsets stay.
func (r *Robot) CalibrationLoad() error {
	if r.store == nil {
		return errors.ErrNoCalibration
	}
	offsets, err := r.store.Load(r.chassis)
	if err != nil {
		log.WithError(err).Warn("calibration not loaded")
		return err
	}
	if err = r.servos.SetOffsets(offsets); err != nil {
		log.WithError(err).Warn("calibration not applied")
		return err
	}
	r.forgetLegs()
	log.WithField("chassis", r.chassis).Info("calibration loaded")
	return nil
}

func (r *Robot) CalibrationSave() error {
	if r.store == nil {
		return errors.ErrNoCalibration
	}
	if err := r.store.Save(r.chassis, r.servos.Offsets()); err != nil {
		log.WithError(err).Warn("calibration not saved")
		return err
	}
	return nil
}

func (r *Robot) CalibrationGet(leg, joint int) (int, error) {
	s, err := r.servos.Servo(leg, joint)
	if err != nil {
		return 0, err
	}
	return s.Offset(), nil
}

// CalibrationSet changes one offset and rewrites that joint.
func (r *Robot) CalibrationSet(leg, joint, offset int) error {
	s, err := r.servos.Servo(leg, joint)
	if err != nil {
		return err
	}
	r.legs[leg].Forget()
	log.WithFields(logrus.Fields{"leg": leg, "joint": joint, "offset": offset}).Debug("offset adjusted")
	return s.SetOffset(offset)
}

func (r *Robot) CalibrationTest(leg, joint int, angle float64) error {
	s, err := r.servos.Servo(leg, joint)
	if err != nil {
		return err
	}
	r.legs[leg].Forget()
	return s.SetAngle(angle)
}

func (r *Robot) CalibrationTestAll(angle float64) error {
	r.forgetLegs()
	return r.servos.SetAll(angle)
}

func (r *Robot) CalibrationClear() {
	r.servos.SetOffsets(calibration.Zero(r.chassis))
	r.forgetLegs()
}

func (r *Robot) CalibrationOffsets() calibration.Offsets {
	return calibration.Offsets(r.servos.Offsets())
}

// Status is what the loop publishes after every tick.
type Status struct {
	Status      string      `json:"status"`
	Chassis     string      `json:"chassis"`
	Deployment  string      `json:"deployment"`
	Mode        string      `json:"mode"`
	Control     string      `json:"control,omitempty"`
	Gait        string      `json:"gait,omitempty"`
	Speed       float64     `json:"speed"`
	Calibrating bool        `json:"calibrating"`
	Frozen      bool        `json:"frozen"`
	Queue       queueStatus `json:"queue"`
	BatteryReading
}

type queueStatus struct {
	Active     bool    `json:"active"`
	Mode       string  `json:"mode,omitempty"`
	Length     int     `json:"length"`
	Progress   float64 `json:"progress"`
	SequenceID uint32  `json:"sequenceId,omitempty"`
}

func (r *Robot) Status() (s Status) {
	s = Status{
		Status:      "ok",
		Chassis:     r.chassis.String(),
		Deployment:  r.cfg.Deployment.String(),
		Speed:       r.engine.Speed(),
		Calibrating: r.calibrating,
		Frozen:      r.frozen,
	}
	s.BatteryReading, _ = r.Battery()

	if r.cfg.Deployment == Realtime {
		s.Mode = r.control.String()
		s.Control = r.control.String()
	} else {
		s.Mode = r.selectedMode().String()
		q := r.motion.Snapshot()
		s.Queue = queueStatus{
			Active:     q.Active,
			Length:     q.QueueLength,
			Progress:   q.Progress,
			SequenceID: q.SequenceID,
		}
		if q.Active {
			s.Queue.Mode = q.Mode.String()
		}
	}
	if r.quad != nil {
		s.Gait = r.quad.Gait().String()
	}

	switch {
	case r.frozen:
		s.Status = "frozen"
	case r.calibrating:
		s.Status = "calibrating"
	case s.Low:
		s.Status = "low_battery"
	}
	return
}
