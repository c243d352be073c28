package main

import (
	"context"
	"fmt"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/CodedInternet/gowalker/onboard/calibration"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/servo"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"time"
)

type ServoCommand struct {
	Config string        `short:"c" long:"config" default:"walker.yaml" description:"Robot config file"`
	DB     string        `long:"db" description:"Calibration database to take offsets from"`
	Step   float64       `long:"step" default:"5" description:"Degrees per step"`
	Delay  time.Duration `long:"delay" default:"200ms" description:"Pause between steps"`
	Sweeps int           `long:"sweeps" default:"1" description:"Full sweeps to run, 0 runs until interrupted"`
	Sim    bool          `long:"sim" description:"Write to a simulated bus"`

	Args struct {
		Leg   int `positional-arg-name:"leg" required:"yes"`
		Joint int `positional-arg-name:"joint" required:"yes"`
	} `positional-args:"yes"`
}

// sweep lists the angles of one pass: centre, out to max, back to min, centre.
func sweep(min, max, step float64) (angles []float64) {
	for a := 0.0; a < max; a += step {
		angles = append(angles, a)
	}
	for a := max; a > min; a -= step {
		angles = append(angles, a)
	}
	for a := min; a < 0; a += step {
		angles = append(angles, a)
	}
	return append(angles, 0)
}

func (c *ServoCommand) Execute(args []string) error {
	if c.Step <= 0 {
		return errors.Invalid("step must be positive")
	}
	cfg, err := onboard.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	hw, err := onboard.OpenHardware(cfg, c.Sim)
	if err != nil {
		return err
	}
	defer hw.Close()

	bank, err := servo.NewBank(cfg.Chassis, hw.Boards)
	if err != nil {
		return err
	}
	if c.DB != "" {
		store, err := calibration.Open(c.DB)
		if err != nil {
			return err
		}
		offsets, err := store.Load(cfg.Chassis)
		store.Close()
		if err != nil {
			return err
		}
		if err := bank.SetOffsets(offsets); err != nil {
			return err
		}
	}

	s, err := bank.Servo(c.Args.Leg, c.Args.Joint)
	if err != nil {
		return err
	}
	min, max := servo.Limits(c.Args.Joint)
	fmt.Printf("Sweeping leg %d joint %d on %v from %.0f to %.0f degrees\n", s.Leg, s.Joint, s.Channel(), min, max)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ticker := time.NewTicker(c.Delay)
	defer ticker.Stop()
	for n := 0; c.Sweeps == 0 || n < c.Sweeps; n++ {
		for _, angle := range sweep(min, max, c.Step) {
			if err := s.SetAngle(angle); err != nil {
				return pkgerrors.Wrapf(err, "write %.0f degrees", angle)
			}
			log.WithFields(logrus.Fields{"angle": angle, "pulse": s.Pulse()}).Debug("step")
			select {
			case <-ctx.Done():
				return s.SetAngle(0)
			case <-ticker.C:
			}
		}
	}
	return nil
}
