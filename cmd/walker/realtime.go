package main

import (
	"context"
	"github.com/CodedInternet/gowalker/comms"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/CodedInternet/gowalker/onboard/calibration"
	"github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"syscall"
)

type RealtimeCommand struct {
	Config string `short:"c" long:"config" default:"walker.yaml" description:"Robot config file"`
	DB     string `long:"db" default:"calibration.db" description:"Calibration database"`
	Port   string `short:"p" long:"port" default:"/dev/ttyS0" description:"Serial device commands arrive on"`
	Baud   int    `short:"b" long:"baud" default:"115200" description:"Serial baud rate"`
	Sim    bool   `long:"sim" description:"Use a simulated servo bus and battery"`
}

func (c *RealtimeCommand) Execute(args []string) error {
	cfg, err := onboard.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	cfg.Deployment = onboard.Realtime

	store, err := calibration.Open(c.DB)
	if err != nil {
		return err
	}
	hw, err := onboard.OpenHardware(cfg, c.Sim)
	if err != nil {
		store.Close()
		return err
	}
	battery := onboard.OpenBattery(cfg.Battery, c.Sim)
	robot, err := onboard.NewRobot(cfg, hw, store, battery)
	if err != nil {
		hw.Close()
		store.Close()
		return err
	}
	defer robot.Close()

	port, err := comms.OpenSerial(c.Port, c.Baud)
	if err != nil {
		return err
	}
	defer port.Close()

	loop := onboard.NewLoop(robot)
	conductor := comms.NewConductor(loop)
	robot.SetSequenceCallback(conductor.SequenceComplete)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go battery.Run(ctx)
	go conductor.RunStatus(ctx, cfg.StatusInterval())
	go func() {
		if err := conductor.ServeLines(ctx, c.Port, port); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("serial link lost")
			cancel()
		}
	}()

	log.WithFields(logrus.Fields{
		"chassis": cfg.Chassis,
		"port":    c.Port,
		"period":  loop.Period(),
	}).Info("realtime control running")

	if err := loop.Run(ctx); err != context.Canceled {
		return err
	}
	return nil
}
