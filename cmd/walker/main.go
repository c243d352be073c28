// Command walker runs the robot without the web stack: the realtime
// deployment over a serial link, and bench tools for the servos.
package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"os"
)

var log = logrus.WithFields(logrus.Fields{"pkg": "walker"})

type Options struct {
	Verbose bool `short:"v" long:"verbose" description:"Log at debug level"`

	Realtime RealtimeCommand `command:"realtime" alias:"rt" description:"Drive the realtime trot from commands on a serial line"`
	Servo    ServoCommand    `command:"servo" description:"Sweep a single joint to check wiring and offsets"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Walker - locomotion core for hexapod and quadruped robots"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
