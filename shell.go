package main

import (
	"context"
	"errors"
	"github.com/CodedInternet/gowalker/comms"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/CodedInternet/gowalker/onboard/tables"
	"github.com/abiosoft/ishell"
	"gopkg.in/yaml.v2"
	"strconv"
	"strings"
)

var errUsage = errors.New("wrong number of arguments")

func modeNames([]string) (names []string) {
	for m := tables.Standby; m < tables.ModeCount; m++ {
		names = append(names, m.String())
	}
	return
}

func intArgs(args []string, n int) (v []int, err error) {
	if len(args) != n {
		return nil, errUsage
	}
	for _, a := range args {
		i, err := strconv.Atoi(a)
		if err != nil {
			return nil, err
		}
		v = append(v, i)
	}
	return
}

// newShell builds the development shell. Every command goes through the
// loop so the shell never races the tick.
func newShell(ctx context.Context, loop comms.Loop) *ishell.Shell {
	submit := func(c *ishell.Context, cmd onboard.Command) {
		reply, err := loop.Submit(ctx, cmd)
		if err != nil {
			c.Err(err)
			return
		}
		if reply.Data != nil {
			out, _ := yaml.Marshal(reply.Data)
			c.Print(string(out))
			return
		}
		c.Println(reply.Message)
	}

	shell := ishell.New()
	shell.Println("Walker development shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			// disable the '>>>' for cleaner same line input.
			c.ShowPrompt(false)
			defer c.ShowPrompt(true)

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			op := &Operator{
				Email: email,
				Name:  email,
				Admin: true,
			}
			op.SetPassword([]byte(password))
			if err := ENV.DB.Save(op); err != nil {
				c.Err(err)
				return
			}

			c.Println("Superuser created")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "mode",
		Help:      "mode <name>",
		Completer: modeNames,
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errUsage)
				return
			}
			m, err := tables.ParseMovementMode(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			submit(c, onboard.MovementCommand{Mode: m})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "speed",
		Help: "speed <0.25-1.0>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errUsage)
				return
			}
			s, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(err)
				return
			}
			submit(c, onboard.SpeedCommand{Speed: s})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "gait",
		Help: "gait <walk|trot|pace|creep>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errUsage)
				return
			}
			g, err := tables.ParseQuadGait(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			submit(c, onboard.GaitCommand{Gait: g})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop all motion and clear the queue",
		Func: func(c *ishell.Context) { submit(c, onboard.StopCommand{}) },
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "freeze",
		Help: "freeze <on|off>",
		Func: func(c *ishell.Context) {
			frozen := len(c.Args) == 0 || c.Args[0] != "off"
			submit(c, onboard.FreezeCommand{Frozen: frozen})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "print the latest status snapshot",
		Func: func(c *ishell.Context) {
			out, _ := yaml.Marshal(loop.Snapshot())
			c.Print(string(out))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "send <json>, exactly as a socket client would",
		Func: func(c *ishell.Context) {
			c.Println(string(ENV.Conductor.Handle(ctx, []byte(strings.Join(c.Args, " ")))))
		},
	})

	cal := &ishell.Cmd{
		Name: "cal",
		Help: "calibrate joint offsets",
	}
	cal.AddCmd(&ishell.Cmd{
		Name: "start",
		Help: "cal start [angle]",
		Func: func(c *ishell.Context) {
			cmd := onboard.CalibrationCommand{Action: onboard.CalibrationStart}
			if len(c.Args) == 1 {
				cmd.TestAngle, _ = strconv.ParseFloat(c.Args[0], 64)
			}
			submit(c, cmd)
		},
	})
	cal.AddCmd(&ishell.Cmd{
		Name: "set",
		Help: "cal set <leg> <joint> <offset>",
		Func: func(c *ishell.Context) {
			v, err := intArgs(c.Args, 3)
			if err != nil {
				c.Err(err)
				return
			}
			submit(c, onboard.CalibrationCommand{
				Action: onboard.CalibrationAdjust,
				Leg:    v[0],
				Joint:  v[1],
				Offset: v[2],
			})
		},
	})
	cal.AddCmd(&ishell.Cmd{
		Name: "get",
		Help: "cal get <leg> <joint>",
		Func: func(c *ishell.Context) {
			v, err := intArgs(c.Args, 2)
			if err != nil {
				c.Err(err)
				return
			}
			submit(c, onboard.CalibrationCommand{Action: onboard.CalibrationGet, Leg: v[0], Joint: v[1]})
		},
	})
	cal.AddCmd(&ishell.Cmd{
		Name: "save",
		Func: func(c *ishell.Context) { submit(c, onboard.CalibrationCommand{Action: onboard.CalibrationSave}) },
	})
	cal.AddCmd(&ishell.Cmd{
		Name: "exit",
		Func: func(c *ishell.Context) { submit(c, onboard.CalibrationCommand{Action: onboard.CalibrationExit}) },
	})
	shell.AddCmd(cal)

	return shell
}
