// Package comms speaks the JSON command protocol over every transport the
// robot offers and fans events back out.
package comms

import (
	"encoding/json"
	"github.com/CodedInternet/gowalker/onboard"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/gait"
	"github.com/CodedInternet/gowalker/onboard/motion"
	"github.com/CodedInternet/gowalker/onboard/pose"
	"github.com/CodedInternet/gowalker/onboard/tables"
	. "math"
	"strings"
	"time"
)

// Request is a parsed command and how its reply has to look.
type Request struct {
	Command onboard.Command
	Typed   bool
}

// Parser turns protocol messages into commands. Sequence ids default to the
// milliseconds since the parser was created.
type Parser struct {
	boot time.Time
	now  func() time.Time
}

func NewParser() *Parser {
	return &Parser{boot: time.Now(), now: time.Now}
}

var defaultParser = NewParser()

// ParseCommand parses one message with the process wide parser.
func ParseCommand(data []byte) (Request, error) {
	return defaultParser.Parse(data)
}

type fields map[string]json.RawMessage

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) number(key string) (v float64, ok bool, err error) {
	raw, ok := f[key]
	if !ok {
		return
	}
	if err = json.Unmarshal(raw, &v); err != nil {
		return 0, true, errors.Invalid("%s must be a number", key)
	}
	return
}

func (f fields) integer(key string) (v int, ok bool, err error) {
	n, ok, err := f.number(key)
	if err != nil || !ok {
		return
	}
	if n != Trunc(n) {
		return 0, true, errors.Invalid("%s must be a whole number", key)
	}
	return int(n), true, nil
}

// A missing or non boolean flag is false.
func (f fields) flag(key string) bool {
	var b bool
	if raw, ok := f[key]; ok {
		json.Unmarshal(raw, &b)
	}
	return b
}

func (f fields) text(key string) (s string, ok bool, err error) {
	raw, ok := f[key]
	if !ok {
		return
	}
	if err = json.Unmarshal(raw, &s); err != nil {
		return "", true, errors.Invalid("%s must be a string", key)
	}
	return
}

// Modes are ids, single bit masks or names.
func (f fields) mode() (m tables.MovementMode, ok bool, err error) {
	key := "movementMode"
	raw, ok := f[key]
	if !ok {
		key = "mode"
		if raw, ok = f[key]; !ok {
			return
		}
	}

	var v interface{}
	if err = json.Unmarshal(raw, &v); err != nil {
		return m, true, errors.Invalid("%s missing or invalid", key)
	}
	switch t := v.(type) {
	case float64:
		if t != Trunc(t) {
			return m, true, errors.Invalid("%s missing or invalid", key)
		}
		m, err = tables.ModeFromID(int(t))
	case string:
		m, err = tables.ParseMovementMode(t)
	default:
		return m, true, errors.Invalid("%s missing or invalid", key)
	}
	if err != nil {
		return m, true, errors.Invalid(err.Error())
	}
	return m, true, nil
}

func decode(data []byte) (f fields, err error) {
	if err = json.Unmarshal(data, &f); err != nil || f == nil {
		return nil, errors.Malformed("Invalid JSON format")
	}
	return
}

func (p *Parser) Parse(data []byte) (Request, error) {
	f, err := decode(data)
	if err != nil {
		return Request{}, err
	}

	if f.has("type") {
		cmd, err := p.parseTyped(f)
		return Request{Command: cmd, Typed: true}, err
	}
	cmd, err := p.parseTabular(f)
	return Request{Command: cmd}, err
}

var unitKeys = map[motion.Unit]string{
	motion.DurationMs: "durationMs",
	motion.Cycles:     "cycles",
	motion.Steps:      "steps",
	motion.Distance:   "distance",
	motion.Angle:      "angle",
}

func hasActionParameters(f fields) bool {
	for _, key := range unitKeys {
		if f.has(key) {
			return true
		}
	}
	return false
}

func (p *Parser) parseTabular(f fields) (onboard.Command, error) {
	if f.flag("stop") {
		return onboard.StopCommand{}, nil
	}
	if f.flag("clearQueue") {
		return onboard.ClearQueueCommand{}, nil
	}
	if f.has("sequence") {
		return p.parseSequence(f)
	}
	if hasActionParameters(f) {
		a, err := parseAction(f)
		if err != nil {
			return nil, err
		}
		if id, ok, err := f.number("sequenceId"); err != nil {
			return nil, err
		} else if ok {
			a.SequenceID = uint32(id)
		}
		return onboard.ActionCommand{Action: a, Append: f.flag("append")}, nil
	}

	var batch onboard.Batch
	if m, ok, err := f.mode(); err != nil {
		return nil, err
	} else if ok {
		batch = append(batch, onboard.MovementCommand{Mode: m})
	}
	if s, ok, err := f.number("speed"); err != nil {
		return nil, err
	} else if ok {
		batch = append(batch, onboard.SpeedCommand{Speed: s})
	}
	if l, ok, err := f.integer("speedLevel"); err != nil {
		return nil, err
	} else if ok {
		batch = append(batch, onboard.SpeedLevelCommand{Level: l})
	}
	if name, ok, err := f.text("gaitMode"); err != nil {
		return nil, err
	} else if ok {
		g, err := tables.ParseQuadGait(name)
		if err != nil {
			return nil, errors.Invalid(err.Error())
		}
		batch = append(batch, onboard.GaitCommand{Gait: g})
	}
	if f.has("freeze") {
		batch = append(batch, onboard.FreezeCommand{Frozen: f.flag("freeze")})
	}

	switch len(batch) {
	case 0:
		return nil, errors.Malformed("no command field")
	case 1:
		return batch[0], nil
	}
	return batch, nil
}

func parseAction(f fields) (a motion.Action, err error) {
	m, ok, err := f.mode()
	if err != nil {
		return
	}
	if !ok {
		return a, errors.Invalid("movementMode missing or invalid")
	}
	a.Mode = m

	found := false
	for _, u := range motion.BoundedUnits {
		v, ok, err := f.number(unitKeys[u])
		if err != nil {
			return a, err
		}
		if ok {
			a.Unit, a.Value, found = u, v, true
			break
		}
	}
	if !found {
		return a, errors.Invalid("missing duration/cycles/steps/distance/angle")
	}
	if !(a.Value > 0) {
		return a, errors.Invalid("value must be positive")
	}

	if s, ok, err := f.number("speedOverride"); err != nil {
		return a, err
	} else if ok {
		a.SpeedOverride = s
	}
	return a, nil
}

func (p *Parser) parseSequence(f fields) (onboard.Command, error) {
	var items []fields
	if err := json.Unmarshal(f["sequence"], &items); err != nil {
		return nil, errors.Invalid("sequence must be a list of actions")
	}
	if len(items) < 1 || len(items) > motion.MaxSequence {
		return nil, errors.Invalid("sequence size must be 1-%d", motion.MaxSequence)
	}

	cmd := onboard.SequenceCommand{Append: f.flag("append")}
	for _, item := range items {
		a, err := parseAction(item)
		if err != nil {
			return nil, err
		}
		cmd.Actions = append(cmd.Actions, a)
	}

	if id, ok, err := f.number("sequenceId"); err != nil {
		return nil, err
	} else if ok {
		cmd.ID = uint32(id)
	} else {
		cmd.ID = uint32(p.now().Sub(p.boot) / time.Millisecond)
	}
	if cmd.ID == 0 {
		cmd.ID = 1
	}
	return cmd, nil
}

func (p *Parser) parseTyped(f fields) (onboard.Command, error) {
	kind, _, err := f.text("type")
	if err != nil || kind == "" {
		return nil, errors.Malformed("missing type")
	}

	data := fields{}
	if raw, ok := f["data"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, errors.Malformed("data must be an object")
		}
	}

	switch strings.ToLower(kind) {
	case "stand_mode":
		return parseStand(data)
	case "walk_mode":
		return parseWalk(data)
	case "trick":
		name, ok, err := data.text("action")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Invalid("trick action missing")
		}
		return onboard.TrickCommand{Name: name}, nil
	case "emergency_stop":
		return onboard.EmergencyStopCommand{}, nil
	case "heartbeat":
		return onboard.HeartbeatCommand{}, nil
	case "freeze":
		return onboard.FreezeCommand{Frozen: !data.has("frozen") || data.flag("frozen")}, nil
	case "calibration":
		return parseCalibration(data)
	}
	return nil, errors.Malformed("unknown type %q", kind)
}

// Missing pose fields are zero.
func parseStand(data fields) (onboard.Command, error) {
	var p pose.BodyPose
	for key, dst := range map[string]*float64{
		"roll":   &p.Roll,
		"pitch":  &p.Pitch,
		"yaw":    &p.Yaw,
		"x":      &p.X,
		"y":      &p.Y,
		"height": &p.Z,
	} {
		v, _, err := data.number(key)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return onboard.StandCommand{Pose: p}, nil
}

// Missing gait parameters keep their defaults.
func parseWalk(data fields) (onboard.Command, error) {
	cmd := onboard.WalkCommand{Parameters: gait.DefaultParameters()}
	for key, dst := range map[string]*float64{
		"vx":    &cmd.Velocity.VX,
		"vy":    &cmd.Velocity.VY,
		"vyaw":  &cmd.Velocity.VYaw,
		"pitch": &cmd.Pitch,
	} {
		v, _, err := data.number(key)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	for key, dst := range map[string]*float64{
		"stride":     &cmd.Parameters.Stride,
		"height":     &cmd.Parameters.LiftHeight,
		"period":     &cmd.Parameters.Period,
		"dutyFactor": &cmd.Parameters.DutyFactor,
	} {
		v, ok, err := data.number(key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = v
		}
	}
	return cmd, nil
}

func parseCalibration(data fields) (onboard.Command, error) {
	name, ok, err := data.text("action")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Invalid("calibration action missing")
	}
	action, err := onboard.ParseCalibrationAction(name)
	if err != nil {
		return nil, err
	}

	cmd := onboard.CalibrationCommand{Action: action}
	for key, dst := range map[string]*int{
		"legIndex":  &cmd.Leg,
		"partIndex": &cmd.Joint,
		"offset":    &cmd.Offset,
	} {
		v, _, err := data.integer(key)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	if cmd.TestAngle, _, err = data.number("testAngle"); err != nil {
		return nil, err
	}
	return cmd, nil
}
