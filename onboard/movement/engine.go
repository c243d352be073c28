// Package movement plays keyframe tables and manages the switch from one table
// to the next.
package movement

import (
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/tables"
	"github.com/sirupsen/logrus"
	. "math"
)

const (
	MinSpeed     = 0.25
	MaxSpeed     = 1.0
	DefaultSpeed = 0.5

	SwitchDuration        = 150.0 // ms, glide into a new table
	PostureSwitchDuration = 300.0
)

var (
	SpeedLevels = [...]float64{0.25, 0.33, 0.5, 1.0}

	log = logrus.WithFields(logrus.Fields{"pkg": "movement"})
)

func ClampSpeed(s float64) float64 {
	if IsNaN(s) {
		return DefaultSpeed
	}
	return Max(MinSpeed, Min(MaxSpeed, s))
}

func SpeedForLevel(level int) (float64, error) {
	if level < 0 || level >= len(SpeedLevels) {
		return 0, errors.Invalid("Invalid speed level")
	}
	return SpeedLevels[level], nil
}

// Engine produces one set of foot positions per tick.
type Engine interface {
	SetMode(mode tables.MovementMode)
	Mode() tables.MovementMode
	// The mode whose table is actually playing, false while the feet are
	// being moved between tables.
	Executing() (tables.MovementMode, bool)
	Next(elapsedMs float64) geometry.Locations
	Position() geometry.Locations
	SetSpeed(s float64)
	Speed() float64
	CycleDuration(mode tables.MovementMode) float64
	Reset()
}

// player interpolates through a table. The position chases the current
// target frame and lands on it exactly when the frame time runs out.
type player struct {
	table  *tables.Table
	index  int
	remain float64
	pos    geometry.Locations
	speed  float64
}

func (p *player) effective() float64 {
	return float64(p.table.StepDuration) / p.speed
}

func (p *player) next(elapsed float64) geometry.Locations {
	effective := p.effective()
	if elapsed <= 0 {
		elapsed = effective
	}

	if p.remain <= 0 {
		p.index = (p.index + 1) % p.table.Len()
		p.remain = effective
	}

	step := Min(elapsed, p.remain)
	ratio := step / p.remain
	target := p.table.Frames[p.index]
	for leg := range p.pos {
		if ratio >= 1 {
			p.pos[leg] = target[leg]
		} else {
			p.pos[leg] = p.pos[leg].Add(target[leg].Sub(p.pos[leg]).Mul(ratio))
		}
	}
	p.remain -= step
	return p.pos
}

// True once the entry frame has been reached.
func (p *player) atEntry() bool {
	return p.remain <= 0 && p.table.IsEntry(p.index)
}

// Switches tables and glides to the first entry over glide ms at speed 1.
func (p *player) glide(t *tables.Table, glide float64) {
	p.table = t
	p.index = t.Entries[0]
	p.remain = Max(glide, float64(t.StepDuration)) / p.speed
}

// Switches tables and lands on a frame immediately.
func (p *player) jump(t *tables.Table, index int) {
	p.table = t
	p.index = index
	p.remain = 0
	copy(p.pos, t.Frames[index])
}

// Shared bookkeeping of both engines.
type base struct {
	set  *tables.Set
	mode tables.MovementMode
	player
}

func newBase(set *tables.Set) base {
	b := base{
		set:  set,
		mode: tables.Standby,
		player: player{
			speed: DefaultSpeed,
			pos:   make(geometry.Locations, set.Chassis.LegCount()),
		},
	}
	b.jump(set.Table(tables.Standby), 0)
	return b
}

func (b *base) Mode() tables.MovementMode {
	return b.mode
}

func (b *base) Position() geometry.Locations {
	return b.pos.Clone()
}

func (b *base) SetSpeed(s float64) {
	b.speed = ClampSpeed(s)
}

func (b *base) Speed() float64 {
	return b.speed
}

func (b *base) CycleDuration(mode tables.MovementMode) float64 {
	return b.set.Table(mode).CycleDuration(Max(b.speed, MinSpeed))
}

// Puts the feet straight at standby.
func (b *base) Reset() {
	b.mode = tables.Standby
	b.jump(b.set.Table(tables.Standby), 0)
}

// Frame index and time left on it, for status and tests.
func (b *base) Frame() (index int, remain float64) {
	return b.index, b.remain
}
