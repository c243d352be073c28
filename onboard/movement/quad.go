package movement

import (
	"fmt"
	"github.com/CodedInternet/gowalker/calcs"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/tables"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	. "math"
	"sort"
)

const (
	GroundingDuration = 120.0 // ms at speed 1
	LiftDuration      = 60.0
	MoveDuration      = 120.0
	LowerDuration     = 60.0
	ShiftDuration     = 120.0
	SlideDuration     = 600.0

	LiftClearance      = 18.0 // mm above the higher of start and target
	AirThreshold       = 1.0  // mm above the lowest foot that counts as airborne
	StabilityMargin    = 5.0  // mm the body centre keeps inside the support
	MinStabilityMargin = 0.5  // accepted when StabilityMargin is out of reach
	MaxBodyShift       = 40.0

	alignedEps = 1e-3
)

var (
	// tried in order until the swing stays in reach
	liftClearances = [...]float64{LiftClearance, 12, 8, 4}
	// margins a body slide aims for, in order of preference
	supportMargins = [...]float64{StabilityMargin, 10, 2.5, MinStabilityMargin}
)

type State int

const (
	Normal State = iota
	WaitEntryPair
	WaitEntryAlign
	Grounding
	Aligning
)

func (s State) String() string {
	switch s {
	case Normal:
		return "NORMAL"
	case WaitEntryPair:
		return "WAIT_ENTRY_PAIR"
	case WaitEntryAlign:
		return "WAIT_ENTRY_ALIGN"
	case Grounding:
		return "GROUNDING"
	case Aligning:
		return "ALIGNING"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// One eased move of the whole body posture.
type segment struct {
	from, to geometry.Locations
	duration float64
	elapsed  float64
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// QuadEngine plays quad tables and only changes table at entry frames. Moving
// between unrelated tables grounds every foot first and then moves the legs
// one at a time so three feet always carry the body.
type QuadEngine struct {
	base
	tick    float64
	reach   reach
	playing tables.MovementMode
	state   State
	plan    []segment
}

// Builds an engine for one gait family. tickMs is the loop period transition
// phases are rounded to.
func NewQuadEngine(set *tables.Set, tickMs float64) *QuadEngine {
	return &QuadEngine{
		base:    newBase(set),
		tick:    tickMs,
		reach:   newReach(geometry.Quad),
		playing: tables.Standby,
	}
}

func (e *QuadEngine) State() State {
	return e.state
}

func (e *QuadEngine) Gait() tables.QuadGait {
	return e.set.Gait
}

func (e *QuadEngine) Executing() (tables.MovementMode, bool) {
	switch e.state {
	case Grounding, Aligning:
		return e.mode, false
	}
	return e.playing, true
}

// Changes gait family. Only allowed while standing still.
func (e *QuadEngine) SetGait(gait tables.QuadGait) error {
	if !gait.Valid() {
		return errors.Invalid("unknown gait %d", int(gait))
	}
	if e.state != Normal || e.mode != tables.Standby || e.playing != tables.Standby {
		return errors.ErrGaitChangeRejected
	}
	e.set = tables.For(geometry.Quad, gait)
	e.table = e.set.Table(tables.Standby)
	e.index = 0
	log.WithField("gait", gait).Info("gait family changed")
	return nil
}

// Reset lands on standby and abandons any transition.
func (e *QuadEngine) Reset() {
	e.base.Reset()
	e.playing = tables.Standby
	e.state = Normal
	e.plan = nil
}

// posture modes and modes that share the standby table never need realignment
func (e *QuadEngine) steady(mode tables.MovementMode) bool {
	return mode.Posture() || e.set.Table(mode) == e.set.Table(tables.Standby)
}

func (e *QuadEngine) SetMode(mode tables.MovementMode) {
	if !mode.Valid() || mode == e.mode {
		return
	}

	l := log.WithFields(logrus.Fields{"from": e.mode, "to": mode, "state": e.state})
	e.mode = mode

	// feet are already off the table, start over from where they are
	if e.state == Grounding || e.state == Aligning {
		l.Info("transition replanned")
		e.startGrounding()
		return
	}

	from := e.playing
	switch {
	case mode == from:
		l.Debug("pending switch cancelled")
		e.state = Normal

	case e.set.Table(from) == e.set.Table(mode):
		e.playing = mode
		e.state = Normal

	case e.steady(from) && e.steady(mode):
		l.Debug("posture switch")
		e.glide(e.set.Table(mode), PostureSwitchDuration)
		e.playing = mode
		e.state = Normal

	case from == tables.Standby:
		l.Debug("aligning from standby")
		e.startAligning()

	case from.Group() != 0 && from.Group() == mode.Group():
		l.Debug("waiting for paired entry")
		e.state = WaitEntryPair

	default:
		l.Debug("waiting for entry to realign")
		e.state = WaitEntryAlign
	}
}

func (e *QuadEngine) Next(elapsedMs float64) geometry.Locations {
	switch e.state {
	case Normal:
		return e.next(elapsedMs)

	case WaitEntryPair:
		e.next(elapsedMs)
		if e.atEntry() {
			target := e.set.Table(e.mode)
			e.jump(target, target.MatchingEntry(e.table.Frames[e.index]))
			e.playing = e.mode
			e.state = Normal
			log.WithField("mode", e.mode).Debug("swapped at paired entry")
		}
		return e.pos

	case WaitEntryAlign:
		e.next(elapsedMs)
		if e.atEntry() {
			e.startGrounding()
		}
		return e.pos
	}

	if elapsedMs <= 0 {
		elapsedMs = e.tick
	}
	e.advance(elapsedMs)
	return e.pos
}

// Rounds a base duration scaled by speed up to whole ticks.
func (e *QuadEngine) scaled(base float64) float64 {
	d := base / e.speed
	if e.tick > 0 {
		d = Ceil(d/e.tick-1e-9) * e.tick
	}
	return d
}

func (e *QuadEngine) startGrounding() {
	flat := e.pos.Clone()
	ground := flat.MinZ()
	for leg, p := range flat {
		flat[leg] = mgl64.Vec3{p.X(), p.Y(), ground}
	}

	e.state = Grounding
	e.plan = []segment{{
		from:     e.pos.Clone(),
		to:       flat,
		duration: e.scaled(GroundingDuration),
	}}
}

// Plans the walk from the grounded posture onto the entry frame of the
// requested table. When no leg order reaches it safely the feet go by way of
// standby. A grounded slide is the last resort.
func (e *QuadEngine) startAligning() {
	target := e.set.Table(e.mode)
	goal := target.Frames[target.Entries[0]]
	e.state = Aligning

	plan, ok := e.planAlign(e.pos, goal)
	if !ok {
		standby := e.set.Table(tables.Standby).Frames[0]
		var rest []segment
		if plan, ok = e.planAlign(e.pos, standby); ok {
			rest, ok = e.planAlign(standby, goal)
			plan = append(plan, rest...)
		}
		if ok {
			log.WithField("mode", e.mode).Debug("aligning by way of standby")
		}
	}
	if !ok {
		log.WithField("mode", e.mode).Error("no safe leg order, sliding grounded feet")
		plan = []segment{{from: e.pos.Clone(), to: goal.Clone(), duration: e.scaled(SlideDuration)}}
	}

	e.plan = plan
	if len(e.plan) == 0 {
		e.finishAligning()
	}
}

// Tries every order of the legs that still have to move, the ones whose lift
// leaves the widest support first, and keeps the first that works.
func (e *QuadEngine) planAlign(start, goal geometry.Locations) (plan []segment, ok bool) {
	var pending []int
	for leg := range goal {
		if start[leg].Sub(goal[leg]).Len() > alignedEps {
			pending = append(pending, leg)
		}
	}
	width := make(map[int]float64, len(pending))
	for _, leg := range pending {
		width[leg] = calcs.Margin(supportWithout(start, leg), mgl64.Vec2{})
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return width[pending[i]] > width[pending[j]]
	})

	permute(pending, func(order []int) bool {
		plan, ok = e.planOrder(start, goal, order)
		return ok
	})
	return
}

// Calls fn with every ordering of legs until it returns true.
func permute(legs []int, fn func(order []int) bool) bool {
	order := make([]int, 0, len(legs))
	used := make([]bool, len(legs))
	var next func() bool
	next = func() bool {
		if len(order) == len(legs) {
			return fn(order)
		}
		for i, leg := range legs {
			if used[i] {
				continue
			}
			used[i] = true
			order = append(order, leg)
			if next() {
				return true
			}
			order = order[:len(order)-1]
			used[i] = false
		}
		return false
	}
	return next()
}

// Moves the legs in the given order. The body slides over the remaining feet
// before a lift when it has to, and every slide is undone with all feet down
// once the last leg is in place.
func (e *QuadEngine) planOrder(start, goal geometry.Locations, order []int) (plan []segment, ok bool) {
	cur := start.Clone()
	var shift mgl64.Vec3
	for _, leg := range order {
		var steps []segment
		if cur, shift, steps, ok = e.placeLeg(cur, goal, shift, leg); !ok {
			return nil, false
		}
		plan = append(plan, steps...)
	}
	if shift.Len() > 1e-9 {
		if !e.reach.along(cur, goal) {
			return nil, false
		}
		plan = append(plan, segment{from: cur, to: goal.Clone(), duration: e.scaled(ShiftDuration)})
	}
	return plan, true
}

// Puts one leg on its goal, offset by the body slide so far. Returns the
// posture and slide it ends with.
func (e *QuadEngine) placeLeg(cur, goal geometry.Locations, shift mgl64.Vec3, leg int) (geometry.Locations, mgl64.Vec3, []segment, bool) {
	for _, s := range shiftCandidates(cur, leg, shift) {
		var steps []segment
		at := cur
		if s.Len() > 1e-9 {
			moved := cur.Offset(uniform(len(cur), s))
			if !e.reach.along(cur, moved) {
				continue
			}
			steps = append(steps, segment{from: cur, to: moved, duration: e.scaled(ShiftDuration)})
			at = moved
		}

		total := shift.Add(s)
		to := goal[leg].Add(total)
		for _, clearance := range liftClearances {
			if swing, end, ok := e.swing(at, leg, to, clearance); ok {
				return end, total, append(steps, swing...), true
			}
		}
	}
	return nil, shift, nil, false
}

// Lift, carry and lower one foot with the others planted.
func (e *QuadEngine) swing(at geometry.Locations, leg int, to mgl64.Vec3, clearance float64) (steps []segment, end geometry.Locations, ok bool) {
	from := at[leg]
	z := Max(from.Z(), to.Z()) + clearance
	waypoints := [...]struct {
		p    mgl64.Vec3
		base float64
	}{
		{mgl64.Vec3{from.X(), from.Y(), z}, LiftDuration},
		{mgl64.Vec3{to.X(), to.Y(), z}, MoveDuration},
		{to, LowerDuration},
	}

	end = at
	for _, w := range waypoints {
		if !e.reach.legAlong(leg, end[leg], w.p) {
			return nil, nil, false
		}
		next := end.Clone()
		next[leg] = w.p
		steps = append(steps, segment{from: end, to: next, duration: e.scaled(w.base)})
		end = next
	}
	return steps, end, true
}

// Body slides worth trying before lifting leg, least movement first. Each
// keeps the total slide within MaxBodyShift and the body centre at least
// MinStabilityMargin inside the three remaining feet.
func shiftCandidates(cur geometry.Locations, leg int, shift mgl64.Vec3) (out []mgl64.Vec3) {
	var origin mgl64.Vec2
	support := supportWithout(cur, leg)
	margin := calcs.Margin(support, origin)
	slid := shift.Vec2()

	var raw []mgl64.Vec2
	if margin >= StabilityMargin {
		raw = append(raw, mgl64.Vec2{})
	}
	// the same support with the slide so far taken back
	unslid := translate(support, slid.Mul(-1))
	for _, want := range supportMargins {
		raw = append(raw, calcs.ShiftInto(support, origin, want))
		raw = append(raw, calcs.ShiftInto(unslid, origin, want).Sub(slid))
	}
	if margin >= MinStabilityMargin {
		raw = append(raw, mgl64.Vec2{})
	}

	for _, s := range raw {
		if slid.Add(s).Len() > MaxBodyShift+1e-9 {
			continue
		}
		if calcs.Margin(translate(support, s), origin) < MinStabilityMargin-1e-9 {
			continue
		}
		seen := false
		for _, o := range out {
			seen = seen || (Abs(o.X()-s.X()) < 1e-6 && Abs(o.Y()-s.Y()) < 1e-6)
		}
		if !seen {
			out = append(out, mgl64.Vec3{s.X(), s.Y(), 0})
		}
	}
	return
}

func translate(poly []mgl64.Vec2, by mgl64.Vec2) []mgl64.Vec2 {
	out := make([]mgl64.Vec2, len(poly))
	for i, p := range poly {
		out[i] = p.Add(by)
	}
	return out
}

func supportWithout(feet geometry.Locations, leg int) []mgl64.Vec2 {
	points := make([]mgl64.Vec2, 0, len(feet)-1)
	for i, p := range feet {
		if i != leg {
			points = append(points, p.Vec2())
		}
	}
	return calcs.ConvexHull(points)
}

func uniform(n int, v mgl64.Vec3) geometry.Locations {
	l := make(geometry.Locations, n)
	for i := range l {
		l[i] = v
	}
	return l
}

func (e *QuadEngine) finishAligning() {
	target := e.set.Table(e.mode)
	e.jump(target, target.Entries[0])
	e.playing = e.mode
	e.state = Normal
	e.plan = nil
	log.WithField("mode", e.mode).Debug("aligned")
}

// Moves along the plan, one segment per tick at most.
func (e *QuadEngine) advance(elapsed float64) {
	if len(e.plan) == 0 {
		e.phaseDone()
		return
	}

	seg := &e.plan[0]
	seg.elapsed += elapsed
	t := 1.0
	if seg.duration > 0 {
		t = Min(1, seg.elapsed/seg.duration)
	}
	s := smoothstep(t)
	for leg := range e.pos {
		e.pos[leg] = seg.from[leg].Add(seg.to[leg].Sub(seg.from[leg]).Mul(s))
	}

	if t >= 1 {
		copy(e.pos, seg.to)
		e.plan = e.plan[1:]
		if len(e.plan) == 0 {
			e.phaseDone()
		}
	}
}

func (e *QuadEngine) phaseDone() {
	switch e.state {
	case Grounding:
		e.startAligning()
	case Aligning:
		e.finishAligning()
	}
}
