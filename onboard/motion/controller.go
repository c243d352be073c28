// Package motion runs bounded movement actions one after another on top of
// the engine's continuous modes.
package motion

import (
	"context"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/CodedInternet/gowalker/onboard/movement"
	"github.com/CodedInternet/gowalker/onboard/tables"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"time"
)

const (
	Capacity    = 8
	MaxSequence = 5
	LockTimeout = 20 * time.Millisecond

	cycleEps = 1e-3
)

var log = logrus.WithFields(logrus.Fields{"pkg": "motion"})

// Pacer is the engine side the controller needs: its speed and how long a
// cycle of a mode takes at that speed.
type Pacer interface {
	Speed() float64
	SetSpeed(s float64)
	CycleDuration(mode tables.MovementMode) float64
}

type Snapshot struct {
	Active      bool                `json:"active"`
	Mode        tables.MovementMode `json:"mode"`
	QueueLength int                 `json:"queueLength"`
	Progress    float64             `json:"progress"`
	SequenceID  uint32              `json:"sequenceId,omitempty"`
}

type running struct {
	action        Action
	targetCycles  float64
	completed     float64
	targetMs      float64
	elapsedMs     float64
	restoreSpeed  bool
	previousSpeed float64
}

func (r *running) progress() float64 {
	switch {
	case r.targetCycles > 0:
		return r.completed / r.targetCycles
	case r.targetMs > 0:
		return r.elapsedMs / r.targetMs
	}
	return 0
}

type Controller struct {
	sem    *semaphore.Weighted
	pacer  Pacer
	queue  [Capacity]Action
	head   int
	count  int
	active *running

	onSequence func(id uint32)
}

func New(pacer Pacer) *Controller {
	return &Controller{
		sem:   semaphore.NewWeighted(1),
		pacer: pacer,
	}
}

func (c *Controller) lock() error {
	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()
	if err := c.sem.Acquire(ctx, 1); err != nil {
		log.Warn("motion queue lock timed out")
		return errors.ErrBusy
	}
	return nil
}

func (c *Controller) unlock() {
	c.sem.Release(1)
}

// Sets the function told about every completed sequence. It is called from
// the loop goroutine with no lock held.
func (c *Controller) SetSequenceCallback(fn func(id uint32)) {
	c.onSequence = fn
}

func (c *Controller) push(a Action) {
	c.queue[(c.head+c.count)%Capacity] = a
	c.count++
}

func (c *Controller) pop() (a Action, ok bool) {
	if c.count == 0 {
		return
	}
	a, ok = c.queue[c.head], true
	c.queue[c.head] = Action{}
	c.head = (c.head + 1) % Capacity
	c.count--
	return
}

// Enqueue adds one action and starts it straight away if nothing is running.
func (c *Controller) Enqueue(a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := c.lock(); err != nil {
		return err
	}
	defer c.unlock()

	if c.count >= Capacity {
		return errors.ErrQueueFull
	}
	c.pushAll([]Action{a})
	return nil
}

// EnqueueSequence adds up to MaxSequence actions sharing id, the last one
// marked as the tail. Either all of them are queued or none.
func (c *Controller) EnqueueSequence(actions []Action, id uint32) error {
	tagged, err := sequence(actions, id)
	if err != nil {
		return err
	}
	if err := c.lock(); err != nil {
		return err
	}
	defer c.unlock()

	if c.count+len(tagged) > Capacity {
		return errors.ErrQueueFull
	}
	c.pushAll(tagged)
	log.WithFields(logrus.Fields{"sequence": id, "actions": len(tagged)}).Info("sequence queued")
	return nil
}

// Replace drops everything like Clear and queues actions in their place under
// one lock, so a caller that backs off with ErrBusy leaves the queue untouched.
func (c *Controller) Replace(reason string, actions ...Action) error {
	if len(actions) < 1 || len(actions) > Capacity {
		return errors.Invalid("between 1 and %d actions", Capacity)
	}
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	if err := c.lock(); err != nil {
		return err
	}
	defer c.unlock()

	c.clear(reason)
	c.pushAll(actions)
	return nil
}

// ReplaceSequence is Replace for a whole sequence.
func (c *Controller) ReplaceSequence(actions []Action, id uint32, reason string) error {
	tagged, err := sequence(actions, id)
	if err != nil {
		return err
	}
	if err := c.Replace(reason, tagged...); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"sequence": id, "actions": len(tagged)}).Info("sequence queued")
	return nil
}

func sequence(actions []Action, id uint32) (tagged []Action, err error) {
	if len(actions) < 1 || len(actions) > MaxSequence {
		return nil, errors.Invalid("sequence size must be 1-%d", MaxSequence)
	}
	tagged = make([]Action, len(actions))
	for i, a := range actions {
		if err = a.Validate(); err != nil {
			return nil, err
		}
		a.SequenceID = id
		a.SequenceTail = i == len(actions)-1
		tagged[i] = a
	}
	return
}

func (c *Controller) pushAll(actions []Action) {
	for _, a := range actions {
		c.push(a)
	}
	if c.active == nil {
		c.startNext()
	}
}

// Clear drops everything, including the running action, and puts back the
// speed it overrode.
func (c *Controller) Clear(reason string) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.unlock()

	c.clear(reason)
	return nil
}

func (c *Controller) clear(reason string) {
	c.head, c.count = 0, 0
	c.queue = [Capacity]Action{}
	if c.active != nil && c.active.restoreSpeed {
		c.pacer.SetSpeed(c.active.previousSpeed)
	}
	c.active = nil
	if reason != "" {
		log.WithField("reason", reason).Info("motion cleared")
	}
}

// ClearQueue drops waiting actions and lets the running one finish.
func (c *Controller) ClearQueue() error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.unlock()

	c.head, c.count = 0, 0
	c.queue = [Capacity]Action{}
	return nil
}

// Active returns the mode of the running action.
func (c *Controller) Active() (mode tables.MovementMode, ok bool) {
	if err := c.lock(); err != nil {
		return
	}
	defer c.unlock()

	if c.active == nil {
		return tables.Standby, false
	}
	return c.active.action.Mode, true
}

func (c *Controller) Snapshot() (s Snapshot) {
	if err := c.lock(); err != nil {
		return
	}
	defer c.unlock()

	s.QueueLength = c.count
	if c.active != nil {
		s.Active = true
		s.Mode = c.active.action.Mode
		s.Progress = c.active.progress()
		s.SequenceID = c.active.action.SequenceID
	}
	return
}

// OnLoopTick credits elapsedMs to the running action if the engine actually
// played its mode during the tick.
func (c *Controller) OnLoopTick(executed tables.MovementMode, elapsedMs float64) error {
	if err := c.lock(); err != nil {
		return err
	}

	var completed []uint32
	if r := c.active; r != nil && r.action.Mode == executed {
		if c.advance(r, elapsedMs) {
			completed = c.finish()
		}
	}
	c.unlock()

	if c.onSequence != nil {
		for _, id := range completed {
			c.onSequence(id)
		}
	}
	return nil
}

func (c *Controller) advance(r *running, elapsedMs float64) (done bool) {
	switch {
	case r.targetCycles > 0:
		d := c.pacer.CycleDuration(r.action.Mode)
		if d <= cycleEps {
			return false
		}
		r.completed += elapsedMs / d
		return r.completed >= r.targetCycles-cycleEps

	case r.targetMs > 0:
		r.elapsedMs += elapsedMs
		return r.elapsedMs >= r.targetMs
	}
	return false
}

// Ends the running action and starts the next one. Returns the sequence ids
// completed on the way.
func (c *Controller) finish() (completed []uint32) {
	r := c.active
	if r.restoreSpeed {
		c.pacer.SetSpeed(r.previousSpeed)
	}
	c.active = nil

	a := r.action
	log.WithFields(logrus.Fields{"mode": a.Mode, "sequence": a.SequenceID}).Info("action finished")
	if a.SequenceID != 0 && a.SequenceTail {
		completed = append(completed, a.SequenceID)
	}

	c.startNext()
	return
}

func (c *Controller) startNext() {
	a, ok := c.pop()
	if !ok {
		return
	}

	r := &running{action: a}
	switch a.Unit {
	case DurationMs:
		r.targetMs = a.Value
	case Continuous:
	default:
		r.targetCycles = a.Cycles()
	}

	if a.SpeedOverride >= movement.MinSpeed && a.SpeedOverride <= movement.MaxSpeed {
		r.previousSpeed = c.pacer.Speed()
		r.restoreSpeed = true
		c.pacer.SetSpeed(a.SpeedOverride)
	}
	c.active = r

	log.WithFields(logrus.Fields{
		"mode":     a.Mode,
		"unit":     a.Unit,
		"cycles":   r.targetCycles,
		"duration": r.targetMs,
		"sequence": a.SequenceID,
	}).Info("action started")
}
