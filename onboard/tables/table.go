// Package tables builds the keyframe tables the tabular engine plays.
//
// Every table is generated once at init from a handful of parametric paths.
// Frames are absolute world frame foot positions and never change after init.
package tables

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/pkg/errors"
	. "math"
)

const (
	frameMs   = 20 // one servo refresh
	postureMs = 50
	groundEps = 1e-6
)

type Table struct {
	Name         string
	Frames       []geometry.Locations
	StepDuration int // ms per frame at speed 1
	Entries      []int
}

func newTable(name string, frames []geometry.Locations, stepDuration int) *Table {
	t := &Table{
		Name:         name,
		Frames:       frames,
		StepDuration: stepDuration,
	}
	t.Entries = groundedFrames(frames)
	return t
}

// Frames with every foot back at standby height.
func groundedFrames(frames []geometry.Locations) (entries []int) {
	for i, f := range frames {
		grounded := true
		for _, p := range f {
			if p.Z() > geometry.StandbyZ+groundEps {
				grounded = false
				break
			}
		}
		if grounded {
			entries = append(entries, i)
		}
	}
	if len(entries) == 0 {
		entries = []int{0}
	}
	return
}

func (t *Table) Len() int {
	return len(t.Frames)
}

func (t *Table) IsEntry(i int) bool {
	for _, e := range t.Entries {
		if e == i {
			return true
		}
	}
	return false
}

// Finds the entry of this table that holds the same posture as frame, or the
// first entry when there is none.
func (t *Table) MatchingEntry(frame geometry.Locations) int {
	for _, e := range t.Entries {
		if t.Frames[e].ApproxEqual(frame, 1e-3) {
			return e
		}
	}
	return t.Entries[0]
}

// Cycle length in ms at a speed multiplier.
func (t *Table) CycleDuration(speed float64) float64 {
	return float64(t.Len()*t.StepDuration) / speed
}

func (t *Table) Validate(legs int) error {
	if t.Len() < 1 {
		return errors.Errorf("table %s has no frames", t.Name)
	}
	if t.StepDuration <= 0 {
		return errors.Errorf("table %s has step duration %d", t.Name, t.StepDuration)
	}
	if len(t.Entries) == 0 {
		return errors.Errorf("table %s has no entries", t.Name)
	}
	for _, e := range t.Entries {
		if e < 0 || e >= t.Len() {
			return errors.Errorf("table %s entry %d out of range", t.Name, e)
		}
	}
	for i, f := range t.Frames {
		if len(f) != legs {
			return errors.Errorf("table %s frame %d has %d legs, want %d", t.Name, i, len(f), legs)
		}
		for _, p := range f {
			if IsNaN(p.X()) || IsNaN(p.Y()) || IsNaN(p.Z()) {
				return errors.Errorf("table %s frame %d is not a number", t.Name, i)
			}
		}
	}
	return nil
}
