package movement

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/CodedInternet/gowalker/onboard/tables"
)

// HexEngine switches tables on request and glides into the new table's entry.
// Six legs keep a tripod down at all times so no switch discipline is needed.
type HexEngine struct {
	base
}

func NewHexEngine(set *tables.Set) *HexEngine {
	return &HexEngine{base: newBase(set)}
}

func (e *HexEngine) SetMode(mode tables.MovementMode) {
	if mode == e.mode || !mode.Valid() {
		return
	}
	log.WithField("from", e.mode).WithField("to", mode).Debug("switching table")
	e.mode = mode
	e.glide(e.set.Table(mode), SwitchDuration)
}

func (e *HexEngine) Executing() (tables.MovementMode, bool) {
	return e.mode, true
}

func (e *HexEngine) Next(elapsedMs float64) geometry.Locations {
	return e.next(elapsedMs)
}
