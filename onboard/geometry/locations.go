package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
	. "math"
)

// Locations holds one world frame foot tip per leg, indexed by leg id.
type Locations []mgl64.Vec3

func (l Locations) Clone() Locations {
	c := make(Locations, len(l))
	copy(c, l)
	return c
}

func (l Locations) ApproxEqual(o Locations, threshold float64) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].ApproxEqualThreshold(o[i], threshold) {
			return false
		}
	}
	return true
}

// Returns the lowest foot height.
func (l Locations) MinZ() (z float64) {
	z = Inf(1)
	for _, p := range l {
		z = Min(z, p.Z())
	}
	return
}

// Returns the indices of legs whose foot is within threshold of the lowest foot.
func (l Locations) Grounded(threshold float64) (legs []int) {
	minZ := l.MinZ()
	for i, p := range l {
		if p.Z() <= minZ+threshold {
			legs = append(legs, i)
		}
	}
	return
}

// Adds per leg offsets, returning a new set.
func (l Locations) Offset(offsets Locations) Locations {
	out := make(Locations, len(l))
	for i := range l {
		out[i] = l[i].Add(offsets[i])
	}
	return out
}
