package tables

import (
	"github.com/CodedInternet/gowalker/onboard/geometry"
	"github.com/go-gl/mathgl/mgl64"
	. "math"
)

// Path is one leg's offset from its standby position over a gait cycle.
type Path []mgl64.Vec3

// A stance stroke from +radius to -radius along Y followed by a half ellipse
// swing back with the given lift. The first frame is grounded at +radius.
func semicircle(n int, radius, lift float64) Path {
	half := n / 2
	p := make(Path, 0, n)
	for k := 0; k < half; k++ {
		p = append(p, mgl64.Vec3{0, radius - 2*radius*float64(k)/float64(half), 0})
	}
	for k := 0; k < half; k++ {
		t := Pi * float64(k) / float64(half)
		p = append(p, mgl64.Vec3{0, -radius * Cos(t), lift * Sin(t)})
	}
	return p
}

// A cycle of stages of n frames each where the leg swings during one stage and
// slides back linearly over all the others.
func dutyPath(stages, n, swing int, amp, lift float64) Path {
	total := stages * n
	stance := float64((stages - 1) * n)
	p := make(Path, total)
	for k := range p {
		if k >= swing*n && k < (swing+1)*n {
			t := Pi * float64(k-swing*n) / float64(n)
			p[k] = mgl64.Vec3{0, -amp * Cos(t), lift * Sin(t)}
			continue
		}
		j := ((k-(swing+1)*n)%total + total) % total
		p[k] = mgl64.Vec3{0, amp - 2*amp*float64(j)/stance, 0}
	}
	return p
}

// Returns the path started k frames later.
func (p Path) Shift(k int) Path {
	out := make(Path, len(p))
	for i := range p {
		out[i] = p[(i+k)%len(p)]
	}
	return out
}

func (p Path) RotateZ(deg float64) Path {
	m := mgl64.Rotate3DZ(mgl64.DegToRad(deg))
	out := make(Path, len(p))
	for i, v := range p {
		out[i] = m.Mul3x1(v)
	}
	return out
}

// Builds whole body frames from one path per leg.
func assemble(standby geometry.Locations, paths []Path) (frames []geometry.Locations) {
	frames = make([]geometry.Locations, len(paths[0]))
	for k := range frames {
		f := make(geometry.Locations, len(standby))
		for leg := range standby {
			f[leg] = standby[leg].Add(paths[leg][k])
		}
		frames[k] = f
	}
	return
}

// Plays frames backwards in time keeping frame 0 in place, so frame i of the
// result is frame -i of the input.
func reverse(frames []geometry.Locations) []geometry.Locations {
	n := len(frames)
	out := make([]geometry.Locations, n)
	for i := range out {
		out[i] = frames[(n-i)%n]
	}
	return out
}

// Moves the whole standby posture through one rigid transform per frame.
func posture(standby geometry.Locations, n int, transform func(k int) mgl64.Mat3) (frames []geometry.Locations) {
	frames = make([]geometry.Locations, n)
	for k := range frames {
		m := transform(k)
		f := make(geometry.Locations, len(standby))
		for leg, p := range standby {
			f[leg] = m.Mul3x1(p)
		}
		frames[k] = f
	}
	return
}

// Sinusoidal rotation about one body axis, amplitude in degrees.
func rocking(standby geometry.Locations, n int, axis func(float64) mgl64.Mat3, amplitude float64) []geometry.Locations {
	return posture(standby, n, func(k int) mgl64.Mat3 {
		return axis(mgl64.DegToRad(amplitude * Sin(2*Pi*float64(k)/float64(n))))
	})
}

// Yaws the body left and right with a small roll that follows the yaw. Both
// are piecewise linear over four quarters and the raise fades to zero at
// neutral so frames 0 and n/2 are the standby posture.
func twist(standby geometry.Locations, n int, amplitude float64) []geometry.Locations {
	const raise = 3.0

	q := n / 4
	steps := make([][2]int, 0, n)
	for i := 0; i < q; i++ {
		steps = append(steps, [2]int{i, i})
	}
	for i := 0; i < q; i++ {
		steps = append(steps, [2]int{q - i, q - i})
	}
	for i := 0; i < q; i++ {
		steps = append(steps, [2]int{-i, i})
	}
	for i := 0; i < q; i++ {
		steps = append(steps, [2]int{-q + i, q - i})
	}

	zStep := amplitude / float64(q)
	xStep := amplitude * 0.6 / float64(q)
	return posture(standby, n, func(k int) mgl64.Mat3 {
		z := float64(steps[k][0]) * zStep
		x := float64(steps[k][1]) * xStep
		r := raise * Abs(z) / amplitude
		return mgl64.Rotate3DX(mgl64.DegToRad(r)).
			Mul3(mgl64.Rotate3DZ(mgl64.DegToRad(z))).
			Mul3(mgl64.Rotate3DX(mgl64.DegToRad(x)))
	})
}
