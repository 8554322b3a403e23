package control

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/vmath"
)

// ManualInput turns a human intent vector into engine input. Each axis of
// the intent is in [-1, 1] and is scaled by the craft's velocity limit.
// Forward is -Z.
type ManualInput struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// Nudge adds to the current intent (key press +1, key release -1) and keeps
// it inside the unit cube.
func (m *ManualInput) Nudge(linear, angular mgl64.Vec3) {
	one := vmath.Splat(1)
	m.Linear = vmath.Clamp(m.Linear.Add(linear), one.Mul(-1), one)
	m.Angular = vmath.Clamp(m.Angular.Add(angular), one.Mul(-1), one)
}

// Clear drops all intent.
func (m *ManualInput) Clear() {
	m.Linear = mgl64.Vec3{}
	m.Angular = mgl64.Vec3{}
}

// Inputs returns the desired linear and angular velocities for the given
// limits. With no linear intent the craft holds setSpeed.
func (m *ManualInput) Inputs(linvelLimit, angvelLimit, setSpeed mgl64.Vec3) (linear, angular mgl64.Vec3) {
	linear = vmath.MulElem(m.Linear, linvelLimit)
	if vmath.IsZero(m.Linear, 0) {
		linear = setSpeed
	}
	return linear, vmath.MulElem(m.Angular, angvelLimit)
}
