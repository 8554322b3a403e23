package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/control"
	"github.com/san-kum/craftsim/internal/vmath"
)

// linearDriverDt is the fixed step the linear PID sees. Its gains are tuned
// against it, not against the frame time.
const linearDriverDt = 1.0

// SyncVelocities rotates the body's world-space velocities into the craft's
// local frame.
func SyncVelocities(lin *LinearState, ang *AngularState, rot mgl64.Quat, linvel, angvel mgl64.Vec3) {
	lin.Velocity = vmath.ToLocal(rot, linvel)
	ang.Velocity = vmath.ToLocal(rot, angvel)
}

// LinearInput applies the velocity limits the config enables to the raw input.
func LinearInput(state *LinearState, cfg *Config) mgl64.Vec3 {
	input := state.Input
	limit := vmath.Abs(cfg.LinvelLimit)
	if cfg.LimitStrafeV {
		input[0] = math.Max(-limit[0], math.Min(input[0], limit[0]))
		input[1] = math.Max(-limit[1], math.Min(input[1], limit[1]))
	}
	if cfg.LimitForwardV {
		input[2] = math.Max(-limit[2], math.Min(input[2], limit[2]))
	}
	return input
}

// LinearAccelerationBound is the per-axis magnitude the linear flame may reach
// for the given (already limited) input.
func LinearAccelerationBound(cfg *Config, input mgl64.Vec3) mgl64.Vec3 {
	bound := cfg.AvailLinAccel()

	// forward is -Z; anything else on Z is done with the strafe thrusters
	if !(input[2] < 0) {
		bound[2] = math.Max(bound[0], bound[1])
	}

	if cfg.LimitAcceleration {
		bound = vmath.MinElem(bound, vmath.Abs(cfg.ActualAccelerationLimit()))
	}
	return bound
}

// DriveLinear turns the desired linear velocity into a bounded flame.
func DriveLinear(state *LinearState, cfg *Config, pid *control.PIDVec3) {
	input := LinearInput(state, cfg)
	bound := LinearAccelerationBound(cfg, input)

	flame := pid.Update(state.Velocity, input.Sub(state.Velocity), linearDriverDt)
	state.Flame = vmath.ClampSym(flame, bound)
}

// AngularAccelerationBound converts the thruster torque into angular
// acceleration with the body's inverse principal inertia. Each axis is treated
// independently; off-diagonal inertia is ignored. Axes whose inertia is not
// resolved yet (zero, negative or non-finite) get no acceleration.
func AngularAccelerationBound(cfg *Config, derived *DerivedConfig, invInertia mgl64.Vec3) mgl64.Vec3 {
	maxTorque := derived.ThrusterTorque.Mul(cfg.ThrusterForceMultiplier)
	var bound mgl64.Vec3
	for i := 0; i < 3; i++ {
		if inertiaResolved(invInertia[i]) {
			bound[i] = maxTorque[i] * invInertia[i]
		}
	}
	return bound
}

// DriveAngular turns the desired angular velocity into a bounded flame.
func DriveAngular(state *AngularState, cfg *Config, derived *DerivedConfig, pid *control.PIDVec3, invInertia mgl64.Vec3, dt float64) {
	input := state.Input
	if cfg.LimitAngularV {
		input = vmath.ClampSym(input, cfg.AngvelLimit)
	}

	bound := AngularAccelerationBound(cfg, derived, invInertia)
	if cfg.LimitAcceleration {
		artificial := vmath.Abs(derived.AngularAccelerationLimit)
		pid.IntegralMax = vmath.MinElem(bound, artificial)
		pid.IntegralMin = pid.IntegralMax.Mul(-1)
		bound = vmath.MinElem(bound, artificial)
	}

	flame := pid.Update(state.Velocity, input.Sub(state.Velocity), dt)
	state.Flame = vmath.ClampSym(flame, bound)
}

// Flames converts the commanded accelerations into world-space force and torque.
func Flames(lin *LinearState, ang *AngularState, cfg *Config, invInertia mgl64.Vec3, rot mgl64.Quat) (force, torque mgl64.Vec3) {
	force = vmath.ToWorld(rot, lin.Flame.Mul(cfg.Mass))

	var local mgl64.Vec3
	for i := 0; i < 3; i++ {
		if inertiaResolved(invInertia[i]) {
			local[i] = ang.Flame[i] / invInertia[i]
		}
	}
	torque = vmath.ToWorld(rot, local)
	return force, torque
}

func inertiaResolved(inv float64) bool {
	return inv > 0 && !math.IsInf(inv, 0)
}
