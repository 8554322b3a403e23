// Package control provides the closed-loop primitives that drive a craft's
// engine toward its desired velocities:
//
//   - [PIDVec3]: per-axis Proportional-Integral-Derivative controller with a
//     runtime adjustable integral clamp
//   - [ManualInput]: maps a human intent vector to engine input
//
// # Usage
//
//	pid := control.NewPIDVec3(vmath.Splat(1000), mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{})
//	flame := pid.Update(velocity, input.Sub(velocity), dt)
//
// The output is never saturated here; the engine drivers clamp it to the
// craft's acceleration bounds.
package control
