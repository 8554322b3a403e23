// Package physics defines the rigid-body contract the control core consumes
// and ships Space, a small in-memory implementation of it.
//
// Space integrates translational motion with any [integrators.Integrator],
// spins bodies with their principal inertia, and answers sensor overlap and
// sphere cast queries against sphere colliders:
//
//	space := physics.NewSpace(integrators.NewRK4())
//	body, _ := space.AddBody(physics.BodyDesc{Mass: 15000, Dimensions: dims})
//	space.AddForce(body, mgl64.Vec3{0, 0, -1e6})
//	space.Step(1.0 / 60)
package physics
