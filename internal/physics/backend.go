package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
)

// BodyHandle and ColliderHandle are opaque ids issued by a Backend.
// Zero is never a valid handle.
type (
	BodyHandle     uint32
	ColliderHandle uint32
)

// Hit describes the first contact of a shape cast.
type Hit struct {
	Collider ColliderHandle
	// Toi is the time of impact in units of the cast velocity.
	Toi    float64
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// Backend is everything the control core needs from a rigid-body simulation.
//
// Lookups report false for unknown handles. Force and torque accumulation
// must be safe for concurrent use; everything else is read-only during a tick.
type Backend interface {
	Transform(b BodyHandle) (pos mgl64.Vec3, rot mgl64.Quat, ok bool)
	// Velocity returns world-space linear and angular velocity.
	Velocity(b BodyHandle) (linvel, angvel mgl64.Vec3, ok bool)
	// InvPrincipalInertia is 1/I along the body's principal axes. Components
	// are zero until mass properties have been computed.
	InvPrincipalInertia(b BodyHandle) (mgl64.Vec3, bool)

	AddForce(b BodyHandle, force mgl64.Vec3)
	AddTorque(b BodyHandle, torque mgl64.Vec3)

	// IntersectionsWith lists the colliders overlapping the given one as of
	// the last step.
	IntersectionsWith(c ColliderHandle) []ColliderHandle
	ColliderParent(c ColliderHandle) (BodyHandle, bool)
	ColliderPosition(c ColliderHandle) (mgl64.Vec3, bool)
	BodyOwner(b BodyHandle) (ecs.Entity, bool)

	// CastSphere sweeps a sphere from origin along vel for up to maxToi and
	// returns the first solid collider it touches. Colliders of exclude are
	// ignored.
	CastSphere(origin, vel mgl64.Vec3, radius, maxToi float64, exclude BodyHandle) (Hit, bool)
}

// Host is a Backend that can also create and remove bodies and advance time.
type Host interface {
	Backend
	AddBody(desc BodyDesc) (BodyHandle, ColliderHandle)
	AddSensor(pos mgl64.Vec3, radius float64) ColliderHandle
	RemoveBody(b BodyHandle) bool
	// SetMassProperties replaces a body's mass and box size. Inertia that
	// was already resolved is recomputed immediately.
	SetMassProperties(b BodyHandle, mass float64, dims mgl64.Vec3) bool
	Step(dt float64)
}
