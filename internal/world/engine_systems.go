package world

import (
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/engine"
)

// The per-craft engine stages touch only the craft's own state and the
// physics accumulators, so they may run concurrently across crafts.

func (w *World) SyncVelocities(e ecs.Entity) error {
	c, ok := w.Crafts.Get(e)
	if !ok {
		return invariant("sync", e, "craft vanished")
	}
	_, rot, ok := w.Physics.Transform(c.Body)
	if !ok {
		return invariant("sync", e, "body %d missing", c.Body)
	}
	linvel, angvel, _ := w.Physics.Velocity(c.Body)
	engine.SyncVelocities(&c.Linear, &c.Angular, rot, linvel, angvel)
	return nil
}

func (w *World) DriveLinear(e ecs.Entity) error {
	c, ok := w.Crafts.Get(e)
	if !ok {
		return invariant("linear", e, "craft vanished")
	}
	engine.DriveLinear(&c.Linear, &c.Engine, c.LinearPID)
	return nil
}

func (w *World) DriveAngular(e ecs.Entity, dt float64) error {
	c, ok := w.Crafts.Get(e)
	if !ok {
		return invariant("angular", e, "craft vanished")
	}
	invI, ok := w.Physics.InvPrincipalInertia(c.Body)
	if !ok {
		return invariant("angular", e, "body %d missing", c.Body)
	}
	engine.DriveAngular(&c.Angular, &c.Engine, &c.Derived, c.AngularPID, invI, dt)
	return nil
}

func (w *World) ApplyForces(e ecs.Entity) error {
	c, ok := w.Crafts.Get(e)
	if !ok {
		return invariant("force", e, "craft vanished")
	}
	_, rot, ok := w.Physics.Transform(c.Body)
	if !ok {
		return invariant("force", e, "body %d missing", c.Body)
	}
	invI, _ := w.Physics.InvPrincipalInertia(c.Body)
	force, torque := engine.Flames(&c.Linear, &c.Angular, &c.Engine, invI, rot)
	w.Physics.AddForce(c.Body, force)
	w.Physics.AddTorque(c.Body, torque)
	return nil
}

// CraftEntities lists live crafts in store order, which is stable for a
// given spawn and despawn history.
func (w *World) CraftEntities() []ecs.Entity {
	return w.Crafts.Entities()
}
