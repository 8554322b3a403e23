package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/engine"
	"github.com/san-kum/craftsim/internal/physics"
	"github.com/san-kum/craftsim/internal/steering"
	"github.com/san-kum/craftsim/internal/vmath"
)

// Agent builds the steering view of craft e.
func (w *World) Agent(e ecs.Entity) (steering.Agent, bool) {
	c, ok := w.Crafts.Get(e)
	if !ok {
		return steering.Agent{}, false
	}
	return w.agentOf(c)
}

func (w *World) agentOf(c *Craft) (steering.Agent, bool) {
	pos, rot, ok := w.Physics.Transform(c.Body)
	if !ok {
		return steering.Agent{}, false
	}
	vel, _, _ := w.Physics.Velocity(c.Body)
	return steering.Agent{
		Position:    pos,
		Rotation:    rot,
		Velocity:    vel,
		LinvelLimit: c.Engine.LinvelLimit,
		AngvelLimit: c.Engine.AngvelLimit,
		AvailAccel:  engine.LinearAccelerationBound(&c.Engine, vmath.Forward),
	}, true
}

// UpdateRoutines recomputes the output of every active behaviour routine.
// Composers are left to ComposeRoutines.
func (w *World) UpdateRoutines() error {
	var err error
	w.Routines.Each(func(e ecs.Entity, r *steering.Routine) bool {
		if !r.Active || r.Kind() == steering.KindCompose {
			return true
		}
		err = w.updateRoutine(e, r)
		return err == nil
	})
	return err
}

func (w *World) updateRoutine(e ecs.Entity, r *steering.Routine) error {
	craft, ok := w.Crafts.Get(r.Craft)
	if !ok {
		return invariant("routine", e, "craft %v missing", r.Craft)
	}
	agent, ok := w.agentOf(craft)
	if !ok {
		return invariant("routine", e, "body of craft %v missing", r.Craft)
	}

	switch p := r.Params.(type) {
	case steering.Seek:
		target, ok := w.targetPosition(p.Target)
		if !ok {
			r.Output.Linear = mgl64.Vec3{}
			return nil
		}
		r.Output.Linear = steering.SeekVelocity(agent, target, p.Speed)

	case steering.Arrive:
		r.Output.Linear = steering.ArriveVelocity(agent, p)

	case steering.AvoidCollision:
		var hit *physics.Hit
		if h, ok := w.Physics.CastSphere(agent.Position, agent.Velocity, p.CastShapeRadius, p.RaycastToiModifier, craft.Body); ok {
			hit = &h
		}
		r.Output.Linear = steering.AvoidVelocity(agent, hit)

	case steering.Intercept:
		target, ok := w.Agent(p.Target)
		if !ok {
			r.Output.Linear = mgl64.Vec3{}
			return nil
		}
		r.Output.Linear = steering.InterceptVelocity(agent, target.Position, target.Velocity, p.Speed)

	case steering.FlyWithFlock:
		var flock []steering.Agent
		w.Crafts.Each(func(other ecs.Entity, c *Craft) bool {
			if other == r.Craft {
				return true
			}
			if a, ok := w.agentOf(c); ok {
				flock = append(flock, a)
			}
			return true
		})
		r.Output.Linear = steering.FlockVelocity(agent, flock, p)
		r.Output.Angular = steering.FaceVelocity(agent, r.Output.Linear)

	default:
		return invariant("routine", e, "unhandled routine %T", p)
	}
	return nil
}

// targetPosition resolves a steering target. A dead object is an expected
// absence, not an error.
func (w *World) targetPosition(t steering.Target) (mgl64.Vec3, bool) {
	if t.Object.IsZero() {
		return t.Position, true
	}
	a, ok := w.Agent(t.Object)
	return a.Position, ok
}

// ComposeRoutines merges the children of every active composer.
func (w *World) ComposeRoutines() error {
	var err error
	w.Routines.Each(func(e ecs.Entity, r *steering.Routine) bool {
		if !r.Active {
			return true
		}
		p, ok := r.Params.(steering.Compose)
		if !ok {
			return true
		}
		out, mergeErr := steering.Merge(p.Policy, func(child ecs.Entity) (steering.Output, bool) {
			cr, ok := w.Routines.Get(child)
			if !ok {
				return steering.Output{}, false
			}
			return cr.Output, true
		})
		if mergeErr != nil {
			err = invariant("compose", e, "%v", mergeErr)
			return false
		}
		r.Output = out
		return true
	})
	return err
}

// ApplyMinds copies each driving routine's output into its craft's engine input.
func (w *World) ApplyMinds() error {
	var err error
	w.Crafts.Each(func(e ecs.Entity, c *Craft) bool {
		if c.Mind.IsZero() {
			return true
		}
		err = w.applyMind(e, c)
		return err == nil
	})
	return err
}

func (w *World) applyMind(e ecs.Entity, c *Craft) error {
	routine := c.Mind
	if s, ok := w.Strategies.Get(c.Mind); ok {
		routine = s.Output.SteeringRoutine
		if routine.IsZero() {
			return nil
		}
	}
	r, ok := w.Routines.Get(routine)
	if !ok {
		return invariant("mind", e, "steering routine %v missing", routine)
	}

	_, rot, ok := w.Physics.Transform(c.Body)
	if !ok {
		return invariant("mind", e, "body %d missing", c.Body)
	}

	out := r.Output
	c.Linear.Input = vmath.ToLocal(rot, out.Linear)
	if out.HasAngular {
		c.Angular.Input = out.Angular
		return nil
	}
	local := vmath.NormalizeOrZero(c.Linear.Input)
	c.Angular.Input = vmath.MulElem(vmath.LookTo(local), c.Engine.AngvelLimit)
	return nil
}
