package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/steering"
	"github.com/san-kum/craftsim/internal/strategy"
)

// Butler activates every uninitialized strategy by building the routines it
// needs. It runs once per strategy.
func (w *World) Butler() error {
	var err error
	w.Strategies.Each(func(e ecs.Entity, s *strategy.Strategy) bool {
		if s.IsActive() {
			return true
		}
		switch p := s.Params.(type) {
		case strategy.RunCircuit:
			err = w.activateRunCircuit(e, s, p)
		default:
			err = invariant("butler", e, "unhandled strategy %T", p)
		}
		return err == nil
	})
	return err
}

func (w *World) activateRunCircuit(e ecs.Entity, s *strategy.Strategy, p strategy.RunCircuit) error {
	craft, ok := w.Crafts.Get(s.Craft)
	if !ok {
		return invariant("butler", e, "craft %v of strategy missing", s.Craft)
	}
	target, ok := w.WaypointPosition(p.InitialPoint)
	if !ok {
		return invariant("butler", e, "initial waypoint %v missing", p.InitialPoint)
	}

	toiModifier := craft.Dimensions.MaxElement()

	var avoid ecs.Entity
	if existing, ok := craft.Routines.Of(steering.KindAvoidCollision); ok {
		avoid = existing[0]
		if !w.Routines.Has(avoid) {
			return invariant("butler", e, "indexed avoid routine %v missing", avoid)
		}
	} else {
		var err error
		avoid, err = w.SpawnRoutine(s.Craft, steering.AvoidCollision{
			CastShapeRadius:    toiModifier * 0.5,
			RaycastToiModifier: toiModifier,
		})
		if err != nil {
			return err
		}
	}

	arrive, err := w.SpawnRoutine(s.Craft, steering.Arrive{
		Target:           steering.ArriveTarget{Position: target, WithSpeed: strategy.CruiseSpeed},
		ArrivalTolerance: strategy.ArrivalTolerance,
	})
	if err != nil {
		return err
	}

	composer, err := w.SpawnRoutine(s.Craft, steering.Compose{
		Policy: steering.PriorityOverride{Routines: []ecs.Entity{avoid, arrive}},
	})
	if err != nil {
		return err
	}

	s.State = &strategy.RunCircuitState{
		Composer:       composer,
		Arrive:         arrive,
		AvoidCollision: avoid,
	}
	s.Output.SteeringRoutine = composer
	s.Phase = strategy.Active

	w.Logger.Debug("strategy active", "strategy", e, "craft", s.Craft, "kind", s.Kind(), "target", target)
	return nil
}

// UpdateCircuits retargets circuit runners whose current waypoint sensor
// they are touching to that waypoint's successor.
func (w *World) UpdateCircuits() error {
	var err error
	w.Waypoints.Each(func(wpE ecs.Entity, wp *strategy.CircuitWaypoint) bool {
		err = w.updateWaypoint(wpE, wp)
		return err == nil
	})
	return err
}

func (w *World) updateWaypoint(wpE ecs.Entity, wp *strategy.CircuitWaypoint) error {
	if wp.NextPoint.IsZero() {
		return nil
	}
	wpPos, ok := w.Physics.ColliderPosition(wp.Collider)
	if !ok {
		return invariant("circuit", wpE, "waypoint collider %d missing", wp.Collider)
	}

	for _, col := range w.Physics.IntersectionsWith(wp.Collider) {
		body, ok := w.Physics.ColliderParent(col)
		if !ok {
			continue
		}
		owner, ok := w.Physics.BodyOwner(body)
		if !ok {
			continue
		}
		craft, ok := w.Crafts.Get(owner)
		if !ok {
			continue
		}
		runners, ok := craft.Strategies.Of(strategy.KindRunCircuit)
		if !ok {
			continue
		}

		for _, se := range runners {
			s, ok := w.Strategies.Get(se)
			if !ok {
				return invariant("circuit", se, "indexed strategy of %v missing", owner)
			}
			if !s.IsActive() {
				continue
			}
			if err := w.advanceCircuit(owner, craft, se, s, wpE, wpPos, wp.NextPoint); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *World) advanceCircuit(owner ecs.Entity, craft *Craft, se ecs.Entity, s *strategy.Strategy, wpE ecs.Entity, wpPos mgl64.Vec3, next ecs.Entity) error {
	st, ok := s.State.(*strategy.RunCircuitState)
	if !ok {
		return invariant("circuit", se, "active strategy without circuit state")
	}
	r, ok := w.Routines.Get(st.Arrive)
	if !ok {
		return invariant("circuit", se, "arrive routine %v missing", st.Arrive)
	}
	arrive, ok := r.Params.(steering.Arrive)
	if !ok {
		return invariant("circuit", se, "routine %v is %v, not arrive", st.Arrive, r.Kind())
	}

	// Only the waypoint currently targeted counts; crossing any other is ignored.
	maxDim := craft.Dimensions.MaxElement()
	d := arrive.Target.Position.Sub(wpPos)
	if d.Dot(d)-maxDim*maxDim >= 1 {
		return nil
	}

	nextPos, ok := w.WaypointPosition(next)
	if !ok {
		return invariant("circuit", wpE, "next waypoint %v missing", next)
	}
	arrive.Target = steering.ArriveTarget{Position: nextPos, WithSpeed: strategy.CruiseSpeed}
	r.Params = arrive

	pos, _, _ := w.Physics.Transform(craft.Body)
	vel, _, _ := w.Physics.Velocity(craft.Body)
	w.Logger.Info("waypoint reached",
		"craft", owner,
		"strategy", se,
		"waypoint", wpE,
		"pos", pos,
		"vel", vel,
		"speed", vel.Len(),
	)
	return nil
}
