package world

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/control"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/engine"
	"github.com/san-kum/craftsim/internal/physics"
	"github.com/san-kum/craftsim/internal/steering"
	"github.com/san-kum/craftsim/internal/strategy"
	"github.com/san-kum/craftsim/internal/vmath"
)

// Craft is a physically simulated ship and everything its engine needs.
type Craft struct {
	Name       string
	Engine     engine.Config
	Derived    engine.DerivedConfig
	Dimensions engine.Dimensions
	Linear     engine.LinearState
	Angular    engine.AngularState
	LinearPID  *control.PIDVec3
	AngularPID *control.PIDVec3

	Body     physics.BodyHandle
	Collider physics.ColliderHandle

	Routines   KindIndex[steering.Kind]
	Strategies KindIndex[strategy.Kind]

	// Mind is the strategy or routine whose output drives this craft's
	// engine input. Nil leaves the input to external controllers.
	Mind ecs.Entity
}

// CraftDesc describes a craft for SpawnCraft.
type CraftDesc struct {
	Name       string
	Engine     engine.Config
	Dimensions engine.Dimensions
	Position   mgl64.Vec3
	Rotation   mgl64.Quat
	Linvel     mgl64.Vec3
	// Gains default to DefaultLinearPID and DefaultAngularPID when nil.
	LinearPID  *control.PIDVec3
	AngularPID *control.PIDVec3
}

func DefaultLinearPID() *control.PIDVec3 {
	return control.NewPIDVec3(vmath.Splat(1000), mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{})
}

func DefaultAngularPID() *control.PIDVec3 {
	return control.NewPIDVec3(vmath.Splat(1000), mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{})
}

type World struct {
	Entities   *ecs.Entities
	Crafts     *ecs.Store[Craft]
	Routines   *ecs.Store[steering.Routine]
	Strategies *ecs.Store[strategy.Strategy]
	Waypoints  *ecs.Store[strategy.CircuitWaypoint]

	Physics physics.Host
	Logger  *log.Logger
}

// New builds an empty world over a physics host. A nil logger discards.
func New(host physics.Host, logger *log.Logger) *World {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	es := ecs.NewEntities()
	return &World{
		Entities:   es,
		Crafts:     ecs.NewStore[Craft](es),
		Routines:   ecs.NewStore[steering.Routine](es),
		Strategies: ecs.NewStore[strategy.Strategy](es),
		Waypoints:  ecs.NewStore[strategy.CircuitWaypoint](es),
		Physics:    host,
		Logger:     logger,
	}
}

// Craft returns the live craft e.
func (w *World) Craft(e ecs.Entity) (*Craft, bool) {
	return w.Crafts.Get(e)
}

func (w *World) SpawnCraft(desc CraftDesc) (ecs.Entity, error) {
	if err := desc.Engine.Validate(); err != nil {
		return ecs.Nil, fmt.Errorf("spawn %q: %w", desc.Name, err)
	}

	e := w.Entities.Create()
	body, col := w.Physics.AddBody(physics.BodyDesc{
		Owner:      e,
		Position:   desc.Position,
		Rotation:   desc.Rotation,
		Linvel:     desc.Linvel,
		Mass:       desc.Engine.Mass,
		Dimensions: mgl64.Vec3(desc.Dimensions),
	})

	linPID, angPID := desc.LinearPID, desc.AngularPID
	if linPID == nil {
		linPID = DefaultLinearPID()
	}
	if angPID == nil {
		angPID = DefaultAngularPID()
	}

	w.Crafts.Insert(e, Craft{
		Name:       desc.Name,
		Engine:     desc.Engine,
		Derived:    desc.Engine.Derive(desc.Dimensions),
		Dimensions: desc.Dimensions,
		LinearPID:  linPID,
		AngularPID: angPID,
		Body:       body,
		Collider:   col,
	})
	w.Logger.Debug("craft spawned", "craft", e, "name", desc.Name, "pos", desc.Position)
	return e, nil
}

// SetEngineConfig replaces a craft's engine config, rederives it and hands
// the new mass to the physics body.
func (w *World) SetEngineConfig(e ecs.Entity, cfg engine.Config) error {
	craft, ok := w.Crafts.Get(e)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotCraft, e)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !w.Physics.SetMassProperties(craft.Body, cfg.Mass, mgl64.Vec3(craft.Dimensions)) {
		return invariant("engine", e, "body %d missing", craft.Body)
	}
	craft.Engine = cfg
	craft.Derived = cfg.Derive(craft.Dimensions)
	return nil
}

// SetDimensions changes a craft's bounding box, rederives its engine and
// reshapes its physics body.
func (w *World) SetDimensions(e ecs.Entity, dim engine.Dimensions) error {
	craft, ok := w.Crafts.Get(e)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotCraft, e)
	}
	if !w.Physics.SetMassProperties(craft.Body, craft.Engine.Mass, mgl64.Vec3(dim)) {
		return invariant("engine", e, "body %d missing", craft.Body)
	}
	craft.Dimensions = dim
	craft.Derived = craft.Engine.Derive(dim)
	return nil
}

// SetInput writes a craft's desired local velocities. This is the entry
// point for external controllers.
func (w *World) SetInput(e ecs.Entity, linear, angular mgl64.Vec3) error {
	craft, ok := w.Crafts.Get(e)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotCraft, e)
	}
	craft.Linear.Input = linear
	craft.Angular.Input = angular
	return nil
}

// SetMind makes mind drive craft e. Mind is either a strategy, whose output
// routine is followed, or a routine followed directly.
func (w *World) SetMind(e, mind ecs.Entity) error {
	craft, ok := w.Crafts.Get(e)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotCraft, e)
	}
	var owner ecs.Entity
	if s, ok := w.Strategies.Get(mind); ok {
		owner = s.Craft
	} else if r, ok := w.Routines.Get(mind); ok {
		owner = r.Craft
	} else {
		return fmt.Errorf("%w: mind %v", ErrUnknownEntity, mind)
	}
	if owner != e {
		return fmt.Errorf("mind %v belongs to %v, not %v", mind, owner, e)
	}
	craft.Mind = mind
	return nil
}

// SpawnRoutine creates a routine owned by craft and indexes it.
func (w *World) SpawnRoutine(craft ecs.Entity, params steering.Params) (ecs.Entity, error) {
	c, ok := w.Crafts.Get(craft)
	if !ok {
		return ecs.Nil, fmt.Errorf("%w: %v", ErrNotCraft, craft)
	}
	e := w.Entities.Create()
	w.Routines.Insert(e, steering.NewRoutine(craft, params))
	c.Routines.add(params.Kind(), e)
	return e, nil
}

// DestroyRoutine removes a routine and its index entry.
func (w *World) DestroyRoutine(e ecs.Entity) error {
	r, ok := w.Routines.Get(e)
	if !ok {
		return fmt.Errorf("%w: routine %v", ErrUnknownEntity, e)
	}
	if c, ok := w.Crafts.Get(r.Craft); ok {
		c.Routines.remove(r.Kind(), e)
		if c.Mind == e {
			c.Mind = ecs.Nil
		}
	}
	w.Routines.Remove(e)
	w.Entities.Destroy(e)
	return nil
}

// SpawnStrategy creates an uninitialized strategy for craft. The butler pass
// activates it on the next tick.
func (w *World) SpawnStrategy(craft ecs.Entity, params strategy.Params) (ecs.Entity, error) {
	c, ok := w.Crafts.Get(craft)
	if !ok {
		return ecs.Nil, fmt.Errorf("%w: %v", ErrNotCraft, craft)
	}
	e := w.Entities.Create()
	w.Strategies.Insert(e, strategy.New(craft, params))
	c.Strategies.add(params.Kind(), e)
	return e, nil
}

// RetireStrategy destroys a strategy and the routines it owns. A shared
// avoid-collision routine survives while another composer still uses it.
func (w *World) RetireStrategy(e ecs.Entity) error {
	s, ok := w.Strategies.Get(e)
	if !ok {
		return fmt.Errorf("%w: strategy %v", ErrUnknownEntity, e)
	}
	craftE := s.Craft

	if st, ok := s.State.(*strategy.RunCircuitState); ok {
		for _, r := range []ecs.Entity{st.Composer, st.Arrive} {
			if w.Routines.Has(r) {
				if err := w.DestroyRoutine(r); err != nil {
					return err
				}
			}
		}
		if w.Routines.Has(st.AvoidCollision) && !w.composerUses(craftE, st.AvoidCollision) {
			if err := w.DestroyRoutine(st.AvoidCollision); err != nil {
				return err
			}
		}
	}

	if c, ok := w.Crafts.Get(craftE); ok {
		c.Strategies.remove(s.Kind(), e)
		if c.Mind == e {
			c.Mind = ecs.Nil
		}
	}
	w.Strategies.Remove(e)
	w.Entities.Destroy(e)
	w.Logger.Debug("strategy retired", "strategy", e, "craft", craftE)
	return nil
}

func (w *World) composerUses(craftE, routine ecs.Entity) bool {
	c, ok := w.Crafts.Get(craftE)
	if !ok {
		return false
	}
	composers, _ := c.Routines.Of(steering.KindCompose)
	for _, ce := range composers {
		r, ok := w.Routines.Get(ce)
		if !ok {
			continue
		}
		p, ok := r.Params.(steering.Compose)
		if !ok {
			continue
		}
		for _, child := range p.Policy.Children() {
			if child == routine {
				return true
			}
		}
	}
	return false
}

// Despawn destroys a craft together with every routine and strategy it owns.
// Afterwards no index in the world refers to it.
func (w *World) Despawn(e ecs.Entity) error {
	c, ok := w.Crafts.Get(e)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotCraft, e)
	}

	for _, s := range c.Strategies.All() {
		if err := w.RetireStrategy(s); err != nil {
			return err
		}
	}
	for _, r := range c.Routines.All() {
		if err := w.DestroyRoutine(r); err != nil {
			return err
		}
	}

	w.Physics.RemoveBody(c.Body)
	w.Crafts.Remove(e)
	w.Entities.Destroy(e)
	w.Logger.Info("craft despawned", "craft", e)
	return nil
}

// SpawnWaypoint places a waypoint sensor. Link it with LinkWaypoints.
func (w *World) SpawnWaypoint(pos mgl64.Vec3, radius float64) ecs.Entity {
	e := w.Entities.Create()
	w.Waypoints.Insert(e, strategy.CircuitWaypoint{
		Collider: w.Physics.AddSensor(pos, radius),
	})
	return e
}

func (w *World) LinkWaypoints(from, to ecs.Entity) error {
	wp, ok := w.Waypoints.Get(from)
	if !ok {
		return fmt.Errorf("%w: waypoint %v", ErrUnknownEntity, from)
	}
	if !w.Waypoints.Has(to) {
		return fmt.Errorf("%w: waypoint %v", ErrUnknownEntity, to)
	}
	wp.NextPoint = to
	return nil
}

// SpawnCircuit places waypoints at points and links them into a cycle.
func (w *World) SpawnCircuit(points []mgl64.Vec3, radius float64) ([]ecs.Entity, error) {
	ents := make([]ecs.Entity, len(points))
	for i, p := range points {
		ents[i] = w.SpawnWaypoint(p, radius)
	}
	for i := range ents {
		if err := w.LinkWaypoints(ents[i], ents[(i+1)%len(ents)]); err != nil {
			return nil, err
		}
	}
	return ents, nil
}

// WaypointPosition returns where waypoint e sits.
func (w *World) WaypointPosition(e ecs.Entity) (mgl64.Vec3, bool) {
	wp, ok := w.Waypoints.Get(e)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return w.Physics.ColliderPosition(wp.Collider)
}
