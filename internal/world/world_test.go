package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/engine"
	"github.com/san-kum/craftsim/internal/integrators"
	"github.com/san-kum/craftsim/internal/physics"
	"github.com/san-kum/craftsim/internal/steering"
	"github.com/san-kum/craftsim/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	space *physics.Space
	world *World
	craft ecs.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	space := physics.NewSpace(integrators.NewRK4())
	w := New(space, nil)
	craft, err := w.SpawnCraft(CraftDesc{
		Name:       "boid",
		Engine:     engine.DefaultConfig(),
		Dimensions: engine.Dimensions{2, 2, 10},
	})
	require.NoError(t, err)
	return &fixture{space: space, world: w, craft: craft}
}

func (f *fixture) teleport(t *testing.T, pos mgl64.Vec3) {
	t.Helper()
	c, ok := f.world.Craft(f.craft)
	require.True(t, ok)
	require.True(t, f.space.Teleport(c.Body, pos, mgl64.Vec3{}))
}

func (f *fixture) arriveTarget(t *testing.T, s ecs.Entity) mgl64.Vec3 {
	t.Helper()
	strat, ok := f.world.Strategies.Get(s)
	require.True(t, ok)
	st := strat.State.(*strategy.RunCircuitState)
	r, ok := f.world.Routines.Get(st.Arrive)
	require.True(t, ok)
	return r.Params.(steering.Arrive).Target.Position
}

func TestSpawnCraftRejectsInvalidConfig(t *testing.T) {
	w := New(physics.NewSpace(nil), nil)
	cfg := engine.DefaultConfig()
	cfg.Mass = 0

	_, err := w.SpawnCraft(CraftDesc{Engine: cfg})
	require.ErrorIs(t, err, engine.ErrInvalidConfig)
	assert.Equal(t, 0, w.Crafts.Len())
}

func TestSpawnCraftDerivesConfig(t *testing.T) {
	f := newFixture(t)
	c, ok := f.world.Craft(f.craft)
	require.True(t, ok)

	cfg := engine.DefaultConfig()
	assert.Equal(t, cfg.Derive(c.Dimensions), c.Derived)

	owner, ok := f.space.BodyOwner(c.Body)
	require.True(t, ok)
	assert.Equal(t, f.craft, owner)

	require.NoError(t, f.world.SetDimensions(f.craft, engine.Dimensions{4, 4, 4}))
	assert.Equal(t, c.Engine.Derive(engine.Dimensions{4, 4, 4}), c.Derived)

	bad := engine.DefaultConfig()
	bad.LinearThrusterForce[0] = -1
	require.Error(t, f.world.SetEngineConfig(f.craft, bad))
}

func TestEngineRetuneReachesPhysics(t *testing.T) {
	f := newFixture(t)
	cfg := engine.DefaultConfig()
	cfg.LimitAcceleration = false
	cfg.Mass = 30_000
	require.NoError(t, f.world.SetEngineConfig(f.craft, cfg))
	require.NoError(t, f.world.SetInput(f.craft, mgl64.Vec3{0, 0, -50}, mgl64.Vec3{}))

	require.NoError(t, f.world.SyncVelocities(f.craft))
	require.NoError(t, f.world.DriveLinear(f.craft))
	require.NoError(t, f.world.ApplyForces(f.craft))
	f.space.Step(1)

	c, _ := f.world.Craft(f.craft)
	assert.InDelta(t, -50, c.Linear.Flame[2], 1e-9, "flame is bounded by the heavier craft's thrust")
	vel, _, _ := f.space.Velocity(c.Body)
	assert.InDelta(t, c.Linear.Flame[2], vel[2], 1e-6, "realized acceleration must match the flame")
}

func TestDimensionsReshapeBody(t *testing.T) {
	f := newFixture(t)
	f.space.Step(1.0 / 60)
	require.NoError(t, f.world.SetDimensions(f.craft, engine.Dimensions{4, 4, 4}))

	c, _ := f.world.Craft(f.craft)
	inv, ok := f.space.InvPrincipalInertia(c.Body)
	require.True(t, ok)
	assert.InDelta(t, 1.0/40_000, inv[0], 1e-15)
	for _, b := range f.space.Bodies() {
		if b.Handle == c.Body {
			assert.InDelta(t, 2, b.Radius, 1e-12)
		}
	}
}

func TestRoutineIndex(t *testing.T) {
	f := newFixture(t)
	c, _ := f.world.Craft(f.craft)

	_, ok := c.Routines.Of(steering.KindSeek)
	assert.False(t, ok)

	r, err := f.world.SpawnRoutine(f.craft, steering.Seek{Speed: 10})
	require.NoError(t, err)
	ids, ok := c.Routines.Of(steering.KindSeek)
	require.True(t, ok)
	assert.Equal(t, []ecs.Entity{r}, ids)

	require.NoError(t, f.world.DestroyRoutine(r))
	_, ok = c.Routines.Of(steering.KindSeek)
	assert.False(t, ok)
	assert.False(t, f.world.Entities.Alive(r))

	require.ErrorIs(t, f.world.DestroyRoutine(r), ErrUnknownEntity)
	_, err = f.world.SpawnRoutine(r, steering.Seek{})
	require.ErrorIs(t, err, ErrNotCraft)
}

func TestButlerActivatesRunCircuit(t *testing.T) {
	f := newFixture(t)
	wps, err := f.world.SpawnCircuit([]mgl64.Vec3{{0, 0, -500}, {0, 0, 500}}, 20)
	require.NoError(t, err)

	s, err := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[0]})
	require.NoError(t, err)
	require.NoError(t, f.world.Butler())

	strat, _ := f.world.Strategies.Get(s)
	require.True(t, strat.IsActive())
	st := strat.State.(*strategy.RunCircuitState)
	assert.Equal(t, st.Composer, strat.Output.SteeringRoutine)

	avoid, ok := f.world.Routines.Get(st.AvoidCollision)
	require.True(t, ok)
	assert.Equal(t, steering.AvoidCollision{CastShapeRadius: 5, RaycastToiModifier: 10}, avoid.Params)

	arrive, ok := f.world.Routines.Get(st.Arrive)
	require.True(t, ok)
	assert.Equal(t, steering.Arrive{
		Target:           steering.ArriveTarget{Position: mgl64.Vec3{0, 0, -500}, WithSpeed: 80},
		ArrivalTolerance: 5,
	}, arrive.Params)

	composer, ok := f.world.Routines.Get(st.Composer)
	require.True(t, ok)
	assert.Equal(t, steering.Compose{
		Policy: steering.PriorityOverride{Routines: []ecs.Entity{st.AvoidCollision, st.Arrive}},
	}, composer.Params)

	// a second pass must not rebuild anything
	before := f.world.Routines.Len()
	require.NoError(t, f.world.Butler())
	assert.Equal(t, before, f.world.Routines.Len())
}

func TestButlerSharesAvoidRoutine(t *testing.T) {
	f := newFixture(t)
	wps, err := f.world.SpawnCircuit([]mgl64.Vec3{{0, 0, -500}, {0, 0, 500}}, 20)
	require.NoError(t, err)

	s1, _ := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[0]})
	s2, _ := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[1]})
	require.NoError(t, f.world.Butler())

	a, _ := f.world.Strategies.Get(s1)
	b, _ := f.world.Strategies.Get(s2)
	stA := a.State.(*strategy.RunCircuitState)
	stB := b.State.(*strategy.RunCircuitState)
	assert.Equal(t, stA.AvoidCollision, stB.AvoidCollision)
	assert.NotEqual(t, stA.Arrive, stB.Arrive)

	c, _ := f.world.Craft(f.craft)
	avoids, _ := c.Routines.Of(steering.KindAvoidCollision)
	assert.Len(t, avoids, 1)

	// retiring one keeps the shared routine for the other
	require.NoError(t, f.world.RetireStrategy(s1))
	assert.True(t, f.world.Routines.Has(stB.AvoidCollision))
	assert.False(t, f.world.Routines.Has(stA.Arrive))
	assert.False(t, f.world.Routines.Has(stA.Composer))

	require.NoError(t, f.world.RetireStrategy(s2))
	assert.False(t, f.world.Routines.Has(stB.AvoidCollision))
	assert.Equal(t, 0, c.Routines.Len())
	assert.Equal(t, 0, c.Strategies.Len())
}

func TestButlerMissingWaypoint(t *testing.T) {
	f := newFixture(t)
	ghost := f.world.Entities.Create()
	_, err := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: ghost})
	require.NoError(t, err)

	err = f.world.Butler()
	require.ErrorIs(t, err, ErrInvariant)
	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "butler", ie.Stage)
}

func TestCircuitPatrolCycle(t *testing.T) {
	f := newFixture(t)
	w1pos, w2pos := mgl64.Vec3{0, 0, -500}, mgl64.Vec3{0, 0, 500}
	wps, err := f.world.SpawnCircuit([]mgl64.Vec3{w1pos, w2pos}, 20)
	require.NoError(t, err)

	s, _ := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[0]})
	require.NoError(t, f.world.Butler())
	assert.Equal(t, w1pos, f.arriveTarget(t, s))

	// nowhere near a waypoint
	require.NoError(t, f.world.UpdateCircuits())
	assert.Equal(t, w1pos, f.arriveTarget(t, s))

	f.teleport(t, w1pos)
	require.NoError(t, f.world.UpdateCircuits())
	assert.Equal(t, w2pos, f.arriveTarget(t, s))

	// still inside W1 but now targeting W2: no change
	require.NoError(t, f.world.UpdateCircuits())
	assert.Equal(t, w2pos, f.arriveTarget(t, s))

	f.teleport(t, w2pos)
	require.NoError(t, f.world.UpdateCircuits())
	assert.Equal(t, w1pos, f.arriveTarget(t, s))

	f.teleport(t, w1pos)
	require.NoError(t, f.world.UpdateCircuits())
	assert.Equal(t, w2pos, f.arriveTarget(t, s))
}

func TestCircuitSkipsNonCrafts(t *testing.T) {
	f := newFixture(t)
	wps, _ := f.world.SpawnCircuit([]mgl64.Vec3{{0, 0, -500}, {0, 0, 500}}, 20)
	f.space.AddBody(physics.BodyDesc{Position: mgl64.Vec3{0, 0, -500}, Radius: 3, Static: true})
	f.space.RefreshContacts()

	s, _ := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[0]})
	require.NoError(t, f.world.Butler())
	require.NoError(t, f.world.UpdateCircuits())
	assert.Equal(t, mgl64.Vec3{0, 0, -500}, f.arriveTarget(t, s))
}

func TestCircuitIgnoresUninitialized(t *testing.T) {
	f := newFixture(t)
	wps, _ := f.world.SpawnCircuit([]mgl64.Vec3{{0, 0, 0}, {0, 0, 500}}, 20)
	_, err := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[0]})
	require.NoError(t, err)
	f.space.RefreshContacts()

	require.NoError(t, f.world.UpdateCircuits())
}

func TestComposeAndMind(t *testing.T) {
	f := newFixture(t)
	wps, _ := f.world.SpawnCircuit([]mgl64.Vec3{{0, 0, -500}, {0, 0, 500}}, 20)
	s, _ := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[0]})
	require.NoError(t, f.world.SetMind(f.craft, s))

	require.NoError(t, f.world.Butler())
	require.NoError(t, f.world.UpdateRoutines())
	require.NoError(t, f.world.ComposeRoutines())
	require.NoError(t, f.world.ApplyMinds())

	c, _ := f.world.Craft(f.craft)
	assert.Less(t, c.Linear.Input[2], 0.0, "craft should head forward toward W1")
	assert.InDelta(t, 0, c.Linear.Input[0], 1e-9)
	assert.InDelta(t, 0, c.Angular.Input.Len(), 1e-9, "already facing the target")
}

func TestComposeMissingChild(t *testing.T) {
	f := newFixture(t)
	seek, err := f.world.SpawnRoutine(f.craft, steering.Seek{Speed: 1})
	require.NoError(t, err)
	_, err = f.world.SpawnRoutine(f.craft, steering.Compose{
		Policy: steering.PriorityOverride{Routines: []ecs.Entity{seek}},
	})
	require.NoError(t, err)

	require.NoError(t, f.world.DestroyRoutine(seek))
	err = f.world.ComposeRoutines()
	require.ErrorIs(t, err, ErrInvariant)
}

func TestSeekDeadTargetIsSilent(t *testing.T) {
	f := newFixture(t)
	other, err := f.world.SpawnCraft(CraftDesc{
		Engine:     engine.DefaultConfig(),
		Dimensions: engine.Dimensions{1, 1, 1},
		Position:   mgl64.Vec3{100, 0, 0},
	})
	require.NoError(t, err)

	seek, _ := f.world.SpawnRoutine(f.craft, steering.Seek{Target: steering.ObjectTarget(other), Speed: 10})
	require.NoError(t, f.world.UpdateRoutines())
	r, _ := f.world.Routines.Get(seek)
	assert.InDelta(t, 10, r.Output.Linear[0], 1e-9)

	require.NoError(t, f.world.Despawn(other))
	require.NoError(t, f.world.UpdateRoutines())
	r, _ = f.world.Routines.Get(seek)
	assert.Equal(t, mgl64.Vec3{}, r.Output.Linear)
}

func TestDespawnInvalidatesEverything(t *testing.T) {
	f := newFixture(t)
	wps, _ := f.world.SpawnCircuit([]mgl64.Vec3{{0, 0, -500}, {0, 0, 500}}, 20)
	s, _ := f.world.SpawnStrategy(f.craft, strategy.RunCircuit{InitialPoint: wps[0]})
	require.NoError(t, f.world.SetMind(f.craft, s))
	require.NoError(t, f.world.Butler())
	extra, _ := f.world.SpawnRoutine(f.craft, steering.Seek{})
	c, _ := f.world.Craft(f.craft)
	body := c.Body

	require.NoError(t, f.world.Despawn(f.craft))

	assert.False(t, f.world.Entities.Alive(f.craft))
	assert.False(t, f.world.Entities.Alive(s))
	assert.False(t, f.world.Entities.Alive(extra))
	assert.Equal(t, 0, f.world.Routines.Len())
	assert.Equal(t, 0, f.world.Strategies.Len())
	_, ok := f.space.BodyOwner(body)
	assert.False(t, ok)

	// every system runs cleanly over the emptied world
	require.NoError(t, f.world.Butler())
	require.NoError(t, f.world.UpdateCircuits())
	require.NoError(t, f.world.UpdateRoutines())
	require.NoError(t, f.world.ComposeRoutines())
	require.NoError(t, f.world.ApplyMinds())

	require.ErrorIs(t, f.world.Despawn(f.craft), ErrNotCraft)
}

func TestEngineStagesWithUnresolvedInertia(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.world.SetInput(f.craft, mgl64.Vec3{0, 0, -50}, mgl64.Vec3{1, 0, 0}))

	require.NoError(t, f.world.SyncVelocities(f.craft))
	require.NoError(t, f.world.DriveLinear(f.craft))
	require.NoError(t, f.world.DriveAngular(f.craft, 1.0/60))
	require.NoError(t, f.world.ApplyForces(f.craft))

	c, _ := f.world.Craft(f.craft)
	force, torque := f.space.PendingForce(c.Body)
	assert.InDelta(t, -6*9.81*15000, force[2], 1e-6)
	assert.Equal(t, mgl64.Vec3{}, torque, "no torque before mass properties resolve")

	f.space.Step(1.0 / 60)
	require.NoError(t, f.world.SyncVelocities(f.craft))
	require.NoError(t, f.world.DriveAngular(f.craft, 1.0/60))
	assert.Greater(t, c.Angular.Flame[0], 0.0)
}

func TestRoutineMind(t *testing.T) {
	f := newFixture(t)
	seek, err := f.world.SpawnRoutine(f.craft, steering.Seek{
		Target: steering.PositionTarget(mgl64.Vec3{100, 0, 0}),
		Speed:  30,
	})
	require.NoError(t, err)
	require.NoError(t, f.world.SetMind(f.craft, seek))

	require.NoError(t, f.world.UpdateRoutines())
	require.NoError(t, f.world.ApplyMinds())

	c, _ := f.world.Craft(f.craft)
	assert.InDelta(t, 30, c.Linear.Input[0], 1e-9)
	assert.Less(t, c.Angular.Input[1], 0.0, "should yaw right toward +X")

	require.NoError(t, f.world.DestroyRoutine(seek))
	assert.True(t, c.Mind.IsZero())

	ghost := f.world.Entities.Create()
	require.ErrorIs(t, f.world.SetMind(f.craft, ghost), ErrUnknownEntity)
}
