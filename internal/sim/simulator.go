package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/engine"
	"github.com/san-kum/craftsim/internal/vmath"
	"github.com/san-kum/craftsim/internal/world"
	"golang.org/x/sync/errgroup"
)

// Stages lists the tick stages in the order they run. The physics step
// follows the last one.
var Stages = []string{
	"sync", "butler", "strategy", "routine", "compose", "mind", "linear", "angular", "force",
}

type stage struct {
	name     string
	global   func() error
	perCraft func(e ecs.Entity) error
}

type Simulator struct {
	world     *world.World
	metrics   []Metric
	observers []Observer
	tick      int
	time      float64
}

func New(w *world.World) *Simulator {
	return &Simulator{
		world:     w,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) World() *world.World { return s.world }
func (s *Simulator) Time() float64       { return s.time }

func (s *Simulator) stages(dt float64) []stage {
	w := s.world
	return []stage{
		{name: "sync", perCraft: w.SyncVelocities},
		{name: "butler", global: w.Butler},
		{name: "strategy", global: w.UpdateCircuits},
		{name: "routine", global: w.UpdateRoutines},
		{name: "compose", global: w.ComposeRoutines},
		{name: "mind", global: w.ApplyMinds},
		{name: "linear", perCraft: w.DriveLinear},
		{name: "angular", perCraft: func(e ecs.Entity) error { return w.DriveAngular(e, dt) }},
		{name: "force", perCraft: w.ApplyForces},
	}
}

// Step runs one tick: every stage in order, then the physics step. A failing
// stage aborts the tick before physics advances.
func (s *Simulator) Step(ctx context.Context, dt float64, parallel bool) error {
	_, _, err := s.step(ctx, dt, parallel, ecs.Nil)
	return err
}

func (s *Simulator) step(ctx context.Context, dt float64, parallel bool, track ecs.Entity) (Sample, bool, error) {
	crafts := s.world.CraftEntities()

	for _, st := range s.stages(dt) {
		var err error
		switch {
		case st.global != nil:
			err = st.global()
		case parallel && len(crafts) > 1:
			err = runParallel(ctx, crafts, st.perCraft)
		default:
			for _, e := range crafts {
				if err = st.perCraft(e); err != nil {
					break
				}
			}
		}
		if err != nil {
			return Sample{}, false, &TickError{Tick: s.tick, Stage: st.name, Err: err}
		}
	}

	sample, ok := s.sample(track)
	s.world.Physics.Step(dt)
	s.tick++
	s.time += dt
	return sample, ok, nil
}

func runParallel(ctx context.Context, crafts []ecs.Entity, fn func(ecs.Entity) error) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, e := range crafts {
		g.Go(func() error { return fn(e) })
	}
	return g.Wait()
}

// Sample reads craft e's telemetry as of now. Flames are those of the last
// driven tick.
func (s *Simulator) Sample(e ecs.Entity) (Sample, bool) { return s.sample(e) }

func (s *Simulator) sample(e ecs.Entity) (Sample, bool) {
	if e.IsZero() {
		return Sample{}, false
	}
	c, ok := s.world.Craft(e)
	if !ok {
		return Sample{}, false
	}
	pos, _, ok := s.world.Physics.Transform(c.Body)
	if !ok {
		return Sample{}, false
	}
	vel, _, _ := s.world.Physics.Velocity(c.Body)
	input := engine.LinearInput(&c.Linear, &c.Engine)
	return Sample{
		Time:          s.time,
		Position:      pos,
		Velocity:      vel,
		LocalVelocity: c.Linear.Velocity,
		Input:         c.Linear.Input,
		LinearFlame:   c.Linear.Flame,
		AngularFlame:  c.Angular.Flame,
		FlameBound:    engine.LinearAccelerationBound(&c.Engine, input),
	}, true
}

func sampleFinite(s Sample) bool {
	return vmath.IsFinite(s.Position) &&
		vmath.IsFinite(s.Velocity) &&
		vmath.IsFinite(s.LinearFlame) &&
		vmath.IsFinite(s.AngularFlame)
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}

func (s *Simulator) resolveTrack(track ecs.Entity) ecs.Entity {
	if !track.IsZero() {
		return track
	}
	if crafts := s.world.CraftEntities(); len(crafts) > 0 {
		return crafts[0]
	}
	return ecs.Nil
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/cfg.Dt + 0.5)
	track := s.resolveTrack(cfg.Track)
	result := &Result{
		Samples: make([]Sample, 0, steps),
		Metrics: make(map[string]float64),
		Tracked: track,
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	err := s.loop(ctx, cfg, steps, track, func(sample Sample, ok bool) bool {
		if ok {
			result.Samples = append(result.Samples, sample)
		}
		result.StepsTaken++
		return true
	})

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

// RunWithCallback runs until the duration elapses or callback returns false.
// Ticks where the tracked craft is gone reach the callback as a zero Sample.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Sample) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	steps := int(cfg.Duration/cfg.Dt + 0.5)
	return s.loop(ctx, cfg, steps, s.resolveTrack(cfg.Track), func(sample Sample, _ bool) bool {
		return callback(sample)
	})
}

func (s *Simulator) loop(ctx context.Context, cfg Config, steps int, track ecs.Entity, emit func(Sample, bool) bool) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tick := s.tick
		sample, ok, err := s.step(ctx, cfg.Dt, cfg.Parallel, track)
		if err != nil {
			return err
		}

		if ok {
			for _, m := range s.metrics {
				m.Observe(sample)
			}
			if cfg.ValidateState && !sampleFinite(sample) {
				return &TickError{Tick: tick, Stage: "validate", Err: ErrDiverged}
			}
		}
		for _, obs := range s.observers {
			obs.OnStep(tick, s.world, sample)
		}
		if !emit(sample, ok) {
			return nil
		}
	}
	return nil
}
