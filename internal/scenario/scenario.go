// Package scenario turns a scenario config into a populated world ready to
// simulate.
package scenario

import (
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/config"
	"github.com/san-kum/craftsim/internal/control"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/engine"
	"github.com/san-kum/craftsim/internal/integrators"
	"github.com/san-kum/craftsim/internal/physics"
	"github.com/san-kum/craftsim/internal/sim"
	"github.com/san-kum/craftsim/internal/vmath"
	"github.com/san-kum/craftsim/internal/world"
)

type Scenario struct {
	Config *config.Config
	World  *world.World
	Space  *physics.Space

	// Crafts maps config names to spawned crafts.
	Crafts   map[string]ecs.Entity
	Circuits [][]ecs.Entity
	// Asteroids are static obstacle bodies.
	Asteroids []physics.BodyHandle

	// Track is the craft whose telemetry is recorded. Player is the first
	// manually piloted craft, or Nil.
	Track  ecs.Entity
	Player ecs.Entity

	rng *rand.Rand
}

// Build spawns everything cfg describes using the default pilot registry.
func Build(cfg *config.Config, logger *log.Logger) (*Scenario, error) {
	return DefaultRegistry().Build(cfg, logger)
}

func (r *Registry) Build(cfg *config.Config, logger *log.Logger) (*Scenario, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	space := physics.NewSpace(integ)

	s := &Scenario{
		Config: cfg,
		World:  world.New(space, logger),
		Space:  space,
		Crafts: make(map[string]ecs.Entity, len(cfg.Crafts)),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	for i, cc := range cfg.Circuits {
		ents, err := s.World.SpawnCircuit(cc.Points, cc.Radius)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		s.Circuits = append(s.Circuits, ents)
	}

	s.scatterAsteroids(cfg.Asteroids)

	// Every craft exists before any pilot runs so pilots can target each other.
	for _, cc := range cfg.Crafts {
		e, err := s.World.SpawnCraft(craftDesc(cc))
		if err != nil {
			return nil, err
		}
		s.Crafts[cc.Name] = e
		if cc.Track && s.Track.IsZero() {
			s.Track = e
		}
	}

	for _, cc := range cfg.Crafts {
		pilot, err := r.Pilot(cc.Pilot)
		if err != nil {
			return nil, fmt.Errorf("craft %q: %w", cc.Name, err)
		}
		if err := pilot(s, s.Crafts[cc.Name], cc); err != nil {
			return nil, fmt.Errorf("craft %q: %w", cc.Name, err)
		}
	}

	if s.Track.IsZero() && len(cfg.Crafts) > 0 {
		s.Track = s.Crafts[cfg.Crafts[0].Name]
	}
	s.World.Logger.Debug("scenario built",
		"name", cfg.Name,
		"crafts", len(s.Crafts),
		"circuits", len(s.Circuits),
		"asteroids", len(s.Asteroids),
	)
	return s, nil
}

func craftDesc(cc config.CraftConfig) world.CraftDesc {
	eng := engine.DefaultConfig()
	if cc.Engine != nil {
		eng = *cc.Engine
	}
	return world.CraftDesc{
		Name:       cc.Name,
		Engine:     eng,
		Dimensions: engine.Dimensions(cc.Dimensions),
		Position:   cc.Position,
		LinearPID:  pidOf(cc.LinearPID),
		AngularPID: pidOf(cc.AngularPID),
	}
}

func pidOf(p *config.PIDConfig) *control.PIDVec3 {
	if p == nil {
		return nil
	}
	return control.NewPIDVec3(
		vmath.Splat(p.Kp),
		vmath.Splat(p.Ki),
		vmath.Splat(p.Kd),
		vmath.Splat(p.IntegralMax),
		vmath.Splat(-p.IntegralMax),
	)
}

// scatterAsteroids places static spheres uniformly inside a cube of half-size
// Spread around Center, skipping spots that swallow a waypoint or a craft's
// start.
func (s *Scenario) scatterAsteroids(cfg config.AsteroidConfig) {
	const maxTries = 20

	for i := 0; i < cfg.Count; i++ {
		for try := 0; try < maxTries; try++ {
			pos := cfg.Center.Add(mgl64.Vec3{
				(s.rng.Float64()*2 - 1) * cfg.Spread,
				(s.rng.Float64()*2 - 1) * cfg.Spread,
				(s.rng.Float64()*2 - 1) * cfg.Spread,
			})
			radius := cfg.MinRadius + s.rng.Float64()*(cfg.MaxRadius-cfg.MinRadius)
			if !s.clearOf(pos, radius) {
				continue
			}
			bh, _ := s.Space.AddBody(physics.BodyDesc{
				Owner:    s.World.Entities.Create(),
				Position: pos,
				Radius:   radius,
				Static:   true,
			})
			s.Asteroids = append(s.Asteroids, bh)
			break
		}
	}
}

func (s *Scenario) clearOf(pos mgl64.Vec3, radius float64) bool {
	const margin = 40.0
	for _, cc := range s.Config.Circuits {
		for _, p := range cc.Points {
			if p.Sub(pos).Len() < radius+cc.Radius+margin {
				return false
			}
		}
	}
	for _, cc := range s.Config.Crafts {
		if cc.Position.Sub(pos).Len() < radius+vmath.MaxComponent(cc.Dimensions)+margin {
			return false
		}
	}
	return true
}

// SimConfig is the run configuration the scenario asks for.
func (s *Scenario) SimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Dt = s.Config.Dt
	cfg.Duration = s.Config.Duration
	cfg.Seed = s.Config.Seed
	cfg.Parallel = s.Config.Parallel
	cfg.Track = s.Track
	return cfg
}

// Simulator wraps the scenario world in a simulator.
func (s *Scenario) Simulator() *sim.Simulator {
	return sim.New(s.World)
}

// Builder adapts cfg to an ensemble builder. Each run gets its own copy of
// the config with the seed swapped in.
func Builder(cfg *config.Config, logger *log.Logger) sim.Builder {
	cfg.ApplyDefaults()
	return func(seed int64) (*world.World, error) {
		c := *cfg
		c.Seed = seed
		c.Crafts = append([]config.CraftConfig(nil), cfg.Crafts...)
		s, err := Build(&c, logger)
		if err != nil {
			return nil, err
		}
		return s.World, nil
	}
}
