package scenario

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/config"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/steering"
	"github.com/san-kum/craftsim/internal/strategy"
)

// Pilot wires whatever drives craft e once every craft exists.
type Pilot func(s *Scenario, e ecs.Entity, cc config.CraftConfig) error

type Registry struct {
	pilots map[string]Pilot
}

func NewRegistry() *Registry {
	return &Registry{pilots: make(map[string]Pilot)}
}

// DefaultRegistry knows every pilot a config may name.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.PilotNone, fixedInput)
	r.Register(config.PilotManual, manual)
	r.Register(config.PilotRunCircuit, runCircuit)
	r.Register(config.PilotSeek, seek)
	r.Register(config.PilotIntercept, intercept)
	r.Register(config.PilotFlock, flock)
	return r
}

func (r *Registry) Register(name string, p Pilot) {
	r.pilots[name] = p
}

func (r *Registry) Pilot(name string) (Pilot, error) {
	p, ok := r.pilots[name]
	if !ok {
		return nil, fmt.Errorf("unknown pilot: %s", name)
	}
	return p, nil
}

func (r *Registry) ListPilots() []string {
	names := make([]string, 0, len(r.pilots))
	for name := range r.pilots {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func fixedInput(s *Scenario, e ecs.Entity, cc config.CraftConfig) error {
	return s.World.SetInput(e, cc.Input, mgl64.Vec3{})
}

func manual(s *Scenario, e ecs.Entity, cc config.CraftConfig) error {
	if s.Player.IsZero() {
		s.Player = e
	}
	return fixedInput(s, e, cc)
}

func runCircuit(s *Scenario, e ecs.Entity, cc config.CraftConfig) error {
	if cc.Circuit < 0 || cc.Circuit >= len(s.Circuits) {
		return fmt.Errorf("circuit %d out of range", cc.Circuit)
	}
	st, err := s.World.SpawnStrategy(e, strategy.RunCircuit{InitialPoint: s.Circuits[cc.Circuit][0]})
	if err != nil {
		return err
	}
	return s.World.SetMind(e, st)
}

func seek(s *Scenario, e ecs.Entity, cc config.CraftConfig) error {
	target := steering.PositionTarget(cc.TargetPoint)
	if cc.Target != "" {
		other, ok := s.Crafts[cc.Target]
		if !ok {
			return fmt.Errorf("unknown target %q", cc.Target)
		}
		target = steering.ObjectTarget(other)
	}
	return followRoutine(s, e, steering.Seek{Target: target, Speed: speedOr(cc.Speed)})
}

func intercept(s *Scenario, e ecs.Entity, cc config.CraftConfig) error {
	other, ok := s.Crafts[cc.Target]
	if !ok {
		return fmt.Errorf("unknown target %q", cc.Target)
	}
	return followRoutine(s, e, steering.Intercept{Target: other, Speed: speedOr(cc.Speed)})
}

func flock(s *Scenario, e ecs.Entity, _ config.CraftConfig) error {
	return followRoutine(s, e, steering.DefaultFlyWithFlock())
}

func followRoutine(s *Scenario, e ecs.Entity, p steering.Params) error {
	r, err := s.World.SpawnRoutine(e, p)
	if err != nil {
		return err
	}
	return s.World.SetMind(e, r)
}

func speedOr(v float64) float64 {
	if v > 0 {
		return v
	}
	return strategy.CruiseSpeed
}
