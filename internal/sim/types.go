package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/world"
)

// Sample is the telemetry of one craft at one tick, taken after forces are
// applied and before the physics step.
type Sample struct {
	Time     float64
	Position mgl64.Vec3
	// Velocity is world-space; LocalVelocity is what the engine saw.
	Velocity      mgl64.Vec3
	LocalVelocity mgl64.Vec3
	Input         mgl64.Vec3
	LinearFlame   mgl64.Vec3
	AngularFlame  mgl64.Vec3
	// FlameBound is the linear acceleration limit in force this tick.
	FlameBound mgl64.Vec3
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(tick int, w *world.World, s Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(tick int, w *world.World, s Sample)

func (f ObserverFunc) OnStep(tick int, w *world.World, s Sample) { f(tick, w, s) }

type Config struct {
	Dt       float64
	Duration float64
	Seed     int64
	// Parallel runs the per-craft stages concurrently.
	Parallel bool
	// Track selects the craft sampled into the Result. Nil picks the first
	// craft alive when the run starts.
	Track ecs.Entity
	// ValidateState stops the run when the tracked craft's telemetry turns
	// NaN or infinite.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0 / 60,
		Duration:      30,
		ValidateState: true,
	}
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
	Tracked    ecs.Entity
}
