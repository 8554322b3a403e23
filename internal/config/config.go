package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/engine"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 1.0 / 60
	DefaultDuration   = 30.0
	DefaultIntegrator = "rk4"
	DefaultKp         = 1000.0
	DefaultRadius     = 20.0
)

// Pilot names what drives a craft.
const (
	PilotNone       = ""
	PilotManual     = "manual"
	PilotRunCircuit = "run_circuit"
	PilotSeek       = "seek"
	PilotIntercept  = "intercept"
	PilotFlock      = "flock"
)

type Config struct {
	Name       string          `yaml:"name"`
	Integrator string          `yaml:"integrator"`
	Dt         float64         `yaml:"dt"`
	Duration   float64         `yaml:"duration"`
	Seed       int64           `yaml:"seed"`
	Parallel   bool            `yaml:"parallel"`
	Crafts     []CraftConfig   `yaml:"crafts"`
	Circuits   []CircuitConfig `yaml:"circuits"`
	Asteroids  AsteroidConfig  `yaml:"asteroids"`
}

type CraftConfig struct {
	Name       string         `yaml:"name"`
	Position   mgl64.Vec3     `yaml:"position"`
	Dimensions mgl64.Vec3     `yaml:"dimensions"`
	Engine     *engine.Config `yaml:"engine,omitempty"`
	LinearPID  *PIDConfig     `yaml:"linear_pid,omitempty"`
	AngularPID *PIDConfig     `yaml:"angular_pid,omitempty"`

	Pilot string `yaml:"pilot"`
	// Circuit indexes Circuits for run_circuit pilots.
	Circuit int `yaml:"circuit"`
	// Target names another craft for intercept pilots, or is empty to seek
	// TargetPoint.
	Target      string     `yaml:"target,omitempty"`
	TargetPoint mgl64.Vec3 `yaml:"target_point,omitempty"`
	Speed       float64    `yaml:"speed,omitempty"`
	// Input is the fixed local velocity for crafts without a pilot.
	Input mgl64.Vec3 `yaml:"input,omitempty"`
	// Track marks the craft whose telemetry is recorded.
	Track bool `yaml:"track,omitempty"`
}

type PIDConfig struct {
	Kp          float64 `yaml:"kp"`
	Ki          float64 `yaml:"ki"`
	Kd          float64 `yaml:"kd"`
	IntegralMax float64 `yaml:"integral_max"`
}

type CircuitConfig struct {
	Name   string       `yaml:"name"`
	Points []mgl64.Vec3 `yaml:"points"`
	Radius float64      `yaml:"radius"`
}

// AsteroidConfig scatters static spheres around Center.
type AsteroidConfig struct {
	Count     int        `yaml:"count"`
	Center    mgl64.Vec3 `yaml:"center"`
	Spread    float64    `yaml:"spread"`
	MinRadius float64    `yaml:"min_radius"`
	MaxRadius float64    `yaml:"max_radius"`
}

func DefaultPID() PIDConfig {
	return PIDConfig{Kp: DefaultKp}
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "default",
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
	}
}

// ApplyDefaults fills the fields a YAML file may omit.
func (c *Config) ApplyDefaults() {
	if c.Integrator == "" {
		c.Integrator = DefaultIntegrator
	}
	if c.Dt == 0 {
		c.Dt = DefaultDt
	}
	if c.Duration == 0 {
		c.Duration = DefaultDuration
	}
	for i := range c.Crafts {
		cc := &c.Crafts[i]
		if cc.Engine == nil {
			def := engine.DefaultConfig()
			cc.Engine = &def
		}
		if cc.Dimensions == (mgl64.Vec3{}) {
			cc.Dimensions = mgl64.Vec3{2, 2, 10}
		}
		if cc.LinearPID == nil {
			pid := DefaultPID()
			cc.LinearPID = &pid
		}
		if cc.AngularPID == nil {
			pid := DefaultPID()
			cc.AngularPID = &pid
		}
	}
	for i := range c.Circuits {
		if c.Circuits[i].Radius == 0 {
			c.Circuits[i].Radius = DefaultRadius
		}
	}
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Duration)
	}

	names := make(map[string]bool, len(c.Crafts))
	for _, cc := range c.Crafts {
		if cc.Name == "" {
			return fmt.Errorf("craft without a name")
		}
		if names[cc.Name] {
			return fmt.Errorf("duplicate craft name %q", cc.Name)
		}
		names[cc.Name] = true
	}

	for _, cc := range c.Crafts {
		if cc.Engine != nil {
			if err := cc.Engine.Validate(); err != nil {
				return fmt.Errorf("craft %q: %w", cc.Name, err)
			}
		}
		switch cc.Pilot {
		case PilotNone, PilotManual, PilotFlock, PilotSeek:
		case PilotRunCircuit:
			if cc.Circuit < 0 || cc.Circuit >= len(c.Circuits) {
				return fmt.Errorf("craft %q: circuit %d out of range", cc.Name, cc.Circuit)
			}
		case PilotIntercept:
			if !names[cc.Target] {
				return fmt.Errorf("craft %q: unknown target %q", cc.Name, cc.Target)
			}
		default:
			return fmt.Errorf("craft %q: unknown pilot %q", cc.Name, cc.Pilot)
		}
	}

	for i, circuit := range c.Circuits {
		if len(circuit.Points) < 2 {
			return fmt.Errorf("circuit %d needs at least 2 points", i)
		}
	}
	if a := c.Asteroids; a.Count > 0 && (a.MinRadius <= 0 || a.MaxRadius < a.MinRadius) {
		return fmt.Errorf("asteroid radius range [%v, %v] is invalid", a.MinRadius, a.MaxRadius)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
