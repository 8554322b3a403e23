package config

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/engine"
)

// Presets build fresh configs, so callers may mutate what they get.
var Presets = map[string]func() *Config{
	// shuttle is a lone craft burning forward with the artificial
	// acceleration limit off, so the flame rides the thruster bound.
	"shuttle": func() *Config {
		eng := engine.DefaultConfig()
		eng.LimitAcceleration = false
		return &Config{
			Name: "shuttle", Duration: 10,
			Crafts: []CraftConfig{
				{Name: "shuttle", Engine: &eng, Input: mgl64.Vec3{0, 0, -50}, Track: true},
			},
		}
	},
	"circuit": func() *Config {
		return &Config{
			Name: "circuit", Duration: 60,
			Circuits: []CircuitConfig{ring(600, 0)},
			Crafts: []CraftConfig{
				{Name: "alpha", Pilot: PilotRunCircuit, Track: true},
				{Name: "bravo", Position: mgl64.Vec3{0, 40, 200}, Pilot: PilotRunCircuit},
			},
		}
	},
	"asteroids": func() *Config {
		return &Config{
			Name: "asteroids", Duration: 90, Seed: 7,
			Circuits: []CircuitConfig{ring(800, 0)},
			Asteroids: AsteroidConfig{
				Count: 40, Spread: 700, MinRadius: 8, MaxRadius: 30,
			},
			Crafts: []CraftConfig{
				{Name: "miner", Pilot: PilotRunCircuit, Track: true},
			},
		}
	},
	"duel": func() *Config {
		return &Config{
			Name: "duel", Duration: 60, Parallel: true,
			Circuits: []CircuitConfig{ring(500, 100)},
			Crafts: []CraftConfig{
				{Name: "runner", Pilot: PilotRunCircuit},
				{Name: "hunter", Position: mgl64.Vec3{0, 0, 900}, Pilot: PilotIntercept, Target: "runner", Speed: 120, Track: true},
				{Name: "wing", Position: mgl64.Vec3{60, 0, 900}, Pilot: PilotFlock},
			},
		}
	},
}

// ring lays out four waypoints on a square of half-size r at height y.
func ring(r, y float64) CircuitConfig {
	return CircuitConfig{
		Points: []mgl64.Vec3{
			{0, y, -r},
			{r, y, 0},
			{0, y, r},
			{-r, y, 0},
		},
		Radius: DefaultRadius,
	}
}

// GetPreset returns a new config for the named preset with defaults applied,
// or nil when no such preset exists.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := build()
	cfg.ApplyDefaults()
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
