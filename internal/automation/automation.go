// Package automation runs scripted batches and parameter sweeps of
// scenarios without a terminal attached.
package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/craftsim/internal/config"
	"github.com/san-kum/craftsim/internal/metrics"
	"github.com/san-kum/craftsim/internal/scenario"
	"github.com/san-kum/craftsim/internal/sim"
	"github.com/san-kum/craftsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Batch is a scripted sequence of runs.
type Batch struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step names a scenario by preset or file and overrides its run settings.
// Zero overrides keep the scenario's values.
type Step struct {
	Preset     string  `yaml:"preset"`
	Config     string  `yaml:"config"`
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`
	Parallel   bool    `yaml:"parallel"`
	Save       bool    `yaml:"save"`
}

type StepResult struct {
	Scenario string
	RunID    string
	Result   *sim.Result
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if len(b.Steps) == 0 {
		return nil, fmt.Errorf("%s: batch has no steps", path)
	}
	return &b, nil
}

func (s Step) resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	default:
		return nil, fmt.Errorf("step names neither preset nor config")
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	cfg.Parallel = cfg.Parallel || s.Parallel
	return cfg, nil
}

// RunBatch executes every step in order and stops at the first failure.
// Steps marked Save are written to store, which may be nil otherwise.
func RunBatch(ctx context.Context, b *Batch, store *storage.Store, logger *log.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	results := make([]StepResult, 0, len(b.Steps))

	for i, step := range b.Steps {
		cfg, err := step.resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("batch step", "step", i+1, "of", len(b.Steps), "scenario", cfg.Name)

		result, tracked, err := runScenario(ctx, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Scenario: cfg.Name, Result: result}
		if step.Save {
			if store == nil {
				return results, fmt.Errorf("step %d: save requested without a store", i+1)
			}
			sr.RunID, err = store.Save(storage.RunMetadata{
				Scenario:   cfg.Name,
				Seed:       cfg.Seed,
				Dt:         cfg.Dt,
				Duration:   cfg.Duration,
				Integrator: cfg.Integrator,
				Tracked:    tracked,
			}, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}
	return results, nil
}

func runScenario(ctx context.Context, cfg *config.Config, logger *log.Logger) (*sim.Result, string, error) {
	scn, err := scenario.Build(cfg, logger)
	if err != nil {
		return nil, "", err
	}
	simulator := scn.Simulator()
	for _, m := range metrics.Standard() {
		simulator.AddMetric(m)
	}
	result, err := simulator.Run(ctx, scn.SimConfig())
	if err != nil {
		return nil, "", err
	}
	tracked := ""
	if c, ok := scn.World.Craft(result.Tracked); ok {
		tracked = c.Name
	}
	return result, tracked, nil
}

// EngineSweep varies one engine parameter across every craft of a preset.
type EngineSweep struct {
	Preset   string
	Param    string
	ParamMin float64
	ParamMax float64
	NumSteps int
	Duration float64
}

type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	// Diverged marks runs stopped by non-finite telemetry.
	Diverged bool
}

func RunSweep(ctx context.Context, sweep *EngineSweep, logger *log.Logger) ([]SweepResult, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := config.GetPreset(sweep.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", sweep.Preset)
		}
		if sweep.Duration > 0 {
			cfg.Duration = sweep.Duration
		}
		for j := range cfg.Crafts {
			eng := *cfg.Crafts[j].Engine
			if err := eng.SetParam(sweep.Param, paramVal); err != nil {
				return nil, err
			}
			cfg.Crafts[j].Engine = &eng
		}

		sr := SweepResult{ParamValue: paramVal}
		result, _, err := runScenario(ctx, cfg, logger)
		switch {
		case errors.Is(err, sim.ErrDiverged):
			sr.Diverged = true
		case err != nil:
			return nil, fmt.Errorf("%s=%.4f: %w", sweep.Param, paramVal, err)
		default:
			sr.Metrics = result.Metrics
		}
		results = append(results, sr)

		logger.Info("sweep", "step", i+1, "of", sweep.NumSteps, sweep.Param, paramVal, "diverged", sr.Diverged)
	}
	return results, nil
}
