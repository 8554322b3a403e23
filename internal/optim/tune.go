package optim

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/san-kum/craftsim/internal/config"
	"github.com/san-kum/craftsim/internal/metrics"
	"github.com/san-kum/craftsim/internal/scenario"
	"github.com/san-kum/craftsim/internal/sim"
)

// LinearPIDObjective evaluates a scenario with the linear PID gains of one
// craft replaced by the candidate's kp, ki and kd. Missing keys keep the
// configured gain.
func LinearPIDObjective(base *config.Config, craft string, logger *log.Logger) Evaluate {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return func(ctx context.Context, params map[string]float64) (*sim.Result, error) {
		cfg := *base
		cfg.Crafts = append([]config.CraftConfig(nil), base.Crafts...)
		cfg.ApplyDefaults()

		idx := -1
		for i := range cfg.Crafts {
			if cfg.Crafts[i].Name == craft {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("unknown craft %q", craft)
		}

		pid := *cfg.Crafts[idx].LinearPID
		if v, ok := params["kp"]; ok {
			pid.Kp = v
		}
		if v, ok := params["ki"]; ok {
			pid.Ki = v
		}
		if v, ok := params["kd"]; ok {
			pid.Kd = v
		}
		cfg.Crafts[idx].LinearPID = &pid
		cfg.Crafts[idx].Track = true
		for i := range cfg.Crafts {
			if i != idx {
				cfg.Crafts[i].Track = false
			}
		}

		s, err := scenario.Build(&cfg, logger)
		if err != nil {
			return nil, err
		}
		simulator := s.Simulator()
		for _, m := range metrics.Standard() {
			simulator.AddMetric(m)
		}
		res, err := simulator.Run(ctx, s.SimConfig())
		if err != nil {
			return nil, err
		}
		logger.Debug("candidate evaluated", "params", params, "tracking_error", res.Metrics["tracking_error"])
		return res, nil
	}
}
