package sim

import (
	"context"

	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/world"
	"golang.org/x/sync/errgroup"
)

// Builder creates a fresh world for one ensemble member.
type Builder func(seed int64) (*world.World, error)

// Ensemble runs independent copies of a scenario with consecutive seeds.
type Ensemble struct {
	build     Builder
	metrics   func() []Metric
	numRuns   int
	seedStart int64
}

// NewEnsemble takes a metrics factory so every run observes with its own
// metric instances.
func NewEnsemble(build Builder, metrics func() []Metric, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, metrics: metrics, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(i)
			cfgCopy.Track = ecs.Nil

			w, err := e.build(cfgCopy.Seed)
			if err != nil {
				return err
			}
			s := New(w)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					s.AddMetric(m)
				}
			}
			results[i], err = s.Run(ctx, cfgCopy)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
