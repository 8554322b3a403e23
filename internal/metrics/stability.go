package metrics

import (
	"math"

	"github.com/san-kum/craftsim/internal/sim"
)

// Stability is the fraction of ticks whose linear flame stayed within the
// acceleration bound on every axis. Anything below 1 is a driver bug.
type Stability struct {
	name       string
	tolerance  float64
	violations int
	samples    int
}

func NewStability(tolerance float64) *Stability {
	return &Stability{
		name:      "stability",
		tolerance: tolerance,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sample sim.Sample) {
	s.samples++
	for i := 0; i < 3; i++ {
		if math.Abs(sample.LinearFlame[i]) > math.Abs(sample.FlameBound[i])+s.tolerance {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
