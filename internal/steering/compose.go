package steering

import (
	"errors"
	"fmt"

	"github.com/san-kum/craftsim/internal/ecs"
)

var ErrMissingChild = errors.New("steering: composed routine not found")

// Policy is the closed set of composition strategies.
type Policy interface {
	Children() []ecs.Entity
	policy()
}

// PriorityOverride adopts the first child with a non-trivial output.
type PriorityOverride struct {
	Routines []ecs.Entity
}

// Weighted is one WeightedBlend entry.
type Weighted struct {
	Routine ecs.Entity
	Weight  float64
}

// WeightedBlend averages child outputs by weight.
type WeightedBlend struct {
	Entries []Weighted
}

func (p PriorityOverride) Children() []ecs.Entity { return p.Routines }

func (p WeightedBlend) Children() []ecs.Entity {
	out := make([]ecs.Entity, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Routine
	}
	return out
}

func (PriorityOverride) policy() {}
func (WeightedBlend) policy()    {}

// Merge evaluates a policy over the current outputs of its children.
// A child lookup miss is an invariant violation and aborts the merge.
func Merge(p Policy, lookup func(ecs.Entity) (Output, bool)) (Output, error) {
	switch p := p.(type) {
	case PriorityOverride:
		for _, child := range p.Routines {
			out, ok := lookup(child)
			if !ok {
				return Output{}, fmt.Errorf("%w: %v", ErrMissingChild, child)
			}
			if !out.Trivial() {
				return out, nil
			}
		}
		return Output{HasLinear: true}, nil

	case WeightedBlend:
		var merged Output
		total := 0.0
		for _, entry := range p.Entries {
			out, ok := lookup(entry.Routine)
			if !ok {
				return Output{}, fmt.Errorf("%w: %v", ErrMissingChild, entry.Routine)
			}
			merged.Linear = merged.Linear.Add(out.Linear.Mul(entry.Weight))
			merged.Angular = merged.Angular.Add(out.Angular.Mul(entry.Weight))
			merged.HasLinear = merged.HasLinear || out.HasLinear
			merged.HasAngular = merged.HasAngular || out.HasAngular
			total += entry.Weight
		}
		if total > 0 {
			merged.Linear = merged.Linear.Mul(1 / total)
			merged.Angular = merged.Angular.Mul(1 / total)
		}
		return merged, nil
	}
	return Output{}, fmt.Errorf("steering: unknown policy %T", p)
}
