// Package strategy holds the records of long-lived behaviours that own and
// rewire a craft's steering routines.
package strategy

import (
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/physics"
)

type Kind int

const (
	KindRunCircuit Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case KindRunCircuit:
		return "run_circuit"
	}
	return "unknown"
}

// Phase is the lifecycle state of a strategy.
type Phase int

const (
	Uninitialized Phase = iota
	Active
)

func (p Phase) String() string {
	if p == Active {
		return "active"
	}
	return "uninitialized"
}

// Output is what downstream systems read from a strategy.
type Output struct {
	// SteeringRoutine drives the craft's engine input. Nil when unset.
	SteeringRoutine ecs.Entity
	FireWeapons     bool
}

// Params is the closed set of strategy parameter records.
type Params interface {
	Kind() Kind
	params()
}

// Strategy is a per-craft behaviour. State holds whatever the butler built
// for it and is nil until the strategy is Active.
type Strategy struct {
	Craft  ecs.Entity
	Phase  Phase
	Params Params
	State  any
	Output Output
}

func New(craft ecs.Entity, params Params) Strategy {
	return Strategy{Craft: craft, Params: params}
}

func (s *Strategy) Kind() Kind     { return s.Params.Kind() }
func (s *Strategy) IsActive() bool { return s.Phase == Active }

// CruiseSpeed is the speed a circuit runner passes through waypoints at.
const CruiseSpeed = 80.0

// ArrivalTolerance is how close a circuit runner must get to a waypoint.
const ArrivalTolerance = 5.0

// RunCircuit patrols a cycle of waypoints starting at InitialPoint.
type RunCircuit struct {
	InitialPoint ecs.Entity
}

func (RunCircuit) Kind() Kind { return KindRunCircuit }
func (RunCircuit) params()    {}

// RunCircuitState references the routines a RunCircuit strategy owns.
type RunCircuitState struct {
	Composer       ecs.Entity
	Arrive         ecs.Entity
	AvoidCollision ecs.Entity
}

// CircuitWaypoint is one point of a patrol cycle. NextPoint links to the
// following waypoint entity.
type CircuitWaypoint struct {
	NextPoint ecs.Entity
	Collider  physics.ColliderHandle
}
