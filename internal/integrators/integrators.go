// Package integrators advances a body's translational state by one step.
package integrators

import "fmt"

// State is laid out as positions followed by velocities of equal length.
type State []float64

// System returns dx/dt for a state at time t.
type System interface {
	Derive(x State, t float64) State
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// SystemFunc adapts a plain function to System.
type SystemFunc func(x State, t float64) State

func (f SystemFunc) Derive(x State, t float64) State { return f(x, t) }

// Names lists the integrators New accepts.
var Names = []string{"euler", "rk4", "verlet"}

func New(name string) (Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4", "":
		return NewRK4(), nil
	case "verlet":
		return NewVerlet(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}
