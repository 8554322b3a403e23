package integrators

// Euler is semi-implicit: velocities update first and positions use the new
// velocities, which keeps constant-thrust motion stable.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys System, x State, t, dt float64) State {
	n := len(x)
	half := n / 2
	dx := sys.Derive(x, t)
	result := make(State, n)
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + dt*dx[half+i]
		result[i] = x[i] + dt*result[half+i]
	}
	return result
}
