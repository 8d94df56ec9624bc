package integrators

import "github.com/san-kum/motorctl/internal/dynamo"

// Euler is the explicit (forward) Euler step: every component of x moves by
// dt times the derivative evaluated at the start of the interval. For a
// [position, velocity] state this means the position update uses the
// velocity from before the step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
