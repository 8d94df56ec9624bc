package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/motorctl/internal/dynamo"
)

const DefaultMass = 1.0

// PointMass is a unit of inertia driven by a single force.
type PointMass struct {
	Mass float64
}

func NewPointMass() *PointMass {
	return &PointMass{Mass: DefaultMass}
}

func NewPointMassWithMass(mass float64) (*PointMass, error) {
	if mass <= 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
		return nil, &dynamo.ConfigError{Field: "masses", Reason: fmt.Sprintf("mass %v must be positive and finite", mass)}
	}
	return &PointMass{Mass: mass}, nil
}

func (p *PointMass) StateDim() int   { return 2 }
func (p *PointMass) ControlDim() int { return 1 }

func (p *PointMass) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}
	return dynamo.State{x[1], force / p.Mass}
}

func (p *PointMass) Energy(x dynamo.State) float64 {
	return 0.5 * p.Mass * x[1] * x[1]
}

func (p *PointMass) GetParams() map[string]float64 {
	return map[string]float64{"mass": p.Mass}
}
