package control

import "github.com/san-kum/motorctl/internal/dynamo"

type Proportional struct {
	Gain   float64
	motors dynamo.MotorSet
}

func NewProportional(gain float64, motors dynamo.MotorSet) *Proportional {
	return &Proportional{
		Gain:   gain,
		motors: append(dynamo.MotorSet(nil), motors...),
	}
}

// Compute returns the force vector for snap. Motors without a setpoint or
// without a state are left out of the vector and reported through a
// *dynamo.MissingSetpointError.
func (p *Proportional) Compute(snap dynamo.Snapshot, sp dynamo.Setpoints) (dynamo.ForceVector, error) {
	fv := dynamo.ForceVector{
		Tick:   snap.Tick,
		IDs:    make([]dynamo.MotorID, 0, len(p.motors)),
		Forces: make([]float64, 0, len(p.motors)),
	}

	var missing []dynamo.MotorID
	for _, id := range p.motors {
		target, ok := sp.Targets[id]
		st, known := snap.States[id]
		if !ok || !known {
			missing = append(missing, id)
			continue
		}
		fv.IDs = append(fv.IDs, id)
		fv.Forces = append(fv.Forces, p.Gain*(target-st.Position))
	}

	if len(missing) > 0 {
		return fv, &dynamo.MissingSetpointError{Tick: snap.Tick, IDs: missing}
	}
	return fv, nil
}

func (p *Proportional) Motors() dynamo.MotorSet { return p.motors }

// GetParams returns tunable parameters for display
func (p *Proportional) GetParams() map[string]float64 {
	return map[string]float64{
		"Gain": p.Gain,
	}
}
