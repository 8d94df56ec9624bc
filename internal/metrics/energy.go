package metrics

import (
	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/physics"
)

// KineticEnergy is the mean over ticks of the total kinetic energy of all
// motors. Motors without a configured mass use physics.DefaultMass.
type KineticEnergy struct {
	name    string
	bodies  map[dynamo.MotorID]*physics.PointMass
	samples int
	total   float64
}

func NewKineticEnergy(masses map[dynamo.MotorID]float64) *KineticEnergy {
	bodies := make(map[dynamo.MotorID]*physics.PointMass, len(masses))
	for id, v := range masses {
		bodies[id] = &physics.PointMass{Mass: v}
	}
	return &KineticEnergy{name: "kinetic_energy", bodies: bodies}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(snap dynamo.Snapshot, cmd dynamo.Command) {
	for id, st := range snap.States {
		body, ok := e.bodies[id]
		if !ok {
			body = physics.NewPointMass()
		}
		e.total += body.Energy(dynamo.State{st.Position, st.Velocity})
	}
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.samples = 0
}
