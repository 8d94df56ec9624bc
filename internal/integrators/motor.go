package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/physics"
)

// MotorConfig describes the plant owned by a MotorIntegrator.
type MotorConfig struct {
	Motors  dynamo.MotorSet
	Dt      float64
	Masses  map[dynamo.MotorID]float64
	Initial map[dynamo.MotorID]dynamo.MotorState
}

// MotorIntegrator owns the canonical state of every configured motor and
// advances it by exactly one dt per applied command.
type MotorIntegrator struct {
	motors     dynamo.MotorSet
	dt         float64
	plants     map[dynamo.MotorID]*physics.PointMass
	integrator dynamo.Integrator
	snap       dynamo.Snapshot
}

func NewMotorIntegrator(cfg MotorConfig) (*MotorIntegrator, error) {
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return nil, &dynamo.ConfigError{Field: "dt", Reason: fmt.Sprintf("must be positive and finite, got %v", cfg.Dt)}
	}
	if len(cfg.Motors) == 0 {
		return nil, &dynamo.ConfigError{Field: "motor_ids", Reason: "must not be empty"}
	}

	m := &MotorIntegrator{
		motors:     append(dynamo.MotorSet(nil), cfg.Motors...),
		dt:         cfg.Dt,
		plants:     make(map[dynamo.MotorID]*physics.PointMass, len(cfg.Motors)),
		integrator: NewEuler(),
		snap:       dynamo.Snapshot{States: make(map[dynamo.MotorID]dynamo.MotorState, len(cfg.Motors))},
	}

	for _, id := range cfg.Motors {
		plant := physics.NewPointMass()
		if mass, ok := cfg.Masses[id]; ok {
			p, err := physics.NewPointMassWithMass(mass)
			if err != nil {
				return nil, err
			}
			plant = p
		}
		m.plants[id] = plant
		m.snap.States[id] = cfg.Initial[id]
	}

	for id := range cfg.Masses {
		if !m.motors.Contains(id) {
			return nil, &dynamo.ConfigError{Field: "masses", Reason: fmt.Sprintf("motor %d is not configured", id)}
		}
	}
	for id, st := range cfg.Initial {
		if !m.motors.Contains(id) {
			return nil, &dynamo.ConfigError{Field: "initial_state", Reason: fmt.Sprintf("motor %d is not configured", id)}
		}
		if !st.IsValid() {
			return nil, &dynamo.ConfigError{Field: "initial_state", Reason: fmt.Sprintf("motor %d is not finite", id)}
		}
	}

	return m, nil
}

func (m *MotorIntegrator) Dt() float64 { return m.dt }

func (m *MotorIntegrator) Motors() dynamo.MotorSet { return m.motors }

// Snapshot returns a copy of the current state.
func (m *MotorIntegrator) Snapshot() dynamo.Snapshot {
	return m.snap.Clone()
}

// Apply integrates cmd into the state and returns the snapshot for the next
// tick. Motors without a force in cmd keep their previous state. The update
// is computed on a copy and committed only if every motor succeeds.
func (m *MotorIntegrator) Apply(cmd dynamo.Command) (dynamo.Snapshot, error) {
	switch {
	case cmd.Tick < m.snap.Tick:
		return m.Snapshot(), &dynamo.TickError{Node: "integrator", Tick: cmd.Tick, Wrapped: dynamo.ErrStaleMessage}
	case cmd.Tick > m.snap.Tick:
		return m.Snapshot(), &dynamo.TickError{Node: "integrator", Tick: cmd.Tick, Wrapped: dynamo.ErrOutOfSequence}
	}

	next := m.snap.Clone()
	for _, id := range m.motors {
		force, ok := cmd.Forces.Get(id)
		if !ok {
			continue
		}
		prev := m.snap.States[id]
		x := m.integrator.Step(m.plants[id], dynamo.State{prev.Position, prev.Velocity}, dynamo.Control{force}, m.snap.Time, m.dt)
		if !x.IsValid() {
			return m.Snapshot(), &dynamo.TickError{
				Node:    "integrator",
				Tick:    cmd.Tick,
				Wrapped: fmt.Errorf("motor %d: %w", id, dynamo.ErrInvalidState),
			}
		}
		next.States[id] = dynamo.MotorState{Position: x[0], Velocity: x[1]}
	}

	next.Tick = m.snap.Tick + 1
	next.Time = float64(next.Tick) * m.dt
	m.snap = next
	return m.Snapshot(), nil
}
