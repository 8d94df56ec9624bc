package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/motorctl/internal/dynamo"
)

func newPair(t *testing.T, dt float64) *MotorIntegrator {
	t.Helper()
	m, err := NewMotorIntegrator(MotorConfig{Motors: dynamo.MotorSet{36, 37}, Dt: dt})
	if err != nil {
		t.Fatalf("NewMotorIntegrator: %v", err)
	}
	return m
}

func command(tick uint64, ids []dynamo.MotorID, forces []float64) dynamo.Command {
	return dynamo.Command{Tick: tick, Forces: dynamo.ForceVector{Tick: tick, IDs: ids, Forces: forces}}
}

func TestMotorIntegratorInitialState(t *testing.T) {
	m := newPair(t, 0.001)
	snap := m.Snapshot()

	if snap.Tick != 0 || snap.Time != 0 {
		t.Errorf("expected tick 0 at t=0, got tick %d t=%f", snap.Tick, snap.Time)
	}
	if !snap.Covers(dynamo.MotorSet{36, 37}) {
		t.Fatal("initial snapshot is missing motors")
	}
	for id, st := range snap.States {
		if st.Position != 0 || st.Velocity != 0 {
			t.Errorf("motor %d should start at rest, got %+v", id, st)
		}
	}
}

func TestMotorIntegratorClosedForm(t *testing.T) {
	const (
		force = 10.0
		mass  = 2.0
		dt    = 0.01
		k     = 50
	)

	m, err := NewMotorIntegrator(MotorConfig{
		Motors: dynamo.MotorSet{36},
		Dt:     dt,
		Masses: map[dynamo.MotorID]float64{36: mass},
	})
	if err != nil {
		t.Fatal(err)
	}

	var positionSum float64
	for i := uint64(0); i < k; i++ {
		positionSum += m.Snapshot().States[36].Velocity * dt
		if _, err := m.Apply(command(i, []dynamo.MotorID{36}, []float64{force})); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	st := m.Snapshot().States[36]
	wantVel := force / mass * k * dt
	wantPos := force / mass * dt * dt * k * (k - 1) / 2

	if math.Abs(st.Velocity-wantVel) > 1e-9 {
		t.Errorf("velocity: got %.12f, want %.12f", st.Velocity, wantVel)
	}
	if math.Abs(st.Position-wantPos) > 1e-9 {
		t.Errorf("position: got %.12f, want %.12f", st.Position, wantPos)
	}
	if math.Abs(st.Position-positionSum) > 1e-9 {
		t.Errorf("position %.12f does not match sum of pre-step velocities %.12f", st.Position, positionSum)
	}
	if got := m.Snapshot().Time; math.Abs(got-k*dt) > 1e-12 {
		t.Errorf("time: got %f, want %f", got, k*dt)
	}
}

func TestMotorIntegratorMissingMotorUnchanged(t *testing.T) {
	m, err := NewMotorIntegrator(MotorConfig{
		Motors:  dynamo.MotorSet{36, 37},
		Dt:      0.001,
		Initial: map[dynamo.MotorID]dynamo.MotorState{37: {Position: 0.5, Velocity: 0.25}},
	})
	if err != nil {
		t.Fatal(err)
	}

	cmd := command(0, []dynamo.MotorID{36}, []float64{200})
	cmd.Missing = []dynamo.MotorID{37}

	snap, err := m.Apply(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Tick != 1 {
		t.Errorf("tick should advance, got %d", snap.Tick)
	}
	if got := snap.States[37]; got.Position != 0.5 || got.Velocity != 0.25 {
		t.Errorf("motor 37 should be unchanged, got %+v", got)
	}
	if got := snap.States[36]; math.Abs(got.Velocity-0.2) > 1e-12 {
		t.Errorf("motor 36 velocity: got %f, want 0.2", got.Velocity)
	}
}

func TestMotorIntegratorSequence(t *testing.T) {
	m := newPair(t, 0.001)

	if _, err := m.Apply(command(1, nil, nil)); !errors.Is(err, dynamo.ErrOutOfSequence) {
		t.Errorf("expected ErrOutOfSequence, got %v", err)
	}
	if _, err := m.Apply(command(0, []dynamo.MotorID{36}, []float64{1})); err != nil {
		t.Fatal(err)
	}

	before := m.Snapshot()
	if _, err := m.Apply(command(0, []dynamo.MotorID{36}, []float64{1})); !errors.Is(err, dynamo.ErrStaleMessage) {
		t.Errorf("expected ErrStaleMessage, got %v", err)
	}
	after := m.Snapshot()
	if after.Tick != before.Tick || after.States[36] != before.States[36] {
		t.Error("stale command mutated state")
	}
}

func TestMotorIntegratorAtomicTick(t *testing.T) {
	m := newPair(t, 0.001)
	if _, err := m.Apply(command(0, []dynamo.MotorID{36, 37}, []float64{10, 10})); err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()

	_, err := m.Apply(command(1, []dynamo.MotorID{36, 37}, []float64{10, math.Inf(1)}))
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	after := m.Snapshot()
	if after.Tick != before.Tick {
		t.Errorf("tick advanced on a failed update: %d -> %d", before.Tick, after.Tick)
	}
	if after.States[36] != before.States[36] {
		t.Error("motor 36 was committed although motor 37 failed")
	}
}

func TestMotorIntegratorRejectsConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  MotorConfig
	}{
		{"zero dt", MotorConfig{Motors: dynamo.MotorSet{36}, Dt: 0}},
		{"negative dt", MotorConfig{Motors: dynamo.MotorSet{36}, Dt: -0.001}},
		{"nan dt", MotorConfig{Motors: dynamo.MotorSet{36}, Dt: math.NaN()}},
		{"inf dt", MotorConfig{Motors: dynamo.MotorSet{36}, Dt: math.Inf(1)}},
		{"no motors", MotorConfig{Dt: 0.001}},
		{"bad mass", MotorConfig{Motors: dynamo.MotorSet{36}, Dt: 0.001, Masses: map[dynamo.MotorID]float64{36: 0}}},
		{"unknown mass", MotorConfig{Motors: dynamo.MotorSet{36}, Dt: 0.001, Masses: map[dynamo.MotorID]float64{5: 1}}},
		{"unknown initial", MotorConfig{Motors: dynamo.MotorSet{36}, Dt: 0.001, Initial: map[dynamo.MotorID]dynamo.MotorState{5: {}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMotorIntegrator(tt.cfg); !errors.Is(err, dynamo.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}
