package control

import (
	"errors"
	"reflect"
	"testing"

	"github.com/san-kum/motorctl/internal/dynamo"
)

func restSnapshot(tick uint64, ids ...dynamo.MotorID) dynamo.Snapshot {
	snap := dynamo.Snapshot{Tick: tick, States: make(map[dynamo.MotorID]dynamo.MotorState)}
	for _, id := range ids {
		snap.States[id] = dynamo.MotorState{}
	}
	return snap
}

func TestProportional(t *testing.T) {
	ctrl := NewProportional(200.0, dynamo.MotorSet{36, 37})
	snap := restSnapshot(0, 36, 37)
	sp := dynamo.Setpoints{Targets: map[dynamo.MotorID]float64{36: 1.0, 37: 0.0}}

	fv, err := ctrl.Compute(snap, sp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(fv.IDs, []dynamo.MotorID{36, 37}) {
		t.Errorf("ids out of configured order: %v", fv.IDs)
	}
	if fv.Forces[0] != 200.0 || fv.Forces[1] != 0.0 {
		t.Errorf("expected [200 0], got %v", fv.Forces)
	}
}

func TestProportionalErrorSign(t *testing.T) {
	ctrl := NewProportional(10.0, dynamo.MotorSet{1})
	snap := dynamo.Snapshot{States: map[dynamo.MotorID]dynamo.MotorState{1: {Position: 2.0}}}

	fv, err := ctrl.Compute(snap, dynamo.Setpoints{Targets: map[dynamo.MotorID]float64{1: 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	if fv.Forces[0] != -15.0 {
		t.Errorf("expected -15 for a position past the setpoint, got %f", fv.Forces[0])
	}
}

func TestProportionalIdempotent(t *testing.T) {
	ctrl := NewProportional(200.0, dynamo.MotorSet{36, 37})
	snap := dynamo.Snapshot{Tick: 7, States: map[dynamo.MotorID]dynamo.MotorState{
		36: {Position: 0.3, Velocity: 1},
		37: {Position: -0.1},
	}}
	sp := dynamo.Setpoints{Targets: map[dynamo.MotorID]float64{36: 1.0, 37: 0.25}}

	first, err := ctrl.Compute(snap, sp)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := ctrl.Compute(snap, sp)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestProportionalZeroGain(t *testing.T) {
	ctrl := NewProportional(0, dynamo.MotorSet{36, 37})
	snap := dynamo.Snapshot{States: map[dynamo.MotorID]dynamo.MotorState{36: {Position: -3}, 37: {Position: 8}}}

	fv, err := ctrl.Compute(snap, dynamo.Setpoints{Targets: map[dynamo.MotorID]float64{36: 100, 37: -100}})
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range fv.Forces {
		if f != 0 {
			t.Errorf("force[%d] should be 0 with zero gain, got %f", i, f)
		}
	}
}

func TestProportionalMissingSetpoint(t *testing.T) {
	ctrl := NewProportional(200.0, dynamo.MotorSet{36, 37})
	snap := restSnapshot(4, 36, 37)

	fv, err := ctrl.Compute(snap, dynamo.Setpoints{Targets: map[dynamo.MotorID]float64{36: 1.0}})
	if !errors.Is(err, dynamo.ErrMissingSetpoint) {
		t.Fatalf("expected ErrMissingSetpoint, got %v", err)
	}

	var missing *dynamo.MissingSetpointError
	if !errors.As(err, &missing) {
		t.Fatal("error is not a MissingSetpointError")
	}
	if !reflect.DeepEqual(missing.IDs, []dynamo.MotorID{37}) || missing.Tick != 4 {
		t.Errorf("unexpected missing report %+v", missing)
	}

	if fv.Len() != 1 {
		t.Fatalf("expected a force for motor 36 only, got %v", fv.IDs)
	}
	if f, ok := fv.Get(36); !ok || f != 200.0 {
		t.Errorf("motor 36 force: got %v, %v", f, ok)
	}
	if _, ok := fv.Get(37); ok {
		t.Error("motor 37 should not be in the vector")
	}
}

func TestProportionalParams(t *testing.T) {
	var c dynamo.Configurable = NewProportional(200.0, dynamo.MotorSet{36})
	if c.GetParams()["Gain"] != 200.0 {
		t.Errorf("unexpected params %v", c.GetParams())
	}
}
