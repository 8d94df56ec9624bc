package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/motorctl/internal/dynamo"
)

func TestPointMassDerivative(t *testing.T) {
	pm := NewPointMass()

	dx := pm.Derive(dynamo.State{0.5, 2.0}, dynamo.Control{200.0}, 0)
	if dx[0] != 2.0 {
		t.Errorf("d(position) should equal velocity, got %f", dx[0])
	}
	if dx[1] != 200.0 {
		t.Errorf("unit mass acceleration should equal force, got %f", dx[1])
	}

	dx = pm.Derive(dynamo.State{0, 0}, nil, 0)
	if dx[1] != 0 {
		t.Errorf("no control should give zero acceleration, got %f", dx[1])
	}
}

func TestPointMassHeavy(t *testing.T) {
	pm, err := NewPointMassWithMass(4.0)
	if err != nil {
		t.Fatal(err)
	}

	dx := pm.Derive(dynamo.State{0, 0}, dynamo.Control{10}, 0)
	if math.Abs(dx[1]-2.5) > 1e-12 {
		t.Errorf("expected acceleration 2.5, got %f", dx[1])
	}
	if e := pm.Energy(dynamo.State{0, 2}); e != 8 {
		t.Errorf("expected kinetic energy 8, got %f", e)
	}
}

func TestPointMassRejectsBadMass(t *testing.T) {
	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewPointMassWithMass(m); !errors.Is(err, dynamo.ErrConfig) {
			t.Errorf("mass %v: expected ErrConfig, got %v", m, err)
		}
	}
}
