// Package setpoint produces the target positions fed to the controller.
package setpoint

import (
	"math"

	"github.com/san-kum/motorctl/internal/config"
	"github.com/san-kum/motorctl/internal/dynamo"
)

// Source returns the targets for producer tick n at time t seconds.
type Source interface {
	At(tick uint64, t float64) dynamo.Setpoints
}

// Constant holds every target fixed. Motors absent from targets get no
// setpoint at all, which the controller reports as missing.
type Constant struct {
	targets map[dynamo.MotorID]float64
}

func NewConstant(targets map[dynamo.MotorID]float64) *Constant {
	c := &Constant{targets: make(map[dynamo.MotorID]float64, len(targets))}
	for id, v := range targets {
		c.targets[id] = v
	}
	return c
}

func (c *Constant) At(tick uint64, t float64) dynamo.Setpoints {
	sp := dynamo.Setpoints{Tick: tick, Targets: make(map[dynamo.MotorID]float64, len(c.targets))}
	for id, v := range c.targets {
		sp.Targets[id] = v
	}
	return sp
}

// Sine drives every motor along offset + amplitude*sin(2*pi*f*t).
type Sine struct {
	Motors    dynamo.MotorSet
	Offset    float64
	Amplitude float64
	Frequency float64
}

func NewSine(motors dynamo.MotorSet, offset, amplitude, frequency float64) *Sine {
	return &Sine{Motors: motors, Offset: offset, Amplitude: amplitude, Frequency: frequency}
}

func (s *Sine) At(tick uint64, t float64) dynamo.Setpoints {
	target := s.Offset + s.Amplitude*math.Sin(2*math.Pi*s.Frequency*t)
	sp := dynamo.Setpoints{Tick: tick, Targets: make(map[dynamo.MotorID]float64, len(s.Motors))}
	for _, id := range s.Motors {
		sp.Targets[id] = target
	}
	return sp
}

func (s *Sine) GetParams() map[string]float64 {
	return map[string]float64{
		"Offset":    s.Offset,
		"Amplitude": s.Amplitude,
		"Frequency": s.Frequency,
	}
}

// FromConfig builds the source named by cfg.Setpoint. cfg must be valid.
func FromConfig(cfg *config.Config) Source {
	if cfg.Setpoint.Kind == config.SetpointSine {
		offset, amplitude, frequency := cfg.Setpoint.SineParams()
		return NewSine(cfg.Motors(), offset, amplitude, frequency)
	}
	targets := make(map[dynamo.MotorID]float64, len(cfg.Setpoint.Targets))
	for id, v := range cfg.Setpoint.Targets {
		targets[dynamo.MotorID(id)] = v
	}
	return NewConstant(targets)
}
