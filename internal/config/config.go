package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/integrators"
)

const (
	DefaultDt         = 0.001
	DefaultGain       = 200.0
	DefaultDuration   = 1.0
	DefaultQueueDepth = 16
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"

	SetpointConstant = "constant"
	SetpointSine     = "sine"

	DefaultSineOffset    = 2000.0
	DefaultSineAmplitude = 1000.0
	DefaultSineFrequency = 1.0
)

var DefaultMotorIDs = []int{36, 37}

// Config is the startup parameter set. It is validated once and not
// modified afterwards.
type Config struct {
	MotorIDs     []int                   `yaml:"motor_ids"`
	Dt           float64                 `yaml:"dt"`
	Gain         float64                 `yaml:"gain"`
	ForceLimit   *float64                `yaml:"force_limit,omitempty"`
	Masses       map[int]float64         `yaml:"masses,omitempty"`
	InitialState map[int]InitStateConfig `yaml:"initial_state,omitempty"`
	Duration     float64                 `yaml:"duration"`
	Deadline     float64                 `yaml:"deadline,omitempty"`
	QueueDepth   int                     `yaml:"queue_depth"`
	Setpoint     SetpointConfig          `yaml:"setpoint"`
	LogLevel     string                  `yaml:"log_level"`
	LogFormat    string                  `yaml:"log_format"`
}

type InitStateConfig struct {
	Position float64 `yaml:"position"`
	Velocity float64 `yaml:"velocity"`
}

type SetpointConfig struct {
	Kind      string          `yaml:"kind"`
	Targets   map[int]float64 `yaml:"targets,omitempty"`
	Offset    float64         `yaml:"offset,omitempty"`
	Amplitude float64         `yaml:"amplitude,omitempty"`
	Frequency float64         `yaml:"frequency,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		MotorIDs:   append([]int(nil), DefaultMotorIDs...),
		Dt:         DefaultDt,
		Gain:       DefaultGain,
		Duration:   DefaultDuration,
		QueueDepth: DefaultQueueDepth,
		Setpoint: SetpointConfig{
			Kind:    SetpointConstant,
			Targets: map[int]float64{36: 1.0, 37: 0.0},
		},
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy so presets are never modified in place.
func (c *Config) Clone() *Config {
	out := *c
	out.MotorIDs = append([]int(nil), c.MotorIDs...)
	if c.ForceLimit != nil {
		limit := *c.ForceLimit
		out.ForceLimit = &limit
	}
	out.Masses = cloneMap(c.Masses)
	out.Setpoint.Targets = cloneMap(c.Setpoint.Targets)
	if c.InitialState != nil {
		out.InitialState = make(map[int]InitStateConfig, len(c.InitialState))
		for k, v := range c.InitialState {
			out.InitialState[k] = v
		}
	}
	return &out
}

func cloneMap(m map[int]float64) map[int]float64 {
	if m == nil {
		return nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate rejects configurations the control loop must never start with.
// Every error unwraps to dynamo.ErrConfig.
func (c *Config) Validate() error {
	motors, err := dynamo.NewMotorSet(c.MotorIDs)
	if err != nil {
		return err
	}
	if !positive(c.Dt) {
		return &dynamo.ConfigError{Field: "dt", Reason: fmt.Sprintf("must be positive and finite, got %v", c.Dt)}
	}
	if !representable(c.Dt) {
		return &dynamo.ConfigError{Field: "dt", Reason: fmt.Sprintf("%vs must lie between 1ns and %v", c.Dt, time.Duration(math.MaxInt64))}
	}
	if !positive(c.Gain) {
		return &dynamo.ConfigError{Field: "gain", Reason: fmt.Sprintf("must be positive and finite, got %v", c.Gain)}
	}
	if c.ForceLimit != nil && !positive(*c.ForceLimit) {
		return &dynamo.ConfigError{Field: "force_limit", Reason: fmt.Sprintf("must be positive and finite, got %v", *c.ForceLimit)}
	}
	for id, m := range c.Masses {
		if !motors.Contains(dynamo.MotorID(id)) {
			return &dynamo.ConfigError{Field: "masses", Reason: fmt.Sprintf("motor %d is not configured", id)}
		}
		if !positive(m) {
			return &dynamo.ConfigError{Field: "masses", Reason: fmt.Sprintf("motor %d mass must be positive, got %v", id, m)}
		}
	}
	for id, st := range c.InitialState {
		if !motors.Contains(dynamo.MotorID(id)) {
			return &dynamo.ConfigError{Field: "initial_state", Reason: fmt.Sprintf("motor %d is not configured", id)}
		}
		if !(dynamo.MotorState{Position: st.Position, Velocity: st.Velocity}).IsValid() {
			return &dynamo.ConfigError{Field: "initial_state", Reason: fmt.Sprintf("motor %d is not finite", id)}
		}
	}
	if c.Duration < 0 || math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return &dynamo.ConfigError{Field: "duration", Reason: fmt.Sprintf("must be non-negative, got %v", c.Duration)}
	}
	if c.Deadline < 0 || math.IsNaN(c.Deadline) || math.IsInf(c.Deadline, 0) {
		return &dynamo.ConfigError{Field: "deadline", Reason: fmt.Sprintf("must be non-negative, got %v", c.Deadline)}
	}
	if c.Deadline > 0 && !representable(c.Deadline) {
		return &dynamo.ConfigError{Field: "deadline", Reason: fmt.Sprintf("%vs must lie between 1ns and %v", c.Deadline, time.Duration(math.MaxInt64))}
	}
	if c.QueueDepth < 1 {
		return &dynamo.ConfigError{Field: "queue_depth", Reason: fmt.Sprintf("must be at least 1, got %d", c.QueueDepth)}
	}

	switch c.Setpoint.Kind {
	case SetpointConstant:
		for id, v := range c.Setpoint.Targets {
			if !motors.Contains(dynamo.MotorID(id)) {
				return &dynamo.ConfigError{Field: "setpoint.targets", Reason: fmt.Sprintf("motor %d is not configured", id)}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &dynamo.ConfigError{Field: "setpoint.targets", Reason: fmt.Sprintf("motor %d target is not finite", id)}
			}
		}
	case SetpointSine:
		if !finite(c.Setpoint.Offset) {
			return &dynamo.ConfigError{Field: "setpoint.offset", Reason: fmt.Sprintf("must be finite, got %v", c.Setpoint.Offset)}
		}
		if !finite(c.Setpoint.Amplitude) {
			return &dynamo.ConfigError{Field: "setpoint.amplitude", Reason: fmt.Sprintf("must be finite, got %v", c.Setpoint.Amplitude)}
		}
		if c.Setpoint.Frequency < 0 || !finite(c.Setpoint.Frequency) {
			return &dynamo.ConfigError{Field: "setpoint.frequency", Reason: fmt.Sprintf("must be non-negative and finite, got %v", c.Setpoint.Frequency)}
		}
	default:
		return &dynamo.ConfigError{Field: "setpoint.kind", Reason: fmt.Sprintf("unknown kind %q", c.Setpoint.Kind)}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &dynamo.ConfigError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &dynamo.ConfigError{Field: "log_format", Reason: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// representable reports whether seconds converts to a positive
// time.Duration without truncating to zero or overflowing.
func representable(seconds float64) bool {
	ns := seconds * float64(time.Second)
	return ns >= 1 && ns < math.MaxInt64
}

// Motors returns the configured ids in order. Call Validate first.
func (c *Config) Motors() dynamo.MotorSet {
	set := make(dynamo.MotorSet, len(c.MotorIDs))
	for i, id := range c.MotorIDs {
		set[i] = dynamo.MotorID(id)
	}
	return set
}

// Period is dt as a wall-clock duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Dt * float64(time.Second))
}

// DeadlineDuration is the per-tick budget of a node; it defaults to dt.
func (c *Config) DeadlineDuration() time.Duration {
	if c.Deadline > 0 {
		return time.Duration(c.Deadline * float64(time.Second))
	}
	return c.Period()
}

// Ticks is the number of integration steps that fit in Duration.
func (c *Config) Ticks() int {
	return int(math.Round(c.Duration / c.Dt))
}

func (c *Config) MotorConfig() integrators.MotorConfig {
	mc := integrators.MotorConfig{Motors: c.Motors(), Dt: c.Dt}
	if len(c.Masses) > 0 {
		mc.Masses = make(map[dynamo.MotorID]float64, len(c.Masses))
		for id, m := range c.Masses {
			mc.Masses[dynamo.MotorID(id)] = m
		}
	}
	if len(c.InitialState) > 0 {
		mc.Initial = make(map[dynamo.MotorID]dynamo.MotorState, len(c.InitialState))
		for id, st := range c.InitialState {
			mc.Initial[dynamo.MotorID(id)] = dynamo.MotorState{Position: st.Position, Velocity: st.Velocity}
		}
	}
	return mc
}

// SineParams fills in the trajectory defaults for zero fields.
func (s SetpointConfig) SineParams() (offset, amplitude, frequency float64) {
	offset, amplitude, frequency = s.Offset, s.Amplitude, s.Frequency
	if offset == 0 && amplitude == 0 {
		offset, amplitude = DefaultSineOffset, DefaultSineAmplitude
	}
	if frequency == 0 {
		frequency = DefaultSineFrequency
	}
	return offset, amplitude, frequency
}
