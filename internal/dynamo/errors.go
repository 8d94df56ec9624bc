package dynamo

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the control pipeline.
var (
	// ErrConfig indicates an invalid configuration. Fatal, never retried.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrMissingSetpoint indicates a tick without a setpoint for some motor.
	ErrMissingSetpoint = errors.New("dynamo: missing setpoint")

	// ErrStaleMessage indicates a message older than the last one accepted.
	ErrStaleMessage = errors.New("dynamo: stale message")

	// ErrOutOfSequence indicates a command for a tick the integrator has not reached.
	ErrOutOfSequence = errors.New("dynamo: message ahead of current tick")

	// ErrSafetyExceeded indicates the force norm was above the configured limit.
	ErrSafetyExceeded = errors.New("dynamo: force norm exceeded limit")

	// ErrTimingFault indicates a node missed its per-tick deadline.
	ErrTimingFault = errors.New("dynamo: deadline missed")

	// ErrInvalidState indicates a state with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfig.Error(), e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// MissingSetpointError lists the motors that had no setpoint on a tick.
type MissingSetpointError struct {
	Tick uint64
	IDs  []MotorID
}

func (e *MissingSetpointError) Error() string {
	return fmt.Sprintf("%s for motors %v at tick %d", ErrMissingSetpoint.Error(), e.IDs, e.Tick)
}

func (e *MissingSetpointError) Unwrap() error { return ErrMissingSetpoint }

// TimingFault reports a node that took longer than its deadline for a tick.
type TimingFault struct {
	Node     string
	Tick     uint64
	Elapsed  time.Duration
	Deadline time.Duration
}

func (e *TimingFault) Error() string {
	return fmt.Sprintf("%s: %s tick %d took %v (deadline %v)", ErrTimingFault.Error(), e.Node, e.Tick, e.Elapsed, e.Deadline)
}

func (e *TimingFault) Unwrap() error { return ErrTimingFault }

// TickError wraps an error with the node and tick it happened on.
type TickError struct {
	Node    string
	Tick    uint64
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("%s tick %d: %v", e.Node, e.Tick, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
