// Package dynamo provides the core primitives shared by the control nodes.
//
// The package defines the per-tick data model exchanged between nodes and
// the small interfaces the numerical parts are written against:
//
//   - [MotorID], [MotorSet]: the fixed, ordered set of configured actuators
//   - [MotorState], [Snapshot]: kinematic state, published once per tick
//   - [Setpoints]: externally supplied targets
//   - [ForceVector], [Report], [Command]: controller and monitor output
//   - [System], [Integrator]: ODE model and stepper used by the integrator
//   - [Metric]: per-tick observers summarised at the end of a run
//
// # Ownership
//
// Only the integrator mutates motor state. Every value handed to another
// component is a copy ([Snapshot.Clone], [ForceVector.Clone]); nodes never
// hold references into each other's memory.
//
// # Tick numbering
//
// The initial snapshot has tick 0. A [Command] carries the tick of the
// snapshot it was computed from, and applying it produces the snapshot for
// the next tick.
package dynamo
