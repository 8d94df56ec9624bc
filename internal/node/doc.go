// Package node runs the control pipeline as independent loops.
//
// Each node owns its component, its own ticker and its own bus
// subscriptions. Nodes never call each other; the only coupling is the
// topics in package bus:
//
//	IntegratorNode  --/state/motors-->   ControllerNode
//	SetpointNode    --/cmd/setpoint-->   ControllerNode
//	ControllerNode  --/cmd/force_raw-->  MonitorNode
//	MonitorNode     --/cmd/force-->      IntegratorNode
//
// The integrator paces the loop. On every tick it applies the command
// computed from its current snapshot, if one has arrived, and publishes
// the resulting snapshot. The controller and the monitor react to input
// as it arrives.
//
// Inputs carry tick numbers. A [SequenceGuard] per input discards frames
// older than the last one accepted; equal ticks are processed again and
// give the same result. Per-tick problems are reported to [Faults] and
// never stop a loop.
package node
