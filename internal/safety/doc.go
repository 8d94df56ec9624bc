// Package safety evaluates the aggregate force of each tick.
//
// A [Monitor] computes the Euclidean norm of a [dynamo.ForceVector]. When a
// limit is configured and the norm exceeds it, every component is scaled
// by limit/norm, which bounds the magnitude while keeping the ratio between
// motors. Without a limit the monitor only reports.
//
// Transitions between NORMAL and EXCEEDED are delivered to the handlers
// registered with [Monitor.OnTransition].
package safety
