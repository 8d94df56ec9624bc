// Package physics provides the plant model used by the integrator.
//
// Each actuator is a [PointMass] implementing [dynamo.System]: the state is
// [position, velocity] and the control is a single force,
//
//	d(position)/dt = velocity
//	d(velocity)/dt = force / mass
//
// Mass defaults to 1 when no per-motor mass is configured.
package physics
