// Package control provides the feedback controller for the actuator set.
//
// [Proportional] computes force = gain * (setpoint - position) for every
// configured motor, in the configured order:
//
//	ctrl := control.NewProportional(200.0, motors)
//	fv, err := ctrl.Compute(snapshot, setpoints)
//
// The controller keeps no state between calls. A tick with missing
// setpoints still yields forces for the motors that have one; the error
// lists the rest.
package control
