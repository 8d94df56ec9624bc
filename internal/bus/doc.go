// Package bus is the in-process publish/subscribe transport between the
// control nodes.
//
// Every published message is encoded to a CBOR [Frame] before delivery, so
// a subscriber always decodes its own copy and never aliases the
// publisher's memory. Publish never blocks on a slow subscriber: a frame
// that does not fit in a subscriber's queue is dropped for that subscriber
// and counted.
//
// Topics are fixed at compile time:
//
//	/state/motors    integrator -> controller       dynamo.Snapshot
//	/cmd/setpoint    setpoint source -> controller  dynamo.Setpoints
//	/cmd/force_raw   controller -> monitor          dynamo.Command (unchecked)
//	/cmd/force       monitor -> integrator          dynamo.Command
package bus
