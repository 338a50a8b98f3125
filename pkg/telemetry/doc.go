// Package telemetry carries log lines and device data out of the bridge.
//
// Sink receives the one-line messages emitted while dispatching requests
// (failures, transport errors, write audits). Ingestor receives device data:
// observation notifications, unsolicited read results and write
// acknowledgments. Bus implements both by queueing JSON records for a
// Publisher without ever blocking the caller; when its queue is full the
// record is dropped and counted.
package telemetry
