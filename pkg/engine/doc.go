// Package engine carries downlink requests to connected devices.
//
// Each device connection exchanges length-prefixed CBOR frames (see
// wire.Envelope). A Client correlates request and response frames by
// message ID; a Hub keys clients by registration ID and implements the
// Sender the dispatcher uses:
//
//	hub := engine.NewHub()
//	hub.Attach(reg, conn)
//	resp, err := hub.Send(ctx, reg, wire.ReadRequest{Target: addr})
//
// Frame format:
//
//	+----------------+------------------+
//	| Length (4 B)   | CBOR envelope    |
//	| big-endian     | (Length bytes)   |
//	+----------------+------------------+
package engine
