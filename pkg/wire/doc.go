// Package wire defines the downlink request and response types exchanged
// with the LwM2M protocol engine, and their CBOR frame encoding.
//
// # Requests
//
// Request is a closed sum type. The concrete types are ReadRequest,
// DiscoverRequest, ObserveRequest, CancelObserveRequest, ExecuteRequest,
// WriteRequest (replace or update mode) and WriteAttributesRequest.
//
// # Responses
//
// Response is a closed sum type discriminated by ResponseKind. Consumers
// switch on Kind(); the kind set is annotated for the exhaustive linter so a
// new kind cannot be added without updating every switch.
//
// # Frames
//
// Frames are CBOR maps with integer keys (see Envelope). Written values travel
// as their canonical text form together with the declared resource type and
// are coerced back on decode, so typed values (object links, timestamps,
// opaque bytes) survive a round trip.
package wire
