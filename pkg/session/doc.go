// Package session holds per-device state consulted while building downlink
// requests and updated while routing their responses.
//
// A Client is owned by one device registration. Every mutation of its
// pending requests, cached object models, cached values and observations
// happens under the client's mutex, since dispatch completions for the same
// device can arrive concurrently from independent in-flight requests.
//
// PendingRequest is the single ordering primitive offered to callers: a
// caller that needs to serialize work (for example bootstrap reads after
// registration) registers a pending request for a path and waits on it
// before issuing the next operation.
package session
