// Package modelstore provides the live server-side object models consulted
// when a request must not rely on the descriptors cached on a session.
//
// StaticProvider serves a fixed set of models (built-in defaults plus any
// loaded definition files). RedisProvider serves per-endpoint overrides
// stored as JSON and falls back to another provider when a key is missing or
// the store is unavailable.
package modelstore
