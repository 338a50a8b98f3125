// Package downlink turns "apply operation X to resource path P" into a
// device request, dispatches it asynchronously and routes the outcome.
//
// The pipeline is:
//
//	Builder.Build     -> wire.Request (or a BuildError; nothing is sent)
//	Dispatcher        -> exactly one Outcome per request, handled on a
//	                     worker pool so routing never blocks protocol I/O
//	Router.Route      -> session bookkeeping, telemetry ingestion or a log line
//
// Service ties the three together for callers.
//
// Nothing here panics across the dispatch boundary. Failures become log
// lines on the telemetry sink and the protocol capture. The one exception
// is a response of unknown kind in a binary built with the "debug" tag,
// which is treated as a programming error.
package downlink
