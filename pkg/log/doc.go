// Package log captures downlink protocol events for later inspection.
//
// It is separate from operational logging (slog): protocol capture records a
// machine-readable trace of every request sent to a device, every response
// routed back and every dispatch failure, keyed by registration and path.
//
// Applications choose where events go by providing a Logger:
//
//	// Console during development
//	capture := log.NewSlogAdapter(slog.Default())
//
//	// Binary CBOR stream in production
//	capture, _ := log.NewFileLogger("/var/log/lwm2m/downlink.llog")
//
//	// Both
//	capture := log.NewMultiLogger(console, file)
//
// Files are a stream of CBOR-encoded Events and can be read back with Reader.
package log
