//go:build debug

package downlink

// debugBuild makes routing defects fatal.
const debugBuild = true
