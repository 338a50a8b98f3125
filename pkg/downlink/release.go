//go:build !debug

package downlink

const debugBuild = false
