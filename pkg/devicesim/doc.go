// Package devicesim provides in-memory LwM2M devices that answer engine
// request frames. It backs the interactive shell and end-to-end tests.
package devicesim
