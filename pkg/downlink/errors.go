package downlink

import (
	"errors"
	"fmt"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Build errors. A BuildError wraps one of these, or a *coerce.CoercionError.
var (
	ErrInvalidAddress  = errors.New("invalid resource address")
	ErrUnbuildable     = errors.New("no request shape for operation and address")
	ErrUnknownResource = errors.New("resource descriptor not found")
	ErrNoObservation   = errors.New("no observation to cancel")
)

// Dispatch errors carried by transport-error outcomes.
var (
	ErrTimeout     = errors.New("request timed out")
	ErrNilResponse = errors.New("engine returned no response")
)

// BuildError reports why no request was built.
type BuildError struct {
	Op   wire.Operation
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
