package wire

import (
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
)

// Request is a downlink request ready to hand to the protocol engine.
// The set of implementations is closed.
type Request interface {
	// Operation returns the operation kind.
	Operation() Operation

	// Path returns the addressed target.
	Path() model.Address

	isRequest()
}

// ReadRequest reads a target in an optional content format.
type ReadRequest struct {
	Target model.Address
	Format ContentFormat
}

func (ReadRequest) Operation() Operation  { return OpRead }
func (r ReadRequest) Path() model.Address { return r.Target }
func (ReadRequest) isRequest()            {}

// DiscoverRequest lists what a target exposes. It carries no format.
type DiscoverRequest struct {
	Target model.Address
}

func (DiscoverRequest) Operation() Operation  { return OpDiscover }
func (r DiscoverRequest) Path() model.Address { return r.Target }
func (DiscoverRequest) isRequest()            {}

// ObserveRequest starts an observation on a target.
type ObserveRequest struct {
	Target model.Address
	Format ContentFormat
}

func (ObserveRequest) Operation() Operation  { return OpObserve }
func (r ObserveRequest) Path() model.Address { return r.Target }
func (ObserveRequest) isRequest()            {}

// CancelObserveRequest cancels a previously established observation.
type CancelObserveRequest struct {
	Observation Observation
}

func (CancelObserveRequest) Operation() Operation  { return OpCancelObserve }
func (r CancelObserveRequest) Path() model.Address { return r.Observation.Path }
func (CancelObserveRequest) isRequest()            {}

// ExecuteRequest triggers an executable resource. Arguments is empty for a
// bare execute.
type ExecuteRequest struct {
	Target    model.Address
	Arguments string
}

func (ExecuteRequest) Operation() Operation  { return OpExecute }
func (r ExecuteRequest) Path() model.Address { return r.Target }
func (ExecuteRequest) isRequest()            {}

// HasArguments returns true if the execute carries an argument string.
func (r ExecuteRequest) HasArguments() bool {
	return r.Arguments != ""
}

// WriteMode selects replace or partial-update semantics.
type WriteMode uint8

const (
	WriteReplace WriteMode = iota
	WriteUpdate
)

// String returns the mode name.
func (m WriteMode) String() string {
	if m == WriteUpdate {
		return "update"
	}
	return "replace"
}

// WriteRequest writes a single resource value. Value has already been
// coerced to the Go representation of Type.
type WriteRequest struct {
	Target model.Address
	Mode   WriteMode
	Format ContentFormat
	Type   model.ResourceType
	Value  any
}

// Operation returns OpWriteReplace or OpWriteUpdate according to the mode.
func (r WriteRequest) Operation() Operation {
	if r.Mode == WriteUpdate {
		return OpWriteUpdate
	}
	return OpWriteReplace
}

func (r WriteRequest) Path() model.Address { return r.Target }
func (WriteRequest) isRequest()            {}

// IsReplace returns true for write-replace requests.
func (r WriteRequest) IsReplace() bool {
	return r.Mode == WriteReplace
}

// WriteAttributesRequest sets notification attributes on a target.
type WriteAttributesRequest struct {
	Target     model.Address
	Attributes AttributeSet
}

func (WriteAttributesRequest) Operation() Operation  { return OpWriteAttributes }
func (r WriteAttributesRequest) Path() model.Address { return r.Target }
func (WriteAttributesRequest) isRequest()            {}
