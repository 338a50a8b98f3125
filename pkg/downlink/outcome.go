package downlink

import (
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// OutcomeKind discriminates Outcome.
type OutcomeKind uint8

const (
	// OutcomeSuccess: the device answered with a 2.xx code.
	OutcomeSuccess OutcomeKind = iota + 1
	// OutcomeProtocolFailure: the device answered with an error code.
	OutcomeProtocolFailure
	// OutcomeTransportError: no response arrived (timeout or channel fault).
	OutcomeTransportError
)

// String returns the kind name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeProtocolFailure:
		return "PROTOCOL_FAILURE"
	case OutcomeTransportError:
		return "TRANSPORT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the single completion result of a dispatched request.
// Response is set for Success and ProtocolFailure, Err for TransportError.
type Outcome struct {
	Kind     OutcomeKind
	Request  wire.Request
	Response wire.Response
	Err      error
	Elapsed  time.Duration
}

// Code returns the response code, or zero for transport errors.
func (o Outcome) Code() wire.Code {
	if o.Response == nil {
		return 0
	}
	return o.Response.ResponseCode()
}

func newOutcome(req wire.Request, resp wire.Response, err error, elapsed time.Duration) Outcome {
	out := Outcome{Request: req, Elapsed: elapsed}
	switch {
	case err != nil:
		out.Kind = OutcomeTransportError
		out.Err = err
	case resp == nil:
		out.Kind = OutcomeTransportError
		out.Err = ErrNilResponse
	case wire.IsSuccess(resp):
		out.Kind = OutcomeSuccess
		out.Response = resp
	default:
		out.Kind = OutcomeProtocolFailure
		out.Response = resp
	}
	return out
}
