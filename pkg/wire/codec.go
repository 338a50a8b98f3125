package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/coerce"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
)

// encMode is the CBOR encoder mode for engine frames.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for engine frames.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

var (
	// ErrInvalidFrame is returned when a frame is structurally invalid.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrUnknownOperation is returned when a request frame names no known operation.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnknownKind is returned when a response frame names no known response kind.
	ErrUnknownKind = errors.New("unknown response kind")
)

// Envelope is the frame exchanged with the protocol engine. Requests set
// Operation; responses set Kind.
type Envelope struct {
	MessageID     uint32             `cbor:"1,keyasint"`
	Operation     Operation          `cbor:"2,keyasint,omitempty"`
	Kind          ResponseKind       `cbor:"3,keyasint,omitempty"`
	Path          string             `cbor:"4,keyasint,omitempty"`
	Format        ContentFormat      `cbor:"5,keyasint,omitempty"`
	ValueType     model.ResourceType `cbor:"6,keyasint,omitempty"`
	Value         string             `cbor:"7,keyasint,omitempty"`
	Arguments     string             `cbor:"8,keyasint,omitempty"`
	Attributes    AttributeSet       `cbor:"9,keyasint,omitempty"`
	ObservationID string             `cbor:"10,keyasint,omitempty"`
	Code          Code               `cbor:"11,keyasint,omitempty"`
	ErrorMessage  string             `cbor:"12,keyasint,omitempty"`
	Content       Content            `cbor:"13,keyasint,omitempty"`
	Links         []string           `cbor:"14,keyasint,omitempty"`
}

// IsRequest returns true if the envelope carries a request.
func (e *Envelope) IsRequest() bool {
	return e.Operation != 0
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeRequest encodes req as a request frame.
func EncodeRequest(msgID uint32, req Request) ([]byte, error) {
	if req == nil || !req.Path().IsValid() {
		return nil, fmt.Errorf("%w: request has no valid path", ErrInvalidFrame)
	}
	env := Envelope{
		MessageID: msgID,
		Operation: req.Operation(),
		Path:      req.Path().String(),
	}
	switch r := req.(type) {
	case ReadRequest:
		env.Format = r.Format
	case DiscoverRequest:
	case ObserveRequest:
		env.Format = r.Format
	case CancelObserveRequest:
		env.ObservationID = r.Observation.ID
		env.Format = r.Observation.Format
	case ExecuteRequest:
		env.Arguments = r.Arguments
	case WriteRequest:
		env.Format = r.Format
		env.ValueType = r.Type
		env.Value = coerce.Format(r.Value)
	case WriteAttributesRequest:
		env.Attributes = r.Attributes
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOperation, req)
	}
	return Marshal(env)
}

// DecodeRequest decodes a request frame.
func DecodeRequest(data []byte) (uint32, Request, error) {
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		return 0, nil, fmt.Errorf("failed to decode request: %w", err)
	}
	addr, err := model.ParseAddressStrict(env.Path)
	if err != nil {
		return env.MessageID, nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	var req Request
	switch env.Operation {
	case OpRead:
		req = ReadRequest{Target: addr, Format: env.Format}
	case OpDiscover:
		req = DiscoverRequest{Target: addr}
	case OpObserve:
		req = ObserveRequest{Target: addr, Format: env.Format}
	case OpCancelObserve:
		req = CancelObserveRequest{Observation: Observation{ID: env.ObservationID, Path: addr, Format: env.Format}}
	case OpExecute:
		req = ExecuteRequest{Target: addr, Arguments: env.Arguments}
	case OpWriteReplace, OpWriteUpdate:
		w := WriteRequest{Target: addr, Format: env.Format, Type: env.ValueType}
		if env.Operation == OpWriteUpdate {
			w.Mode = WriteUpdate
		}
		if env.ValueType != model.TypeNone {
			v, err := coerce.FromWire(env.Value, env.ValueType)
			if err != nil {
				return env.MessageID, nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
			}
			w.Value = v
		}
		req = w
	case OpWriteAttributes:
		req = WriteAttributesRequest{Target: addr, Attributes: env.Attributes}
	default:
		return env.MessageID, nil, fmt.Errorf("%w: %d", ErrUnknownOperation, env.Operation)
	}
	return env.MessageID, req, nil
}

// EncodeResponse encodes resp as a response frame for path.
func EncodeResponse(msgID uint32, path model.Address, resp Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrInvalidFrame)
	}
	env := Envelope{
		MessageID:    msgID,
		Kind:         resp.Kind(),
		Path:         path.String(),
		Code:         resp.ResponseCode(),
		ErrorMessage: resp.Message(),
	}
	switch r := resp.(type) {
	case ObserveResponse:
		env.Content = r.Content
		if r.Observation != nil {
			env.ObservationID = r.Observation.ID
			env.Format = r.Observation.Format
		}
	case CancelObserveResponse:
		env.Content = r.Content
	case ReadResponse:
		env.Content = r.Content
	case DiscoverResponse:
		env.Links = r.Links
	case DeleteResponse, ExecuteResponse, WriteAttributesResponse, WriteResponse:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, resp)
	}
	return Marshal(env)
}

// DecodeResponse decodes a response frame. The returned address is the path
// the frame was issued for.
func DecodeResponse(data []byte) (uint32, model.Address, Response, error) {
	var env Envelope
	if err := Unmarshal(data, &env); err != nil {
		return 0, model.Invalid, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	addr := model.ParseAddress(env.Path)
	status := Status{Code: env.Code, ErrorMessage: env.ErrorMessage}

	var resp Response
	switch env.Kind {
	case KindObserve:
		r := ObserveResponse{Status: status, Content: env.Content}
		if env.ObservationID != "" {
			r.Observation = &Observation{ID: env.ObservationID, Path: addr, Format: env.Format}
		}
		resp = r
	case KindCancelObserve:
		resp = CancelObserveResponse{Status: status, Content: env.Content}
	case KindRead:
		resp = ReadResponse{Status: status, Content: env.Content}
	case KindDelete:
		resp = DeleteResponse{Status: status}
	case KindDiscover:
		resp = DiscoverResponse{Status: status, Links: env.Links}
	case KindExecute:
		resp = ExecuteResponse{Status: status}
	case KindWriteAttributes:
		resp = WriteAttributesResponse{Status: status}
	case KindWrite:
		resp = WriteResponse{Status: status}
	default:
		return env.MessageID, addr, nil, fmt.Errorf("%w: %d", ErrUnknownKind, env.Kind)
	}
	return env.MessageID, addr, resp, nil
}
