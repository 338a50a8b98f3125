package log

import (
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Capture files use core deterministic encoding, with nanosecond timestamps
// where engine frames carry whole seconds. Decoding tolerates fields written
// by newer versions.
var (
	eventEncMode = mustEncMode(func() cbor.EncOptions {
		opts := cbor.CoreDetEncOptions()
		opts.Time = cbor.TimeRFC3339Nano
		return opts
	}())
	eventDecMode = mustDecMode(cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyQuiet,
		MaxNestedLevels: 16,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic("log: event encoder: " + err.Error())
	}
	return em
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic("log: event decoder: " + err.Error())
	}
	return dm
}

// EncodeEvent encodes an Event to CBOR.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent decodes a CBOR Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := eventDecMode.Unmarshal(data, &event)
	return event, err
}

// Event is one captured protocol event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID is the registration ID of the device.
	SessionID string `cbor:"2,keyasint"`

	// Endpoint is the device endpoint name.
	Endpoint string `cbor:"3,keyasint,omitempty"`

	Direction Direction `cbor:"4,keyasint"`
	Layer     Layer     `cbor:"5,keyasint"`
	Category  Category  `cbor:"6,keyasint"`

	// Path is the addressed resource path.
	Path string `cbor:"7,keyasint,omitempty"`

	// Exactly one of these is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates message flow relative to the server.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerEngine is the protocol engine framing.
	LayerEngine Layer = 0
	// LayerDispatch is request dispatch and completion.
	LayerDispatch Layer = 1
	// LayerRouting is response routing into session state and telemetry.
	LayerRouting Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerEngine:
		return "ENGINE"
	case LayerDispatch:
		return "DISPATCH"
	case LayerRouting:
		return "ROUTING"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent records an engine frame.
type FrameEvent struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Size      int    `cbor:"2,keyasint"`
}

// MessageEvent records a downlink request or its response.
type MessageEvent struct {
	Type MessageType `cbor:"1,keyasint"`

	// Operation is set for requests and for responses whose request is known.
	Operation *wire.Operation `cbor:"2,keyasint,omitempty"`

	// Kind and Code are set for responses.
	Kind *wire.ResponseKind `cbor:"3,keyasint,omitempty"`
	Code *wire.Code         `cbor:"4,keyasint,omitempty"`

	// Payload is a CBOR-compatible rendering of the value or content.
	Payload any `cbor:"5,keyasint,omitempty"`

	// Elapsed is the time from dispatch to completion (responses only).
	Elapsed *time.Duration `cbor:"6,keyasint,omitempty"`
}

// MessageType distinguishes requests, responses and notifications.
type MessageType uint8

const (
	MessageTypeRequest      MessageType = 0
	MessageTypeResponse     MessageType = 1
	MessageTypeNotification MessageType = 2
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	case MessageTypeNotification:
		return "NOTIFICATION"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent records a change of session bookkeeping.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	StateEntityRegistration StateEntity = 0
	StateEntityObservation  StateEntity = 1
	StateEntityPending      StateEntity = 2
)

// String returns the entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityRegistration:
		return "REGISTRATION"
	case StateEntityObservation:
		return "OBSERVATION"
	case StateEntityPending:
		return "PENDING"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData records a failure.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Code is the response code for protocol failures.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context names what was being done, e.g. "dispatch" or "route".
	Context string `cbor:"4,keyasint,omitempty"`
}

// NewRequestEvent builds the event recorded when a request is sent.
func NewRequestEvent(sessionID, endpoint string, req wire.Request, payload any) Event {
	op := req.Operation()
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Endpoint:  endpoint,
		Direction: DirectionOut,
		Layer:     LayerDispatch,
		Category:  CategoryMessage,
		Path:      req.Path().String(),
		Message: &MessageEvent{
			Type:      MessageTypeRequest,
			Operation: &op,
			Payload:   payload,
		},
	}
}

// NewResponseEvent builds the event recorded when a response arrives for req.
func NewResponseEvent(sessionID, endpoint string, req wire.Request, resp wire.Response, elapsed time.Duration) Event {
	op := req.Operation()
	kind := resp.Kind()
	code := resp.ResponseCode()
	msgType := MessageTypeResponse
	if kind == wire.KindObserve && op != wire.OpObserve {
		msgType = MessageTypeNotification
	}
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Endpoint:  endpoint,
		Direction: DirectionIn,
		Layer:     LayerDispatch,
		Category:  CategoryMessage,
		Path:      req.Path().String(),
		Message: &MessageEvent{
			Type:      msgType,
			Operation: &op,
			Kind:      &kind,
			Code:      &code,
			Elapsed:   &elapsed,
		},
	}
}

// NewErrorEvent builds an error event for path.
func NewErrorEvent(sessionID, endpoint, path string, layer Layer, context string, err error) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Endpoint:  endpoint,
		Direction: DirectionIn,
		Layer:     layer,
		Category:  CategoryError,
		Path:      path,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	}
}
