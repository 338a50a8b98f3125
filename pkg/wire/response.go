package wire

// ResponseKind discriminates Response implementations.
//
//exhaustive:enforce
type ResponseKind uint8

const (
	KindObserve ResponseKind = iota + 1
	KindCancelObserve
	KindRead
	KindDelete
	KindDiscover
	KindExecute
	KindWriteAttributes
	KindWrite
)

var responseKindNames = map[ResponseKind]string{
	KindObserve:         "Observe",
	KindCancelObserve:   "CancelObservation",
	KindRead:            "Read",
	KindDelete:          "Delete",
	KindDiscover:        "Discover",
	KindExecute:         "Execute",
	KindWriteAttributes: "WriteAttributes",
	KindWrite:           "Write",
}

// String returns the kind name.
func (k ResponseKind) String() string {
	if name, ok := responseKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ExpectedKind returns the response kind a device answers op with.
func ExpectedKind(op Operation) (ResponseKind, bool) {
	switch op {
	case OpRead:
		return KindRead, true
	case OpDiscover:
		return KindDiscover, true
	case OpObserve:
		return KindObserve, true
	case OpCancelObserve:
		return KindCancelObserve, true
	case OpExecute:
		return KindExecute, true
	case OpWriteReplace, OpWriteUpdate:
		return KindWrite, true
	case OpWriteAttributes:
		return KindWriteAttributes, true
	}
	return 0, false
}

// Response is a device response to a downlink request.
// The set of implementations is closed.
type Response interface {
	Kind() ResponseKind
	ResponseCode() Code
	Message() string
	isResponse()
}

// Status carries the code and error text shared by every response.
type Status struct {
	Code         Code
	ErrorMessage string
}

// ResponseCode returns the response code.
func (s Status) ResponseCode() Code { return s.Code }

// Message returns the error message, if any.
func (s Status) Message() string { return s.ErrorMessage }

// IsSuccess returns true if the code is a 2.xx code.
func (s Status) IsSuccess() bool { return s.Code.IsSuccess() }

// ObserveResponse answers an observe. Observation is set when the device
// accepted it.
type ObserveResponse struct {
	Status
	Content     Content
	Observation *Observation
}

func (ObserveResponse) Kind() ResponseKind { return KindObserve }
func (ObserveResponse) isResponse()        {}

// CancelObserveResponse answers a cancel-observe.
type CancelObserveResponse struct {
	Status
	Content Content
}

func (CancelObserveResponse) Kind() ResponseKind { return KindCancelObserve }
func (CancelObserveResponse) isResponse()        {}

// ReadResponse answers a read.
type ReadResponse struct {
	Status
	Content Content
}

func (ReadResponse) Kind() ResponseKind { return KindRead }
func (ReadResponse) isResponse()        {}

// DeleteResponse answers a delete.
type DeleteResponse struct {
	Status
}

func (DeleteResponse) Kind() ResponseKind { return KindDelete }
func (DeleteResponse) isResponse()        {}

// DiscoverResponse answers a discover with CoRE link entries.
type DiscoverResponse struct {
	Status
	Links []string
}

func (DiscoverResponse) Kind() ResponseKind { return KindDiscover }
func (DiscoverResponse) isResponse()        {}

// ExecuteResponse answers an execute.
type ExecuteResponse struct {
	Status
}

func (ExecuteResponse) Kind() ResponseKind { return KindExecute }
func (ExecuteResponse) isResponse()        {}

// WriteAttributesResponse answers a write-attributes.
type WriteAttributesResponse struct {
	Status
}

func (WriteAttributesResponse) Kind() ResponseKind { return KindWriteAttributes }
func (WriteAttributesResponse) isResponse()        {}

// WriteResponse answers a write-replace or write-update.
type WriteResponse struct {
	Status
}

func (WriteResponse) Kind() ResponseKind { return KindWrite }
func (WriteResponse) isResponse()        {}

// IsSuccess reports whether resp carries a 2.xx code.
func IsSuccess(resp Response) bool {
	return resp != nil && resp.ResponseCode().IsSuccess()
}
