package telemetry

import (
	"fmt"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Sink message prefixes.
const (
	InfoPrefix  = "LWM2M_INFO: "
	ErrorPrefix = "LWM2M_ERROR: "
)

// Sink receives dispatch log lines. Emit must not block.
type Sink interface {
	Emit(sessionID, message string)
}

// Ingestor receives data reported by devices.
type Ingestor interface {
	// Observation handles observe notifications and unsolicited read results.
	Observation(c *session.Client, path model.Address, content wire.Content)

	// AttributeUpdateOK handles a successful write so desired and reported
	// state can be reconciled.
	AttributeUpdateOK(c *session.Client, path model.Address, req wire.WriteRequest)
}

// Info formats an informational sink message.
func Info(format string, args ...any) string {
	return InfoPrefix + fmt.Sprintf(format, args...)
}

// Error formats an error sink message.
func Error(format string, args ...any) string {
	return ErrorPrefix + fmt.Sprintf(format, args...)
}

// RecordKind names the stream a record belongs to.
type RecordKind string

const (
	KindLog       RecordKind = "log"
	KindTelemetry RecordKind = "telemetry"
	KindAttribute RecordKind = "attributes"
)

// Record is the published JSON document.
type Record struct {
	Kind      RecordKind     `json:"kind"`
	SessionID string         `json:"session_id"`
	Endpoint  string         `json:"endpoint,omitempty"`
	Path      string         `json:"path,omitempty"`
	Message   string         `json:"message,omitempty"`
	Values    map[string]any `json:"values,omitempty"`
	Timestamp time.Time      `json:"ts"`
}
