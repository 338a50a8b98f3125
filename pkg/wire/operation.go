package wire

import "strings"

// Operation is a downlink operation kind.
type Operation uint8

const (
	// OpRead reads an object, instance or resource.
	OpRead Operation = iota + 1

	// OpDiscover lists the resources and attached attributes of a target.
	OpDiscover

	// OpObserve starts an observation.
	OpObserve

	// OpCancelObserve cancels an existing observation.
	OpCancelObserve

	// OpExecute triggers an executable resource.
	OpExecute

	// OpWriteReplace replaces a resource value.
	OpWriteReplace

	// OpWriteUpdate partially updates a resource value.
	OpWriteUpdate

	// OpWriteAttributes sets notification attributes.
	OpWriteAttributes
)

var operationNames = map[Operation]string{
	OpRead:            "read",
	OpDiscover:        "discover",
	OpObserve:         "observe",
	OpCancelObserve:   "cancel-observe",
	OpExecute:         "execute",
	OpWriteReplace:    "write-replace",
	OpWriteUpdate:     "write-update",
	OpWriteAttributes: "write-attributes",
}

var operationAliases = map[string]Operation{
	"observecancel":   OpCancelObserve,
	"observe-cancel":  OpCancelObserve,
	"cancelobserve":   OpCancelObserve,
	"replace":         OpWriteReplace,
	"update":          OpWriteUpdate,
	"writeattributes": OpWriteAttributes,
	"attributes":      OpWriteAttributes,
}

// String returns the operation vocabulary name.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// IsValid returns true if o is a known operation.
func (o Operation) IsValid() bool {
	_, ok := operationNames[o]
	return ok
}

// ParseOperation maps a vocabulary name (case-insensitive) to an Operation.
func ParseOperation(name string) (Operation, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for op, n := range operationNames {
		if n == name {
			return op, true
		}
	}
	op, ok := operationAliases[name]
	return op, ok
}
