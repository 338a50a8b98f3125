package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResourceType is the declared value type of a resource.
type ResourceType uint8

const (
	TypeNone ResourceType = iota
	TypeString
	TypeInteger
	TypeObjectLink
	TypeBoolean
	TypeFloat
	TypeTime
	TypeOpaque
)

var resourceTypeNames = map[ResourceType]string{
	TypeNone:       "NONE",
	TypeString:     "STRING",
	TypeInteger:    "INTEGER",
	TypeObjectLink: "OBJLNK",
	TypeBoolean:    "BOOLEAN",
	TypeFloat:      "FLOAT",
	TypeTime:       "TIME",
	TypeOpaque:     "OPAQUE",
}

// String returns the type name as used in object definitions.
func (t ResourceType) String() string {
	if name, ok := resourceTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseResourceType maps a definition-file type name to a ResourceType.
// Names are matched case-insensitively; "Objlnk" and "ObjectLink" are both accepted.
func ParseResourceType(name string) (ResourceType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "NONE":
		return TypeNone, nil
	case "STRING":
		return TypeString, nil
	case "INTEGER", "UNSIGNED INTEGER":
		return TypeInteger, nil
	case "OBJLNK", "OBJECTLINK", "OBJECT LINK":
		return TypeObjectLink, nil
	case "BOOLEAN":
		return TypeBoolean, nil
	case "FLOAT":
		return TypeFloat, nil
	case "TIME":
		return TypeTime, nil
	case "OPAQUE":
		return TypeOpaque, nil
	default:
		return TypeNone, fmt.Errorf("unknown resource type %q", name)
	}
}

// Operations are the operations a resource supports.
type Operations uint8

const (
	OpsRead Operations = 1 << iota
	OpsWrite
	OpsExecute

	OpsNone      Operations = 0
	OpsReadWrite            = OpsRead | OpsWrite
)

// CanRead returns true if reading is allowed.
func (o Operations) CanRead() bool { return o&OpsRead != 0 }

// CanWrite returns true if writing is allowed.
func (o Operations) CanWrite() bool { return o&OpsWrite != 0 }

// CanExecute returns true if executing is allowed.
func (o Operations) CanExecute() bool { return o&OpsExecute != 0 }

// String returns the operations in definition-file notation (R, W, RW, E).
func (o Operations) String() string {
	var s string
	if o.CanRead() {
		s += "R"
	}
	if o.CanWrite() {
		s += "W"
	}
	if o.CanExecute() {
		s += "E"
	}
	return s
}

// ParseOperations parses definition-file notation.
func ParseOperations(s string) Operations {
	var ops Operations
	for _, c := range strings.ToUpper(s) {
		switch c {
		case 'R':
			ops |= OpsRead
		case 'W':
			ops |= OpsWrite
		case 'E':
			ops |= OpsExecute
		}
	}
	return ops
}

// ResourceDescriptor is the metadata request building needs for a resource.
type ResourceDescriptor struct {
	Type     ResourceType
	Multiple bool
}

// ResourceModel defines one resource of an object.
type ResourceModel struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Operations  Operations   `json:"operations"`
	Multiple    bool         `json:"multiple"`
	Mandatory   bool         `json:"mandatory"`
	Type        ResourceType `json:"type"`
	Units       string       `json:"units,omitempty"`
	Description string       `json:"description,omitempty"`
}

// Descriptor returns the resource's type tag and multiplicity.
func (r *ResourceModel) Descriptor() ResourceDescriptor {
	return ResourceDescriptor{Type: r.Type, Multiple: r.Multiple}
}

// ObjectModel defines an object class and its resources.
type ObjectModel struct {
	ID          int                    `json:"id"`
	Name        string                 `json:"name"`
	Version     string                 `json:"version,omitempty"`
	Multiple    bool                   `json:"multiple"`
	Mandatory   bool                   `json:"mandatory"`
	Description string                 `json:"description,omitempty"`
	Resources   map[int]*ResourceModel `json:"resources"`
}

// Resource returns the model of a resource, or nil if the object does not define it.
func (o *ObjectModel) Resource(id int) *ResourceModel {
	if o == nil {
		return nil
	}
	return o.Resources[id]
}

// ObjectLink is an object link value: a reference to an object instance.
type ObjectLink struct {
	ObjectID   uint16
	InstanceID uint16
}

// ErrInvalidObjectLink is returned for malformed object link tokens.
var ErrInvalidObjectLink = errors.New("invalid object link")

// ParseObjectLink parses an "objectId:instanceId" token.
func ParseObjectLink(s string) (ObjectLink, error) {
	objStr, instStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ObjectLink{}, fmt.Errorf("%w: %q", ErrInvalidObjectLink, s)
	}
	objID, err := strconv.ParseUint(objStr, 10, 16)
	if err != nil {
		return ObjectLink{}, fmt.Errorf("%w: object id %q", ErrInvalidObjectLink, objStr)
	}
	instID, err := strconv.ParseUint(instStr, 10, 16)
	if err != nil {
		return ObjectLink{}, fmt.Errorf("%w: instance id %q", ErrInvalidObjectLink, instStr)
	}
	return ObjectLink{ObjectID: uint16(objID), InstanceID: uint16(instID)}, nil
}

// String returns the "objectId:instanceId" form.
func (l ObjectLink) String() string {
	return strconv.Itoa(int(l.ObjectID)) + ":" + strconv.Itoa(int(l.InstanceID))
}
