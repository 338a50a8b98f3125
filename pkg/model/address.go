package model

import (
	"errors"
	"strconv"
	"strings"
)

// NoID marks an absent instance or resource ID, and an unresolved object ID.
const NoID = -1

// maxSegments is the deepest addressable level (object/instance/resource).
const maxSegments = 3

// Address errors.
var (
	ErrEmptyAddress   = errors.New("empty resource path")
	ErrInvalidAddress = errors.New("invalid resource path")
)

// Address identifies an object, an object instance or a single resource.
type Address struct {
	ObjectID   int
	InstanceID int
	ResourceID int
}

// Invalid is the address returned for paths that cannot be resolved.
var Invalid = Address{ObjectID: NoID, InstanceID: NoID, ResourceID: NoID}

// ObjectAddress returns the address of an object.
func ObjectAddress(objectID int) Address {
	return Address{ObjectID: objectID, InstanceID: NoID, ResourceID: NoID}
}

// InstanceAddress returns the address of an object instance.
func InstanceAddress(objectID, instanceID int) Address {
	return Address{ObjectID: objectID, InstanceID: instanceID, ResourceID: NoID}
}

// ResourceAddress returns the address of a single resource.
func ResourceAddress(objectID, instanceID, resourceID int) Address {
	return Address{ObjectID: objectID, InstanceID: instanceID, ResourceID: resourceID}
}

// ParseAddress resolves a slash-separated resource path.
//
// Malformed input (empty, non-numeric or negative segments, more than three
// segments) yields Invalid rather than an error. Callers check IsValid before
// using the result. Identifiers are 16-bit on the wire, so a segment above
// 65535 is malformed too.
func ParseAddress(path string) Address {
	addr, err := ParseAddressStrict(path)
	if err != nil {
		return Invalid
	}
	return addr
}

// ParseAddressStrict is ParseAddress with the failure reason reported.
func ParseAddressStrict(path string) (Address, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return Invalid, ErrEmptyAddress
	}

	parts := strings.Split(path, "/")
	if len(parts) > maxSegments {
		return Invalid, ErrInvalidAddress
	}

	ids := [maxSegments]int{NoID, NoID, NoID}
	for i, part := range parts {
		id, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Invalid, ErrInvalidAddress
		}
		ids[i] = int(id)
	}

	return Address{ObjectID: ids[0], InstanceID: ids[1], ResourceID: ids[2]}, nil
}

// IsValid reports whether the address resolved and its levels are nested.
func (a Address) IsValid() bool {
	if a.ObjectID < 0 {
		return false
	}
	if a.ResourceID >= 0 && a.InstanceID < 0 {
		return false
	}
	return true
}

// IsObject reports whether the address targets a whole object.
func (a Address) IsObject() bool {
	return a.ObjectID >= 0 && a.InstanceID < 0
}

// IsInstance reports whether the address targets an object instance.
func (a Address) IsInstance() bool {
	return a.InstanceID >= 0 && a.ResourceID < 0
}

// IsResource reports whether the address targets a single resource.
func (a Address) IsResource() bool {
	return a.InstanceID >= 0 && a.ResourceID >= 0
}

// Depth returns the number of levels present (0 for an invalid address).
func (a Address) Depth() int {
	switch {
	case !a.IsValid():
		return 0
	case a.IsResource():
		return 3
	case a.IsInstance():
		return 2
	default:
		return 1
	}
}

// Contains reports whether other lies at or below a in the hierarchy.
func (a Address) Contains(other Address) bool {
	if !a.IsValid() || !other.IsValid() || a.ObjectID != other.ObjectID {
		return false
	}
	if a.InstanceID >= 0 && a.InstanceID != other.InstanceID {
		return false
	}
	if a.ResourceID >= 0 && a.ResourceID != other.ResourceID {
		return false
	}
	return true
}

// String returns the canonical path form, e.g. "/3/0/9".
func (a Address) String() string {
	if !a.IsValid() {
		return "/"
	}

	var sb strings.Builder
	sb.WriteString("/")
	sb.WriteString(strconv.Itoa(a.ObjectID))
	if a.InstanceID >= 0 {
		sb.WriteString("/")
		sb.WriteString(strconv.Itoa(a.InstanceID))
	}
	if a.ResourceID >= 0 {
		sb.WriteString("/")
		sb.WriteString(strconv.Itoa(a.ResourceID))
	}
	return sb.String()
}
