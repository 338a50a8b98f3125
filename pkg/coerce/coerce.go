// Package coerce converts loosely typed input values into the wire value
// required by a resource's declared type.
//
// Each ResourceType has exactly one rule:
//
//	STRING   string (fmt.Sprint of the input)
//	INTEGER  int32 parse, widened as an unsigned 32-bit magnitude to uint64
//	OBJLNK   "objectId:instanceId" token to model.ObjectLink
//	BOOLEAN  case-insensitive "true" is true, anything else false
//	FLOAT    64-bit float parse
//	TIME     INTEGER rule, then seconds since the Unix epoch to time.Time
//	OPAQUE   hex string to []byte
//
// Failures are returned as *CoercionError; nothing panics. BOOLEAN never
// fails on a non-nil value.
//
// FromWire is the inverse of Format for values that already went through
// Coerce: INTEGER and TIME are read as unsigned 32-bit magnitudes there.
package coerce

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
)

// Coercion failure reasons.
var (
	ErrNotNumeric      = errors.New("not a 32-bit integer")
	ErrNotFloat        = errors.New("not a floating point number")
	ErrNotUnsigned     = errors.New("not an unsigned 32-bit integer")
	ErrNotHex          = errors.New("not an even-length hex string")
	ErrUnsupportedType = errors.New("resource type has no value")
	ErrNilValue        = errors.New("no value")
)

// CoercionError reports a value that could not be converted to a resource
// type. Path is empty unless the caller knows which resource was targeted.
type CoercionError struct {
	Path  string
	Type  model.ResourceType
	Value any
	Err   error
}

func (e *CoercionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("coerce %v to %s at %s: %v", e.Value, e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("coerce %v to %s: %v", e.Value, e.Type, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// Coerce converts raw to the wire representation of typ.
func Coerce(raw any, typ model.ResourceType) (any, error) {
	if raw == nil {
		return nil, &CoercionError{Type: typ, Value: raw, Err: ErrNilValue}
	}

	switch typ {
	case model.TypeString:
		return stringify(raw), nil

	case model.TypeInteger:
		v, err := unsigned32(raw)
		if err != nil {
			return nil, &CoercionError{Type: typ, Value: raw, Err: err}
		}
		return v, nil

	case model.TypeObjectLink:
		if link, ok := raw.(model.ObjectLink); ok {
			return link, nil
		}
		link, err := model.ParseObjectLink(stringify(raw))
		if err != nil {
			return nil, &CoercionError{Type: typ, Value: raw, Err: err}
		}
		return link, nil

	case model.TypeBoolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		return strings.EqualFold(stringify(raw), "true"), nil

	case model.TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(stringify(raw)), 64)
		if err != nil {
			return nil, &CoercionError{Type: typ, Value: raw, Err: ErrNotFloat}
		}
		return f, nil

	case model.TypeTime:
		if ts, ok := raw.(time.Time); ok {
			return ts, nil
		}
		v, err := unsigned32(raw)
		if err != nil {
			return nil, &CoercionError{Type: typ, Value: raw, Err: err}
		}
		return time.Unix(int64(v), 0).UTC(), nil

	case model.TypeOpaque:
		if b, ok := raw.([]byte); ok {
			return b, nil
		}
		b, err := hex.DecodeString(strings.TrimSpace(stringify(raw)))
		if err != nil {
			return nil, &CoercionError{Type: typ, Value: raw, Err: ErrNotHex}
		}
		return b, nil

	default:
		return nil, &CoercionError{Type: typ, Value: raw, Err: ErrUnsupportedType}
	}
}

// FromWire reads text produced by Format back into the value of typ.
func FromWire(text string, typ model.ResourceType) (any, error) {
	switch typ {
	case model.TypeInteger, model.TypeTime:
		v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return nil, &CoercionError{Type: typ, Value: text, Err: ErrNotUnsigned}
		}
		if typ == model.TypeTime {
			return time.Unix(int64(v), 0).UTC(), nil
		}
		return v, nil
	default:
		return Coerce(text, typ)
	}
}

// Format renders a wire value the way it was accepted as input, so that
// Format(Coerce(s, t)) == s for canonical literals.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return strconv.FormatInt(val.Unix(), 10)
	case []byte:
		return hex.EncodeToString(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return stringify(v)
	}
}

// unsigned32 parses a signed 32-bit integer and reinterprets it as an
// unsigned 32-bit magnitude, so "-1" becomes 4294967295.
func unsigned32(raw any) (uint64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(stringify(raw)), 10, 32)
	if err != nil {
		return 0, ErrNotNumeric
	}
	return uint64(uint32(int32(n))), nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(v)
	}
}
