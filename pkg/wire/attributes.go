package wire

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Notification attribute names.
const (
	AttrMinPeriod   = "pmin"
	AttrMaxPeriod   = "pmax"
	AttrGreaterThan = "gt"
	AttrLessThan    = "lt"
	AttrStep        = "st"
)

// attributeOrder is the canonical rendering order.
var attributeOrder = []string{AttrMinPeriod, AttrMaxPeriod, AttrGreaterThan, AttrLessThan, AttrStep}

var (
	// ErrUnknownAttribute is returned for an attribute name outside the notification set.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrInvalidAttribute is returned for a malformed or inconsistent attribute value.
	ErrInvalidAttribute = errors.New("invalid attribute")
)

// AttributeSet holds notification attributes by name. Periods are seconds.
type AttributeSet map[string]float64

// DefaultAttributes returns the attribute set applied when the caller gives
// none: a one second minimum period.
func DefaultAttributes() AttributeSet {
	return AttributeSet{AttrMinPeriod: 1}
}

// Merge returns a copy of s with every entry of overrides applied on top.
func (s AttributeSet) Merge(overrides AttributeSet) AttributeSet {
	out := make(AttributeSet, len(s)+len(overrides))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Get returns the named attribute.
func (s AttributeSet) Get(name string) (float64, bool) {
	v, ok := s[name]
	return v, ok
}

// Validate checks attribute names and value consistency.
func (s AttributeSet) Validate() error {
	for name, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v must be finite", ErrInvalidAttribute, name, v)
		}
		switch name {
		case AttrMinPeriod, AttrMaxPeriod:
			if v < 0 || v != math.Trunc(v) {
				return fmt.Errorf("%w: %s=%v must be a non-negative integer", ErrInvalidAttribute, name, v)
			}
		case AttrStep:
			if v < 0 {
				return fmt.Errorf("%w: %s=%v must not be negative", ErrInvalidAttribute, name, v)
			}
		case AttrGreaterThan, AttrLessThan:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
		}
	}
	pmin, hasMin := s[AttrMinPeriod]
	pmax, hasMax := s[AttrMaxPeriod]
	if hasMin && hasMax && pmin > pmax {
		return fmt.Errorf("%w: pmin %v exceeds pmax %v", ErrInvalidAttribute, pmin, pmax)
	}
	lt, hasLt := s[AttrLessThan]
	gt, hasGt := s[AttrGreaterThan]
	if hasLt && hasGt && lt >= gt {
		return fmt.Errorf("%w: lt %v must be below gt %v", ErrInvalidAttribute, lt, gt)
	}
	return nil
}

// String renders the set as a query string in canonical order,
// e.g. "pmin=1&pmax=60".
func (s AttributeSet) String() string {
	var parts []string
	for _, name := range attributeOrder {
		if v, ok := s[name]; ok {
			parts = append(parts, name+"="+strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return strings.Join(parts, "&")
}

// ParseAttributeSet parses a query string such as "pmin=5&pmax=60&st=0.5".
// A leading "?" is ignored. The result is validated.
func ParseAttributeSet(query string) (AttributeSet, error) {
	query = strings.TrimPrefix(strings.TrimSpace(query), "?")
	set := make(AttributeSet)
	if query == "" {
		return set, nil
	}
	for _, pair := range strings.Split(query, "&") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAttribute, pair)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidAttribute, name, raw)
		}
		set[strings.ToLower(name)] = v
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}
