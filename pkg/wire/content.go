package wire

import (
	"sort"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
)

// Content maps canonical resource paths ("/3/0/9") to values.
type Content map[string]any

// Set stores v at addr.
func (c Content) Set(addr model.Address, v any) {
	c[addr.String()] = v
}

// Value returns the value stored at addr.
func (c Content) Value(addr model.Address) (any, bool) {
	v, ok := c[addr.String()]
	return v, ok
}

// Paths returns the stored paths in lexical order.
func (c Content) Paths() []string {
	paths := make([]string, 0, len(c))
	for p := range c {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Within returns the entries addressed at or below addr.
func (c Content) Within(addr model.Address) Content {
	out := make(Content)
	for p, v := range c {
		if addr.Contains(model.ParseAddress(p)) {
			out[p] = v
		}
	}
	return out
}
