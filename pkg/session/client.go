package session

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Client is the server-side model of one registered device.
type Client struct {
	reg *Registration

	mu           sync.Mutex
	models       map[int]*model.ObjectModel
	pending      map[model.Address]*PendingRequest
	values       map[string]any
	observations map[model.Address]wire.Observation
	lastUpdate   time.Time
}

// NewClient creates a client for reg with an initial set of cached object
// models.
func NewClient(reg *Registration, models ...*model.ObjectModel) *Client {
	c := &Client{
		reg:          reg,
		models:       make(map[int]*model.ObjectModel, len(models)),
		pending:      make(map[model.Address]*PendingRequest),
		values:       make(map[string]any),
		observations: make(map[model.Address]wire.Observation),
	}
	for _, m := range models {
		c.models[m.ID] = m
	}
	return c
}

// Registration returns the device registration.
func (c *Client) Registration() *Registration {
	return c.reg
}

// ID returns the registration ID.
func (c *Client) ID() string {
	return c.reg.ID
}

// Endpoint returns the device endpoint name.
func (c *Client) Endpoint() string {
	return c.reg.Endpoint
}

// SetObjectModel caches an object model, replacing any earlier one with the
// same ID.
func (c *Client) SetObjectModel(m *model.ObjectModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[m.ID] = m
}

// ObjectModel returns the cached model for objectID, or nil.
func (c *Client) ObjectModel(objectID int) *model.ObjectModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.models[objectID]
}

// ResourceDescriptor returns the cached descriptor of a resource-level
// address.
func (c *Client) ResourceDescriptor(addr model.Address) (model.ResourceDescriptor, bool) {
	if !addr.IsResource() {
		return model.ResourceDescriptor{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	res := c.models[addr.ObjectID].Resource(addr.ResourceID)
	if res == nil {
		return model.ResourceDescriptor{}, false
	}
	return res.Descriptor(), true
}

// AddPending registers a request awaiting a response for path. A
// non-positive timeout never expires.
func (c *Client) AddPending(path model.Address, timeout time.Duration) (*PendingRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.pending[path]; exists {
		return nil, ErrPendingExists
	}
	p := newPendingRequest(path, timeout)
	c.pending[path] = p
	return p, nil
}

// HasPending returns true if a request is awaited for path.
func (c *Client) HasPending(path model.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[path]
	return ok
}

// PendingCount returns the number of awaited requests.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ResolvePending satisfies the pending request for path with content and
// merges content into the cached values. It returns false, changing
// nothing, if no request is pending for path.
func (c *Client) ResolvePending(path model.Address, content wire.Content) bool {
	c.mu.Lock()
	p, ok := c.pending[path]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.pending, path)
	c.mergeValuesLocked(content)
	c.mu.Unlock()

	p.complete(content, nil)
	return true
}

// FailPending completes the pending request for path with err. It returns
// false if no request is pending for path.
func (c *Client) FailPending(path model.Address, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[path]
	if ok {
		delete(c.pending, path)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	p.complete(nil, err)
	return true
}

// ExpirePending completes every request whose deadline is before now with
// ErrPendingExpired and returns how many expired.
func (c *Client) ExpirePending(now time.Time) int {
	c.mu.Lock()
	var expired []*PendingRequest
	for path, p := range c.pending {
		if p.expired(now) {
			delete(c.pending, path)
			expired = append(expired, p)
		}
	}
	c.mu.Unlock()

	for _, p := range expired {
		p.complete(nil, ErrPendingExpired)
	}
	return len(expired)
}

// CancelPending completes every awaited request with ErrPendingCanceled.
func (c *Client) CancelPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[model.Address]*PendingRequest)
	c.mu.Unlock()

	for _, p := range pending {
		p.complete(nil, ErrPendingCanceled)
	}
}

// UpdateValues merges content into the cached values.
func (c *Client) UpdateValues(content wire.Content) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mergeValuesLocked(content)
}

func (c *Client) mergeValuesLocked(content wire.Content) {
	maps.Copy(c.values, content)
	c.lastUpdate = time.Now()
}

// Value returns the cached value at addr.
func (c *Client) Value(addr model.Address) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[addr.String()]
	return v, ok
}

// Values returns a copy of the cached values.
func (c *Client) Values() wire.Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(wire.Content(c.values))
}

// LastUpdate returns when the cached values last changed.
func (c *Client) LastUpdate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdate
}

// AddObservation records an accepted observation, replacing any earlier one
// on the same path.
func (c *Client) AddObservation(obs wire.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observations[obs.Path] = obs
}

// Observation returns the observation active on path.
func (c *Client) Observation(path model.Address) (wire.Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obs, ok := c.observations[path]
	return obs, ok
}

// RemoveObservation forgets the observation on path.
func (c *Client) RemoveObservation(path model.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.observations, path)
}

// Observations returns the active observations ordered by path.
func (c *Client) Observations() []wire.Observation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.Observation, 0, len(c.observations))
	for _, obs := range c.observations {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path.String() < out[j].Path.String()
	})
	return out
}
